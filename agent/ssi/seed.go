package ssi

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"

	"github.com/arlindoconceicao/vertex-sub000/core"
)

// DecodeSeed accepts a 32 byte seed as raw text, hex or base64 (standard or
// URL alphabet, padded or not). Every encoding of the same bytes gives the
// same seed.
func DecodeSeed(seed string) ([]byte, error) {
	if len(seed) == 2*ed25519.SeedSize {
		if b, err := hex.DecodeString(seed); err == nil {
			return b, nil
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(seed); err == nil && len(b) == ed25519.SeedSize {
			return b, nil
		}
	}
	if len(seed) == ed25519.SeedSize {
		return []byte(seed), nil
	}
	return nil, core.New(core.ValidationFailed,
		"seed must be %d bytes raw, hex or base64", ed25519.SeedSize)
}
