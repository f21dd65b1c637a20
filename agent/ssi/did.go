package ssi

import (
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/mr-tron/base58"
)

// MethodSov is the only DID method the wallet mints.
const MethodSov = "sov"

// DidType tells if we own the private key of the DID.
type DidType string

const (
	DidOwn      DidType = "own"
	DidExternal DidType = "external"
)

// Origin tells how an own DID came to the wallet.
type Origin string

const (
	OriginGenerated    Origin = "generated"
	OriginImportedSeed Origin = "imported_seed"
	OriginImported     Origin = "imported"
)

// Ledger roles. The empty role is a plain identity owner.
const (
	RoleTrustee  = "TRUSTEE"
	RoleSteward  = "STEWARD"
	RoleEndorser = "ENDORSER"
)

// LedgerInfo is set when the DID is registered on the ledger.
type LedgerInfo struct {
	RegisteredAt time.Time `json:"registered_at"`
	SubmitterDid string    `json:"submitter_did"`
}

// DidRecord is the public view of a DID in the wallet. It never carries seed
// or private key material, those are in a separate bucket keyed by verkey.
type DidRecord struct {
	Did       string      `json:"did"`
	Verkey    string      `json:"verkey"`
	Method    string      `json:"method"`
	Type      DidType     `json:"type"`
	Role      string      `json:"role,omitempty"`
	IsPublic  bool        `json:"is_public"`
	Origin    Origin      `json:"origin,omitempty"`
	Alias     string      `json:"alias,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Ledger    *LedgerInfo `json:"ledger,omitempty"`
}

// URI returns the fully qualified form, e.g. did:sov:VsKV7grR1BUE29mG2Fm2kX.
func (r *DidRecord) URI() string {
	return "did:" + r.Method + ":" + r.Did
}

// IsOwn tells if the wallet holds the private key of the DID.
func (r *DidRecord) IsOwn() bool {
	return r.Type == DidOwn
}

// DidFromVerkey derives the sov style DID: base58 of the first 16 bytes of
// the public key.
func DidFromVerkey(pub ed25519.PublicKey) string {
	return base58.Encode(pub[:16])
}

// EncodeVerkey returns the base58 form of the public key.
func EncodeVerkey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// DecodeVerkey parses a base58 verkey. An abbreviated verkey (~ prefix) is
// not accepted because it cannot be expanded without the DID.
func DecodeVerkey(verkey string) (ed25519.PublicKey, error) {
	if strings.HasPrefix(verkey, "~") {
		return nil, core.New(core.InvalidIdentifierFormat, "abbreviated verkey")
	}
	b, err := base58.Decode(verkey)
	if err != nil {
		return nil, core.Wrap(core.InvalidIdentifierFormat, err, "verkey")
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, core.New(core.InvalidIdentifierFormat,
			"verkey length %d", len(b))
	}
	return ed25519.PublicKey(b), nil
}

// CheckDid tells if did is the sov DID of verkey.
func CheckDid(did, verkey string) error {
	pub, err := DecodeVerkey(verkey)
	if err != nil {
		return err
	}
	if DidFromVerkey(pub) != did {
		return core.New(core.InvalidIdentifierFormat,
			"DID %s does not match its verkey", did)
	}
	return nil
}

// VerifySignature checks an ed25519 signature made by verkey.
func VerifySignature(verkey string, msg, sig []byte) (bool, error) {
	pub, err := DecodeVerkey(verkey)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, msg, sig), nil
}
