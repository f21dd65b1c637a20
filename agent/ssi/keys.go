package ssi

import (
	"crypto/ed25519"
	"errors"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
)

// SigningKey returns the private key of an own verkey. It is the only read
// path to key material and it is meant for the crypto layers, never for
// output.
func (w *Wallet) SigningKey(verkey string) (ed25519.PrivateKey, error) {
	seed, err := w.store.Get(enclave.BucketSecret, verkey)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.DidNotFound, "no private key for verkey %s", verkey)
	} else if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Sign signs msg with the key of an own DID.
func (w *Wallet) Sign(did string, msg []byte) ([]byte, error) {
	r, err := w.Get(did)
	if err != nil {
		return nil, err
	}
	priv, err := w.SigningKey(r.Verkey)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, msg), nil
}

// Verify checks sig with the verkey of a known DID, own or external.
func (w *Wallet) Verify(did string, msg, sig []byte) (bool, error) {
	r, err := w.Get(did)
	if err != nil {
		return false, err
	}
	return VerifySignature(r.Verkey, msg, sig)
}
