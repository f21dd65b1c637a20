/*
Package local is an in-process credential math engine. It stands in for the
external zero-knowledge engine and keeps its observable contract: revealed
attributes open, hidden predicates prove a comparison without the value, and
the credential is bound to the holder's link secret.

It is not zero-knowledge arithmetic. The issuer signs salted commitments of
every attribute and, for numeric attributes, the heads of two hash chains:

	headGE = H^v(seedGE)
	headLE = H^(max-v)(seedLE)

To prove v >= t the holder reveals L = H^(v-t)(seedGE), and the verifier
checks H^t(L) == headGE. The LE chain proves v <= t the same way. Neither
reveals v.

The blinded link secret in the signed body is an ed25519 public key derived
from the link secret and the request's blinding. The holder signs each
presentation, nonce included, with the matching private key.
*/
package local

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/arlindoconceicao/vertex-sub000/agent/engine"
	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	ic "github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

const maxValue = ic.MaxPredicateValue

// Engine is the local engine. The zero value is ready to use.
type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

// New returns the local engine.
func New() *Engine {
	return &Engine{}
}

// signedBody is what the issuer signs. Maps are keyed by the normalized
// attribute name.
type signedBody struct {
	SchemaID    string               `json:"schema_id"`
	CredDefID   string               `json:"cred_def_id"`
	BlindedMS   string               `json:"blinded_ms"`
	Commitments map[string]string    `json:"commitments"`
	Chains      map[string]chainHead `json:"chains"`
}

type chainHead struct {
	GE string `json:"ge"`
	LE string `json:"le"`
}

// signature is the credential's signature part. Salts and seeds are the
// holder's openings and never leave the holder as such.
type signature struct {
	Body  signedBody           `json:"body"`
	Sig   string               `json:"sig"`
	Salts map[string]string    `json:"salts"`
	Seeds map[string]chainHead `json:"seeds"`
}

type keyProof struct {
	Sig string `json:"sig"`
}

func (e *Engine) NewCredDef(issuerDid string, s *vc.Schema, tag string) (cd *vc.CredDef, priv []byte, err error) {
	defer err2.Handle(&err, "new cred def")

	if tag == "" {
		tag = vc.DefaultTag
	}
	ref := s.ID
	if s.SeqNo > 0 {
		ref = strconv.Itoa(s.SeqNo)
	}
	pub, key := try.To2(ed25519.GenerateKey(rand.Reader))
	cd = &vc.CredDef{
		Ver:      "1.0",
		ID:       vc.CredDefID(issuerDid, ref, tag),
		SchemaID: s.ID,
		Type:     vc.SignatureType,
		Tag:      tag,
		Value:    vc.CredDefValue{PublicKey: base58.Encode(pub)},
	}
	return cd, key.Seed(), nil
}

func (e *Engine) CreateOffer(cd *vc.CredDef, priv []byte) (o *ic.Offer, err error) {
	defer err2.Handle(&err, "create offer")

	nonce := utils.NewNonceStr()
	sig := ed25519.Sign(signingKey(priv), offerMsg(cd.ID, nonce))
	kp := try.To1(json.Marshal(keyProof{Sig: b64(sig)}))
	return &ic.Offer{
		SchemaID:            cd.SchemaID,
		CredDefID:           cd.ID,
		Nonce:               nonce,
		KeyCorrectnessProof: kp,
	}, nil
}

func (e *Engine) CreateCredentialRequest(
	proverDid string,
	cd *vc.CredDef,
	offer *ic.Offer,
	linkSecret []byte,
) (
	req *ic.Request,
	meta *ic.RequestMetadata,
	err error,
) {
	defer err2.Handle(&err, "create credential request")

	if offer.CredDefID != cd.ID {
		return nil, nil, core.New(core.ValidationFailed,
			"offer is for %s, not %s", offer.CredDefID, cd.ID)
	}
	pub := try.To1(publicKey(cd))
	var kp keyProof
	if err := json.Unmarshal(offer.KeyCorrectnessProof, &kp); err != nil ||
		!ed25519.Verify(pub, offerMsg(cd.ID, offer.Nonce), unb64(kp.Sig)) {
		return nil, nil, core.New(core.ValidationFailed,
			"offer key correctness proof doesn't match %s", cd.ID)
	}

	blinding := random(32)
	blindedMS := blindedSecret(linkSecret, blinding)
	req = &ic.Request{
		ProverDid:                 proverDid,
		CredDefID:                 cd.ID,
		BlindedMS:                 blindedMS,
		BlindedMSCorrectnessProof: hexHash([]byte("msp"), []byte(blindedMS), []byte(offer.Nonce)),
		Nonce:                     utils.NewNonceStr(),
	}
	meta = &ic.RequestMetadata{
		Nonce:     offer.Nonce,
		CredDefID: cd.ID,
		Blinding:  hex.EncodeToString(blinding),
	}
	return req, meta, nil
}

func (e *Engine) IssueCredential(
	cd *vc.CredDef,
	priv []byte,
	offer *ic.Offer,
	req *ic.Request,
	values ic.Values,
) (c *ic.Credential, err error) {
	defer err2.Handle(&err, "issue credential")

	if offer.CredDefID != cd.ID || req.CredDefID != cd.ID {
		return nil, core.New(core.ValidationFailed, "request, offer and cred def differ")
	}
	want := hexHash([]byte("msp"), []byte(req.BlindedMS), []byte(offer.Nonce))
	if req.BlindedMSCorrectnessProof != want {
		return nil, core.New(core.ValidationFailed, "request isn't for offer %s", offer.Nonce)
	}

	sig := signature{
		Body: signedBody{
			SchemaID:    cd.SchemaID,
			CredDefID:   cd.ID,
			BlindedMS:   req.BlindedMS,
			Commitments: make(map[string]string, len(values)),
			Chains:      make(map[string]chainHead),
		},
		Salts: make(map[string]string, len(values)),
		Seeds: make(map[string]chainHead),
	}
	for name, v := range values {
		if v.Encoded != ic.Encode(v.Raw) {
			return nil, core.New(core.ValidationFailed, "value of %s: encoding mismatch", name)
		}
		n := vc.NormalizeAttr(name)
		salt := random(16)
		sig.Salts[n] = hex.EncodeToString(salt)
		sig.Body.Commitments[n] = commitment(salt, n, v.Encoded)

		if i, ok := ic.PredicateValue(v.Raw); ok {
			ge, le := random(32), random(32)
			sig.Seeds[n] = chainHead{GE: hex.EncodeToString(ge), LE: hex.EncodeToString(le)}
			sig.Body.Chains[n] = chainHead{
				GE: hex.EncodeToString(hashChain(ge, i)),
				LE: hex.EncodeToString(hashChain(le, maxValue-i)),
			}
		}
	}
	body := try.To1(json.Marshal(sig.Body))
	sig.Sig = b64(ed25519.Sign(signingKey(priv), body))

	glog.V(3).Infof("credential issued on %s, %d attributes", cd.ID, len(values))
	return &ic.Credential{
		SchemaID:  cd.SchemaID,
		CredDefID: cd.ID,
		Values:    values,
		Signature: try.To1(json.Marshal(sig)),
	}, nil
}

// holderCred is the processed credential the holder stores.
type holderCred struct {
	Signature signature `json:"signature"`
	Blinding  string    `json:"blinding"`
}

func (e *Engine) ProcessCredential(
	cred *ic.Credential,
	meta *ic.RequestMetadata,
	linkSecret []byte,
	cd *vc.CredDef,
) (processed json.RawMessage, err error) {
	defer err2.Handle(&err, "process credential")

	if cred.CredDefID != cd.ID || meta.CredDefID != cd.ID || cred.SchemaID != cd.SchemaID {
		return nil, core.New(core.InvalidCredential, "credential isn't of %s", cd.ID)
	}
	var sig signature
	if err := json.Unmarshal(cred.Signature, &sig); err != nil {
		return nil, core.Wrap(core.InvalidCredential, err, "signature")
	}
	if err := checkBody(&sig.Body, sig.Sig, cd); err != nil {
		return nil, core.Wrap(core.InvalidCredential, err, "signature")
	}
	if sig.Body.SchemaID != cred.SchemaID || sig.Body.CredDefID != cred.CredDefID {
		return nil, core.New(core.InvalidCredential, "signed identifiers differ")
	}
	blinding, err := hex.DecodeString(meta.Blinding)
	if err != nil || blindedSecret(linkSecret, blinding) != sig.Body.BlindedMS {
		return nil, core.New(core.InvalidCredential, "credential isn't bound to our link secret")
	}
	if len(sig.Body.Commitments) != len(cred.Values) {
		return nil, core.New(core.InvalidCredential, "values and commitments differ")
	}
	for name, v := range cred.Values {
		n := vc.NormalizeAttr(name)
		if v.Encoded != ic.Encode(v.Raw) ||
			!opens(sig.Salts[n], n, v.Encoded, sig.Body.Commitments[n]) {
			return nil, core.New(core.InvalidCredential, "value of %s", name)
		}
		if i, ok := ic.PredicateValue(v.Raw); ok {
			seeds, head := sig.Seeds[n], sig.Body.Chains[n]
			if !chainMatches(seeds.GE, i, head.GE) || !chainMatches(seeds.LE, maxValue-i, head.LE) {
				return nil, core.New(core.InvalidCredential, "predicate chain of %s", name)
			}
		}
	}
	return json.Marshal(holderCred{Signature: sig, Blinding: meta.Blinding})
}

func checkBody(body *signedBody, sig string, cd *vc.CredDef) error {
	pub, err := publicKey(cd)
	if err != nil {
		return err
	}
	d, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, d, unb64(sig)) {
		return core.New(core.ProofRejected, "signature doesn't verify with %s", cd.ID)
	}
	return nil
}

func publicKey(cd *vc.CredDef) (ed25519.PublicKey, error) {
	b, err := base58.Decode(cd.Value.PublicKey)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, core.New(core.ValidationFailed, "cred def %s public key", cd.ID)
	}
	return b, nil
}

func signingKey(priv []byte) ed25519.PrivateKey {
	if len(priv) != ed25519.SeedSize {
		panic("cred def key length")
	}
	return ed25519.NewKeyFromSeed(priv)
}

// holderKey is the key the link secret gives for one credential.
func holderKey(linkSecret, blinding []byte) ed25519.PrivateKey {
	seed := sha256.Sum256(append(append([]byte("ms"), linkSecret...), blinding...))
	return ed25519.NewKeyFromSeed(seed[:])
}

func blindedSecret(linkSecret, blinding []byte) string {
	return hex.EncodeToString(holderKey(linkSecret, blinding).Public().(ed25519.PublicKey))
}

func holderPublic(blindedMS string) (ed25519.PublicKey, bool) {
	b, err := hex.DecodeString(blindedMS)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, false
	}
	return b, true
}

func offerMsg(credDefID, nonce string) []byte {
	return []byte("kcp:" + credDefID + ":" + nonce)
}

func commitment(salt []byte, name, encoded string) string {
	return hexHash(salt, []byte{0}, []byte(name), []byte{0}, []byte(encoded))
}

func opens(saltHex, name, encoded, commit string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil || commit == "" {
		return false
	}
	return commitment(salt, name, encoded) == commit
}

func hashChain(seed []byte, n int) []byte {
	h := append([]byte(nil), seed...)
	for i := 0; i < n; i++ {
		s := sha256.Sum256(h)
		h = s[:]
	}
	return h
}

func chainMatches(linkHex string, n int, headHex string) bool {
	link, err := hex.DecodeString(linkHex)
	if err != nil || len(link) == 0 || n < 0 {
		return false
	}
	return hex.EncodeToString(hashChain(link, n)) == headHex
}

func hexHash(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func random(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("cannot read random: " + err.Error())
	}
	return b
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func unb64(s string) []byte {
	b, _ := base64.RawURLEncoding.DecodeString(s)
	return b
}
