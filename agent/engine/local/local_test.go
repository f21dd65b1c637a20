package local

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	ic "github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	pp "github.com/arlindoconceicao/vertex-sub000/std/presentproof"
	"github.com/lainio/err2/assert"
)

type fixture struct {
	e          *Engine
	issuer     string
	schema     *vc.Schema
	cd         *vc.CredDef
	priv       []byte
	linkSecret []byte
}

func newDid() string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return ssi.DidFromVerkey(pub)
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{e: New(), issuer: newDid(), linkSecret: random(32)}
	var err error
	f.schema, err = vc.NewSchema(f.issuer, "pessoa", "1.0", []string{"nome", "idade", "contato"})
	assert.NoError(err)
	f.cd, f.priv, err = f.e.NewCredDef(f.issuer, f.schema, "")
	assert.NoError(err)
	return f
}

// issue runs the whole issuance and returns the stored credential.
func (f *fixture) issue(t *testing.T, idLocal string, raw map[string]string) *ic.StoredCredential {
	t.Helper()
	offer, err := f.e.CreateOffer(f.cd, f.priv)
	assert.NoError(err)
	req, meta, err := f.e.CreateCredentialRequest(newDid(), f.cd, offer, f.linkSecret)
	assert.NoError(err)
	assert.Equal(meta.Nonce, offer.Nonce)
	cred, err := f.e.IssueCredential(f.cd, f.priv, offer, req, ic.NewValues(raw))
	assert.NoError(err)
	processed, err := f.e.ProcessCredential(cred, meta, f.linkSecret, f.cd)
	assert.NoError(err)
	issuer, _ := vc.IssuerOf(cred.CredDefID)
	return &ic.StoredCredential{
		IDLocal:   idLocal,
		SchemaID:  cred.SchemaID,
		CredDefID: cred.CredDefID,
		IssuerDid: issuer,
		Values:    cred.Values,
		Processed: processed,
	}
}

func (f *fixture) maps() (map[string]*vc.Schema, map[string]*vc.CredDef) {
	return map[string]*vc.Schema{f.schema.ID: f.schema}, map[string]*vc.CredDef{f.cd.ID: f.cd}
}

func ageRequest(pType string, pValue int) *pp.ProofRequest {
	return &pp.ProofRequest{
		Nonce:   "123456",
		Name:    "age check",
		Version: "1.0",
		RequestedAttributes: map[string]pp.AttrInfo{
			"attr_nome": {Name: "nome"},
		},
		RequestedPredicates: map[string]pp.PredicateInfo{
			"pred_idade": {Name: "idade", PType: pType, PValue: pValue},
		},
	}
}

func selectAll(id string, req *pp.ProofRequest) *pp.RequestedCredentials {
	rc := &pp.RequestedCredentials{
		RequestedAttributes: map[string]pp.RequestedAttr{},
		RequestedPredicates: map[string]pp.RequestedPred{},
	}
	for ref := range req.RequestedAttributes {
		rc.RequestedAttributes[ref] = pp.RequestedAttr{CredID: id, Revealed: true}
	}
	for ref := range req.RequestedPredicates {
		rc.RequestedPredicates[ref] = pp.RequestedPred{CredID: id}
	}
	return rc
}

func TestPredicates(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	f := setup(t)
	adult := f.issue(t, "adult", map[string]string{"nome": "Alice", "idade": "35", "contato": "a@x"})
	minor := f.issue(t, "minor", map[string]string{"nome": "Bob", "idade": "17", "contato": "b@x"})
	schemas, credDefs := f.maps()

	tests := []struct {
		name   string
		cred   *ic.StoredCredential
		pType  string
		pValue int
		holds  bool
	}{
		{"35 >= 18", adult, pp.GE, 18, true},
		{"35 >= 35", adult, pp.GE, 35, true},
		{"35 >= 36", adult, pp.GE, 36, false},
		{"35 > 34", adult, pp.GT, 34, true},
		{"35 > 35", adult, pp.GT, 35, false},
		{"35 <= 35", adult, pp.LE, 35, true},
		{"35 < 35", adult, pp.LT, 35, false},
		{"35 >= -5", adult, pp.GE, -5, true},
		{"35 <= 99999", adult, pp.LE, 99999, true},
		{"17 >= 18", minor, pp.GE, 18, false},
		{"17 < 18", minor, pp.LT, 18, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			req := ageRequest(tt.pType, tt.pValue)
			creds := map[string]*ic.StoredCredential{tt.cred.IDLocal: tt.cred}
			proof, err := f.e.CreatePresentation(req, selectAll(tt.cred.IDLocal, req),
				creds, f.linkSecret, schemas, credDefs)
			if !tt.holds {
				assert.That(core.Is(err, core.PredicateNotSatisfied))
				return
			}
			assert.NoError(err)
			ok, err := f.e.VerifyPresentation(req, proof, schemas, credDefs)
			assert.NoError(err)
			assert.That(ok)

			// the value is never in the presentation
			_, revealed := proof.RequestedProof.RevealedAttrs["pred_idade"]
			assert.ThatNot(revealed)
			assert.Equal(proof.RequestedProof.RevealedAttrs["attr_nome"].Raw, tt.cred.Values["nome"].Raw)
		})
	}
}

func TestPredicateProofIsNotReusable(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	f := setup(t)
	c := f.issue(t, "c", map[string]string{"nome": "Alice", "idade": "35", "contato": "x"})
	schemas, credDefs := f.maps()
	req := ageRequest(pp.GE, 18)
	proof, err := f.e.CreatePresentation(req, selectAll("c", req),
		map[string]*ic.StoredCredential{"c": c}, f.linkSecret, schemas, credDefs)
	assert.NoError(err)

	// the same proof doesn't prove a stronger claim
	stronger := ageRequest(pp.GE, 40)
	ok, err := f.e.VerifyPresentation(stronger, proof, schemas, credDefs)
	assert.ThatNot(ok)
	assert.That(core.Is(err, core.ProofRejected))

	// nor any claim of another request
	other := ageRequest(pp.GE, 18)
	other.Nonce = "654321"
	ok, err = f.e.VerifyPresentation(other, proof, schemas, credDefs)
	assert.ThatNot(ok)
	assert.That(core.Is(err, core.ProofRejected))

	// rewriting the nonce inside the proof data breaks the holder signature
	var data map[string]json.RawMessage
	assert.NoError(json.Unmarshal(proof.Proof, &data))
	data["nonce"] = json.RawMessage(`"` + other.Nonce + `"`)
	moved := *proof
	moved.Proof, err = json.Marshal(data)
	assert.NoError(err)
	ok, err = f.e.VerifyPresentation(other, &moved, schemas, credDefs)
	assert.ThatNot(ok)
	assert.That(core.Is(err, core.ProofRejected))

	// the original still verifies for its own request
	ok, err = f.e.VerifyPresentation(req, proof, schemas, credDefs)
	assert.NoError(err)
	assert.That(ok)
}

func TestHolderSignature(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	f := setup(t)
	c := f.issue(t, "c", map[string]string{"nome": "Alice", "idade": "35", "contato": "x"})
	schemas, credDefs := f.maps()
	req := ageRequest(pp.GE, 18)
	proof, err := f.e.CreatePresentation(req, selectAll("c", req),
		map[string]*ic.StoredCredential{"c": c}, f.linkSecret, schemas, credDefs)
	assert.NoError(err)

	var data proofData
	assert.NoError(json.Unmarshal(proof.Proof, &data))
	assert.Equal(len(data.SubProofs), 1)
	assert.NotEmpty(data.SubProofs[0].Holder)
	assert.NoError(checkHolder(data))

	// a key that isn't the credential's can't re-sign the data
	data.Nonce = "654321"
	data.SubProofs[0].Holder = ""
	msg, err := json.Marshal(data)
	assert.NoError(err)
	data.SubProofs[0].Holder = b64(ed25519.Sign(holderKey(random(32), random(32)), msg))
	assert.That(core.Is(checkHolder(data), core.ProofRejected))

	// another link secret can't present the credential at all
	_, err = f.e.CreatePresentation(req, selectAll("c", req),
		map[string]*ic.StoredCredential{"c": c}, random(32), schemas, credDefs)
	assert.That(core.Is(err, core.InvalidCredential))
}

func TestTampering(t *testing.T) {
	f := setup(t)
	c := f.issue(t, "c", map[string]string{"nome": "Alice", "idade": "35", "contato": "x"})
	schemas, credDefs := f.maps()
	req := ageRequest(pp.GE, 18)

	fresh := func(t *testing.T) *pp.Proof {
		proof, err := f.e.CreatePresentation(req, selectAll("c", req),
			map[string]*ic.StoredCredential{"c": c}, f.linkSecret, schemas, credDefs)
		assert.NoError(err)
		return proof
	}

	t.Run("revealed value", func(t *testing.T) {
		assert.PushTester(t)
		defer assert.PopTester()
		proof := fresh(t)
		ra := proof.RequestedProof.RevealedAttrs["attr_nome"]
		ra.Raw, ra.Encoded = "Mallory", ic.Encode("Mallory")
		proof.RequestedProof.RevealedAttrs["attr_nome"] = ra
		ok, err := f.e.VerifyPresentation(req, proof, schemas, credDefs)
		assert.ThatNot(ok)
		assert.That(core.Is(err, core.ProofRejected))
	})
	t.Run("issuer claim", func(t *testing.T) {
		assert.PushTester(t)
		defer assert.PopTester()
		proof := fresh(t)
		proof.Identifiers[0].IssuerDid = newDid()
		ok, err := f.e.VerifyPresentation(req, proof, schemas, credDefs)
		assert.ThatNot(ok)
		assert.That(core.Is(err, core.ProofRejected))
	})
	t.Run("unknown cred def", func(t *testing.T) {
		assert.PushTester(t)
		defer assert.PopTester()
		proof := fresh(t)
		ok, err := f.e.VerifyPresentation(req, proof, schemas, map[string]*vc.CredDef{})
		assert.ThatNot(ok)
		assert.That(core.Is(err, core.ProofRejected))
	})
	t.Run("missing predicate", func(t *testing.T) {
		assert.PushTester(t)
		defer assert.PopTester()
		proof := fresh(t)
		delete(proof.RequestedProof.Predicates, "pred_idade")
		ok, err := f.e.VerifyPresentation(req, proof, schemas, credDefs)
		assert.ThatNot(ok)
		assert.That(core.Is(err, core.ProofRejected))
	})
}

func TestRestrictionsAreVerified(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	f := setup(t)
	c := f.issue(t, "c", map[string]string{"nome": "Alice", "idade": "35", "contato": "x"})
	schemas, credDefs := f.maps()
	req := ageRequest(pp.GE, 18)
	req.RequestedAttributes["attr_contato"] = pp.AttrInfo{
		Name:         "contato",
		Restrictions: pp.Restrictions{{IssuerDid: newDid()}},
	}

	// construction is permissive
	proof, err := f.e.CreatePresentation(req, selectAll("c", req),
		map[string]*ic.StoredCredential{"c": c}, f.linkSecret, schemas, credDefs)
	assert.NoError(err)

	ok, err := f.e.VerifyPresentation(req, proof, schemas, credDefs)
	assert.ThatNot(ok)
	assert.That(core.Is(err, core.RestrictionValidationFailed))

	req.RequestedAttributes["attr_contato"] = pp.AttrInfo{
		Name: "contato",
		Restrictions: pp.Restrictions{
			{IssuerDid: newDid()},
			{IssuerDid: f.issuer, CredDefID: f.cd.ID},
		},
	}
	proof, err = f.e.CreatePresentation(req, selectAll("c", req),
		map[string]*ic.StoredCredential{"c": c}, f.linkSecret, schemas, credDefs)
	assert.NoError(err)
	ok, err = f.e.VerifyPresentation(req, proof, schemas, credDefs)
	assert.NoError(err)
	assert.That(ok)
}

func TestIssuanceChecks(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	f := setup(t)
	offer, err := f.e.CreateOffer(f.cd, f.priv)
	assert.NoError(err)

	// an offer signed by someone else's key
	_, otherPriv, err := f.e.NewCredDef(f.issuer, f.schema, "other")
	assert.NoError(err)
	forged, err := f.e.CreateOffer(f.cd, otherPriv)
	assert.NoError(err)
	_, _, err = f.e.CreateCredentialRequest(newDid(), f.cd, forged, f.linkSecret)
	assert.That(core.Is(err, core.ValidationFailed))

	req, meta, err := f.e.CreateCredentialRequest(newDid(), f.cd, offer, f.linkSecret)
	assert.NoError(err)

	// a request made for another offer
	second, err := f.e.CreateOffer(f.cd, f.priv)
	assert.NoError(err)
	_, err = f.e.IssueCredential(f.cd, f.priv, second, req, ic.NewValues(map[string]string{"nome": "x"}))
	assert.That(core.Is(err, core.ValidationFailed))

	cred, err := f.e.IssueCredential(f.cd, f.priv, offer, req,
		ic.NewValues(map[string]string{"nome": "Alice", "idade": "35", "contato": "x"}))
	assert.NoError(err)

	// another link secret can't take the credential
	_, err = f.e.ProcessCredential(cred, meta, random(32), f.cd)
	assert.That(core.Is(err, core.InvalidCredential))

	// changed values don't match the signature
	cred.Values["idade"] = ic.AttrValue{Raw: "99", Encoded: "99"}
	_, err = f.e.ProcessCredential(cred, meta, f.linkSecret, f.cd)
	assert.That(core.Is(err, core.InvalidCredential))

	var sig signature
	cred.Values["idade"] = ic.AttrValue{Raw: "35", Encoded: "35"}
	assert.NoError(json.Unmarshal(cred.Signature, &sig))
	assert.Equal(len(sig.Body.Chains), 1)
	_, err = f.e.ProcessCredential(cred, meta, f.linkSecret, f.cd)
	assert.NoError(err)
}
