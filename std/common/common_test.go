package common

import (
	"testing"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/std/presentproof"
	"github.com/lainio/err2/assert"
)

func TestSchemasCompile(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	once.Do(load)
	assert.Equal(len(compiled), len(schemas))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		doc  string
		ok   bool
	}{
		{"offer", KindOffer, `{"schema_id":"s","cred_def_id":"c","nonce":"1"}`, true},
		{"offer no nonce", KindOffer, `{"schema_id":"s","cred_def_id":"c"}`, false},
		{"offer nonce number", KindOffer, `{"schema_id":"s","cred_def_id":"c","nonce":1}`, false},
		{"not json", KindOffer, `{`, false},
		{"proof request", KindProofRequest, `{"nonce":"1","name":"n","version":"1.0",
			"requested_attributes":{"a":{"name":"nome","restrictions":[{"issuer_did":"x"}]}},
			"requested_predicates":{"p":{"name":"idade","p_type":">=","p_value":18,"restrictions":{"issuer_did":"x"}}}}`, true},
		{"bad p_type", KindProofRequest, `{"nonce":"1","name":"n","version":"1.0","requested_attributes":{},
			"requested_predicates":{"p":{"name":"idade","p_type":"==","p_value":18}}}`, false},
		{"envelope mode", KindEnvelope, `{"mode":"plain","kind":"k","thread_id":"t","recipient_verkey":"v","payload":{}}`, false},
		{"package", KindPresentationPackage, `{"type":"ssi.presentation.package","version":1,
			"presentation":{},"presentation_request":{"nonce":"1"},"meta":{}}`, true},
		{"package version", KindPresentationPackage, `{"type":"ssi.presentation.package","version":2,
			"presentation":{},"presentation_request":{"nonce":"1"}}`, false},
		{"unknown kind", Kind("x"), `{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			err := Validate(tt.kind, []byte(tt.doc))
			if tt.ok {
				assert.NoError(err)
			} else {
				assert.That(core.Is(err, core.ValidationFailed))
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	var pr presentproof.ProofRequest
	err := Unmarshal(KindProofRequest, []byte(`{"nonce":"42","name":"n","version":"1.0",
		"requested_attributes":{"a":{"name":"nome"}}}`), &pr)
	assert.NoError(err)
	assert.Equal(pr.Nonce, "42")
	assert.Equal(pr.RequestedAttributes["a"].Name, "nome")
}
