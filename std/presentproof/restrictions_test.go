package presentproof

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	issuerA = "Th7MpTaRZVRYnPiabds81Y"
	issuerB = "V4SGRU86Z58d6TV7PBUe6f"
	schema  = "Th7MpTaRZVRYnPiabds81Y:2:pessoa:1.0"
)

func TestRestrictionsMatch(t *testing.T) {
	fromA := Identifier{IssuerDid: issuerA, SchemaID: schema, CredDefID: issuerA + ":3:CL:1:default"}
	fromB := Identifier{IssuerDid: issuerB, SchemaID: schema, CredDefID: issuerB + ":3:CL:1:default"}

	either := Restrictions{
		{IssuerDid: issuerA, SchemaID: schema},
		{IssuerDid: issuerB, SchemaID: schema},
	}
	onlyB := Restrictions{{IssuerDid: issuerB}}
	sameFieldsWrongPair := Restrictions{{IssuerDid: issuerA, CredDefID: fromB.CredDefID}}

	tests := []struct {
		name string
		r    Restrictions
		id   Identifier
		want bool
	}{
		{"empty accepts", nil, fromA, true},
		{"or A", either, fromA, true},
		{"or B", either, fromB, true},
		{"only B rejects A", onlyB, fromA, false},
		{"only B accepts B", onlyB, fromB, true},
		{"and inside filter", sameFieldsWrongPair, fromA, false},
		{"and inside filter B", sameFieldsWrongPair, fromB, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.r.Match(tt.id))
		})
	}
}

func TestRestrictionsUnmarshal(t *testing.T) {
	var info AttrInfo
	require.NoError(t, json.Unmarshal([]byte(`{"name":"nome","restrictions":{"issuer_did":"`+issuerA+`"}}`), &info))
	require.Len(t, info.Restrictions, 1)
	require.Equal(t, issuerA, info.Restrictions[0].IssuerDid)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"nome","restrictions":[{"issuer_did":"a"},{"issuer_did":"b"}]}`), &info))
	require.Len(t, info.Restrictions, 2)

	require.Error(t, json.Unmarshal([]byte(`{"name":"nome","restrictions":7}`), &info))
}

func TestCredIDs(t *testing.T) {
	rc := RequestedCredentials{
		RequestedAttributes: map[string]RequestedAttr{
			"b_attr": {CredID: "c2", Revealed: true},
			"a_attr": {CredID: "c1", Revealed: true},
		},
		RequestedPredicates: map[string]RequestedPred{
			"p": {CredID: "c1"},
			"q": {CredID: "c3"},
		},
	}
	require.Equal(t, []string{"c1", "c2", "c3"}, rc.CredIDs())
}
