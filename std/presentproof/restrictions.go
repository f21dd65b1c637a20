package presentproof

import (
	"encoding/json"
	"sort"
)

// Filter is one alternative of a restriction. Every set field must match.
type Filter struct {
	IssuerDid string `json:"issuer_did,omitempty"`
	SchemaID  string `json:"schema_id,omitempty"`
	CredDefID string `json:"cred_def_id,omitempty"`
}

// Restrictions are alternatives: a credential is acceptable if it matches
// any one filter. No filters accepts any credential.
type Restrictions []Filter

// Match tells if the identifier satisfies the filter.
func (f Filter) Match(id Identifier) bool {
	if f.IssuerDid != "" && f.IssuerDid != id.IssuerDid {
		return false
	}
	if f.SchemaID != "" && f.SchemaID != id.SchemaID {
		return false
	}
	if f.CredDefID != "" && f.CredDefID != id.CredDefID {
		return false
	}
	return true
}

// Match tells if the identifier satisfies at least one alternative.
func (r Restrictions) Match(id Identifier) bool {
	if len(r) == 0 {
		return true
	}
	for _, f := range r {
		if f.Match(id) {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts a single filter object as well as a list.
func (r *Restrictions) UnmarshalJSON(data []byte) error {
	var list []Filter
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}
	var one Filter
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*r = Restrictions{one}
	return nil
}

// SortedKeys returns the referents of m in order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
