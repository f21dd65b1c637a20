// Package presentproof holds the wire formats of the presentation exchange:
// the proof request with its restrictions, the holder's choice of
// credentials, and the presentation itself.
package presentproof

import (
	"bytes"
	"encoding/json"
	"time"
)

// Predicate types.
const (
	GE = ">="
	GT = ">"
	LE = "<="
	LT = "<"
)

// ValidPType tells if p is a supported predicate type.
func ValidPType(p string) bool {
	switch p {
	case GE, GT, LE, LT:
		return true
	}
	return false
}

// Satisfies tells if value holds the predicate against threshold.
func Satisfies(pType string, value, threshold int) bool {
	switch pType {
	case GE:
		return value >= threshold
	case GT:
		return value > threshold
	case LE:
		return value <= threshold
	case LT:
		return value < threshold
	}
	return false
}

// ProofRequest is built by the verifier.
type ProofRequest struct {
	Nonce               string                   `json:"nonce"`
	Name                string                   `json:"name"`
	Version             string                   `json:"version"`
	RequestedAttributes map[string]AttrInfo      `json:"requested_attributes"`
	RequestedPredicates map[string]PredicateInfo `json:"requested_predicates"`
}

// AttrInfo is one requested attribute.
type AttrInfo struct {
	Name         string       `json:"name"`
	Restrictions Restrictions `json:"restrictions,omitempty"`
}

// PredicateInfo is one requested predicate, e.g. idade >= 18.
type PredicateInfo struct {
	Name         string       `json:"name"`
	PType        string       `json:"p_type"`
	PValue       int          `json:"p_value"`
	Restrictions Restrictions `json:"restrictions,omitempty"`
}

// RequestedAttr names the credential used for an attribute referent.
type RequestedAttr struct {
	CredID   string `json:"cred_id"`
	Revealed bool   `json:"revealed"`
}

// RequestedPred names the credential used for a predicate referent.
type RequestedPred struct {
	CredID string `json:"cred_id"`
}

// RequestedCredentials is the holder's evidence selection.
type RequestedCredentials struct {
	SelfAttestedAttributes map[string]string        `json:"self_attested_attributes"`
	RequestedAttributes    map[string]RequestedAttr `json:"requested_attributes"`
	RequestedPredicates    map[string]RequestedPred `json:"requested_predicates"`
}

// CredIDs returns the distinct credentials of the selection in first use
// order, attributes before predicates, referents sorted.
func (rc *RequestedCredentials) CredIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, ref := range SortedKeys(rc.RequestedAttributes) {
		add(rc.RequestedAttributes[ref].CredID)
	}
	for _, ref := range SortedKeys(rc.RequestedPredicates) {
		add(rc.RequestedPredicates[ref].CredID)
	}
	return ids
}

// Identifier names the public objects of one credential used in a
// presentation.
type Identifier struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	IssuerDid string `json:"issuer_did,omitempty"`
	RevRegID  string `json:"rev_reg_id,omitempty"`
}

// RevealedAttr is an opened attribute.
type RevealedAttr struct {
	SubProofIndex int    `json:"sub_proof_index"`
	Raw           string `json:"raw"`
	Encoded       string `json:"encoded"`
}

// PredicateRef says which sub proof proves a predicate or holds an
// unrevealed attribute. The value is not there.
type PredicateRef struct {
	SubProofIndex int `json:"sub_proof_index"`
}

// RequestedProof is the readable part of a presentation.
type RequestedProof struct {
	RevealedAttrs     map[string]RevealedAttr `json:"revealed_attrs"`
	UnrevealedAttrs   map[string]PredicateRef `json:"unrevealed_attrs,omitempty"`
	SelfAttestedAttrs map[string]string       `json:"self_attested_attrs"`
	Predicates        map[string]PredicateRef `json:"predicates"`
}

// Proof is the presentation. Proof carries the engine's sub proofs, one per
// identifier.
type Proof struct {
	Proof          json.RawMessage `json:"proof"`
	RequestedProof RequestedProof  `json:"requested_proof"`
	Identifiers    []Identifier    `json:"identifiers"`
}

// Record is a presentation in the verifier's archive.
type Record struct {
	IDLocal      string          `json:"id_local"`
	Presentation json.RawMessage `json:"presentation"`
	Request      json.RawMessage `json:"presentation_request"`
	Meta         json.RawMessage `json:"meta"`
	StoredAt     time.Time       `json:"stored_at"`
}

const (
	PackageType    = "ssi.presentation.package"
	PackageVersion = 1
)

// Package is the export format of an archived presentation.
type Package struct {
	Type         string          `json:"type"`
	Version      int             `json:"version"`
	Presentation json.RawMessage `json:"presentation"`
	Request      json.RawMessage `json:"presentation_request"`
	Meta         json.RawMessage `json:"meta"`
}

// Compact returns d without insignificant white space.
func Compact(d json.RawMessage) json.RawMessage {
	var b bytes.Buffer
	if err := json.Compact(&b, d); err != nil {
		return d
	}
	return b.Bytes()
}
