// Package issuecredential holds the wire formats of the credential issuance
// exchange: offer, request, request metadata and credential. The math
// engine fills the opaque parts, this package only fixes the envelope of
// each artifact so the protocol layer can route and check them.
package issuecredential

import (
	"encoding/json"
	"time"
)

// Offer is sent by the issuer. Nonce is the correlation key of the whole
// exchange: the holder keys its request metadata with it.
type Offer struct {
	SchemaID            string          `json:"schema_id"`
	CredDefID           string          `json:"cred_def_id"`
	Nonce               string          `json:"nonce"`
	KeyCorrectnessProof json.RawMessage `json:"key_correctness_proof,omitempty"`
}

// OfferRecord is the issuer's copy of an offer.
type OfferRecord struct {
	IDLocal   string    `json:"id_local"`
	CredDefID string    `json:"cred_def_id"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
	Offer     Offer     `json:"offer"`
}

// Request is the holder's answer to an offer.
type Request struct {
	ProverDid                 string `json:"prover_did"`
	CredDefID                 string `json:"cred_def_id"`
	BlindedMS                 string `json:"blinded_ms"`
	BlindedMSCorrectnessProof string `json:"blinded_ms_correctness_proof"`
	Nonce                     string `json:"nonce"`
}

// RequestMetadata is what the holder needs to process the credential when it
// arrives. It's stored under the offer nonce and consumed by the store.
type RequestMetadata struct {
	Nonce        string    `json:"nonce"`
	CredDefID    string    `json:"cred_def_id"`
	ProverDid    string    `json:"prover_did,omitempty"`
	LinkSecretID string    `json:"link_secret_id"`
	Blinding     string    `json:"blinding"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credential is issued to the holder.
type Credential struct {
	SchemaID                  string          `json:"schema_id"`
	CredDefID                 string          `json:"cred_def_id"`
	Values                    Values          `json:"values"`
	Signature                 json.RawMessage `json:"signature"`
	SignatureCorrectnessProof json.RawMessage `json:"signature_correctness_proof,omitempty"`
	RevRegID                  string          `json:"rev_reg_id,omitempty"`
}

// StoredCredential is a credential in the holder's wallet.
type StoredCredential struct {
	IDLocal   string    `json:"id_local"`
	SchemaID  string    `json:"schema_id"`
	CredDefID string    `json:"cred_def_id"`
	IssuerDid string    `json:"issuer_did"`
	Values    Values    `json:"values"`
	Alias     string    `json:"alias,omitempty"`
	StoredAt  time.Time `json:"stored_at"`

	// LinkSecretID is the link secret the credential is bound to.
	LinkSecretID string `json:"link_secret_id,omitempty"`

	// Processed is the engine's holder side form of the credential.
	Processed json.RawMessage `json:"processed"`
}

// Raw returns the raw value of the attribute.
func (c *StoredCredential) Raw(name string) (string, bool) {
	v, ok := c.Values.Get(name)
	return v.Raw, ok
}

// Summary is the listing form of a stored credential, without the
// processed credential.
type Summary struct {
	IDLocal   string            `json:"id_local"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	IssuerDid string            `json:"issuer_did"`
	Alias     string            `json:"alias,omitempty"`
	StoredAt  time.Time         `json:"stored_at"`
	Attrs     map[string]string `json:"attrs"`
}

func (c *StoredCredential) Summary() Summary {
	return Summary{
		IDLocal:   c.IDLocal,
		SchemaID:  c.SchemaID,
		CredDefID: c.CredDefID,
		IssuerDid: c.IssuerDid,
		Alias:     c.Alias,
		StoredAt:  c.StoredAt,
		Attrs:     c.Values.RawMap(),
	}
}

const (
	PackageType    = "ssi.credential.package"
	PackageVersion = 1
)

// Package is the export format of one stored credential.
type Package struct {
	Type       string           `json:"type"`
	Version    int              `json:"version"`
	Credential StoredCredential `json:"credential"`
}

// PreviewCredential lists the attributes an issuer is about to issue.
type PreviewCredential struct {
	Attributes []Attribute `json:"attributes"`
}

// Attribute describes an attribute of a PreviewCredential.
type Attribute struct {
	Name     string `json:"name"`
	MimeType string `json:"mime-type,omitempty"`
	Value    string `json:"value"`
}

// Values builds the credential values of the preview.
func (p PreviewCredential) Values() Values {
	raw := make(map[string]string, len(p.Attributes))
	for _, a := range p.Attributes {
		raw[a.Name] = a.Value
	}
	return NewValues(raw)
}
