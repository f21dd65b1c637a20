// Package engine is the contract of the credential math engine. The protocol
// layer hands it typed artifacts and lookup maps; the engine owns every
// cryptographic step of issuance and presentation.
package engine

import (
	"encoding/json"

	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	"github.com/arlindoconceicao/vertex-sub000/std/presentproof"
)

// Engine is the credential math engine.
type Engine interface {
	// NewCredDef creates a cred def of the schema and its private key.
	NewCredDef(issuerDid string, s *vc.Schema, tag string) (cd *vc.CredDef, priv []byte, err error)

	// CreateOffer mints an offer with a fresh nonce.
	CreateOffer(cd *vc.CredDef, priv []byte) (*issuecredential.Offer, error)

	// CreateCredentialRequest blinds the link secret for the offer. The
	// metadata is needed by ProcessCredential.
	CreateCredentialRequest(
		proverDid string,
		cd *vc.CredDef,
		offer *issuecredential.Offer,
		linkSecret []byte,
	) (*issuecredential.Request, *issuecredential.RequestMetadata, error)

	// IssueCredential signs the values for the request.
	IssueCredential(
		cd *vc.CredDef,
		priv []byte,
		offer *issuecredential.Offer,
		req *issuecredential.Request,
		values issuecredential.Values,
	) (*issuecredential.Credential, error)

	// ProcessCredential checks the credential and returns its holder form.
	ProcessCredential(
		cred *issuecredential.Credential,
		meta *issuecredential.RequestMetadata,
		linkSecret []byte,
		cd *vc.CredDef,
	) (json.RawMessage, error)

	// CreatePresentation proves the request with the selected credentials.
	// creds are keyed by their id_local.
	CreatePresentation(
		req *presentproof.ProofRequest,
		rc *presentproof.RequestedCredentials,
		creds map[string]*issuecredential.StoredCredential,
		linkSecret []byte,
		schemas map[string]*vc.Schema,
		credDefs map[string]*vc.CredDef,
	) (*presentproof.Proof, error)

	// VerifyPresentation checks the proof against the request.
	VerifyPresentation(
		req *presentproof.ProofRequest,
		proof *presentproof.Proof,
		schemas map[string]*vc.Schema,
		credDefs map[string]*vc.CredDef,
	) (bool, error)
}
