/*
Package ledger is the contract of the distributed ledger as the protocol layer
sees it, and the retrying client every read goes through. Ledger reads are
eventually consistent: a schema, cred def or DID written a moment ago may still
be reported as not found. Client retries those reads with the Policy.
*/
package ledger

import (
	"context"

	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
)

//go:generate mockgen -destination=mock_ledger/mock_ledger.go -package=mock_ledger . Gateway

// ErrNotFound is the transient answer of a read. It's the only error the
// Client retries.
var ErrNotFound = &core.Error{Code: core.NotFound, Msg: "ledger: not found"}

// DidInfo is the DID's public data on the ledger.
type DidInfo struct {
	Did    string `json:"did"`
	Verkey string `json:"verkey"`
	Role   string `json:"role,omitempty"`
}

// Gateway is the external ledger.
type Gateway interface {
	RegisterSchema(ctx context.Context, submitterDid string, s *vc.Schema) error
	RegisterCredDef(ctx context.Context, submitterDid string, cd *vc.CredDef) error
	RegisterDid(ctx context.Context, submitterDid, did, verkey, role string) error
	ResolveDid(ctx context.Context, did string) (*DidInfo, error)
	FetchSchema(ctx context.Context, id string) (*vc.Schema, error)
	FetchCredDef(ctx context.Context, id string) (*vc.CredDef, error)
}
