package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"golang.org/x/sync/errgroup"
)

// Client is the Gateway with retried reads. Writes go through once.
type Client struct {
	gw     Gateway
	policy Policy
	now    func() time.Time

	schemas  cache[*vc.Schema]
	credDefs cache[*vc.CredDef]
}

// Resolution is a resolved DID with the cost of resolving it.
type Resolution struct {
	Verkey    string `json:"verkey"`
	Role      string `json:"role,omitempty"`
	Attempts  int    `json:"attempts"`
	ElapsedMs int64  `json:"elapsedMs"`
}

func NewClient(gw Gateway, p Policy) *Client {
	assert.INotNil(gw)
	return &Client{gw: gw, policy: p, now: time.Now}
}

// Cached returns the number of cached schemas and cred defs.
func (c *Client) Cached() (schemas, credDefs int) {
	return c.schemas.len(), c.credDefs.len()
}

func (c *Client) Gateway() Gateway {
	return c.gw
}

func (c *Client) RegisterSchema(ctx context.Context, submitterDid string, s *vc.Schema) error {
	return c.gw.RegisterSchema(ctx, submitterDid, s)
}

func (c *Client) RegisterCredDef(ctx context.Context, submitterDid string, cd *vc.CredDef) error {
	return c.gw.RegisterCredDef(ctx, submitterDid, cd)
}

func (c *Client) RegisterDid(ctx context.Context, submitterDid, did, verkey, role string) error {
	return c.gw.RegisterDid(ctx, submitterDid, did, verkey, role)
}

// ResolveDid resolves the DID's verkey and role.
func (c *Client) ResolveDid(ctx context.Context, did string) (r *Resolution, err error) {
	defer err2.Handle(&err, "resolve DID %s", did)

	start := c.now()
	info, attempts, err := Do(ctx, c.policy, "resolve DID", func() (*DidInfo, error) {
		return c.gw.ResolveDid(ctx, did)
	})
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Verkey:    info.Verkey,
		Role:      info.Role,
		Attempts:  attempts,
		ElapsedMs: c.now().Sub(start).Milliseconds(),
	}, nil
}

func (c *Client) FetchSchema(ctx context.Context, id string) (s *vc.Schema, err error) {
	defer err2.Handle(&err, "fetch schema %s", id)

	if s, ok := c.schemas.get(id); ok {
		return s, nil
	}
	s, _, err = Do(ctx, c.policy, "fetch schema", func() (*vc.Schema, error) {
		return c.gw.FetchSchema(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	c.schemas.add(id, s)
	return s, nil
}

func (c *Client) FetchCredDef(ctx context.Context, id string) (cd *vc.CredDef, err error) {
	defer err2.Handle(&err, "fetch cred def %s", id)

	if cd, ok := c.credDefs.get(id); ok {
		return cd, nil
	}
	cd, _, err = Do(ctx, c.policy, "fetch cred def", func() (*vc.CredDef, error) {
		return c.gw.FetchCredDef(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	c.credDefs.add(id, cd)
	return cd, nil
}

// FetchMaps resolves the schemas and cred defs concurrently. The first
// failure cancels the rest.
func (c *Client) FetchMaps(
	ctx context.Context,
	schemaIDs, credDefIDs []string,
) (
	schemas map[string]*vc.Schema,
	credDefs map[string]*vc.CredDef,
	err error,
) {
	defer err2.Handle(&err, "fetch ledger maps")

	schemas = make(map[string]*vc.Schema, len(schemaIDs))
	credDefs = make(map[string]*vc.CredDef, len(credDefIDs))
	var l sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range unique(schemaIDs) {
		id := id
		g.Go(func() error {
			s, err := c.FetchSchema(gctx, id)
			if err != nil {
				return err
			}
			l.Lock()
			schemas[id] = s
			l.Unlock()
			return nil
		})
	}
	for _, id := range unique(credDefIDs) {
		id := id
		g.Go(func() error {
			cd, err := c.FetchCredDef(gctx, id)
			if err != nil {
				return err
			}
			l.Lock()
			credDefs[id] = cd
			l.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return schemas, credDefs, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
