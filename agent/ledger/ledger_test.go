package ledger_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/ledger"
	"github.com/arlindoconceicao/vertex-sub000/agent/ledger/mock_ledger"
	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/mock/gomock"
	"github.com/lainio/err2/assert"
)

// fakeTimer records the waits and returns at once.
type fakeTimer struct {
	l      sync.Mutex
	delays []time.Duration
}

func (f *fakeTimer) After(d time.Duration) <-chan time.Time {
	f.l.Lock()
	f.delays = append(f.delays, d)
	f.l.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func testPolicy(attempts uint) (ledger.Policy, *fakeTimer) {
	ft := &fakeTimer{}
	return ledger.Policy{
		Attempts: attempts,
		Step:     time.Second,
		MaxDelay: 8 * time.Second,
		Timer:    ft,
	}, ft
}

func newIdentity() ledger.DidInfo {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return ledger.DidInfo{Did: ssi.DidFromVerkey(pub), Verkey: ssi.EncodeVerkey(pub)}
}

func TestPolicyDelay(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	p, _ := testPolicy(12)
	assert.Equal(p.Delay(0), time.Second)
	assert.Equal(p.Delay(2), 3*time.Second)
	assert.Equal(p.Delay(7), 8*time.Second)
	assert.Equal(p.Delay(11), 8*time.Second)

	d := ledger.DefaultPolicy()
	assert.Equal(d.Attempts, uint(12))
	assert.Equal(d.MaxDelay, 8*time.Second)
}

func TestResolveDidRetriesNotFound(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := newIdentity()
	gw := mock_ledger.NewMockGateway(ctrl)
	gomock.InOrder(
		gw.EXPECT().ResolveDid(gomock.Any(), id.Did).Return(nil, ledger.ErrNotFound).Times(3),
		gw.EXPECT().ResolveDid(gomock.Any(), id.Did).Return(&id, nil),
	)

	p, ft := testPolicy(12)
	c := ledger.NewClient(gw, p)
	r, err := c.ResolveDid(context.Background(), id.Did)
	assert.NoError(err)
	assert.Equal(r.Verkey, id.Verkey)
	assert.Equal(r.Attempts, 4)
	assert.DeepEqual(ft.delays, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second})
}

func TestRetryStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mock_ledger.NewMockGateway(ctrl)
	fatal := errors.New("connection refused")

	t.Run("other error is not retried", func(t *testing.T) {
		assert.PushTester(t)
		defer assert.PopTester()

		gw.EXPECT().FetchSchema(gomock.Any(), "x").Return(nil, fatal).Times(1)
		p, ft := testPolicy(12)
		_, err := ledger.NewClient(gw, p).FetchSchema(context.Background(), "x")
		assert.That(errors.Is(err, fatal))
		assert.Equal(len(ft.delays), 0)
	})
	t.Run("attempts run out", func(t *testing.T) {
		assert.PushTester(t)
		defer assert.PopTester()

		gw.EXPECT().FetchCredDef(gomock.Any(), "y").Return(nil, ledger.ErrNotFound).Times(3)
		p, ft := testPolicy(3)
		_, err := ledger.NewClient(gw, p).FetchCredDef(context.Background(), "y")
		assert.That(core.Is(err, core.NotFound))
		assert.Equal(len(ft.delays), 2)
	})
}

func TestFetchCache(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mock_ledger.NewMockGateway(ctrl)
	s := &vc.Schema{ID: "s1", Name: "person", Version: "1.0"}
	gomock.InOrder(
		gw.EXPECT().FetchSchema(gomock.Any(), "s1").Return(nil, ledger.ErrNotFound),
		gw.EXPECT().FetchSchema(gomock.Any(), "s1").Return(s, nil),
	)
	p, _ := testPolicy(3)
	c := ledger.NewClient(gw, p)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.FetchSchema(ctx, "s1")
		assert.NoError(err)
		assert.Equal(got.Name, "person")
	}
	schemas, credDefs := c.Cached()
	assert.Equal(schemas, 1)
	assert.Equal(credDefs, 0)
}

func TestMemoryLag(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	steward := newIdentity()
	steward.Role = ssi.RoleSteward
	m := ledger.NewMemory(2, steward)

	endorser := newIdentity()
	assert.NoError(m.RegisterDid(ctx, steward.Did, endorser.Did, endorser.Verkey, ssi.RoleEndorser))

	p, ft := testPolicy(12)
	c := ledger.NewClient(m, p)
	r, err := c.ResolveDid(ctx, endorser.Did)
	assert.NoError(err)
	assert.Equal(r.Attempts, 3)
	assert.Equal(r.Role, ssi.RoleEndorser)
	assert.Equal(len(ft.delays), 2)

	r, err = c.ResolveDid(ctx, steward.Did)
	assert.NoError(err)
	assert.Equal(r.Attempts, 1)
}

func TestMemoryWriteRules(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	steward := newIdentity()
	steward.Role = ssi.RoleSteward
	m := ledger.NewMemory(0, steward)

	endorser, owner, stranger := newIdentity(), newIdentity(), newIdentity()
	err := m.RegisterDid(ctx, steward.Did, endorser.Did, endorser.Verkey, ssi.RoleTrustee)
	assert.That(core.Is(err, core.ValidationFailed))
	assert.NoError(m.RegisterDid(ctx, steward.Did, endorser.Did, endorser.Verkey, ssi.RoleEndorser))
	err = m.RegisterDid(ctx, steward.Did, endorser.Did, endorser.Verkey, ssi.RoleEndorser)
	assert.That(core.Is(err, core.AlreadyExists))
	err = m.RegisterDid(ctx, steward.Did, owner.Did, endorser.Verkey, "")
	assert.That(core.Is(err, core.InvalidIdentifierFormat))
	assert.NoError(m.RegisterDid(ctx, endorser.Did, owner.Did, owner.Verkey, ""))

	s, err := vc.NewSchema(endorser.Did, "pessoa", "1.0", []string{"nome", "idade"})
	assert.NoError(err)
	err = m.RegisterSchema(ctx, owner.Did, s)
	assert.That(core.Is(err, core.ValidationFailed))
	err = m.RegisterSchema(ctx, stranger.Did, s)
	assert.That(core.Is(err, core.DidNotFound))
	assert.NoError(m.RegisterSchema(ctx, endorser.Did, s))
	assert.Equal(s.SeqNo, 1)

	cd := &vc.CredDef{
		ID:       vc.CredDefID(endorser.Did, "1", "tag"),
		SchemaID: s.ID,
		Type:     vc.SignatureType,
		Tag:      "tag",
	}
	assert.NoError(m.RegisterCredDef(ctx, endorser.Did, cd))
	got, err := m.FetchSchema(ctx, "1")
	assert.NoError(err)
	assert.Equal(got.ID, s.ID)

	orphan := &vc.CredDef{ID: vc.CredDefID(endorser.Did, "9", "tag"), SchemaID: s.ID}
	err = m.RegisterCredDef(ctx, endorser.Did, orphan)
	assert.That(core.Is(err, core.ValidationFailed))
}

func TestFetchMaps(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	issuer := newIdentity()
	issuer.Role = ssi.RoleEndorser
	m := ledger.NewMemory(1, issuer)

	var schemaIDs, credDefIDs []string
	for _, name := range []string{"a", "b", "c"} {
		s, err := vc.NewSchema(issuer.Did, name, "1.0", []string{"x"})
		assert.NoError(err)
		assert.NoError(m.RegisterSchema(ctx, issuer.Did, s))
		cd := &vc.CredDef{ID: vc.CredDefID(issuer.Did, s.ID, ""), SchemaID: s.ID}
		assert.NoError(m.RegisterCredDef(ctx, issuer.Did, cd))
		schemaIDs = append(schemaIDs, s.ID, s.ID)
		credDefIDs = append(credDefIDs, cd.ID)
	}

	p, _ := testPolicy(5)
	c := ledger.NewClient(m, p)
	schemas, credDefs, err := c.FetchMaps(ctx, schemaIDs, credDefIDs)
	assert.NoError(err)
	assert.Equal(len(schemas), 3)
	assert.Equal(len(credDefs), 3)
	for _, id := range credDefIDs {
		assert.Equal(credDefs[id].ID, id)
	}

	_, _, err = c.FetchMaps(ctx, []string{"missing"}, nil)
	assert.That(core.Is(err, core.NotFound))
}
