package psm

import (
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const (
	mockStateDID   = "TEST"
	mockStateNonce = "1234"
)

var (
	testDir string
	store   *enclave.Store
)

func TestMain(m *testing.M) {
	setUp()
	code := m.Run()
	tearDown()
	os.Exit(code)
}

func setUp() {
	defer err2.Catch(err2.Err(func(err error) {
		fmt.Println("error on setup", err)
	}))

	// We don't want logs on file with tests
	try.To(flag.Set("logtostderr", "true"))

	enclave.DefaultKdf.Memory = 1024
	enclave.DefaultKdf.Time = 1
	testDir = try.To1(os.MkdirTemp("", "psm"))
	try.To(enclave.Create(testDir, "psm", "psm test key"))
	store = try.To1(enclave.Open(testDir, "psm", "psm test key"))
}

func tearDown() {
	_ = store.Close()
	_ = os.RemoveAll(testDir)
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name     string
		proto    Protocol
		from, to SubState
		want     bool
	}{
		{"start offered", ProtocolIssueCredential, 0, Offered, true},
		{"start requested", ProtocolIssueCredential, 0, Requested, false},
		{"offered requested", ProtocolIssueCredential, Offered, Requested, true},
		{"offered issued", ProtocolIssueCredential, Offered, Issued, false},
		{"requested issued", ProtocolIssueCredential, Requested, Issued, true},
		{"issued stored", ProtocolIssueCredential, Issued, Stored, true},
		{"stored anything", ProtocolIssueCredential, Stored, Offered, false},
		{"issued back", ProtocolIssueCredential, Issued, Requested, false},
		{"proof start", ProtocolPresentProof, 0, ProofRequested, true},
		{"proof presented", ProtocolPresentProof, ProofRequested, Presented, true},
		{"proof skip", ProtocolPresentProof, ProofRequested, Verified, false},
		{"verified", ProtocolPresentProof, Presented, Verified, true},
		{"rejected", ProtocolPresentProof, Presented, Rejected, true},
		{"both", ProtocolPresentProof, Presented, Verified | Rejected, false},
		{"after verdict", ProtocolPresentProof, Verified, Rejected, false},
		{"wrong protocol", ProtocolPresentProof, 0, Offered, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			assert.Equal(Allowed(tt.proto, tt.from, tt.to), tt.want)
		})
	}
}

func TestPSM_data(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	p := &PSM{
		Key:      StateKey{DID: mockStateDID, Nonce: mockStateNonce},
		Protocol: ProtocolPresentProof,
		Role:     RoleVerifier,
		States:   []State{{Timestamp: 1, Sub: ProofRequested}},
	}
	got := NewPSM(p.Data())
	assert.DeepEqual(got, p)
	assert.Equal(got.Current(), ProofRequested)
	assert.ThatNot(got.IsReady())
}

func TestIssueFlow(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	db := New(store)
	key := NewStateKey("issuer-did", "offer-nonce")

	_, err := db.Transition(key, ProtocolIssueCredential, RoleIssuer, Requested, nil)
	assert.That(core.Is(err, core.InvalidStateTransition))

	m, err := db.Transition(key, ProtocolIssueCredential, RoleIssuer, Offered,
		&IssueCredRep{StateKey: key, CredDefID: "cd", OfferID: "offer-1"})
	assert.NoError(err)
	assert.Equal(m.Current(), Offered)

	_, err = db.Transition(key, ProtocolIssueCredential, RoleIssuer, Issued, nil)
	assert.That(core.Is(err, core.InvalidStateTransition))
	_, err = db.Transition(key, ProtocolPresentProof, RoleIssuer, Requested, nil)
	assert.That(core.Is(err, core.InvalidStateTransition))

	for _, s := range []SubState{Requested, Issued, Stored} {
		m, err = db.Transition(key, ProtocolIssueCredential, RoleIssuer, s, nil)
		assert.NoError(err)
	}
	assert.Equal(len(m.States), 4)
	assert.That(m.IsReady())

	ready, err := db.IsPSMReady(key)
	assert.NoError(err)
	assert.That(ready)

	_, err = db.Transition(key, ProtocolIssueCredential, RoleIssuer, Offered, nil)
	assert.That(core.Is(err, core.InvalidStateTransition))

	rep, err := db.GetIssueCredRep(key)
	assert.NoError(err)
	assert.Equal(rep.OfferID, "offer-1")
	assert.Equal(rep.CredDefID, "cd")
}

func TestTransitionTx(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	db := New(store)
	key := NewStateKey("holder-did", "tx-nonce")
	failed := core.New(core.ValidationFailed, "later write")

	err := store.Update(func(tx *enclave.Tx) error {
		for _, s := range []SubState{Offered, Requested} {
			if _, err := db.TransitionTx(tx, key, ProtocolIssueCredential, RoleHolder, s,
				&IssueCredRep{StateKey: key, CredDefID: "cd"}); err != nil {
				return err
			}
		}
		if err := tx.Put(enclave.BucketReqMeta, key.Nonce, []byte("meta")); err != nil {
			return err
		}
		return failed
	})
	assert.That(core.Is(err, core.ValidationFailed))

	// nothing of the failed transaction is kept
	_, err = db.GetPSM(key)
	assert.That(core.Is(err, core.NotFound))
	_, err = db.GetIssueCredRep(key)
	assert.That(core.Is(err, core.NotFound))
	assert.ThatNot(store.Has(enclave.BucketReqMeta, key.Nonce))

	assert.NoError(store.Update(func(tx *enclave.Tx) error {
		_, err := db.TransitionTx(tx, key, ProtocolIssueCredential, RoleHolder, Offered, nil)
		return err
	}))
	m, err := db.GetPSM(key)
	assert.NoError(err)
	assert.Equal(m.Current(), Offered)
}

func TestPresentVerdict(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	db := New(store)
	key := NewStateKey("verifier-did", "proof-nonce")

	_, err := db.Transition(key, ProtocolPresentProof, RoleVerifier, ProofRequested, nil)
	assert.NoError(err)
	_, err = db.Transition(key, ProtocolPresentProof, RoleVerifier, Presented, nil)
	assert.NoError(err)
	m, err := db.Transition(key, ProtocolPresentProof, RoleVerifier, Rejected,
		&PresentProofRep{StateKey: key, Name: "age", Verified: false})
	assert.NoError(err)
	assert.That(m.IsReady())

	_, err = db.Transition(key, ProtocolPresentProof, RoleVerifier, Verified, nil)
	assert.That(core.Is(err, core.InvalidStateTransition))

	got, err := db.GetPSM(key)
	assert.NoError(err)
	assert.Equal(got.Current(), Rejected)
	assert.Equal(got.Role, RoleVerifier)

	rep, err := db.GetPresentProofRep(key)
	assert.NoError(err)
	assert.Equal(rep.Name, "age")
	assert.ThatNot(rep.Verified)
}

func TestAllPSMAndRm(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	db := New(store)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, nonce := range []string{"c", "a", "b"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		db.SetClock(func() time.Time { return ts })
		_, err := db.Transition(NewStateKey("lister", nonce), ProtocolIssueCredential,
			RoleHolder, Offered, nil)
		assert.NoError(err)
	}

	all, err := db.AllPSM("lister", nil)
	assert.NoError(err)
	assert.Equal(len(all), 3)
	assert.Equal(all[0].Key.Nonce, "c")
	assert.Equal(all[2].Key.Nonce, "b")

	since := base.UnixMilli()
	all, err = db.AllPSM("lister", &since)
	assert.NoError(err)
	assert.Equal(len(all), 2)

	assert.NoError(db.RmPSM(&all[0]))
	_, err = db.GetPSM(all[0].Key)
	assert.That(core.Is(err, core.NotFound))
}
