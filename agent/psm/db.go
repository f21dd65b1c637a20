package psm

import (
	"errors"
	"sort"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

// DB stores machines and their reps in the psm bucket of a wallet. The first
// byte of every value is the rep type.
type DB struct {
	s   *enclave.Store
	now func() time.Time
}

func New(s *enclave.Store) *DB {
	assert.NotNil(s)
	return &DB{s: s, now: time.Now}
}

func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

func dbKey(t byte, k StateKey) string {
	return string([]byte{t}) + k.String()
}

func put(tx *enclave.Tx, t byte, k StateKey, d []byte) error {
	return tx.Put(enclave.BucketPSM, dbKey(t, k), append([]byte{t}, d...))
}

func get(tx *enclave.Tx, t byte, k StateKey) ([]byte, error) {
	d, err := tx.Get(enclave.BucketPSM, dbKey(t, k))
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.NotFound, "%s state %d", k, t)
	} else if err != nil {
		return nil, err
	}
	return d[1:], nil
}

func (db *DB) AddPSM(p *PSM) (err error) {
	return db.s.Update(func(tx *enclave.Tx) error {
		return put(tx, TypePSM, p.Key, p.Data())
	})
}

func (db *DB) GetPSM(key StateKey) (m *PSM, err error) {
	defer err2.Handle(&err, "get psm")

	try.To(db.s.View(func(tx *enclave.Tx) error {
		d, err := get(tx, TypePSM, key)
		if err != nil {
			return err
		}
		m = NewPSM(d)
		return nil
	}))
	return m, nil
}

func (db *DB) IsPSMReady(key StateKey) (yes bool, err error) {
	defer err2.Handle(&err, "is ready")

	m := try.To1(db.GetPSM(key))
	return m.IsReady(), nil
}

// AllPSM returns the machines of the DID in timestamp order. With tsSince only
// the ones touched after it are returned.
func (db *DB) AllPSM(did string, tsSince *int64) (m []PSM, err error) {
	defer err2.Handle(&err, "all psm")

	try.To(db.s.ForEach(enclave.BucketPSM, func(d []byte) error {
		if len(d) == 0 || d[0] != TypePSM {
			return nil
		}
		p := NewPSM(d[1:])
		if p.Key.DID != did {
			return nil
		}
		if tsSince != nil && p.Timestamp() <= *tsSince {
			return nil
		}
		m = append(m, *p)
		return nil
	}))
	sort.Slice(m, func(i, j int) bool {
		if m[i].Timestamp() == m[j].Timestamp() {
			return m[i].Key.Nonce < m[j].Key.Nonce
		}
		return m[i].Timestamp() < m[j].Timestamp()
	})
	return m, nil
}

// Transition moves the machine of key to the next state, creating it on the
// first call. The move and the optional rep are written in one transaction.
func (db *DB) Transition(key StateKey, proto Protocol, role Role, to SubState, rep Rep) (m *PSM, err error) {
	defer err2.Handle(&err, "transition %s to %s", key, to)

	try.To(db.s.Update(func(tx *enclave.Tx) (err error) {
		m, err = db.TransitionTx(tx, key, proto, role, to, rep)
		return err
	}))
	return m, nil
}

// TransitionTx is Transition inside the caller's transaction. Nothing of the
// move is kept if the transaction fails later.
func (db *DB) TransitionTx(tx *enclave.Tx, key StateKey, proto Protocol, role Role, to SubState, rep Rep) (m *PSM, err error) {
	d, err := get(tx, TypePSM, key)
	switch {
	case err == nil:
		m = NewPSM(d)
	case core.Is(err, core.NotFound):
		m = &PSM{Key: key, Protocol: proto, Role: role}
	default:
		return nil, err
	}
	if m.Protocol != proto {
		return nil, core.New(core.InvalidStateTransition,
			"%s runs %s not %s", key, m.Protocol, proto)
	}
	if !Allowed(proto, m.Current(), to) {
		return nil, core.New(core.InvalidStateTransition,
			"%s cannot move from %s to %s", key, m.Current(), to)
	}
	m.States = append(m.States, State{Timestamp: db.now().UnixMilli(), Sub: to})
	if err := put(tx, TypePSM, key, m.Data()); err != nil {
		return nil, err
	}
	if rep != nil {
		if err := put(tx, rep.Type(), rep.Key(), rep.Data()); err != nil {
			return nil, err
		}
	}
	glog.V(3).Infoln("psm", key, "->", to)
	return m, nil
}

func (db *DB) AddRep(r Rep) error {
	return db.s.Update(func(tx *enclave.Tx) error {
		return put(tx, r.Type(), r.Key(), r.Data())
	})
}

func (db *DB) GetRep(t byte, key StateKey) (r Rep, err error) {
	defer err2.Handle(&err, "get rep")

	try.To(db.s.View(func(tx *enclave.Tx) error {
		d, err := get(tx, t, key)
		if err != nil {
			return err
		}
		var ok bool
		if r, ok = Creator.Create(t, d); !ok {
			return core.New(core.NotFound, "rep type %d", t)
		}
		return nil
	}))
	return r, nil
}

func (db *DB) GetIssueCredRep(key StateKey) (*IssueCredRep, error) {
	r, err := db.GetRep(TypeIssueCred, key)
	if err != nil {
		return nil, err
	}
	return r.(*IssueCredRep), nil
}

func (db *DB) GetPresentProofRep(key StateKey) (*PresentProofRep, error) {
	r, err := db.GetRep(TypePresentProof, key)
	if err != nil {
		return nil, err
	}
	return r.(*PresentProofRep), nil
}

// RmPSM removes the machine and its protocol rep.
func (db *DB) RmPSM(p *PSM) (err error) {
	glog.V(1).Infoln("--- rm PSM:", p.Key)
	return db.s.Update(func(tx *enclave.Tx) error {
		switch p.Protocol {
		case ProtocolIssueCredential:
			err = tx.Delete(enclave.BucketPSM, dbKey(TypeIssueCred, p.Key))
		case ProtocolPresentProof:
			err = tx.Delete(enclave.BucketPSM, dbKey(TypePresentProof, p.Key))
		}
		if err != nil {
			return err
		}
		return tx.Delete(enclave.BucketPSM, dbKey(TypePSM, p.Key))
	})
}
