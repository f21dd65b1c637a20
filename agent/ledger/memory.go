package ledger

import (
	"context"
	"strconv"
	"sync"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/glog"
)

// Memory is an in-process ledger for tests and local runs. It keeps the
// write rules of a permissioned ledger and simulates read-after-write lag: a
// written object is reported as not found to the first Lag reads.
type Memory struct {
	l   sync.Mutex
	lag int

	dids     map[string]*entry[DidInfo]
	schemas  map[string]*entry[vc.Schema]
	credDefs map[string]*entry[vc.CredDef]
	seqNos   map[int]string // schema seqNo -> schema id
	seqNo    int
}

type entry[T any] struct {
	v      T
	hidden int
}

// NewMemory returns a ledger whose genesis holds the given DIDs. Genesis DIDs
// are visible at once.
func NewMemory(lag int, genesis ...DidInfo) *Memory {
	m := &Memory{
		lag:      lag,
		dids:     make(map[string]*entry[DidInfo]),
		schemas:  make(map[string]*entry[vc.Schema]),
		credDefs: make(map[string]*entry[vc.CredDef]),
		seqNos:   make(map[int]string),
	}
	for _, g := range genesis {
		m.dids[g.Did] = &entry[DidInfo]{v: g}
	}
	return m
}

// SetLag changes the lag of the following writes.
func (m *Memory) SetLag(lag int) {
	m.l.Lock()
	defer m.l.Unlock()
	m.lag = lag
}

func (m *Memory) RegisterDid(_ context.Context, submitterDid, did, verkey, role string) error {
	m.l.Lock()
	defer m.l.Unlock()

	sub, err := m.submitter(submitterDid)
	if err != nil {
		return err
	}
	if !mayGrant(sub.Role, role) {
		return core.New(core.ValidationFailed,
			"%s role %q cannot grant role %q", submitterDid, sub.Role, role)
	}
	if err := ssi.CheckDid(did, verkey); err != nil {
		return err
	}
	if _, ok := m.dids[did]; ok {
		return core.New(core.AlreadyExists, "DID %s is on the ledger", did)
	}
	m.dids[did] = &entry[DidInfo]{
		v:      DidInfo{Did: did, Verkey: verkey, Role: role},
		hidden: m.lag,
	}
	glog.V(3).Infof("ledger: NYM %s role %q by %s", did, role, submitterDid)
	return nil
}

func (m *Memory) RegisterSchema(_ context.Context, submitterDid string, s *vc.Schema) error {
	m.l.Lock()
	defer m.l.Unlock()

	if _, err := m.submitter(submitterDid); err != nil {
		return err
	}
	p, err := vc.ParseSchemaID(s.ID)
	if err != nil {
		return err
	}
	if p.IssuerDid != submitterDid || p.Name != s.Name || p.Version != s.Version {
		return core.New(core.ValidationFailed, "schema id %s doesn't match its content", s.ID)
	}
	if _, ok := m.schemas[s.ID]; ok {
		return core.New(core.AlreadyExists, "schema %s is on the ledger", s.ID)
	}
	m.seqNo++
	v := *s
	v.AttrNames = append([]string(nil), s.AttrNames...)
	v.SeqNo = m.seqNo
	m.schemas[s.ID] = &entry[vc.Schema]{v: v, hidden: m.lag}
	m.seqNos[v.SeqNo] = s.ID
	s.SeqNo = v.SeqNo
	glog.V(3).Infof("ledger: SCHEMA %s seqNo %d", s.ID, v.SeqNo)
	return nil
}

func (m *Memory) RegisterCredDef(_ context.Context, submitterDid string, cd *vc.CredDef) error {
	m.l.Lock()
	defer m.l.Unlock()

	if _, err := m.submitter(submitterDid); err != nil {
		return err
	}
	p, err := vc.ParseCredDefID(cd.ID)
	if err != nil {
		return err
	}
	if p.IssuerDid != submitterDid {
		return core.New(core.ValidationFailed, "cred def %s isn't of %s", cd.ID, submitterDid)
	}
	schemaID := p.SchemaID
	if p.SeqNo > 0 {
		schemaID = m.seqNos[p.SeqNo]
	}
	if _, ok := m.schemas[schemaID]; !ok || schemaID != cd.SchemaID {
		return core.New(core.ValidationFailed, "cred def %s schema %s", cd.ID, cd.SchemaID)
	}
	if _, ok := m.credDefs[cd.ID]; ok {
		return core.New(core.AlreadyExists, "cred def %s is on the ledger", cd.ID)
	}
	m.credDefs[cd.ID] = &entry[vc.CredDef]{v: *cd, hidden: m.lag}
	glog.V(3).Infoln("ledger: CRED_DEF", cd.ID)
	return nil
}

func (m *Memory) ResolveDid(_ context.Context, did string) (*DidInfo, error) {
	m.l.Lock()
	defer m.l.Unlock()
	return read(m.dids[did])
}

func (m *Memory) FetchSchema(_ context.Context, id string) (*vc.Schema, error) {
	m.l.Lock()
	defer m.l.Unlock()

	if seqNo, err := strconv.Atoi(id); err == nil {
		id = m.seqNos[seqNo]
	}
	return read(m.schemas[id])
}

func (m *Memory) FetchCredDef(_ context.Context, id string) (*vc.CredDef, error) {
	m.l.Lock()
	defer m.l.Unlock()
	return read(m.credDefs[id])
}

func read[T any](e *entry[T]) (*T, error) {
	if e == nil {
		return nil, ErrNotFound
	}
	if e.hidden > 0 {
		e.hidden--
		return nil, ErrNotFound
	}
	v := e.v
	return &v, nil
}

// submitter returns the writer's ledger entry. Only DIDs with a role write.
// The ledger knows its own writes so lag doesn't apply here.
func (m *Memory) submitter(did string) (*DidInfo, error) {
	e, ok := m.dids[did]
	if !ok {
		return nil, core.New(core.DidNotFound, "submitter %s is not on the ledger", did)
	}
	if e.v.Role == "" {
		return nil, core.New(core.ValidationFailed, "submitter %s has no role", did)
	}
	return &e.v, nil
}

func mayGrant(submitterRole, role string) bool {
	switch role {
	case ssi.RoleTrustee, ssi.RoleSteward:
		return submitterRole == ssi.RoleTrustee
	case ssi.RoleEndorser:
		return submitterRole == ssi.RoleTrustee || submitterRole == ssi.RoleSteward
	case "":
		return submitterRole != ""
	}
	return false
}
