package psm

import (
	"sync"

	"github.com/findy-network/findy-common-go/dto"
)

const (
	TypePSM byte = 0 + iota
	TypeIssueCred
	TypePresentProof
)

// Rep is protocol data stored next to its state machine.
type Rep interface {
	Key() StateKey
	Data() []byte
	Type() byte
}

type creator struct {
	l sync.RWMutex
	m map[byte]func(d []byte) Rep
}

// Creator builds reps from their stored bytes by rep type.
var Creator = &creator{m: make(map[byte]func(d []byte) Rep)}

func init() {
	Creator.Add(TypeIssueCred, func(d []byte) Rep { return NewIssueCredRep(d) })
	Creator.Add(TypePresentProof, func(d []byte) Rep { return NewPresentProofRep(d) })
}

func (c *creator) Add(t byte, f func(d []byte) Rep) {
	c.l.Lock()
	defer c.l.Unlock()
	c.m[t] = f
}

func (c *creator) Create(t byte, d []byte) (Rep, bool) {
	c.l.RLock()
	defer c.l.RUnlock()
	f, ok := c.m[t]
	if !ok {
		return nil, false
	}
	return f(d), true
}

// IssueCredRep is the data of one issuance, on either side.
type IssueCredRep struct {
	StateKey
	Timestamp int64
	SchemaID  string
	CredDefID string
	OfferID   string // issuer's offer record
	CredID    string // holder's stored credential
	Values    map[string]string
}

func NewIssueCredRep(d []byte) *IssueCredRep {
	p := &IssueCredRep{}
	dto.FromGOB(d, p)
	return p
}

func (rep *IssueCredRep) Key() StateKey { return rep.StateKey }
func (rep *IssueCredRep) Data() []byte  { return dto.ToGOB(rep) }
func (rep *IssueCredRep) Type() byte    { return TypeIssueCred }

// PresentProofRep is the data of one proof presentation.
type PresentProofRep struct {
	StateKey
	Timestamp int64
	Name      string
	CredIDs   []string // prover's evidence
	RecordID  string   // archived presentation
	Verified  bool
}

func NewPresentProofRep(d []byte) *PresentProofRep {
	p := &PresentProofRep{}
	dto.FromGOB(d, p)
	return p
}

func (rep *PresentProofRep) Key() StateKey { return rep.StateKey }
func (rep *PresentProofRep) Data() []byte  { return dto.ToGOB(rep) }
func (rep *PresentProofRep) Type() byte    { return TypePresentProof }
