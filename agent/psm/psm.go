/*
Package psm keeps the protocol state machines of credential issuance and proof
presentation. Every machine is event sourced: each transition is appended to
its States, and the current state is the last one.

Issuance moves strictly forward one step at a time:

	Offered -> Requested -> Issued -> Stored

Presentation starts from a request and ends in exactly one verdict:

	ProofRequested -> Presented -> Verified | Rejected

Any other move is InvalidStateTransition.
*/
package psm

import (
	"github.com/findy-network/findy-common-go/dto"
)

// SubState is a state of a protocol machine.
type SubState uint

const (
	Offered SubState = 0x01 << iota
	Requested
	Issued
	Stored
	ProofRequested
	Presented
	Verified
	Rejected
)

func (ss SubState) String() string {
	switch ss {
	case Offered:
		return "Offered"
	case Requested:
		return "Requested"
	case Issued:
		return "Issued"
	case Stored:
		return "Stored"
	case ProofRequested:
		return "ProofRequested"
	case Presented:
		return "Presented"
	case Verified:
		return "Verified"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown State"
	}
}

// IsReady tells if the state is terminal.
func (ss SubState) IsReady() bool {
	return ss&(Stored|Verified|Rejected) != 0
}

// Protocol names the protocol a machine runs.
type Protocol string

const (
	ProtocolIssueCredential Protocol = "issue_credential"
	ProtocolPresentProof    Protocol = "present_proof"
)

// Role is our role in the protocol.
type Role string

const (
	RoleIssuer   Role = "issuer"
	RoleHolder   Role = "holder"
	RoleVerifier Role = "verifier"
	RoleProver   Role = "prover"
)

// transitions lists the allowed next states, the zero SubState is the start.
var transitions = map[Protocol]map[SubState]SubState{
	ProtocolIssueCredential: {
		0:         Offered,
		Offered:   Requested,
		Requested: Issued,
		Issued:    Stored,
	},
	ProtocolPresentProof: {
		0:              ProofRequested,
		ProofRequested: Presented,
		Presented:      Verified | Rejected,
	},
}

// Allowed tells if the protocol may move from one state to the next.
func Allowed(p Protocol, from, to SubState) bool {
	next, ok := transitions[p][from]
	if !ok || to == 0 {
		return false
	}
	// exactly one bit, and one of the allowed ones
	return to&(to-1) == 0 && next&to != 0
}

// StateKey identifies a machine: our DID and the protocol nonce.
type StateKey struct {
	DID   string
	Nonce string
}

func NewStateKey(did, nonce string) StateKey {
	return StateKey{DID: did, Nonce: nonce}
}

func (key StateKey) Data() []byte {
	return []byte(key.DID + "|" + key.Nonce)
}

func (key StateKey) String() string {
	return key.DID + "|" + key.Nonce
}

type State struct {
	Timestamp int64 // unix ms
	Sub       SubState
}

// PSM is a Protocol State Machine.
type PSM struct {
	Key      StateKey
	Protocol Protocol
	Role     Role

	// States has all of the state history of this PSM in timestamp order
	States []State
}

func NewPSM(d []byte) *PSM {
	p := &PSM{}
	dto.FromGOB(d, p)
	return p
}

func (p *PSM) Data() []byte {
	return dto.ToGOB(p)
}

func (p *PSM) IsReady() bool {
	if lastState := p.LastState(); lastState != nil {
		return lastState.Sub.IsReady()
	}
	return false
}

func (p *PSM) Timestamp() int64 {
	if state := p.LastState(); state != nil {
		return state.Timestamp
	}
	return 0
}

func (p *PSM) FirstState() *State {
	if len(p.States) > 0 {
		return &p.States[0]
	}
	return nil
}

func (p *PSM) LastState() *State {
	sCount := len(p.States)
	if sCount > 0 {
		return &p.States[sCount-1]
	}
	return nil
}

// Current returns the current state, zero before the first transition.
func (p *PSM) Current() SubState {
	if s := p.LastState(); s != nil {
		return s.Sub
	}
	return 0
}
