// Package prover is the holder side of the presentation exchange: evidence
// selection from the wallet's credentials and presentation construction.
package prover

import (
	"context"
	"encoding/json"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/engine"
	"github.com/arlindoconceicao/vertex-sub000/agent/ledger"
	"github.com/arlindoconceicao/vertex-sub000/agent/psm"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/protocol/issuecredential/holder"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
	ic "github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	pp "github.com/arlindoconceicao/vertex-sub000/std/presentproof"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

type Prover struct {
	holder *holder.Holder
	ledger *ledger.Client
	engine engine.Engine
	states *psm.DB
	owner  string
	now    func() time.Time
}

// New returns a prover over the holder's credentials. owner is the DID our
// presentation state records are kept under.
func New(h *holder.Holder, states *psm.DB, owner string, lc *ledger.Client, e engine.Engine) *Prover {
	assert.NotNil(h)
	assert.INotNil(e)
	return &Prover{
		holder: h,
		ledger: lc,
		engine: e,
		states: states,
		owner:  owner,
		now:    time.Now,
	}
}

func (p *Prover) SetClock(now func() time.Time) {
	p.now = now
	if p.states != nil {
		p.states.SetClock(now)
	}
}

func identifier(c *ic.StoredCredential) pp.Identifier {
	return pp.Identifier{
		SchemaID:  c.SchemaID,
		CredDefID: c.CredDefID,
		IssuerDid: c.IssuerDid,
	}
}

// SelectEvidence picks a credential for every referent of the request, in
// the credential listing order. A credential that has the attribute and meets
// the restrictions wins; for predicates one whose value also holds the
// predicate is preferred. With no such credential the first one having the
// attribute is used, and verification will tell. A referent no credential
// has is NotFound.
func (p *Prover) SelectEvidence(req *pp.ProofRequest) (rc *pp.RequestedCredentials, err error) {
	defer err2.Handle(&err, "select evidence")

	creds := try.To1(p.holder.List())
	return Select(req, creds)
}

// Select is SelectEvidence over a given credential list.
func Select(req *pp.ProofRequest, creds []ic.StoredCredential) (rc *pp.RequestedCredentials, err error) {
	rc = &pp.RequestedCredentials{
		SelfAttestedAttributes: map[string]string{},
		RequestedAttributes:    make(map[string]pp.RequestedAttr, len(req.RequestedAttributes)),
		RequestedPredicates:    make(map[string]pp.RequestedPred, len(req.RequestedPredicates)),
	}
	for _, ref := range pp.SortedKeys(req.RequestedAttributes) {
		a := req.RequestedAttributes[ref]
		id, err := pick(creds, ref, a.Name, a.Restrictions, func(string) bool { return true })
		if err != nil {
			return nil, err
		}
		rc.RequestedAttributes[ref] = pp.RequestedAttr{CredID: id, Revealed: true}
	}
	for _, ref := range pp.SortedKeys(req.RequestedPredicates) {
		pr := req.RequestedPredicates[ref]
		holds := func(raw string) bool {
			v, ok := ic.PredicateValue(raw)
			return ok && pp.Satisfies(pr.PType, v, pr.PValue)
		}
		id, err := pick(creds, ref, pr.Name, pr.Restrictions, holds)
		if err != nil {
			return nil, err
		}
		rc.RequestedPredicates[ref] = pp.RequestedPred{CredID: id}
	}
	return rc, nil
}

func pick(
	creds []ic.StoredCredential,
	ref, name string,
	r pp.Restrictions,
	holds func(raw string) bool,
) (string, error) {
	var restricted, first string
	for i := range creds {
		raw, ok := creds[i].Raw(name)
		if !ok {
			continue
		}
		if first == "" {
			first = creds[i].IDLocal
		}
		if !r.Match(identifier(&creds[i])) {
			continue
		}
		if holds(raw) {
			return creds[i].IDLocal, nil
		}
		if restricted == "" {
			restricted = creds[i].IDLocal
		}
	}
	switch {
	case restricted != "":
		return restricted, nil
	case first != "":
		glog.Warningf("referent %s: no credential meets the restrictions, using %s", ref, first)
		return first, nil
	}
	return "", core.New(core.NotFound, "no credential has %s for %s", name, ref)
}

// CreatePresentation proves the request with the selected credentials. Nil
// maps are resolved from the ledger. Construction doesn't check the
// restrictions, the verifier does.
func (p *Prover) CreatePresentation(
	ctx context.Context,
	requestJSON []byte,
	rc *pp.RequestedCredentials,
	schemas map[string]*vc.Schema,
	credDefs map[string]*vc.CredDef,
) (
	proof *pp.Proof,
	err error,
) {
	defer err2.Handle(&err, "create presentation")

	var req pp.ProofRequest
	try.To(common.Unmarshal(common.KindProofRequest, requestJSON, &req))
	try.To(common.Validate(common.KindRequestedCredentials, try.To1(json.Marshal(rc))))

	ids := rc.CredIDs()
	creds := make(map[string]*ic.StoredCredential, len(ids))
	lsID := ""
	var sIDs, cdIDs []string
	for _, id := range ids {
		c := try.To1(p.holder.Get(id))
		if c.LinkSecretID == "" || (lsID != "" && c.LinkSecretID != lsID) {
			return nil, core.New(core.ValidationFailed,
				"credentials must share one link secret, %s doesn't", id)
		}
		lsID = c.LinkSecretID
		creds[id] = c
		sIDs = append(sIDs, c.SchemaID)
		cdIDs = append(cdIDs, c.CredDefID)
	}
	if schemas == nil || credDefs == nil {
		if p.ledger == nil {
			return nil, core.New(core.ValidationFailed, "no ledger for schemas and cred defs")
		}
		s, cd := try.To2(p.ledger.FetchMaps(ctx, sIDs, cdIDs))
		if schemas == nil {
			schemas = s
		}
		if credDefs == nil {
			credDefs = cd
		}
	}
	var ls []byte
	if lsID != "" {
		ls = try.To1(p.holder.LinkSecret(lsID))
	}

	proof = try.To1(p.engine.CreatePresentation(&req, rc, creds, ls, schemas, credDefs))
	p.record(&req, ids)

	glog.V(1).Infof("presentation created for %s with %d credentials", req.Nonce, len(ids))
	return proof, nil
}

func (p *Prover) record(req *pp.ProofRequest, ids []string) {
	if p.states == nil {
		return
	}
	key := psm.NewStateKey(p.owner, req.Nonce)
	rep := &psm.PresentProofRep{
		StateKey:  key,
		Timestamp: p.now().UnixMilli(),
		Name:      req.Name,
		CredIDs:   ids,
	}
	for _, s := range []psm.SubState{psm.ProofRequested, psm.Presented} {
		if _, err := p.states.Transition(key, psm.ProtocolPresentProof,
			psm.RoleProver, s, rep); err != nil {
			glog.Warningln("presentation state:", err)
			return
		}
	}
}
