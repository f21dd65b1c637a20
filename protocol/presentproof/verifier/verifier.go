// Package verifier builds proof requests and verifies presentations.
package verifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/engine"
	"github.com/arlindoconceicao/vertex-sub000/agent/ledger"
	"github.com/arlindoconceicao/vertex-sub000/agent/psm"
	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
	pp "github.com/arlindoconceicao/vertex-sub000/std/presentproof"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

type Verifier struct {
	w      *ssi.Wallet
	ledger *ledger.Client
	engine engine.Engine
	states *psm.DB
	now    func() time.Time
}

func New(w *ssi.Wallet, lc *ledger.Client, e engine.Engine) *Verifier {
	assert.NotNil(w)
	assert.INotNil(e)
	return &Verifier{
		w:      w,
		ledger: lc,
		engine: e,
		states: psm.New(w.Store()),
		now:    time.Now,
	}
}

func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
	v.states.SetClock(now)
}

// BuildRequest makes a proof request. An empty nonce gets a fresh one.
func (v *Verifier) BuildRequest(
	nonce, name, version string,
	attrs map[string]pp.AttrInfo,
	preds map[string]pp.PredicateInfo,
) (
	req *pp.ProofRequest,
	err error,
) {
	defer err2.Handle(&err, "build proof request %s", name)

	if nonce == "" {
		nonce = utils.NewNonceStr()
	}
	if version == "" {
		version = "1.0"
	}
	if attrs == nil {
		attrs = map[string]pp.AttrInfo{}
	}
	if preds == nil {
		preds = map[string]pp.PredicateInfo{}
	}
	if len(attrs)+len(preds) == 0 {
		return nil, core.New(core.ValidationFailed, "nothing is requested")
	}
	for ref, p := range preds {
		if !pp.ValidPType(p.PType) {
			return nil, core.New(core.ValidationFailed,
				"predicate %s: p_type %q", ref, p.PType)
		}
	}
	req = &pp.ProofRequest{
		Nonce:               nonce,
		Name:                name,
		Version:             version,
		RequestedAttributes: attrs,
		RequestedPredicates: preds,
	}
	try.To(common.Validate(common.KindProofRequest, try.To1(json.Marshal(req))))

	key := psm.NewStateKey(v.owner(), nonce)
	try.To1(v.states.Transition(key, psm.ProtocolPresentProof, psm.RoleVerifier,
		psm.ProofRequested, &psm.PresentProofRep{
			StateKey:  key,
			Timestamp: v.now().UnixMilli(),
			Name:      name,
		}))
	return req, nil
}

// owner is the namespace of our state records: the primary DID, or the
// wallet name before one is set.
func (v *Verifier) owner() string {
	if _, r, err := v.w.GetPrimary(); err == nil {
		return r.Did
	}
	return v.w.Store().Name()
}

// Verify checks the presentation against the request. It returns true only
// when everything holds; otherwise false with a RestrictionValidationFailed or
// ProofRejected error. Nil maps are resolved from the ledger.
func (v *Verifier) Verify(
	ctx context.Context,
	requestJSON, proofJSON []byte,
	schemas map[string]*vc.Schema,
	credDefs map[string]*vc.CredDef,
) (
	ok bool,
	err error,
) {
	var req pp.ProofRequest
	if err := common.Unmarshal(common.KindProofRequest, requestJSON, &req); err != nil {
		return false, core.Wrap(core.ProofRejected, err, "proof request")
	}
	var proof pp.Proof
	if err := common.Unmarshal(common.KindProof, proofJSON, &proof); err != nil {
		return false, core.Wrap(core.ProofRejected, err, "presentation")
	}

	if schemas == nil || credDefs == nil {
		if v.ledger == nil {
			return false, core.New(core.ValidationFailed, "no ledger for schemas and cred defs")
		}
		var sIDs, cdIDs []string
		for _, id := range proof.Identifiers {
			sIDs = append(sIDs, id.SchemaID)
			cdIDs = append(cdIDs, id.CredDefID)
		}
		s, cd, err := v.ledger.FetchMaps(ctx, sIDs, cdIDs)
		if err != nil {
			return false, err
		}
		if schemas == nil {
			schemas = s
		}
		if credDefs == nil {
			credDefs = cd
		}
	}

	ok, err = v.engine.VerifyPresentation(&req, &proof, schemas, credDefs)
	if ok {
		if err = checkRestrictions(&req, &proof); err != nil {
			ok = false
		}
	}
	v.record(&req, ok)
	if err != nil {
		glog.V(1).Infof("presentation %s rejected: %v", req.Nonce, err)
		return false, err
	}
	glog.V(1).Infof("presentation %s verified: %v", req.Nonce, ok)
	return ok, nil
}

// record moves the request's machine to its verdict. A request we didn't
// build gets its machine here.
func (v *Verifier) record(req *pp.ProofRequest, ok bool) {
	key := psm.NewStateKey(v.owner(), req.Nonce)
	verdict := psm.Rejected
	if ok {
		verdict = psm.Verified
	}
	rep := &psm.PresentProofRep{
		StateKey:  key,
		Timestamp: v.now().UnixMilli(),
		Name:      req.Name,
		Verified:  ok,
	}
	m, err := v.states.GetPSM(key)
	current := psm.SubState(0)
	if err == nil {
		current = m.Current()
	}
	var steps []psm.SubState
	switch current {
	case 0:
		steps = []psm.SubState{psm.ProofRequested, psm.Presented, verdict}
	case psm.ProofRequested:
		steps = []psm.SubState{psm.Presented, verdict}
	default:
		glog.V(3).Infoln("presentation", req.Nonce, "was already", current)
		return
	}
	for _, s := range steps {
		if _, err := v.states.Transition(key, psm.ProtocolPresentProof,
			psm.RoleVerifier, s, rep); err != nil {
			glog.Warningln("verification state:", err)
			return
		}
	}
}

// checkRestrictions matches every requested referent against the identifier
// of the credential that proves it. The issuer comes from the cred def id,
// never from the identifier's own issuer_did.
func checkRestrictions(req *pp.ProofRequest, proof *pp.Proof) error {
	rp := proof.RequestedProof
	identifier := func(ref string, i int) (pp.Identifier, error) {
		if i < 0 || i >= len(proof.Identifiers) {
			return pp.Identifier{}, core.New(core.ProofRejected,
				"%s: sub proof index %d", ref, i)
		}
		id := proof.Identifiers[i]
		issuer, err := vc.IssuerOf(id.CredDefID)
		if err != nil {
			return pp.Identifier{}, core.Wrap(core.ProofRejected, err, ref)
		}
		id.IssuerDid = issuer
		return id, nil
	}
	check := func(ref string, i int, r pp.Restrictions) error {
		id, err := identifier(ref, i)
		if err != nil {
			return err
		}
		if !r.Match(id) {
			return core.New(core.RestrictionValidationFailed,
				"%s: credential of %s doesn't satisfy the restrictions", ref, id.IssuerDid)
		}
		return nil
	}

	for _, ref := range pp.SortedKeys(req.RequestedAttributes) {
		info := req.RequestedAttributes[ref]
		var err error
		if ra, ok := rp.RevealedAttrs[ref]; ok {
			err = check(ref, ra.SubProofIndex, info.Restrictions)
		} else if ua, ok := rp.UnrevealedAttrs[ref]; ok {
			err = check(ref, ua.SubProofIndex, info.Restrictions)
		} else if _, ok := rp.SelfAttestedAttrs[ref]; ok {
			if len(info.Restrictions) > 0 {
				err = core.New(core.RestrictionValidationFailed,
					"%s is self attested but restricted", ref)
			}
		} else {
			err = core.New(core.ProofRejected, "attribute %s is not proven", ref)
		}
		if err != nil {
			return err
		}
	}
	for _, ref := range pp.SortedKeys(req.RequestedPredicates) {
		pr, ok := rp.Predicates[ref]
		if !ok {
			return core.New(core.ProofRejected, "predicate %s is not proven", ref)
		}
		if err := check(ref, pr.SubProofIndex, req.RequestedPredicates[ref].Restrictions); err != nil {
			return err
		}
	}
	return nil
}
