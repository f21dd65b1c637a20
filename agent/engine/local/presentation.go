package local

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"

	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	ic "github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	pp "github.com/arlindoconceicao/vertex-sub000/std/presentproof"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type proofData struct {
	Nonce     string     `json:"nonce"`
	SubProofs []subProof `json:"sub_proofs"`
}

// subProof is one credential's part of a presentation. Opened holds the
// salts of the revealed attributes, Links the chain links of the predicates
// by referent. Holder signs the whole proof data, with every Holder field
// empty, by the key of Body.BlindedMS.
type subProof struct {
	Body   signedBody        `json:"body"`
	Sig    string            `json:"sig"`
	Opened map[string]string `json:"opened"`
	Links  map[string]string `json:"links"`
	Holder string            `json:"holder,omitempty"`
}

func (e *Engine) CreatePresentation(
	req *pp.ProofRequest,
	rc *pp.RequestedCredentials,
	creds map[string]*ic.StoredCredential,
	linkSecret []byte,
	schemas map[string]*vc.Schema,
	credDefs map[string]*vc.CredDef,
) (proof *pp.Proof, err error) {
	defer err2.Handle(&err, "create presentation")

	ids := rc.CredIDs()
	index := make(map[string]int, len(ids))
	held := make([]holderCred, len(ids))
	keys := make([]ed25519.PrivateKey, len(ids))
	data := proofData{Nonce: req.Nonce, SubProofs: make([]subProof, len(ids))}
	proof = &pp.Proof{
		RequestedProof: pp.RequestedProof{
			RevealedAttrs:     make(map[string]pp.RevealedAttr),
			UnrevealedAttrs:   make(map[string]pp.PredicateRef),
			SelfAttestedAttrs: make(map[string]string),
			Predicates:        make(map[string]pp.PredicateRef),
		},
		Identifiers: make([]pp.Identifier, len(ids)),
	}

	for i, id := range ids {
		c, ok := creds[id]
		if !ok {
			return nil, core.New(core.NotFound, "credential %s", id)
		}
		if credDefs[c.CredDefID] == nil {
			return nil, core.New(core.ValidationFailed, "cred def %s missing", c.CredDefID)
		}
		if schemas != nil && schemas[c.SchemaID] == nil {
			return nil, core.New(core.ValidationFailed, "schema %s missing", c.SchemaID)
		}
		if err := json.Unmarshal(c.Processed, &held[i]); err != nil {
			return nil, core.Wrap(core.InvalidCredential, err, "credential "+id)
		}
		blinding, err := hex.DecodeString(held[i].Blinding)
		if err != nil || blindedSecret(linkSecret, blinding) != held[i].Signature.Body.BlindedMS {
			return nil, core.New(core.InvalidCredential,
				"credential %s isn't bound to the link secret", id)
		}
		keys[i] = holderKey(linkSecret, blinding)
		issuer := try.To1(vc.IssuerOf(c.CredDefID))
		proof.Identifiers[i] = pp.Identifier{
			SchemaID:  c.SchemaID,
			CredDefID: c.CredDefID,
			IssuerDid: issuer,
		}
		data.SubProofs[i] = subProof{
			Body:   held[i].Signature.Body,
			Sig:    held[i].Signature.Sig,
			Opened: make(map[string]string),
			Links:  make(map[string]string),
		}
		index[id] = i
	}

	for _, ref := range pp.SortedKeys(req.RequestedAttributes) {
		info := req.RequestedAttributes[ref]
		if v, ok := rc.SelfAttestedAttributes[ref]; ok {
			proof.RequestedProof.SelfAttestedAttrs[ref] = v
			continue
		}
		ra, ok := rc.RequestedAttributes[ref]
		if !ok {
			return nil, core.New(core.ValidationFailed, "no credential for attribute %s", ref)
		}
		i := index[ra.CredID]
		v, ok := creds[ra.CredID].Values.Get(info.Name)
		if !ok {
			return nil, core.New(core.ValidationFailed,
				"credential %s has no %s", ra.CredID, info.Name)
		}
		if !ra.Revealed {
			proof.RequestedProof.UnrevealedAttrs[ref] = pp.PredicateRef{SubProofIndex: i}
			continue
		}
		n := vc.NormalizeAttr(info.Name)
		data.SubProofs[i].Opened[n] = held[i].Signature.Salts[n]
		proof.RequestedProof.RevealedAttrs[ref] = pp.RevealedAttr{
			SubProofIndex: i,
			Raw:           v.Raw,
			Encoded:       v.Encoded,
		}
	}

	for _, ref := range pp.SortedKeys(req.RequestedPredicates) {
		info := req.RequestedPredicates[ref]
		rp, ok := rc.RequestedPredicates[ref]
		if !ok {
			return nil, core.New(core.ValidationFailed, "no credential for predicate %s", ref)
		}
		i := index[rp.CredID]
		v, ok := creds[rp.CredID].Values.Get(info.Name)
		if !ok {
			return nil, core.New(core.ValidationFailed,
				"credential %s has no %s", rp.CredID, info.Name)
		}
		seeds := held[i].Signature.Seeds[vc.NormalizeAttr(info.Name)]
		link := try.To1(predicateLink(seeds, v.Raw, info))
		data.SubProofs[i].Links[ref] = link
		proof.RequestedProof.Predicates[ref] = pp.PredicateRef{SubProofIndex: i}
	}

	msg := try.To1(json.Marshal(data))
	for i := range data.SubProofs {
		data.SubProofs[i].Holder = b64(ed25519.Sign(keys[i], msg))
	}
	proof.Proof = try.To1(json.Marshal(data))
	glog.V(3).Infof("presentation created for request %s with %d credentials",
		req.Nonce, len(ids))
	return proof, nil
}

// bound turns the predicate to an inclusive bound: ge tells the direction.
func bound(pType string, pValue int) (ge bool, t int, err error) {
	switch pType {
	case pp.GE:
		return true, pValue, nil
	case pp.GT:
		return true, pValue + 1, nil
	case pp.LE:
		return false, pValue, nil
	case pp.LT:
		return false, pValue - 1, nil
	}
	return false, 0, core.New(core.ValidationFailed, "predicate type %q", pType)
}

func predicateLink(seeds chainHead, raw string, info pp.PredicateInfo) (string, error) {
	v, ok := ic.PredicateValue(raw)
	if !ok {
		return "", core.New(core.PredicateNotSatisfied,
			"%s is not a numeric attribute", info.Name)
	}
	ge, t, err := bound(info.PType, info.PValue)
	if err != nil {
		return "", err
	}
	var seedHex string
	var n int
	if ge {
		if t < 0 {
			t = 0
		}
		if v < t {
			return "", core.New(core.PredicateNotSatisfied, "%s %s %d", info.Name, info.PType, info.PValue)
		}
		seedHex, n = seeds.GE, v-t
	} else {
		if t > maxValue {
			t = maxValue
		}
		if v > t {
			return "", core.New(core.PredicateNotSatisfied, "%s %s %d", info.Name, info.PType, info.PValue)
		}
		seedHex, n = seeds.LE, t-v
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) == 0 {
		return "", core.New(core.InvalidCredential, "%s has no predicate chain", info.Name)
	}
	return hex.EncodeToString(hashChain(seed, n)), nil
}

func checkLink(link string, head chainHead, info pp.PredicateInfo) bool {
	ge, t, err := bound(info.PType, info.PValue)
	if err != nil {
		return false
	}
	if ge {
		if t < 0 {
			t = 0
		}
		return t <= maxValue && chainMatches(link, t, head.GE)
	}
	if t > maxValue {
		t = maxValue
	}
	return t >= 0 && chainMatches(link, maxValue-t, head.LE)
}

// checkHolder verifies each sub proof's holder signature over the proof
// data. The data is a copy, so clearing the signatures doesn't leak out.
func checkHolder(data proofData) error {
	subs := make([]subProof, len(data.SubProofs))
	copy(subs, data.SubProofs)
	for i := range subs {
		subs[i].Holder = ""
	}
	msg, err := json.Marshal(proofData{Nonce: data.Nonce, SubProofs: subs})
	if err != nil {
		return core.Wrap(core.ProofRejected, err, "proof data")
	}
	for i, sp := range data.SubProofs {
		pub, ok := holderPublic(sp.Body.BlindedMS)
		if !ok || !ed25519.Verify(pub, msg, unb64(sp.Holder)) {
			return core.New(core.ProofRejected,
				"sub proof %d isn't signed by its holder for request %s", i, data.Nonce)
		}
	}
	return nil
}

func rejected(format string, a ...any) (bool, error) {
	return false, core.New(core.ProofRejected, format, a...)
}

func (e *Engine) VerifyPresentation(
	req *pp.ProofRequest,
	proof *pp.Proof,
	schemas map[string]*vc.Schema,
	credDefs map[string]*vc.CredDef,
) (bool, error) {
	var data proofData
	if err := json.Unmarshal(proof.Proof, &data); err != nil {
		return rejected("proof data: %v", err)
	}
	if data.Nonce != req.Nonce {
		return rejected("proof is for request %s, not %s", data.Nonce, req.Nonce)
	}
	if len(data.SubProofs) != len(proof.Identifiers) {
		return rejected("%d sub proofs for %d identifiers",
			len(data.SubProofs), len(proof.Identifiers))
	}
	if err := checkHolder(data); err != nil {
		return false, err
	}

	ids := make([]pp.Identifier, len(proof.Identifiers))
	for i, id := range proof.Identifiers {
		cd := credDefs[id.CredDefID]
		if cd == nil {
			return rejected("unknown cred def %s", id.CredDefID)
		}
		if cd.SchemaID != id.SchemaID {
			return rejected("cred def %s is not of schema %s", id.CredDefID, id.SchemaID)
		}
		if schemas != nil && schemas[id.SchemaID] == nil {
			return rejected("unknown schema %s", id.SchemaID)
		}
		issuer, err := vc.IssuerOf(id.CredDefID)
		if err != nil {
			return rejected("identifier %d: %v", i, err)
		}
		if id.IssuerDid != "" && id.IssuerDid != issuer {
			return rejected("issuer %s is not the issuer of %s", id.IssuerDid, id.CredDefID)
		}
		sp := data.SubProofs[i]
		if sp.Body.CredDefID != id.CredDefID || sp.Body.SchemaID != id.SchemaID {
			return rejected("sub proof %d is not of %s", i, id.CredDefID)
		}
		if err := checkBody(&sp.Body, sp.Sig, cd); err != nil {
			return rejected("sub proof %d: %v", i, err)
		}
		ids[i] = pp.Identifier{SchemaID: id.SchemaID, CredDefID: id.CredDefID, IssuerDid: issuer}
	}
	valid := func(i int) bool { return i >= 0 && i < len(ids) }
	rp := proof.RequestedProof

	for _, ref := range pp.SortedKeys(req.RequestedAttributes) {
		info := req.RequestedAttributes[ref]
		n := vc.NormalizeAttr(info.Name)
		var i int
		if ra, ok := rp.RevealedAttrs[ref]; ok {
			i = ra.SubProofIndex
			if !valid(i) {
				return rejected("attribute %s sub proof index", ref)
			}
			sp := data.SubProofs[i]
			if ra.Encoded != ic.Encode(ra.Raw) ||
				!opens(sp.Opened[n], n, ra.Encoded, sp.Body.Commitments[n]) {
				return rejected("revealed attribute %s doesn't open", ref)
			}
		} else if ua, ok := rp.UnrevealedAttrs[ref]; ok {
			i = ua.SubProofIndex
			if !valid(i) || data.SubProofs[i].Body.Commitments[n] == "" {
				return rejected("unrevealed attribute %s", ref)
			}
		} else if _, ok := rp.SelfAttestedAttrs[ref]; ok {
			if len(info.Restrictions) > 0 {
				return false, core.New(core.RestrictionValidationFailed,
					"attribute %s is self attested but restricted", ref)
			}
			continue
		} else {
			return rejected("attribute %s is not proven", ref)
		}
		if s := schemas[ids[i].SchemaID]; s != nil && !s.HasAttr(info.Name) {
			return rejected("schema %s has no %s", s.ID, info.Name)
		}
		if !info.Restrictions.Match(ids[i]) {
			return false, core.New(core.RestrictionValidationFailed,
				"attribute %s: credential of %s doesn't satisfy the restrictions",
				ref, ids[i].IssuerDid)
		}
	}

	for _, ref := range pp.SortedKeys(req.RequestedPredicates) {
		info := req.RequestedPredicates[ref]
		pr, ok := rp.Predicates[ref]
		if !ok || !valid(pr.SubProofIndex) {
			return rejected("predicate %s is not proven", ref)
		}
		i := pr.SubProofIndex
		sp := data.SubProofs[i]
		head, ok := sp.Body.Chains[vc.NormalizeAttr(info.Name)]
		if !ok || !checkLink(sp.Links[ref], head, info) {
			return rejected("predicate %s doesn't hold", ref)
		}
		if !info.Restrictions.Match(ids[i]) {
			return false, core.New(core.RestrictionValidationFailed,
				"predicate %s: credential of %s doesn't satisfy the restrictions",
				ref, ids[i].IssuerDid)
		}
	}
	glog.V(3).Infoln("presentation verified for request", req.Nonce)
	return true, nil
}
