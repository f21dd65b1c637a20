// Package issuer is the issuer side of credential issuance: schemas and cred
// defs on the ledger, offers and their housekeeping, and issuing against a
// holder's request.
package issuer

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/engine"
	"github.com/arlindoconceicao/vertex-sub000/agent/ledger"
	"github.com/arlindoconceicao/vertex-sub000/agent/psm"
	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/agent/vc"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
	"github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

// credDefKey is the private part of a cred def, kept in the wallet.
type credDefKey struct {
	CredDef vc.CredDef `json:"cred_def"`
	Priv    []byte     `json:"priv"`
}

// Issuer runs the issuer side with one wallet.
type Issuer struct {
	w      *ssi.Wallet
	ledger *ledger.Client
	engine engine.Engine
	states *psm.DB
	now    func() time.Time
}

func New(w *ssi.Wallet, lc *ledger.Client, e engine.Engine) *Issuer {
	assert.NotNil(w)
	assert.NotNil(lc)
	assert.INotNil(e)
	return &Issuer{
		w:      w,
		ledger: lc,
		engine: e,
		states: psm.New(w.Store()),
		now:    time.Now,
	}
}

// SetClock replaces the time source of offer timestamps and state records.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
	i.states.SetClock(now)
}

func (i *Issuer) store() *enclave.Store {
	return i.w.Store()
}

// CreateSchema builds the schema and writes it to the ledger with the
// issuer DID as submitter.
func (i *Issuer) CreateSchema(ctx context.Context, issuerDid, name, version string, attrs []string) (s *vc.Schema, err error) {
	defer err2.Handle(&err, "create schema %s", name)

	s = try.To1(vc.NewSchema(issuerDid, name, version, attrs))
	try.To(i.ledger.RegisterSchema(ctx, issuerDid, s))

	glog.V(1).Infoln("schema created:", s.ID)
	return s, nil
}

// CreateCredDef creates a cred def for the schema and writes it to the
// ledger. The private key stays in the wallet.
func (i *Issuer) CreateCredDef(ctx context.Context, issuerDid, schemaID, tag string) (cd *vc.CredDef, err error) {
	defer err2.Handle(&err, "create cred def")

	try.To1(vc.ParseSchemaID(schemaID))
	did := try.To1(i.w.Get(issuerDid))
	if !did.IsOwn() {
		return nil, core.New(core.DidNotFound, "%s is not an own DID", issuerDid)
	}
	s := try.To1(i.ledger.FetchSchema(ctx, schemaID))

	cd, priv := try.To2(i.engine.NewCredDef(issuerDid, s, tag))
	if i.store().Has(enclave.BucketCredDefKey, cd.ID) {
		return nil, core.New(core.AlreadyExists, "cred def %s", cd.ID)
	}
	try.To(i.ledger.RegisterCredDef(ctx, issuerDid, cd))

	d := try.To1(json.Marshal(credDefKey{CredDef: *cd, Priv: priv}))
	try.To(i.store().Put(enclave.BucketCredDefKey, cd.ID, d))

	glog.V(1).Infoln("cred def created:", cd.ID)
	return cd, nil
}

// CredDef returns an own cred def from the wallet.
func (i *Issuer) CredDef(credDefID string) (cd *vc.CredDef, err error) {
	k, err := i.credDefKey(credDefID)
	if err != nil {
		return nil, err
	}
	return &k.CredDef, nil
}

func (i *Issuer) credDefKey(credDefID string) (k *credDefKey, err error) {
	defer err2.Handle(&err, "cred def key")

	try.To1(vc.ParseCredDefID(credDefID))
	d, err := i.store().Get(enclave.BucketCredDefKey, credDefID)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.NotFound, "no own cred def %s", credDefID)
	}
	try.To(err)
	k = new(credDefKey)
	try.To(json.Unmarshal(d, k))
	return k, nil
}

// CreateOffer mints an offer for an own cred def and keeps a record of it
// under idLocal. An empty idLocal gets a UUID.
func (i *Issuer) CreateOffer(credDefID, idLocal string) (r *issuecredential.OfferRecord, err error) {
	defer err2.Handle(&err, "create offer")

	k := try.To1(i.credDefKey(credDefID))
	offer := try.To1(i.engine.CreateOffer(&k.CredDef, k.Priv))

	if idLocal == "" {
		idLocal = utils.UUID()
	}
	r = &issuecredential.OfferRecord{
		IDLocal:   idLocal,
		CredDefID: credDefID,
		Nonce:     offer.Nonce,
		CreatedAt: i.now().UTC(),
		Offer:     *offer,
	}
	d := try.To1(json.Marshal(r))
	try.To(i.store().Update(func(tx *enclave.Tx) error {
		if _, err := tx.Get(enclave.BucketOffer, idLocal); err == nil {
			return core.New(core.AlreadyExists, "offer %s", idLocal)
		}
		return tx.Put(enclave.BucketOffer, idLocal, d)
	}))

	try.To1(i.states.Transition(i.stateKey(credDefID, offer.Nonce),
		psm.ProtocolIssueCredential, psm.RoleIssuer, psm.Offered,
		&psm.IssueCredRep{
			StateKey:  i.stateKey(credDefID, offer.Nonce),
			Timestamp: r.CreatedAt.UnixMilli(),
			SchemaID:  k.CredDef.SchemaID,
			CredDefID: credDefID,
			OfferID:   idLocal,
		}))

	glog.V(3).Infoln("offer created:", idLocal)
	return r, nil
}

func (i *Issuer) stateKey(credDefID, nonce string) psm.StateKey {
	did, _ := vc.IssuerOf(credDefID)
	return psm.NewStateKey(did, nonce)
}

// Issue signs the values for the holder's request. The offer must be one this
// issuer created, and the value names must be exactly the schema's
// attributes.
func (i *Issuer) Issue(ctx context.Context, credDefID string, offerJSON, requestJSON, valuesJSON []byte) (c *issuecredential.Credential, err error) {
	defer err2.Handle(&err, "issue credential")

	k := try.To1(i.credDefKey(credDefID))

	var offer issuecredential.Offer
	try.To(common.Unmarshal(common.KindOffer, offerJSON, &offer))
	var req issuecredential.Request
	try.To(common.Unmarshal(common.KindRequest, requestJSON, &req))
	if offer.CredDefID != credDefID || req.CredDefID != credDefID {
		return nil, core.New(core.ValidationFailed,
			"offer and request must be for %s", credDefID)
	}
	rec := try.To1(i.offerByNonce(offer.Nonce))
	if rec.CredDefID != credDefID {
		return nil, core.New(core.ValidationFailed, "offer %s is for another cred def", rec.IDLocal)
	}

	values := try.To1(issuecredential.ParseValues(valuesJSON))
	s := try.To1(i.ledger.FetchSchema(ctx, k.CredDef.SchemaID))
	try.To(checkValues(s, values))

	// the saved offer is the one signed, not what came over the wire
	c = try.To1(i.engine.IssueCredential(&k.CredDef, k.Priv, &rec.Offer, &req, values))

	key := i.stateKey(credDefID, rec.Nonce)
	try.To1(i.states.Transition(key, psm.ProtocolIssueCredential,
		psm.RoleIssuer, psm.Requested, nil))
	try.To1(i.states.Transition(key, psm.ProtocolIssueCredential,
		psm.RoleIssuer, psm.Issued, &psm.IssueCredRep{
			StateKey:  key,
			Timestamp: i.now().UnixMilli(),
			SchemaID:  s.ID,
			CredDefID: credDefID,
			OfferID:   rec.IDLocal,
			Values:    values.RawMap(),
		}))

	glog.V(1).Infof("credential issued on offer %s", rec.IDLocal)
	return c, nil
}

func checkValues(s *vc.Schema, values issuecredential.Values) error {
	if len(values) != len(s.AttrNames) {
		return core.New(core.ValidationFailed,
			"schema %s has %d attributes, got %d values", s.ID, len(s.AttrNames), len(values))
	}
	seen := make(map[string]bool, len(values))
	for name := range values {
		n := vc.NormalizeAttr(name)
		if !s.HasAttr(name) || seen[n] {
			return core.New(core.ValidationFailed, "schema %s: attribute %s", s.ID, name)
		}
		seen[n] = true
	}
	return nil
}

func (i *Issuer) offerByNonce(nonce string) (*issuecredential.OfferRecord, error) {
	all, err := i.ListOffers()
	if err != nil {
		return nil, err
	}
	for k := range all {
		if all[k].Nonce == nonce {
			return &all[k], nil
		}
	}
	return nil, core.New(core.NotFound, "no offer with nonce %s", nonce)
}

// ListOffers returns the offer records ordered by creation time.
func (i *Issuer) ListOffers() (recs []issuecredential.OfferRecord, err error) {
	defer err2.Handle(&err, "list offers")

	try.To(i.store().ForEach(enclave.BucketOffer, func(d []byte) error {
		var r issuecredential.OfferRecord
		if err := json.Unmarshal(d, &r); err != nil {
			return err
		}
		recs = append(recs, r)
		return nil
	}))
	sort.Slice(recs, func(a, b int) bool {
		if recs[a].CreatedAt.Equal(recs[b].CreatedAt) {
			return recs[a].IDLocal < recs[b].IDLocal
		}
		return recs[a].CreatedAt.Before(recs[b].CreatedAt)
	})
	return recs, nil
}

// ListOffersRange returns the offers created in [from, to).
func (i *Issuer) ListOffersRange(from, to time.Time) (recs []issuecredential.OfferRecord, err error) {
	defer err2.Handle(&err, "list offers range")

	all := try.To1(i.ListOffers())
	recs = make([]issuecredential.OfferRecord, 0, len(all))
	for _, r := range all {
		if inRange(r.CreatedAt, from, to) {
			recs = append(recs, r)
		}
	}
	return recs, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// DeleteOffer removes the offer record. Removing a missing one is NotFound.
func (i *Issuer) DeleteOffer(idLocal string) (err error) {
	defer err2.Handle(&err, "delete offer %s", idLocal)

	return i.store().Update(func(tx *enclave.Tx) error {
		if _, err := tx.Get(enclave.BucketOffer, idLocal); err != nil {
			return err
		}
		return tx.Delete(enclave.BucketOffer, idLocal)
	})
}

// DeleteOffersRange removes the offers created in [from, to) in one
// transaction and returns how many went.
func (i *Issuer) DeleteOffersRange(from, to time.Time) (count int, err error) {
	defer err2.Handle(&err, "delete offers range")

	try.To(i.store().Update(func(tx *enclave.Tx) error {
		var ids []string
		err := tx.ForEach(enclave.BucketOffer, func(d []byte) error {
			var r issuecredential.OfferRecord
			if err := json.Unmarshal(d, &r); err != nil {
				return err
			}
			if inRange(r.CreatedAt, from, to) {
				ids = append(ids, r.IDLocal)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Delete(enclave.BucketOffer, id); err != nil {
				return err
			}
		}
		count = len(ids)
		return nil
	}))
	glog.V(3).Infoln("offers deleted:", count)
	return count, nil
}
