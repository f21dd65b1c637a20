// Package holder is the holder side of credential issuance: link secrets,
// credential requests, and the wallet's credential store.
package holder

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
	ic "github.com/arlindoconceicao/vertex-sub000/std/issuecredential"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

// Holder runs the holder side with one wallet.
type Holder struct {
	w      *ssi.Wallet
	ledger *ledger.Client
	engine engine.Engine
	states *psm.DB
	now    func() time.Time
}

func New(w *ssi.Wallet, lc *ledger.Client, e engine.Engine) *Holder {
	assert.NotNil(w)
	assert.INotNil(e)
	return &Holder{
		w:      w,
		ledger: lc,
		engine: e,
		states: psm.New(w.Store()),
		now:    time.Now,
	}
}

func (h *Holder) SetClock(now func() time.Time) {
	h.now = now
	h.states.SetClock(now)
}

func (h *Holder) store() *enclave.Store {
	return h.w.Store()
}

// CreateLinkSecret returns the id of the named link secret. It's idempotent by
// name, also over a closed and reopened wallet.
func (h *Holder) CreateLinkSecret(name string) (string, error) {
	return h.w.CreateLinkSecret(name)
}

// LinkSecret returns the link secret value for the math engine.
func (h *Holder) LinkSecret(id string) ([]byte, error) {
	return h.w.LinkSecret(id)
}

// CreateRequest answers an offer. The request metadata is stored under the
// offer nonce for Store. A nil credDefJSON is fetched from the ledger.
func (h *Holder) CreateRequest(
	ctx context.Context,
	linkSecretName, holderDid string,
	credDefJSON, offerJSON []byte,
) (
	req *ic.Request,
	meta *ic.RequestMetadata,
	err error,
) {
	defer err2.Handle(&err, "create credential request")

	var offer ic.Offer
	try.To(common.Unmarshal(common.KindOffer, offerJSON, &offer))
	try.To1(vc.ParseCredDefID(offer.CredDefID))
	cd := try.To1(h.credDef(ctx, offer.CredDefID, credDefJSON))

	did := try.To1(h.w.Get(holderDid))
	if !did.IsOwn() {
		return nil, nil, core.New(core.DidNotFound, "%s is not an own DID", holderDid)
	}
	lsID := try.To1(h.w.CreateLinkSecret(linkSecretName))
	ls := try.To1(h.w.LinkSecret(lsID))

	req, meta = try.To2(h.engine.CreateCredentialRequest(holderDid, cd, &offer, ls))
	meta.ProverDid = holderDid
	meta.LinkSecretID = lsID
	meta.CreatedAt = h.now().UTC()

	// one request per offer, the state machine refuses a second one
	key := psm.NewStateKey(holderDid, offer.Nonce)
	d := try.To1(json.Marshal(meta))
	try.To(h.store().Update(func(tx *enclave.Tx) error {
		for _, s := range []psm.SubState{psm.Offered, psm.Requested} {
			_, err := h.states.TransitionTx(tx, key, psm.ProtocolIssueCredential, psm.RoleHolder, s,
				&psm.IssueCredRep{
					StateKey:  key,
					Timestamp: meta.CreatedAt.UnixMilli(),
					SchemaID:  offer.SchemaID,
					CredDefID: offer.CredDefID,
				})
			if err != nil {
				return err
			}
		}
		return tx.Put(enclave.BucketReqMeta, offer.Nonce, d)
	}))

	glog.V(3).Infoln("credential request created for", offer.CredDefID)
	return req, meta, nil
}

func (h *Holder) credDef(ctx context.Context, id string, data []byte) (*vc.CredDef, error) {
	if data == nil {
		if h.ledger == nil {
			return nil, core.New(core.ValidationFailed, "cred def %s is needed", id)
		}
		return h.ledger.FetchCredDef(ctx, id)
	}
	cd := new(vc.CredDef)
	if err := common.Unmarshal(common.KindCredDef, data, cd); err != nil {
		return nil, err
	}
	if cd.ID != id {
		return nil, core.New(core.ValidationFailed, "cred def is %s, not %s", cd.ID, id)
	}
	return cd, nil
}

// Store checks the credential against the request metadata stored under
// requestMetadataID and saves it under idLocal. Metadata is consumed in the
// same transaction the credential is written in, so a failure keeps it. An
// empty idLocal gets a UUID.
func (h *Holder) Store(
	idLocal string,
	credentialJSON []byte,
	requestMetadataID string,
	credDefJSON []byte,
	revReg json.RawMessage,
) (_ string, err error) {
	defer err2.Handle(&err, "store credential")

	if idLocal == "" {
		idLocal = utils.UUID()
	}
	meta := try.To1(h.requestMetadata(requestMetadataID))

	var cred ic.Credential
	try.To(common.Unmarshal(common.KindCredential, credentialJSON, &cred))
	if cred.CredDefID != meta.CredDefID {
		return "", core.New(core.InvalidCredential,
			"credential is of %s, request was for %s", cred.CredDefID, meta.CredDefID)
	}
	cd := try.To1(h.credDef(context.Background(), cred.CredDefID, credDefJSON))
	if len(revReg) > 0 && string(revReg) != "null" {
		glog.Warningln("revocation registry ignored for", idLocal)
	}

	ls := try.To1(h.w.LinkSecret(meta.LinkSecretID))
	processed := try.To1(h.engine.ProcessCredential(&cred, meta, ls, cd))

	sc := ic.StoredCredential{
		IDLocal:   idLocal,
		SchemaID:  cred.SchemaID,
		CredDefID: cred.CredDefID,
		IssuerDid: try.To1(vc.IssuerOf(cred.CredDefID)),
		Values:    cred.Values,
		StoredAt:  h.now().UTC(),
		Processed: processed,

		LinkSecretID: meta.LinkSecretID,
	}
	d := try.To1(json.Marshal(sc))
	try.To(h.store().Update(func(tx *enclave.Tx) error {
		if _, err := tx.Get(enclave.BucketReqMeta, requestMetadataID); err != nil {
			return core.New(core.MissingRequestMetadata, "request metadata %s", requestMetadataID)
		}
		if _, err := tx.Get(enclave.BucketCredential, idLocal); err == nil {
			return core.New(core.AlreadyExists, "credential %s", idLocal)
		}
		if err := tx.Put(enclave.BucketCredential, idLocal, d); err != nil {
			return err
		}
		return tx.Delete(enclave.BucketReqMeta, requestMetadataID)
	}))

	if meta.ProverDid != "" {
		key := psm.NewStateKey(meta.ProverDid, requestMetadataID)
		rep := &psm.IssueCredRep{
			StateKey:  key,
			Timestamp: sc.StoredAt.UnixMilli(),
			SchemaID:  sc.SchemaID,
			CredDefID: sc.CredDefID,
			CredID:    idLocal,
			Values:    sc.Values.RawMap(),
		}
		for _, s := range []psm.SubState{psm.Issued, psm.Stored} {
			if _, err := h.states.Transition(key, psm.ProtocolIssueCredential,
				psm.RoleHolder, s, rep); err != nil {
				glog.Warningln("credential stored, state not updated:", err)
				break
			}
		}
	}

	glog.V(1).Infoln("credential stored:", idLocal)
	return idLocal, nil
}

func (h *Holder) requestMetadata(id string) (*ic.RequestMetadata, error) {
	d, err := h.store().Get(enclave.BucketReqMeta, id)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.MissingRequestMetadata, "request metadata %s", id)
	} else if err != nil {
		return nil, err
	}
	meta := new(ic.RequestMetadata)
	if err := json.Unmarshal(d, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Get returns the stored credential or NotFound.
func (h *Holder) Get(idLocal string) (c *ic.StoredCredential, err error) {
	d, err := h.store().Get(enclave.BucketCredential, idLocal)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.NotFound, "credential %s", idLocal)
	} else if err != nil {
		return nil, err
	}
	c = new(ic.StoredCredential)
	if err := json.Unmarshal(d, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every stored credential ordered by storedAt and idLocal.
func (h *Holder) List() (creds []ic.StoredCredential, err error) {
	defer err2.Handle(&err, "list credentials")

	try.To(h.store().ForEach(enclave.BucketCredential, func(d []byte) error {
		var c ic.StoredCredential
		if err := json.Unmarshal(d, &c); err != nil {
			return err
		}
		creds = append(creds, c)
		return nil
	}))
	sort.Slice(creds, func(i, j int) bool {
		if creds[i].StoredAt.Equal(creds[j].StoredAt) {
			return creds[i].IDLocal < creds[j].IDLocal
		}
		return creds[i].StoredAt.Before(creds[j].StoredAt)
	})
	return creds, nil
}

// Page returns limit summaries starting at offset of the List order.
func (h *Holder) Page(limit, offset int) (page []ic.Summary, err error) {
	defer err2.Handle(&err, "credential page")

	if limit < 0 || offset < 0 {
		return nil, core.New(core.ValidationFailed, "limit %d offset %d", limit, offset)
	}
	all := try.To1(h.List())
	page = []ic.Summary{}
	for i := offset; i < len(all) && (limit == 0 || len(page) < limit); i++ {
		page = append(page, all[i].Summary())
	}
	return page, nil
}

// Delete removes the credential. Removing a missing one is NotFound.
func (h *Holder) Delete(idLocal string) (err error) {
	defer err2.Handle(&err, "delete credential %s", idLocal)

	return h.store().Update(func(tx *enclave.Tx) error {
		if _, err := tx.Get(enclave.BucketCredential, idLocal); err != nil {
			return err
		}
		return tx.Delete(enclave.BucketCredential, idLocal)
	})
}

// Export returns the credential as a credential package.
func (h *Holder) Export(idLocal string) (data []byte, err error) {
	defer err2.Handle(&err, "export credential %s", idLocal)

	c := try.To1(h.Get(idLocal))
	return json.Marshal(ic.Package{
		Type:       ic.PackageType,
		Version:    ic.PackageVersion,
		Credential: *c,
	})
}

// Import stores a credential package. A non empty newIDLocal replaces the
// package's id, which is how a credential is cloned.
func (h *Holder) Import(data []byte, newIDLocal string) (idLocal string, err error) {
	defer err2.Handle(&err, "import credential")

	var pkg ic.Package
	try.To(common.Unmarshal(common.KindCredentialPackage, data, &pkg))
	c := pkg.Credential
	if newIDLocal != "" {
		c.IDLocal = newIDLocal
	}
	if c.StoredAt.IsZero() {
		c.StoredAt = h.now().UTC()
	}
	d := try.To1(json.Marshal(c))
	try.To(h.store().Update(func(tx *enclave.Tx) error {
		if _, err := tx.Get(enclave.BucketCredential, c.IDLocal); err == nil {
			return core.New(core.AlreadyExists, "credential %s", c.IDLocal)
		}
		return tx.Put(enclave.BucketCredential, c.IDLocal, d)
	}))

	glog.V(3).Infoln("credential imported:", c.IDLocal)
	return c.IDLocal, nil
}
