package ssi

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const primaryKey = "primary_did"

// Wallet is the identity side of a party's secret store: DIDs, their keys,
// the primary DID pointer and link secrets.
type Wallet struct {
	store *enclave.Store
	now   func() time.Time
}

// DidOptions are the inputs of GenerateDid.
type DidOptions struct {
	Alias  string
	Method string // only MethodSov, empty means it
}

// SearchFilter selects DIDs. Query is a case insensitive substring of did,
// verkey or alias. Limit 0 means no limit.
type SearchFilter struct {
	Type   DidType `json:"type,omitempty"`
	Query  string  `json:"query,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
}

// PrimaryDid is the wallet's primary DID pointer.
type PrimaryDid struct {
	Did   string    `json:"did"`
	SetAt time.Time `json:"set_at"`
}

// NewWallet returns the identity service over an open store.
func NewWallet(store *enclave.Store) *Wallet {
	assert.NotNil(store)
	return &Wallet{store: store, now: time.Now}
}

// SetClock replaces the time source, mostly for tests.
func (w *Wallet) SetClock(now func() time.Time) {
	w.now = now
}

// Store returns the underlying secret store.
func (w *Wallet) Store() *enclave.Store {
	return w.store
}

// GenerateDid creates a new own DID from a random seed.
func (w *Wallet) GenerateDid(opts DidOptions) (r *DidRecord, err error) {
	defer err2.Handle(&err, "generate DID")

	if opts.Method != "" && opts.Method != MethodSov {
		return nil, core.New(core.ValidationFailed, "DID method %q", opts.Method)
	}
	seed := make([]byte, ed25519.SeedSize)
	try.To1(rand.Read(seed))

	r = try.To1(w.addOwn(seed, opts.Alias, OriginGenerated))
	glog.V(3).Infoln("DID generated:", r.Did)
	return r, nil
}

// ImportDidFromSeed creates an own DID from a seed. The same seed always gives
// the same DID and verkey. Importing a seed whose DID is already own returns
// the stored record untouched.
func (w *Wallet) ImportDidFromSeed(seed, alias string) (r *DidRecord, err error) {
	defer err2.Handle(&err, "import DID from seed")

	b := try.To1(DecodeSeed(seed))
	r = try.To1(w.addOwn(b, alias, OriginImportedSeed))
	glog.V(3).Infoln("DID imported from seed:", r.Did)
	return r, nil
}

func (w *Wallet) addOwn(seed []byte, alias string, origin Origin) (r *DidRecord, err error) {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	r = &DidRecord{
		Did:       DidFromVerkey(pub),
		Verkey:    EncodeVerkey(pub),
		Method:    MethodSov,
		Type:      DidOwn,
		Origin:    origin,
		Alias:     alias,
		CreatedAt: w.now().UTC(),
	}
	err = w.store.Update(func(tx *enclave.Tx) error {
		if old, err := getDid(tx, r.Did); err == nil {
			if _, err := tx.Get(enclave.BucketSecret, old.Verkey); err == nil {
				r = old
				return nil
			}
			// a keyless record gets its key now, public data stays
			old.Type, old.Origin = DidOwn, origin
			if alias != "" {
				old.Alias = alias
			}
			r = old
		}
		if err := tx.Put(enclave.BucketSecret, r.Verkey, seed); err != nil {
			return err
		}
		return putDid(tx, r)
	})
	return r, err
}

// AddExternal stores their DID and verkey. An existing record is kept as is.
func (w *Wallet) AddExternal(did, verkey, alias string) (r *DidRecord, err error) {
	defer err2.Handle(&err, "add external DID")

	try.To(CheckDid(did, verkey))
	r = &DidRecord{
		Did:       did,
		Verkey:    verkey,
		Method:    MethodSov,
		Type:      DidExternal,
		Alias:     alias,
		CreatedAt: w.now().UTC(),
	}
	try.To(w.store.Update(func(tx *enclave.Tx) error {
		if old, err := getDid(tx, did); err == nil {
			r = old
			return nil
		}
		return putDid(tx, r)
	}))
	return r, nil
}

// Get returns the DID record or DidNotFound.
func (w *Wallet) Get(did string) (r *DidRecord, err error) {
	err = w.store.View(func(tx *enclave.Tx) error {
		r, err = getDid(tx, did)
		return err
	})
	return r, err
}

// GetByVerkey finds the DID record by its verkey.
func (w *Wallet) GetByVerkey(verkey string) (r *DidRecord, err error) {
	all, err := w.all()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Verkey == verkey {
			return &all[i], nil
		}
	}
	return nil, core.New(core.DidNotFound, "verkey %s", verkey)
}

// Search returns matching records ordered by creation time and DID.
func (w *Wallet) Search(filter SearchFilter) (recs []DidRecord, err error) {
	defer err2.Handle(&err, "search DIDs")

	all := try.To1(w.all())
	q := strings.ToLower(filter.Query)
	recs = make([]DidRecord, 0, len(all))
	for _, r := range all {
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Did), q) &&
			!strings.Contains(strings.ToLower(r.Verkey), q) &&
			!strings.Contains(strings.ToLower(r.Alias), q) {
			continue
		}
		recs = append(recs, r)
	}
	return page(recs, filter.Limit, filter.Offset), nil
}

func page(recs []DidRecord, limit, offset int) []DidRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return []DidRecord{}
	}
	recs = recs[offset:]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}

func (w *Wallet) all() (recs []DidRecord, err error) {
	err = w.store.ForEach(enclave.BucketDID, func(value []byte) error {
		var r DidRecord
		if err := json.Unmarshal(value, &r); err != nil {
			return err
		}
		recs = append(recs, r)
		return nil
	})
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].Did < recs[j].Did
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	return recs, err
}

// SetPrimary points the wallet's primary DID to an own DID.
func (w *Wallet) SetPrimary(did string) (err error) {
	defer err2.Handle(&err, "set primary DID")

	return w.store.Update(func(tx *enclave.Tx) error {
		r, err := getDid(tx, did)
		if err != nil {
			return err
		}
		if !r.IsOwn() {
			return core.New(core.DidNotFound, "%s is not an own DID", did)
		}
		d, err := json.Marshal(PrimaryDid{Did: did, SetAt: w.now().UTC()})
		if err != nil {
			return err
		}
		return tx.Put(enclave.BucketMeta, primaryKey, d)
	})
}

// GetPrimary returns the primary DID pointer and its record. It fails with
// NotFound before SetPrimary is called.
func (w *Wallet) GetPrimary() (p *PrimaryDid, r *DidRecord, err error) {
	defer err2.Handle(&err, "get primary DID")

	d, err := w.store.Get(enclave.BucketMeta, primaryKey)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, nil, core.New(core.NotFound, "primary DID not set")
	}
	try.To(err)
	p = new(PrimaryDid)
	try.To(json.Unmarshal(d, p))
	r = try.To1(w.Get(p.Did))
	return p, r, nil
}

// MarkRegistered records a successful ledger registration of the DID.
func (w *Wallet) MarkRegistered(did, role, submitterDid string, ts time.Time) (err error) {
	defer err2.Handle(&err, "mark DID registered")

	return w.store.Update(func(tx *enclave.Tx) error {
		r, err := getDid(tx, did)
		if err != nil {
			return err
		}
		r.IsPublic = true
		r.Role = role
		r.Ledger = &LedgerInfo{RegisteredAt: ts.UTC(), SubmitterDid: submitterDid}
		return putDid(tx, r)
	})
}

func getDid(tx *enclave.Tx, did string) (*DidRecord, error) {
	d, err := tx.Get(enclave.BucketDID, did)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.DidNotFound, "DID %s", did)
	} else if err != nil {
		return nil, err
	}
	r := new(DidRecord)
	if err := json.Unmarshal(d, r); err != nil {
		return nil, err
	}
	return r, nil
}

func putDid(tx *enclave.Tx, r *DidRecord) error {
	d, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return tx.Put(enclave.BucketDID, r.Did, d)
}
