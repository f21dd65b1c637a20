// Package archive is the verifier's durable store of presentations. A record
// can be exported as a versioned package and imported back, also under a new
// id.
package archive

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
	pp "github.com/arlindoconceicao/vertex-sub000/std/presentproof"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const storedAtKey = "stored_at"

// Summary is the listing form of a record.
type Summary struct {
	IDLocal  string    `json:"id_local"`
	Name     string    `json:"name,omitempty"`
	Nonce    string    `json:"nonce"`
	Verified *bool     `json:"verified,omitempty"`
	StoredAt time.Time `json:"stored_at"`
}

// Meta is the part of the record meta the archive understands. Other fields
// are kept as they are.
type Meta struct {
	IDLocal    string     `json:"id_local,omitempty"`
	Verified   *bool      `json:"verified,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// VerifiedMeta is the meta the verifier stores with a checked presentation.
func VerifiedMeta(ok bool, at time.Time) json.RawMessage {
	at = at.UTC()
	d, _ := json.Marshal(Meta{Verified: &ok, VerifiedAt: &at})
	return d
}

type Archive struct {
	s   *enclave.Store
	now func() time.Time
}

func New(s *enclave.Store) *Archive {
	assert.NotNil(s)
	return &Archive{s: s, now: time.Now}
}

func (a *Archive) SetClock(now func() time.Time) {
	a.now = now
}

// Store archives a presentation with its request. An empty idLocal gets a
// UUID, an existing one is AlreadyExists.
func (a *Archive) Store(idLocal string, presentationJSON, requestJSON, metaJSON []byte) (_ string, err error) {
	defer err2.Handle(&err, "archive presentation")

	if idLocal == "" {
		idLocal = utils.UUID()
	}
	rec := try.To1(newRecord(idLocal, presentationJSON, requestJSON, metaJSON))
	rec.StoredAt = a.now().UTC()
	try.To(a.put(rec, false))

	glog.V(3).Infoln("presentation archived:", idLocal)
	return idLocal, nil
}

func newRecord(idLocal string, presentationJSON, requestJSON, metaJSON []byte) (*pp.Record, error) {
	if err := common.Validate(common.KindProof, presentationJSON); err != nil {
		return nil, err
	}
	if err := common.Validate(common.KindProofRequest, requestJSON); err != nil {
		return nil, err
	}
	if len(metaJSON) == 0 {
		metaJSON = []byte("{}")
	}
	var meta map[string]any
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, core.Wrap(core.ValidationFailed, err, "meta must be an object")
	}
	return &pp.Record{
		IDLocal:      idLocal,
		Presentation: pp.Compact(presentationJSON),
		Request:      pp.Compact(requestJSON),
		Meta:         pp.Compact(metaJSON),
	}, nil
}

func (a *Archive) put(rec *pp.Record, overwrite bool) error {
	d, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return a.s.Update(func(tx *enclave.Tx) error {
		if !overwrite {
			if _, err := tx.Get(enclave.BucketPresentation, rec.IDLocal); err == nil {
				return core.New(core.AlreadyExists, "presentation %s", rec.IDLocal)
			}
		}
		return tx.Put(enclave.BucketPresentation, rec.IDLocal, d)
	})
}

// Get returns the record or NotFound.
func (a *Archive) Get(idLocal string) (rec *pp.Record, err error) {
	d, err := a.s.Get(enclave.BucketPresentation, idLocal)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.NotFound, "presentation %s", idLocal)
	} else if err != nil {
		return nil, err
	}
	rec = new(pp.Record)
	if err := json.Unmarshal(d, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the summaries ordered by storage time and id.
func (a *Archive) List() (list []Summary, err error) {
	defer err2.Handle(&err, "list presentations")

	list = []Summary{}
	try.To(a.s.ForEach(enclave.BucketPresentation, func(d []byte) error {
		var rec pp.Record
		if err := json.Unmarshal(d, &rec); err != nil {
			return err
		}
		list = append(list, summary(&rec))
		return nil
	}))
	sort.Slice(list, func(i, j int) bool {
		if list[i].StoredAt.Equal(list[j].StoredAt) {
			return list[i].IDLocal < list[j].IDLocal
		}
		return list[i].StoredAt.Before(list[j].StoredAt)
	})
	return list, nil
}

func summary(rec *pp.Record) Summary {
	s := Summary{IDLocal: rec.IDLocal, StoredAt: rec.StoredAt}
	var req pp.ProofRequest
	if json.Unmarshal(rec.Request, &req) == nil {
		s.Name, s.Nonce = req.Name, req.Nonce
	}
	var meta Meta
	if json.Unmarshal(rec.Meta, &meta) == nil {
		s.Verified = meta.Verified
	}
	return s
}

// Delete removes the record. Removing a missing one is NotFound.
func (a *Archive) Delete(idLocal string) (err error) {
	defer err2.Handle(&err, "delete presentation %s", idLocal)

	return a.s.Update(func(tx *enclave.Tx) error {
		if _, err := tx.Get(enclave.BucketPresentation, idLocal); err != nil {
			return err
		}
		return tx.Delete(enclave.BucketPresentation, idLocal)
	})
}

// Export returns the record as a presentation package. The meta carries the
// record's id_local and stored_at.
func (a *Archive) Export(idLocal string) (data []byte, err error) {
	defer err2.Handle(&err, "export presentation %s", idLocal)

	rec := try.To1(a.Get(idLocal))
	meta := map[string]any{}
	if len(rec.Meta) > 0 {
		try.To(json.Unmarshal(rec.Meta, &meta))
	}
	meta["id_local"] = rec.IDLocal
	meta[storedAtKey] = rec.StoredAt.UTC().Format(time.RFC3339Nano)

	return json.Marshal(pp.Package{
		Type:         pp.PackageType,
		Version:      pp.PackageVersion,
		Presentation: rec.Presentation,
		Request:      rec.Request,
		Meta:         try.To1(json.Marshal(meta)),
	})
}

// Import stores a package. The id is newIDLocal, or the package meta's
// id_local, or a new UUID, in that order. An existing id is replaced only
// with overwrite. The package's stored_at is restored, a package without one
// is stored now.
func (a *Archive) Import(data []byte, overwrite bool, newIDLocal string) (idLocal string, err error) {
	defer err2.Handle(&err, "import presentation")

	var pkg pp.Package
	try.To(common.Unmarshal(common.KindPresentationPackage, data, &pkg))

	var meta map[string]any
	if len(pkg.Meta) > 0 && string(pkg.Meta) != "null" {
		try.To(json.Unmarshal(pkg.Meta, &meta))
	}
	idLocal = newIDLocal
	if idLocal == "" {
		idLocal, _ = meta["id_local"].(string)
	}
	if idLocal == "" {
		idLocal = utils.UUID()
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["id_local"] = idLocal
	storedAt := a.now().UTC()
	if v, ok := meta[storedAtKey]; ok {
		s, _ := v.(string)
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return "", core.New(core.ValidationFailed, "package stored_at %v", v)
		}
		storedAt = t.UTC()
		delete(meta, storedAtKey)
	}

	rec := try.To1(newRecord(idLocal, pkg.Presentation, pkg.Request,
		try.To1(json.Marshal(meta))))
	rec.StoredAt = storedAt
	try.To(a.put(rec, overwrite))

	glog.V(3).Infoln("presentation imported:", idLocal)
	return idLocal, nil
}
