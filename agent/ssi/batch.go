package ssi

import (
	"encoding/json"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	BatchType    = "ssi.did.batch"
	BatchVersion = 1
)

// ImportMode tells how the types of imported records are treated.
type ImportMode string

const (
	// ImportPreserve keeps own/external as exported. Own records come
	// without keys, so they can't sign until the seed is imported.
	ImportPreserve ImportMode = "preserve"
	// ImportExternal stores every item as an external DID.
	ImportExternal ImportMode = "external"
)

// Batch is the exchange format of DID records. It never contains seeds.
type Batch struct {
	Type       string      `json:"type"`
	Version    int         `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Items      []DidRecord `json:"items"`
}

// ImportResult counts what ImportBatch did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ExportBatch exports the public part of the DIDs selected by filter.
func (w *Wallet) ExportBatch(filter SearchFilter) (b *Batch, err error) {
	defer err2.Handle(&err, "export DID batch")

	recs := try.To1(w.Search(filter))
	return &Batch{
		Type:       BatchType,
		Version:    BatchVersion,
		ExportedAt: w.now().UTC(),
		Items:      recs,
	}, nil
}

// ImportBatch adds the batch's DIDs. A DID already in the wallet is skipped
// and nothing of it is overwritten, so importing the same batch twice is
// harmless.
func (w *Wallet) ImportBatch(b *Batch, mode ImportMode) (res ImportResult, err error) {
	defer err2.Handle(&err, "import DID batch")

	if b == nil || b.Type != BatchType || b.Version != BatchVersion {
		return res, core.New(core.ValidationFailed, "not a DID batch")
	}
	if mode == "" {
		mode = ImportPreserve
	}
	if mode != ImportPreserve && mode != ImportExternal {
		return res, core.New(core.ValidationFailed, "import mode %q", mode)
	}
	for _, item := range b.Items {
		try.To(CheckDid(item.Did, item.Verkey))
	}

	try.To(w.store.Update(func(tx *enclave.Tx) error {
		for _, item := range b.Items {
			if _, err := getDid(tx, item.Did); err == nil {
				res.Skipped++
				continue
			}
			r := item
			if r.Method == "" {
				r.Method = MethodSov
			}
			if mode == ImportExternal || r.Type == "" {
				r.Type = DidExternal
			}
			if r.Type == DidOwn {
				r.Origin = OriginImported
			}
			if err := putDid(tx, &r); err != nil {
				return err
			}
			res.Imported++
		}
		return nil
	}))
	glog.V(3).Infof("DID batch imported %d, skipped %d", res.Imported, res.Skipped)
	return res, nil
}

// MarshalBatch and UnmarshalBatch are the file format of a batch.
func MarshalBatch(b *Batch) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

func UnmarshalBatch(data []byte) (*Batch, error) {
	b := new(Batch)
	if err := json.Unmarshal(data, b); err != nil {
		return nil, core.Wrap(core.ValidationFailed, err, "DID batch")
	}
	return b, nil
}
