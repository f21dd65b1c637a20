package ssi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/golang/glog"
	"github.com/lainio/err2"
)

const linkSecretLen = 32

type linkSecret struct {
	ID        string    `json:"id"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLinkSecret returns the id of the named link secret, creating it on
// first use. Asking the same name again, in this session or after the store is
// reopened, returns the same id. An empty name mints a fresh secret.
func (w *Wallet) CreateLinkSecret(name string) (id string, err error) {
	defer err2.Handle(&err, "create link secret")

	if name == "" {
		name = utils.UUID()
	}
	err = w.store.Update(func(tx *enclave.Tx) error {
		d, err := tx.Get(enclave.BucketLinkSecret, name)
		if err == nil {
			var ls linkSecret
			if err := json.Unmarshal(d, &ls); err != nil {
				return err
			}
			id = ls.ID
			return nil
		} else if !errors.Is(err, enclave.ErrNotExists) {
			return err
		}
		ls := linkSecret{
			ID:        name,
			Value:     make([]byte, linkSecretLen),
			CreatedAt: w.now().UTC(),
		}
		if _, err := rand.Read(ls.Value); err != nil {
			return err
		}
		d, err = json.Marshal(ls)
		if err != nil {
			return err
		}
		id = ls.ID
		glog.V(3).Infoln("link secret created:", id)
		return tx.Put(enclave.BucketLinkSecret, name, d)
	})
	return id, err
}

// LinkSecret returns the secret value for the credential math engine.
func (w *Wallet) LinkSecret(id string) (value []byte, err error) {
	d, err := w.store.Get(enclave.BucketLinkSecret, id)
	if errors.Is(err, enclave.ErrNotExists) {
		return nil, core.New(core.NotFound, "link secret %s", id)
	} else if err != nil {
		return nil, err
	}
	var ls linkSecret
	if err := json.Unmarshal(d, &ls); err != nil {
		return nil, err
	}
	return ls.Value, nil
}
