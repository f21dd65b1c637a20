package enclave

import (
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

// Tx is a read or write transaction over the sealed buckets. Keys given to
// Tx are logical keys, hashing and encryption happen inside.
type Tx struct {
	s  *Store
	tx *bolt.Tx
}

// Update runs fn in a single read-write transaction. If fn returns an error
// nothing fn wrote is persisted.
func (s *Store) Update(fn func(tx *Tx) error) (err error) {
	s.l.RLock()
	defer s.l.RUnlock()
	if s.db == nil {
		return core.ErrWalletNotOpen
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&Tx{s: s, tx: btx})
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) (err error) {
	s.l.RLock()
	defer s.l.RUnlock()
	if s.db == nil {
		return core.ErrWalletNotOpen
	}
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&Tx{s: s, tx: btx})
	})
}

// Put stores value under key, replacing an existing value.
func (s *Store) Put(b Bucket, key string, value []byte) error {
	return s.Update(func(tx *Tx) error {
		return tx.Put(b, key, value)
	})
}

// Get returns the value of key or ErrNotExists.
func (s *Store) Get(b Bucket, key string) (value []byte, err error) {
	err = s.View(func(tx *Tx) error {
		value, err = tx.Get(b, key)
		return err
	})
	return value, err
}

// Has tells if key exists. Errors count as not existing.
func (s *Store) Has(b Bucket, key string) bool {
	_, err := s.Get(b, key)
	return err == nil
}

// Delete removes key, removing a missing key is not an error.
func (s *Store) Delete(b Bucket, key string) error {
	return s.Update(func(tx *Tx) error {
		return tx.Delete(b, key)
	})
}

// ForEach calls use for every decrypted value of the bucket. Iteration order
// follows the hashed keys, so callers sort by their own fields.
func (s *Store) ForEach(b Bucket, use func(value []byte) error) error {
	return s.View(func(tx *Tx) error {
		return tx.ForEach(b, use)
	})
}

func (t *Tx) Put(b Bucket, key string, value []byte) (err error) {
	defer err2.Handle(&err, "put %s", b)

	glog.V(5).Infoln("enclave put", b)
	bucket := t.bucket(b)
	ct := try.To1(t.s.encrypt(b, value))
	return bucket.Put(t.s.hash(b, key), ct)
}

func (t *Tx) Get(b Bucket, key string) (value []byte, err error) {
	d := t.bucket(b).Get(t.s.hash(b, key))
	if d == nil {
		return nil, ErrNotExists
	}
	return t.s.decrypt(b, d)
}

func (t *Tx) Delete(b Bucket, key string) error {
	glog.V(5).Infoln("enclave delete", b)
	return t.bucket(b).Delete(t.s.hash(b, key))
}

func (t *Tx) ForEach(b Bucket, use func(value []byte) error) error {
	return t.bucket(b).ForEach(func(_, v []byte) error {
		pt, err := t.s.decrypt(b, v)
		if err != nil {
			return err
		}
		return use(pt)
	})
}

func (t *Tx) bucket(b Bucket) *bolt.Bucket {
	bucket := t.tx.Bucket([]byte(b))
	if bucket == nil {
		panic("enclave bucket missing: " + string(b))
	}
	return bucket
}

// hash makes the index of a record. The same logical key in two buckets gives
// two unrelated indexes.
func (s *Store) hash(b Bucket, key string) []byte {
	h, err := blake2b.New256(s.macKey)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(b))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return h.Sum(nil)
}

func (s *Store) encrypt(b Bucket, value []byte) ([]byte, error) {
	return s.aead.Encrypt(value, []byte(b))
}

func (s *Store) decrypt(b Bucket, value []byte) ([]byte, error) {
	pt, err := s.aead.Decrypt(value, []byte(b))
	if err != nil {
		return nil, core.Wrap(core.WalletAuthFailed, err, "decrypt record")
	}
	return pt, nil
}
