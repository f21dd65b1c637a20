/*
Package enclave is the password protected secret store of one party. It keeps
every record of the party (DIDs, private keys, link secrets, offers, request
metadata, credentials, presentations and protocol state) in a single bolt file.

Every value is encrypted with AES-GCM under a random data key (DEK). Record
indexes are keyed blake2b hashes, so no DID or nonce is stored in plain text.
The DEK itself is stored wrapped under a key derived from the wallet password
with argon2id. The argon2id parameters live in a sidecar JSON file next to the
bolt file. Without the sidecar the wallet cannot be opened, which is reported
as KdfParamsMissing.

Changing the password only rewraps the DEK, so the records stay readable:

	s, err := enclave.Open(dir, "alice", oldKey)
	err = s.ChangePassword(oldKey, newKey)
*/
package enclave

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/glog"
	"github.com/google/tink/go/aead/subtle"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

// Bucket is a record family inside the sealed box.
type Bucket string

const (
	BucketDID          Bucket = "did"
	BucketSecret       Bucket = "secret"
	BucketMeta         Bucket = "meta"
	BucketLinkSecret   Bucket = "link_secret"
	BucketOffer        Bucket = "offer"
	BucketReqMeta      Bucket = "request_metadata"
	BucketCredential   Bucket = "credential"
	BucketCredDefKey   Bucket = "cred_def_key"
	BucketPresentation Bucket = "presentation"
	BucketPSM          Bucket = "psm"
)

// Buckets lists every record family, the backup walks them in this order.
var Buckets = []Bucket{
	BucketDID,
	BucketSecret,
	BucketMeta,
	BucketLinkSecret,
	BucketOffer,
	BucketReqMeta,
	BucketCredential,
	BucketCredDefKey,
	BucketPresentation,
	BucketPSM,
}

// wrapped DEKs by KDF generation id
const keyBucket = "_dek"

const dekLen = 32

// ErrNotExists is returned when a key is not in the bucket.
var ErrNotExists = &core.Error{Code: core.NotFound, Msg: "key not exists"}

// Store is an open sealed box. A Store is safe for concurrent use but it is
// one session: after Close every call fails with WalletNotOpen.
type Store struct {
	l sync.RWMutex

	name string
	dir  string

	db     *bolt.DB
	dek    []byte
	aead   *subtle.AESGCM
	macKey []byte
}

// Filenames returns the bolt file and the KDF sidecar file of the wallet.
func Filenames(dir, name string) (dbFile, sidecar string) {
	base := filepath.Join(dir, name)
	return base + ".bolt", base + ".kdf.json"
}

// Exists tells if the wallet's bolt file is present.
func Exists(dir, name string) bool {
	dbFile, _ := Filenames(dir, name)
	return fileExists(dbFile)
}

// Create makes a new empty wallet protected by key. The wallet is left
// closed.
func Create(dir, name, key string) (err error) {
	defer err2.Handle(&err, "create wallet %s", name)

	dbFile, sidecar := Filenames(dir, name)
	if fileExists(dbFile) {
		return core.New(core.WalletAlreadyExists, "wallet %s", name)
	}
	try.To(os.MkdirAll(dir, 0700))

	dek := randomBytes(dekLen)
	try.To(install(dbFile, sidecar, key, dek, nil))

	glog.V(1).Infoln("wallet created:", name)
	return nil
}

// install writes a fresh bolt file with the DEK wrapped under key. The raw
// bucket contents are copied as is, which is how a backup comes back.
func install(dbFile, sidecar, key string, dek []byte, raw map[string]map[string][]byte) (err error) {
	defer err2.Handle(&err)

	params := newKdfParams()
	wrapped := try.To1(wrapDEK(params.derive(key), dek, params.ID))

	db := try.To1(bolt.Open(dbFile, 0600, &bolt.Options{Timeout: time.Second}))
	err = db.Update(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err, "create buckets")

		kb := try.To1(tx.CreateBucketIfNotExists([]byte(keyBucket)))
		try.To(kb.Put([]byte(params.ID), wrapped))
		for _, name := range Buckets {
			b := try.To1(tx.CreateBucketIfNotExists([]byte(name)))
			for k, v := range raw[string(name)] {
				try.To(b.Put([]byte(k), v))
			}
		}
		return nil
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = writeKdfParams(sidecar, params)
	}
	if err != nil {
		_ = os.Remove(dbFile)
		return err
	}
	return nil
}

// Open opens the wallet with its password. The bolt file must exist
// (WalletNotFound), the sidecar must be readable (KdfParamsMissing) and the
// password must unwrap the data key (WalletAuthFailed).
func Open(dir, name, key string) (s *Store, err error) {
	defer err2.Handle(&err, "open wallet %s", name)

	dbFile, sidecar := Filenames(dir, name)
	if !fileExists(dbFile) {
		return nil, core.New(core.WalletNotFound, "wallet %s", name)
	}
	params := try.To1(readKdfParams(sidecar))

	db := try.To1(bolt.Open(dbFile, 0600, &bolt.Options{Timeout: time.Second}))
	dek, err := currentDEK(db, params, key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dropStaleDEKs(db, params.ID)

	s = &Store{name: name, dir: dir, db: db}
	try.To(s.setDEK(dek))

	glog.V(1).Infoln("wallet opened:", name)
	return s, nil
}

func currentDEK(db *bolt.DB, params *KdfParams, key string) (dek []byte, err error) {
	var wrapped []byte
	err = db.View(func(tx *bolt.Tx) error {
		kb := tx.Bucket([]byte(keyBucket))
		if kb == nil {
			return nil
		}
		if w := kb.Get([]byte(params.ID)); w != nil {
			wrapped = append([]byte(nil), w...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if wrapped == nil {
		return nil, core.New(core.KdfParamsMissing,
			"no data key for KDF generation %s", params.ID)
	}
	dek, err = unwrapDEK(params.derive(key), wrapped, params.ID)
	if err != nil {
		return nil, core.Wrap(core.WalletAuthFailed, err, "unwrap data key")
	}
	return dek, nil
}

// dropStaleDEKs removes wraps left behind by an interrupted password change.
func dropStaleDEKs(db *bolt.DB, current string) {
	err := db.Update(func(tx *bolt.Tx) error {
		kb := tx.Bucket([]byte(keyBucket))
		var stale [][]byte
		err := kb.ForEach(func(k, _ []byte) error {
			if string(k) != current {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			glog.Warningln("dropping stale KDF generation", string(k))
			if err := kb.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		glog.Warningln("stale data key cleanup:", err)
	}
}

func (s *Store) setDEK(dek []byte) (err error) {
	defer err2.Handle(&err)

	s.dek = dek
	s.aead = try.To1(subtle.NewAESGCM(dek))
	mac := blake2b.Sum256(append([]byte("enclave-index:"), dek...))
	s.macKey = mac[:]
	return nil
}

// Name returns the wallet name.
func (s *Store) Name() string {
	return s.name
}

// IsOpen tells if the session is still usable.
func (s *Store) IsOpen() bool {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.db != nil
}

// Close closes the session. Closing twice is an error.
func (s *Store) Close() (err error) {
	defer err2.Handle(&err, "close wallet %s", s.name)

	s.l.Lock()
	defer s.l.Unlock()

	if s.db == nil {
		return core.ErrWalletNotOpen
	}
	try.To(s.db.Close())
	s.db = nil
	for i := range s.dek {
		s.dek[i] = 0
	}
	s.dek = nil
	s.aead = nil
	s.macKey = nil
	glog.V(1).Infoln("wallet closed:", s.name)
	return nil
}

// ChangePassword proves the old password and installs the new one. The new
// wrapped DEK is written before the sidecar is swapped, and the sidecar swap
// is a rename, so a crash leaves either the old or the new password valid.
func (s *Store) ChangePassword(oldKey, newKey string) (err error) {
	defer err2.Handle(&err, "change password %s", s.name)

	s.l.Lock()
	defer s.l.Unlock()
	if s.db == nil {
		return core.ErrWalletNotOpen
	}

	_, sidecar := Filenames(s.dir, s.name)
	old := try.To1(readKdfParams(sidecar))
	dek := try.To1(currentDEK(s.db, old, oldKey))

	next := newKdfParams()
	wrapped := try.To1(wrapDEK(next.derive(newKey), dek, next.ID))
	try.To(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keyBucket)).Put([]byte(next.ID), wrapped)
	}))

	if err := writeKdfParams(sidecar, next); err != nil {
		dropStaleDEKs(s.db, old.ID)
		return err
	}
	dropStaleDEKs(s.db, next.ID)

	glog.V(1).Infoln("wallet password changed:", s.name)
	return nil
}

func wrapDEK(kek, dek []byte, id string) ([]byte, error) {
	a, err := subtle.NewAESGCM(kek)
	if err != nil {
		return nil, err
	}
	return a.Encrypt(dek, []byte("dek:"+id))
}

func unwrapDEK(kek, wrapped []byte, id string) ([]byte, error) {
	a, err := subtle.NewAESGCM(kek)
	if err != nil {
		return nil, err
	}
	dek, err := a.Decrypt(wrapped, []byte("dek:"+id))
	if err != nil {
		return nil, err
	}
	if len(dek) != dekLen {
		return nil, errors.New("data key length")
	}
	return dek, nil
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("cannot read random: " + err.Error())
	}
	return b
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
