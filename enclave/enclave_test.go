package enclave

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/lainio/err2/assert"
	bolt "go.etcd.io/bbolt"
)

const (
	walletName = "enclave_test"
	walletKey  = "correct horse battery staple"
)

var testDir string

func TestMain(m *testing.M) {
	setUp()
	code := m.Run()
	tearDown()
	os.Exit(code)
}

func setUp() {
	DefaultKdf.Memory = 1024
	DefaultKdf.Time = 1
	var err error
	testDir, err = os.MkdirTemp("", "enclave")
	if err != nil {
		panic(err)
	}
}

func tearDown() {
	_ = os.RemoveAll(testDir)
}

func newWallet(t *testing.T, name string) *Store {
	t.Helper()
	assert.NoError(Create(testDir, name, walletKey))
	s, err := Open(testDir, name, walletKey)
	assert.NoError(err)
	return s
}

func TestCreate(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	const name = "create"
	assert.NoError(Create(testDir, name, walletKey))
	assert.That(Exists(testDir, name))

	err := Create(testDir, name, walletKey)
	assert.That(core.Is(err, core.WalletAlreadyExists))
}

func TestOpenErrors(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	_, err := Open(testDir, "no_such_wallet", walletKey)
	assert.That(core.Is(err, core.WalletNotFound))

	const name = "open_errors"
	assert.NoError(Create(testDir, name, walletKey))

	_, err = Open(testDir, name, "wrong key")
	assert.That(core.Is(err, core.WalletAuthFailed))

	_, sidecar := Filenames(testDir, name)
	assert.NoError(os.Rename(sidecar, sidecar+".moved"))
	_, err = Open(testDir, name, walletKey)
	assert.That(core.Is(err, core.KdfParamsMissing))

	assert.NoError(os.WriteFile(sidecar, []byte("{not json"), 0600))
	_, err = Open(testDir, name, walletKey)
	assert.That(core.Is(err, core.KdfParamsMissing))

	assert.NoError(os.Rename(sidecar+".moved", sidecar))
	s, err := Open(testDir, name, walletKey)
	assert.NoError(err)
	assert.NoError(s.Close())
}

func TestRecords(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	s := newWallet(t, "records")
	defer s.Close()

	assert.NoError(s.Put(BucketDID, "did1", []byte("value1")))
	assert.NoError(s.Put(BucketDID, "did2", []byte("value2")))
	assert.NoError(s.Put(BucketOffer, "did1", []byte("other bucket")))

	v, err := s.Get(BucketDID, "did1")
	assert.NoError(err)
	assert.Equal(string(v), "value1")
	assert.That(s.Has(BucketDID, "did2"))

	_, err = s.Get(BucketDID, "did3")
	assert.That(core.Is(err, core.NotFound))

	count := 0
	assert.NoError(s.ForEach(BucketDID, func(value []byte) error {
		count++
		return nil
	}))
	assert.Equal(count, 2)

	assert.NoError(s.Delete(BucketDID, "did1"))
	assert.ThatNot(s.Has(BucketDID, "did1"))
	assert.That(s.Has(BucketOffer, "did1"))
}

func TestUpdateRollback(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	s := newWallet(t, "rollback")
	defer s.Close()

	assert.NoError(s.Put(BucketReqMeta, "nonce", []byte("meta")))
	err := s.Update(func(tx *Tx) error {
		assert.NoError(tx.Delete(BucketReqMeta, "nonce"))
		assert.NoError(tx.Put(BucketCredential, "cred", []byte("cred")))
		return core.New(core.InvalidCredential, "abort")
	})
	assert.That(core.Is(err, core.InvalidCredential))
	assert.That(s.Has(BucketReqMeta, "nonce"))
	assert.ThatNot(s.Has(BucketCredential, "cred"))
}

func TestPlainTextNotOnDisk(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	const name = "plaintext"
	s := newWallet(t, name)
	assert.NoError(s.Put(BucketDID, "VsKV7grR1BUE29mG2Fm2kX", []byte("very-secret-value")))
	assert.NoError(s.Close())

	dbFile, _ := Filenames(testDir, name)
	data, err := os.ReadFile(dbFile)
	assert.NoError(err)
	assert.ThatNot(bytes.Contains(data, []byte("very-secret-value")))
	assert.ThatNot(bytes.Contains(data, []byte("VsKV7grR1BUE29mG2Fm2kX")))
}

func TestClosed(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	s := newWallet(t, "closed")
	assert.That(s.IsOpen())
	assert.NoError(s.Close())
	assert.ThatNot(s.IsOpen())

	err := s.Put(BucketDID, "k", []byte("v"))
	assert.That(core.Is(err, core.WalletNotOpen))
	assert.That(core.Is(s.Close(), core.WalletNotOpen))
}

func TestChangePassword(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	const (
		name   = "chpwd"
		newKey = "new wallet key"
	)
	s := newWallet(t, name)
	assert.NoError(s.Put(BucketCredential, "cred1", []byte("credential")))

	err := s.ChangePassword("not the old key", newKey)
	assert.That(core.Is(err, core.WalletAuthFailed))

	assert.NoError(s.ChangePassword(walletKey, newKey))
	v, err := s.Get(BucketCredential, "cred1")
	assert.NoError(err)
	assert.Equal(string(v), "credential")
	assert.NoError(s.Close())

	_, err = Open(testDir, name, walletKey)
	assert.That(core.Is(err, core.WalletAuthFailed))

	s, err = Open(testDir, name, newKey)
	assert.NoError(err)
	v, err = s.Get(BucketCredential, "cred1")
	assert.NoError(err)
	assert.Equal(string(v), "credential")
	assert.NoError(s.Close())
}

func TestInterruptedChangePassword(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	const name = "interrupted"
	s := newWallet(t, name)
	assert.NoError(s.Put(BucketSecret, "k", []byte("v")))

	// a new generation is written but the sidecar never swapped
	next := newKdfParams()
	wrapped, err := wrapDEK(next.derive("half way key"), s.dek, next.ID)
	assert.NoError(err)
	assert.NoError(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keyBucket)).Put([]byte(next.ID), wrapped)
	}))
	assert.NoError(s.Close())

	s, err = Open(testDir, name, walletKey)
	assert.NoError(err)
	v, err := s.Get(BucketSecret, "k")
	assert.NoError(err)
	assert.Equal(string(v), "v")
	assert.NoError(s.Close())
}

func TestBackupRecover(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	const backupKey = "backup key"
	s := newWallet(t, "backup_src")
	assert.NoError(s.Put(BucketDID, "did1", []byte("record1")))
	assert.NoError(s.Put(BucketLinkSecret, "main", []byte("ls")))

	backup := filepath.Join(testDir, "backup.json")
	assert.NoError(s.Backup(backup, backupKey))
	assert.NoError(s.Close())

	err := Recover(testDir, "backup_src", walletKey, backup, backupKey)
	assert.That(core.Is(err, core.WalletAlreadyExists))

	err = Recover(testDir, "backup_bad", walletKey, backup, "wrong")
	assert.That(core.Is(err, core.BackupDecryptFailed))
	assert.ThatNot(Exists(testDir, "backup_bad"))

	const recoveredKey = "recovered key"
	assert.NoError(Recover(testDir, "backup_dst", recoveredKey, backup, backupKey))
	r, err := Open(testDir, "backup_dst", recoveredKey)
	assert.NoError(err)
	defer r.Close()

	v, err := r.Get(BucketDID, "did1")
	assert.NoError(err)
	assert.Equal(string(v), "record1")
	v, err = r.Get(BucketLinkSecret, "main")
	assert.NoError(err)
	assert.Equal(string(v), "ls")
}

func TestBackupErrors(t *testing.T) {
	s := newWallet(t, "backup_errors")
	backup := filepath.Join(testDir, "backup_errors.json")
	if err := s.Backup(backup, "k"); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	valid, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	var f map[string]any
	if err := json.Unmarshal(valid, &f); err != nil {
		t.Fatal(err)
	}

	mutate := func(change func(m map[string]any)) []byte {
		m := make(map[string]any, len(f))
		for k, v := range f {
			m[k] = v
		}
		change(m)
		d, _ := json.Marshal(m)
		return d
	}

	tests := []struct {
		name string
		data []byte
		code core.Code
	}{
		{"not json", []byte("{{"), core.BackupParseFailed},
		{"wrong type", mutate(func(m map[string]any) { m["type"] = "other" }), core.BackupFormatInvalid},
		{"wrong version", mutate(func(m map[string]any) { m["version"] = 2 }), core.BackupFormatInvalid},
		{"no kdf", mutate(func(m map[string]any) { delete(m, "kdf") }), core.BackupFormatInvalid},
		{"short nonce", mutate(func(m map[string]any) { m["nonce"] = "AAAA" }), core.BackupNonceInvalid},
		{"bad nonce", mutate(func(m map[string]any) { m["nonce"] = "%%%" }), core.BackupNonceInvalid},
		{"tampered", mutate(func(m map[string]any) {
			m["ciphertext"] = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
		}), core.BackupDecryptFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			name := filepath.Join(testDir, "case.json")
			assert.NoError(os.WriteFile(name, tt.data, 0600))
			err := Recover(testDir, "case_wallet", walletKey, name, "k")
			assert.Equal(core.CodeOf(err), tt.code)
			assert.ThatNot(Exists(testDir, "case_wallet"))
		})
	}
}
