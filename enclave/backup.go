package enclave

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	backupType    = "ssi.wallet.backup"
	backupVersion = 1
)

type backupFile struct {
	Type       string     `json:"type"`
	Version    int        `json:"version"`
	Nonce      string     `json:"nonce"`
	Kdf        *KdfParams `json:"kdf"`
	Ciphertext string     `json:"ciphertext"`
}

// backupContent carries the data key and the sealed records as they are on
// disk, hashed indexes in hex.
type backupContent struct {
	DEK     []byte                       `json:"dek"`
	Buckets map[string]map[string][]byte `json:"buckets"`
}

// Backup writes an encrypted copy of the whole wallet to filename. The backup
// key is independent of the wallet password.
func (s *Store) Backup(filename, backupKey string) (err error) {
	defer err2.Handle(&err, "backup wallet %s", s.name)

	s.l.RLock()
	defer s.l.RUnlock()
	if s.db == nil {
		return core.ErrWalletNotOpen
	}

	content := backupContent{
		DEK:     s.dek,
		Buckets: make(map[string]map[string][]byte),
	}

	try.To(s.db.View(func(tx *bolt.Tx) error {
		for _, name := range Buckets {
			m := make(map[string][]byte)
			err := tx.Bucket([]byte(name)).ForEach(func(k, v []byte) error {
				m[hex.EncodeToString(k)] = append([]byte(nil), v...)
				return nil
			})
			if err != nil {
				return err
			}
			content.Buckets[string(name)] = m
		}
		return nil
	}))

	plain := try.To1(json.Marshal(content))
	params := newKdfParams()
	aead := try.To1(chacha20poly1305.NewX(params.derive(backupKey)))
	nonce := randomBytes(chacha20poly1305.NonceSizeX)
	ct := aead.Seal(nil, nonce, plain, []byte(backupType))

	data := try.To1(json.MarshalIndent(backupFile{
		Type:       backupType,
		Version:    backupVersion,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Kdf:        params,
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}, "", "  "))
	try.To(writeFileAtomic(filename, data))

	glog.V(1).Infoln("wallet backup written:", s.name)
	return nil
}

// Recover creates a new wallet name from a backup file. The new wallet is
// protected by key, the backup by backupKey.
func Recover(dir, name, key, filename, backupKey string) (err error) {
	defer err2.Handle(&err, "recover wallet %s", name)

	dbFile, sidecar := Filenames(dir, name)
	if fileExists(dbFile) {
		return core.New(core.WalletAlreadyExists, "wallet %s", name)
	}
	content := try.To1(readBackup(filename, backupKey))
	if len(content.DEK) != dekLen {
		return core.New(core.BackupFormatInvalid, "data key length")
	}

	raw := make(map[string]map[string][]byte, len(content.Buckets))
	for b, m := range content.Buckets {
		raw[b] = make(map[string][]byte, len(m))
		for k, v := range m {
			kb, err := hex.DecodeString(k)
			if err != nil {
				return core.Wrap(core.BackupFormatInvalid, err, "record index")
			}
			raw[b][string(kb)] = v
		}
	}
	try.To(os.MkdirAll(dir, 0700))
	try.To(install(dbFile, sidecar, key, content.DEK, raw))

	glog.V(1).Infoln("wallet recovered:", name)
	return nil
}

func readBackup(filename, backupKey string) (c *backupContent, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var f backupFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, core.Wrap(core.BackupParseFailed, err, "backup file")
	}
	if f.Type != backupType || f.Version != backupVersion ||
		f.Kdf == nil || f.Ciphertext == "" || f.Nonce == "" {
		return nil, core.New(core.BackupFormatInvalid,
			"type %q version %d", f.Type, f.Version)
	}
	if f.Kdf.ID == "" {
		// backups don't need a generation id, only the derivation input
		f.Kdf.ID = "backup"
	}
	if !f.Kdf.valid() {
		return nil, core.New(core.BackupFormatInvalid, "kdf parameters")
	}
	nonce, err := base64.StdEncoding.DecodeString(f.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, core.New(core.BackupNonceInvalid, "nonce must be %d bytes",
			chacha20poly1305.NonceSizeX)
	}
	ct, err := base64.StdEncoding.DecodeString(f.Ciphertext)
	if err != nil {
		return nil, core.Wrap(core.BackupFormatInvalid, err, "ciphertext encoding")
	}
	aead, err := chacha20poly1305.NewX(f.Kdf.derive(backupKey))
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ct, []byte(backupType))
	if err != nil {
		return nil, core.Wrap(core.BackupDecryptFailed, err, "backup")
	}
	c = new(backupContent)
	if err := json.Unmarshal(plain, c); err != nil {
		return nil, core.Wrap(core.BackupParseFailed, err, "backup content")
	}
	return c, nil
}
