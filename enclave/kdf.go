package enclave

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"golang.org/x/crypto/argon2"
)

const kdfAlg = "argon2id"

// KdfParams is the content of the sidecar file. ID names the generation of
// the wrapped data key the parameters belong to.
type KdfParams struct {
	ID      string `json:"id"`
	Alg     string `json:"alg"`
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

// DefaultKdf is the cost used for new wallets and backups. Memory is KiB.
var DefaultKdf = KdfParams{
	Alg:     kdfAlg,
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
	KeyLen:  32,
}

func newKdfParams() *KdfParams {
	p := DefaultKdf
	p.ID = utils.UUID()
	p.Salt = randomBytes(16)
	return &p
}

func (p *KdfParams) derive(key string) []byte {
	return argon2.IDKey([]byte(key), p.Salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

func (p *KdfParams) valid() bool {
	return p.Alg == kdfAlg && p.ID != "" && len(p.Salt) >= 16 &&
		p.Time > 0 && p.Memory > 0 && p.Threads > 0 && p.KeyLen == 32
}

func readKdfParams(filename string) (p *KdfParams, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, core.Wrap(core.KdfParamsMissing, err, "read sidecar")
	}
	p = new(KdfParams)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, core.Wrap(core.KdfParamsMissing, err, "parse sidecar")
	}
	if !p.valid() {
		return nil, core.New(core.KdfParamsMissing, "sidecar %s is incomplete",
			filepath.Base(filename))
	}
	return p, nil
}

// writeKdfParams replaces the sidecar with a rename so readers see the old or
// the new file, never a partial one.
func writeKdfParams(filename string, p *KdfParams) (err error) {
	defer err2.Handle(&err, "write sidecar")

	data := try.To1(json.MarshalIndent(p, "", "  "))
	return writeFileAtomic(filename, data)
}

func writeFileAtomic(filename string, data []byte) (err error) {
	defer err2.Handle(&err)

	tmp := try.To1(os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*"))
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0600)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filename)
	}
	return err
}
