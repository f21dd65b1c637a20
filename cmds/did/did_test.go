package did

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2/assert"
)

const seed = "000000000000000000000000Steward1"

var testDir string

func TestMain(m *testing.M) {
	enclave.DefaultKdf.Memory = 1024
	enclave.DefaultKdf.Time = 1
	var err error
	testDir, err = os.MkdirTemp("", "didcmd")
	if err != nil {
		panic(err)
	}
	code := m.Run()
	_ = os.RemoveAll(testDir)
	os.Exit(code)
}

func newWallet(t *testing.T, name string) cmds.Cmd {
	assert.NoError(enclave.Create(testDir, name, "key"))
	return cmds.Cmd{WalletDir: testDir, WalletName: name, WalletKey: "key"}
}

func record(r cmds.Result) *ssi.DidRecord {
	d, err := r.JSON()
	assert.NoError(err)
	rec := new(ssi.DidRecord)
	assert.NoError(json.Unmarshal(d, rec))
	return rec
}

func TestCreateAndPrimary(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	c := newWallet(t, "create")

	assert.Error(CreateCmd{Cmd: c, Seed: "short"}.Validate())
	fromSeed := CreateCmd{Cmd: c, Seed: seed, Alias: "steward", Primary: true}
	assert.NoError(fromSeed.Validate())
	r, err := fromSeed.Exec(nil)
	assert.NoError(err)
	steward := record(r)
	assert.Equal(steward.Alias, "steward")

	r, err = fromSeed.Exec(nil)
	assert.NoError(err)
	assert.Equal(record(r).Did, steward.Did)

	r, err = CreateCmd{Cmd: c, Alias: "random"}.Exec(nil)
	assert.NoError(err)
	random := record(r)
	assert.That(random.Did != steward.Did)

	var out bytes.Buffer
	r, err = PrimaryCmd{Cmd: c}.Exec(&out)
	assert.NoError(err)
	var p ssi.PrimaryDid
	d, _ := r.JSON()
	assert.NoError(json.Unmarshal(d, &p))
	assert.Equal(p.Did, steward.Did)

	r, err = PrimaryCmd{Cmd: c, Did: random.Did}.Exec(nil)
	assert.NoError(err)
	d, _ = r.JSON()
	assert.NoError(json.Unmarshal(d, &p))
	assert.Equal(p.Did, random.Did)
}

func TestListExportImport(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	src := newWallet(t, "src")
	dst := newWallet(t, "dst")

	_, err := CreateCmd{Cmd: src, Seed: seed, Alias: "steward"}.Exec(nil)
	assert.NoError(err)
	_, err = CreateCmd{Cmd: src, Alias: "other"}.Exec(nil)
	assert.NoError(err)

	r, err := ListCmd{Cmd: src, SearchFilter: ssi.SearchFilter{Query: "STEW"}}.Exec(nil)
	assert.NoError(err)
	var recs []ssi.DidRecord
	d, _ := r.JSON()
	assert.NoError(json.Unmarshal(d, &recs))
	assert.Equal(len(recs), 1)
	assert.Equal(recs[0].Alias, "steward")

	assert.Error(ListCmd{Cmd: src, SearchFilter: ssi.SearchFilter{Type: "mine"}}.Validate())

	file := filepath.Join(testDir, "batch.json")
	_, err = ExportCmd{Cmd: src, Filename: file}.Exec(nil)
	assert.NoError(err)

	imp := ImportCmd{Cmd: dst, Filename: file, Mode: ssi.ImportExternal}
	assert.NoError(imp.Validate())
	r, err = imp.Exec(nil)
	assert.NoError(err)
	var res ssi.ImportResult
	d, _ = r.JSON()
	assert.NoError(json.Unmarshal(d, &res))
	assert.Equal(res.Imported, 2)

	r, err = imp.Exec(nil)
	assert.NoError(err)
	d, _ = r.JSON()
	assert.NoError(json.Unmarshal(d, &res))
	assert.Equal(res.Skipped, 2)

	r, err = ListCmd{Cmd: dst, SearchFilter: ssi.SearchFilter{Type: ssi.DidOwn}}.Exec(nil)
	assert.NoError(err)
	d, _ = r.JSON()
	assert.NoError(json.Unmarshal(d, &recs))
	assert.Equal(len(recs), 0)

	assert.Error(ImportCmd{Cmd: dst, Mode: "merge"}.Validate())
}

func TestAdd(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	c := newWallet(t, "add")
	r, err := CreateCmd{Cmd: c, Seed: seed}.Exec(nil)
	assert.NoError(err)
	own := record(r)

	other := newWallet(t, "add-other")
	add := AddCmd{Cmd: other, Did: own.Did, Verkey: own.Verkey, Alias: "them"}
	assert.NoError(add.Validate())
	r, err = add.Exec(nil)
	assert.NoError(err)
	assert.Equal(record(r).Type, ssi.DidExternal)

	assert.Error(AddCmd{Cmd: other, Did: own.Did, Verkey: "11111111111111111111111111111111"}.Validate())
}
