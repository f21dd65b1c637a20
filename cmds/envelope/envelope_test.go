package envelope

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2/assert"
)

const request = `{"nonce":"7","name":"n","version":"1.0","requested_attributes":{"r":{"name":"nome"}}}`

type party struct {
	cmds.Cmd
	did *ssi.DidRecord
}

func newParty(t *testing.T, dir, name string) party {
	assert.NoError(enclave.Create(dir, name, "key"))
	s, err := enclave.Open(dir, name, "key")
	assert.NoError(err)
	defer s.Close()
	did, err := ssi.NewWallet(s).GenerateDid(ssi.DidOptions{Alias: name})
	assert.NoError(err)
	return party{Cmd: cmds.Cmd{WalletDir: dir, WalletName: name, WalletKey: "key"}, did: did}
}

func TestPackUnpack(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	enclave.DefaultKdf.Memory = 1024
	enclave.DefaultKdf.Time = 1
	dir := t.TempDir()
	alice := newParty(t, dir, "alice")
	bob := newParty(t, dir, "bob")

	in := filepath.Join(dir, "req.json")
	assert.NoError(os.WriteFile(in, []byte(request), 0600))

	for _, mode := range []string{"authcrypt", "anoncrypt"} {
		t.Run(mode, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			env := filepath.Join(dir, mode+".env.json")
			pack := PackCmd{
				Cmd:             alice.Cmd,
				Mode:            mode,
				SenderDid:       alice.did.Did,
				RecipientVerkey: bob.did.Verkey,
				Kind:            "proof_request",
				ThreadID:        "thread-" + mode,
				TTL:             time.Minute,
				Filename:        in,
				Output:          env,
			}
			assert.NoError(pack.Validate())
			_, err := pack.Exec(nil)
			assert.NoError(err)

			unpack := UnpackCmd{Cmd: bob.Cmd, ReceiverDid: bob.did.Did, Filename: env}
			assert.NoError(unpack.Validate())
			r, err := unpack.Exec(nil)
			assert.NoError(err)
			d, err := r.JSON()
			assert.NoError(err)
			var u Unpacked
			assert.NoError(json.Unmarshal(d, &u))
			assert.Equal(string(u.Mode), mode)
			assert.Equal(u.Kind, "proof_request")
			assert.Equal(u.ThreadID, "thread-"+mode)
			assert.That(u.ExpiresAtMs > 0)
			var req map[string]any
			assert.NoError(json.Unmarshal(u.Plaintext, &req))
			assert.Equal(req["nonce"].(string), "7")
			if mode == "authcrypt" {
				assert.Equal(u.SenderDid, alice.did.Did)
			}
		})
	}

	plain := PackCmd{Cmd: alice.Cmd, Mode: "none", RecipientVerkey: bob.did.Verkey,
		Kind: "proof_request", Filename: in, Output: filepath.Join(dir, "none.env.json")}
	assert.NoError(plain.Validate())
	_, err := plain.Exec(nil)
	assert.That(core.Is(err, core.ValidationFailed))

	bad := PackCmd{Cmd: alice.Cmd, Mode: "authcrypt", RecipientVerkey: bob.did.Verkey, Kind: "offer"}
	assert.Error(bad.Validate())
	bad.SenderDid = alice.did.Did
	bad.Filename = in
	_, err = bad.Exec(nil)
	assert.That(core.Is(err, core.ValidationFailed))
	assert.Error(PackCmd{Cmd: alice.Cmd, Mode: "plain", RecipientVerkey: "x", Kind: "offer"}.Validate())
}
