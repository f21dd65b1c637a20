package sec

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2/assert"
)

const walletKey = "sec test wallet key"

var (
	testDir string

	alice, bob, carol *party
)

type party struct {
	w   *ssi.Wallet
	p   *Packer
	did *ssi.DidRecord
}

func TestMain(m *testing.M) {
	setUp()
	code := m.Run()
	tearDown()
	os.Exit(code)
}

func setUp() {
	enclave.DefaultKdf.Memory = 1024
	enclave.DefaultKdf.Time = 1
	utils.Settings.SetEnvelopeTTL(time.Hour)
	var err error
	testDir, err = os.MkdirTemp("", "sec")
	if err != nil {
		panic(err)
	}
	alice = newParty("alice")
	bob = newParty("bob")
	carol = newParty("carol")
}

func tearDown() {
	_ = os.RemoveAll(testDir)
}

func newParty(name string) *party {
	if err := enclave.Create(testDir, name, walletKey); err != nil {
		panic(err)
	}
	s, err := enclave.Open(testDir, name, walletKey)
	if err != nil {
		panic(err)
	}
	w := ssi.NewWallet(s)
	did, err := w.GenerateDid(ssi.DidOptions{Alias: name})
	if err != nil {
		panic(err)
	}
	return &party{w: w, p: NewPacker(w), did: did}
}

func TestAuthcrypt(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	data, err := alice.p.Pack(PackArgs{
		Mode:            ModeAuthcrypt,
		SenderDid:       alice.did.Did,
		RecipientVerkey: bob.did.Verkey,
		Kind:            "offer",
		Plaintext:       []byte(`{"hello":"bob"}`),
		Meta:            json.RawMessage(`{"note":"first"}`),
	})
	assert.NoError(err)
	assert.ThatNot(containsString(data, "hello"))

	mode, err := Detect(data)
	assert.NoError(err)
	assert.Equal(mode, ModeAuthcrypt)

	m, err := bob.p.Unpack(bob.did.Did, data)
	assert.NoError(err)
	assert.Equal(string(m.Plaintext), `{"hello":"bob"}`)
	assert.Equal(m.SenderDid, alice.did.Did)
	assert.Equal(m.SenderVerkey, alice.did.Verkey)
	assert.Equal(m.Kind, "offer")
	assert.NotEmpty(m.ThreadID)
	assert.That(m.ExpiresAtMs > 0)
	assert.Equal(string(m.Meta), `{"note":"first"}`)
}

func TestAnoncrypt(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	data, err := alice.p.Pack(PackArgs{
		Mode:            ModeAnoncrypt,
		RecipientVerkey: bob.did.Verkey,
		Kind:            "proof",
		ThreadID:        "thread-1",
		Plaintext:       []byte("secret proof"),
	})
	assert.NoError(err)
	assert.ThatNot(containsString(data, alice.did.Did))

	mode, err := Detect(data)
	assert.NoError(err)
	assert.Equal(mode, ModeAnoncrypt)

	m, err := bob.p.Unpack(bob.did.Did, data)
	assert.NoError(err)
	assert.Equal(string(m.Plaintext), "secret proof")
	assert.Equal(m.ThreadID, "thread-1")
	assert.Equal(m.SenderDid, "")
	assert.Equal(m.SenderVerkey, "")

	var env Envelope
	assert.NoError(json.Unmarshal(data, &env))
	env.SenderDid = alice.did.Did
	claimed, err := json.Marshal(env)
	assert.NoError(err)
	m, err = bob.p.Unpack(bob.did.Did, claimed)
	assert.That(m == nil)
	assert.That(core.Is(err, core.EnvelopeUnpackFailed))
}

func TestNone(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	data, err := alice.p.Pack(PackArgs{
		Mode:        ModeNone,
		Kind:        "cred_def",
		Plaintext:   []byte("public"),
		ExpiresAtMs: -1,
	})
	assert.NoError(err)

	mode, err := Detect(data)
	assert.NoError(err)
	assert.Equal(mode, ModeNone)

	m, err := carol.p.Unpack("", data)
	assert.NoError(err)
	assert.Equal(string(m.Plaintext), "public")
	assert.Equal(m.ExpiresAtMs, int64(0))
	assert.Equal(m.SenderDid, "")

	// private artifacts never go out in the clear
	for _, kind := range []string{"offer", "request", "credential", "proof_request", "proof"} {
		_, err = alice.p.Pack(PackArgs{Mode: ModeNone, Kind: kind, Plaintext: []byte("private")})
		assert.That(core.Is(err, core.ValidationFailed))
	}

	// nor are they accepted that way
	var env Envelope
	assert.NoError(json.Unmarshal(data, &env))
	env.Kind = "credential"
	relabeled, err := json.Marshal(env)
	assert.NoError(err)
	m, err = carol.p.Unpack("", relabeled)
	assert.That(m == nil)
	assert.That(core.Is(err, core.EnvelopeUnpackFailed))

	// an unauthenticated envelope can't name its sender
	assert.NoError(json.Unmarshal(data, &env))
	env.SenderDid = alice.did.Did
	claimed, err := json.Marshal(env)
	assert.NoError(err)
	m, err = carol.p.Unpack("", claimed)
	assert.That(m == nil)
	assert.That(core.Is(err, core.EnvelopeUnpackFailed))
}

func TestWrongReceiver(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	for _, mode := range []Mode{ModeAnoncrypt, ModeAuthcrypt} {
		data, err := alice.p.Pack(PackArgs{
			Mode:            mode,
			SenderDid:       alice.did.Did,
			RecipientVerkey: bob.did.Verkey,
			Kind:            "offer",
			Plaintext:       []byte("for bob"),
		})
		assert.NoError(err)

		m, err := carol.p.Unpack(carol.did.Did, data)
		assert.Error(err)
		assert.That(m == nil)
		assert.That(core.Is(err, core.EnvelopeUnpackFailed))

		// carol knows bob's DID but not his key
		_, err = carol.w.AddExternal(bob.did.Did, bob.did.Verkey, "bob")
		assert.NoError(err)
		_, err = carol.p.Unpack(bob.did.Did, data)
		assert.That(core.Is(err, core.EnvelopeUnpackFailed))
	}
}

func TestTampering(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	data, err := alice.p.Pack(PackArgs{
		Mode:            ModeAuthcrypt,
		SenderDid:       alice.did.Did,
		RecipientVerkey: bob.did.Verkey,
		Kind:            "credential",
		ThreadID:        "thread-2",
		Plaintext:       []byte("credential body"),
	})
	assert.NoError(err)

	tests := []struct {
		name   string
		change func(env *Envelope)
	}{
		{"kind", func(env *Envelope) { env.Kind = "offer" }},
		{"thread", func(env *Envelope) { env.ThreadID = "thread-3" }},
		{"expiry", func(env *Envelope) { env.ExpiresAtMs += 60_000 }},
		{"mode", func(env *Envelope) { env.Mode = ModeAnoncrypt }},
		{"plain mode", func(env *Envelope) { env.Mode = ModeNone }},
		{"sender", func(env *Envelope) { env.SenderDid = carol.did.Did }},
		{"recipient", func(env *Envelope) { env.RecipientVerkey = carol.did.Verkey }},
		{"ciphertext", func(env *Envelope) {
			var s sealed
			_ = json.Unmarshal(env.Payload, &s)
			ct, _ := utils.DecodeB64(s.Ciphertext)
			ct[0] ^= 1
			s.Ciphertext = utils.EncodeB64(ct)
			env.Payload, _ = json.Marshal(s)
		}},
		{"tag", func(env *Envelope) {
			var s sealed
			_ = json.Unmarshal(env.Payload, &s)
			tag, _ := utils.DecodeB64(s.Tag)
			tag[len(tag)-1] ^= 1
			s.Tag = utils.EncodeB64(tag)
			env.Payload, _ = json.Marshal(s)
		}},
		{"payload", func(env *Envelope) {
			env.Payload = json.RawMessage(`{"plaintext":"ZmFrZQ"}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			var env Envelope
			assert.NoError(json.Unmarshal(data, &env))
			tt.change(&env)
			changed, err := json.Marshal(env)
			assert.NoError(err)

			m, err := bob.p.Unpack(bob.did.Did, changed)
			assert.Error(err)
			assert.That(m == nil)
			assert.That(core.Is(err, core.EnvelopeUnpackFailed))
		})
	}

	_, err = bob.p.Unpack(bob.did.Did, []byte(`{"mode":"authcrypt"}`))
	assert.That(core.Is(err, core.EnvelopeUnpackFailed))
}

func TestExpiry(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sender := NewPacker(alice.w)
	sender.SetClock(func() time.Time { return now })
	receiver := NewPacker(bob.w)

	utils.Settings.SetEnvelopeTTL(time.Minute)
	data, err := sender.Pack(PackArgs{
		Mode:            ModeAnoncrypt,
		RecipientVerkey: bob.did.Verkey,
		Kind:            "offer",
		Plaintext:       []byte("soon gone"),
	})
	assert.NoError(err)

	receiver.SetClock(func() time.Time { return now.Add(59 * time.Second) })
	m, err := receiver.Unpack(bob.did.Did, data)
	assert.NoError(err)
	assert.Equal(m.ExpiresAtMs, now.Add(time.Minute).UnixMilli())

	receiver.SetClock(func() time.Time { return now.Add(61 * time.Second) })
	m, err = receiver.Unpack(bob.did.Did, data)
	assert.That(m == nil)
	assert.That(core.Is(err, core.EnvelopeExpired))
}

func TestPackErrors(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	_, err := alice.p.Pack(PackArgs{Mode: ModeAuthcrypt,
		RecipientVerkey: bob.did.Verkey, Kind: "offer"})
	assert.That(core.Is(err, core.ValidationFailed))

	_, err = alice.p.Pack(PackArgs{Mode: "rot13",
		RecipientVerkey: bob.did.Verkey, Kind: "offer"})
	assert.That(core.Is(err, core.ValidationFailed))

	_, err = alice.p.Pack(PackArgs{Mode: ModeAnoncrypt, RecipientVerkey: bob.did.Verkey})
	assert.That(core.Is(err, core.ValidationFailed))

	_, err = alice.p.Pack(PackArgs{Mode: ModeAnoncrypt, RecipientVerkey: "x", Kind: "offer"})
	assert.Error(err)

	// only own DIDs can send authcrypt
	_, err = carol.w.AddExternal(alice.did.Did, alice.did.Verkey, "alice")
	assert.NoError(err)
	_, err = carol.p.Pack(PackArgs{Mode: ModeAuthcrypt, SenderDid: alice.did.Did,
		RecipientVerkey: bob.did.Verkey, Kind: "offer"})
	assert.That(core.Is(err, core.DidNotFound))
}

func containsString(data []byte, s string) bool {
	return strings.Contains(string(data), s)
}
