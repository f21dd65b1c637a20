package sec

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/teserakt-io/golang-ed25519/extra25519"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"
)

// PackArgs are the inputs of Pack. ThreadID defaults to a new UUID and
// ExpiresAtMs to now + utils.Settings.EnvelopeTTL(). A negative ExpiresAtMs
// means the envelope never expires.
type PackArgs struct {
	Mode            Mode
	SenderDid       string
	RecipientVerkey string
	Kind            string
	ThreadID        string
	Plaintext       []byte
	ExpiresAtMs     int64
	Meta            json.RawMessage
}

// PublicKinds are the kinds a none envelope may carry: ledger objects anyone
// can read anyway.
var PublicKinds = map[string]bool{
	"schema":   true,
	"cred_def": true,
}

// Packer packs and unpacks envelopes with the keys of one wallet.
type Packer struct {
	w   *ssi.Wallet
	now func() time.Time
}

// NewPacker returns a packer over the wallet.
func NewPacker(w *ssi.Wallet) *Packer {
	assert.NotNil(w)
	return &Packer{w: w, now: time.Now}
}

// SetClock replaces the time source used for expiry.
func (p *Packer) SetClock(now func() time.Time) {
	p.now = now
}

// Pack seals the plaintext to an envelope.
func (p *Packer) Pack(a PackArgs) (data []byte, err error) {
	defer err2.Handle(&err, "pack %s envelope", a.Mode)

	if a.Kind == "" {
		return nil, core.New(core.ValidationFailed, "envelope kind missing")
	}
	env := &Envelope{
		Mode:            a.Mode,
		Kind:            a.Kind,
		ThreadID:        a.ThreadID,
		RecipientVerkey: a.RecipientVerkey,
		ExpiresAtMs:     a.ExpiresAtMs,
		Meta:            a.Meta,
	}
	if env.ThreadID == "" {
		env.ThreadID = utils.UUID()
	}
	switch {
	case env.ExpiresAtMs < 0:
		env.ExpiresAtMs = 0
	case env.ExpiresAtMs == 0 && utils.Settings.EnvelopeTTL() > 0:
		env.ExpiresAtMs = p.now().Add(utils.Settings.EnvelopeTTL()).UnixMilli()
	}

	switch a.Mode {
	case ModeNone:
		if !PublicKinds[a.Kind] {
			return nil, core.New(core.ValidationFailed,
				"%s can't travel unencrypted", a.Kind)
		}
		env.Payload = try.To1(json.Marshal(plain{Plaintext: utils.EncodeB64(a.Plaintext)}))
	case ModeAnoncrypt:
		env.Payload = try.To1(p.seal(env, nil, a.Plaintext))
	case ModeAuthcrypt:
		if a.SenderDid == "" {
			return nil, core.New(core.ValidationFailed, "authcrypt needs a sender DID")
		}
		sender := try.To1(p.w.Get(a.SenderDid))
		if !sender.IsOwn() {
			return nil, core.New(core.DidNotFound, "%s is not an own DID", a.SenderDid)
		}
		env.SenderDid = sender.Did
		env.Payload = try.To1(p.seal(env, sender, a.Plaintext))
	default:
		return nil, core.New(core.ValidationFailed, "envelope mode %q", a.Mode)
	}

	glog.V(4).Infof("packed %s envelope kind %s thid %s", env.Mode, env.Kind, env.ThreadID)
	return json.Marshal(env)
}

// seal builds the JWM payload. A nil sender means anoncrypt.
func (p *Packer) seal(env *Envelope, sender *ssi.DidRecord, msg []byte) (_ json.RawMessage, err error) {
	defer err2.Handle(&err)

	recipPub := try.To1(curvePublic(env.RecipientVerkey))
	cek := make([]byte, cekSize)
	try.To1(rand.Read(cek))

	r := recipient{Header: recipientHeader{Kid: env.RecipientVerkey}}
	hdr := protected{
		Enc:  encAlg,
		Typ:  typJWM,
		Kind: env.Kind,
		Thid: env.ThreadID,
		Exp:  env.ExpiresAtMs,
	}
	if sender == nil {
		hdr.Alg = algAnon
		r.EncryptedKey = utils.EncodeB64(
			try.To1(box.SealAnonymous(nil, cek, recipPub, rand.Reader)))
	} else {
		hdr.Alg = algAuth
		priv := try.To1(p.w.SigningKey(sender.Verkey))
		senderPriv := curvePrivate(priv)

		var nonce [24]byte
		try.To1(rand.Read(nonce[:]))
		r.EncryptedKey = utils.EncodeB64(box.Seal(nil, cek, &nonce, recipPub, senderPriv))
		r.Header.IV = utils.EncodeB64(nonce[:])
		r.Header.Sender = utils.EncodeB64(
			try.To1(box.SealAnonymous(nil, []byte(sender.Verkey), recipPub, rand.Reader)))
	}
	hdr.Recipients = []recipient{r}
	prot := utils.EncodeB64(try.To1(json.Marshal(hdr)))

	aead := try.To1(chacha20poly1305.New(cek))
	iv := make([]byte, nonceLen)
	try.To1(rand.Read(iv))
	ct := aead.Seal(nil, iv, msg, []byte(prot))

	return json.Marshal(sealed{
		Protected:  prot,
		IV:         utils.EncodeB64(iv),
		Ciphertext: utils.EncodeB64(ct[:len(ct)-tagSize]),
		Tag:        utils.EncodeB64(ct[len(ct)-tagSize:]),
	})
}

// Unpack opens an envelope addressed to receiverDid, which must be an own DID
// for the encrypted modes. The mode is detected from the payload. Every
// failure is EnvelopeUnpackFailed except a passed expiry, which is
// EnvelopeExpired. Nothing is ever returned from an envelope that fails.
func (p *Packer) Unpack(receiverDid string, data []byte) (m *Message, err error) {
	defer err2.Handle(&err, "unpack envelope")

	env := try.To1(parse(data))
	mode, hdr := try.To2(detect(env))
	m = &Message{
		Mode:        mode,
		Kind:        env.Kind,
		ThreadID:    env.ThreadID,
		ExpiresAtMs: env.ExpiresAtMs,
		Meta:        env.Meta,
	}

	if mode != ModeAuthcrypt && env.SenderDid != "" {
		return nil, unpackFailed("%s envelope names a sender", mode)
	}
	if mode == ModeNone {
		if !PublicKinds[env.Kind] {
			return nil, unpackFailed("%s can't travel unencrypted", env.Kind)
		}
		var pl plain
		if err := json.Unmarshal(env.Payload, &pl); err != nil {
			return nil, unpackFailed("plain payload")
		}
		m.Plaintext, err = utils.DecodeB64(pl.Plaintext)
		if err != nil {
			return nil, unpackFailed("plaintext encoding")
		}
	} else {
		m.Plaintext, m.SenderVerkey = try.To2(p.open(receiverDid, env, hdr))
		if hdr.Kind != env.Kind || hdr.Thid != env.ThreadID || hdr.Exp != env.ExpiresAtMs {
			return nil, unpackFailed("outer fields don't match the protected header")
		}
		if mode == ModeAuthcrypt {
			if env.SenderDid == "" {
				return nil, unpackFailed("authcrypt envelope without sender DID")
			}
			if err := ssi.CheckDid(env.SenderDid, m.SenderVerkey); err != nil {
				return nil, unpackFailed("sender DID %s doesn't match its key", env.SenderDid)
			}
			m.SenderDid = env.SenderDid
		}
	}

	if m.ExpiresAtMs > 0 && p.now().UnixMilli() > m.ExpiresAtMs {
		return nil, core.New(core.EnvelopeExpired, "envelope %s expired at %d",
			m.ThreadID, m.ExpiresAtMs)
	}
	glog.V(4).Infof("unpacked %s envelope kind %s thid %s", m.Mode, m.Kind, m.ThreadID)
	return m, nil
}

func (p *Packer) open(receiverDid string, env *Envelope, hdr *protected) (msg []byte, senderVerkey string, err error) {
	rec, err := p.w.Get(receiverDid)
	if err != nil || !rec.IsOwn() {
		return nil, "", unpackFailed("receiver %s is not an own DID", receiverDid)
	}
	if env.RecipientVerkey != rec.Verkey {
		return nil, "", unpackFailed("envelope is not for %s", receiverDid)
	}
	var r *recipient
	for i := range hdr.Recipients {
		if hdr.Recipients[i].Header.Kid == rec.Verkey {
			r = &hdr.Recipients[i]
			break
		}
	}
	if r == nil {
		return nil, "", unpackFailed("no recipient entry for %s", receiverDid)
	}
	priv, err := p.w.SigningKey(rec.Verkey)
	if err != nil {
		return nil, "", unpackFailed("no key for %s", receiverDid)
	}
	recipPriv := curvePrivate(priv)
	recipPub, err := curvePublic(rec.Verkey)
	if err != nil {
		return nil, "", unpackFailed("receiver key")
	}

	ek, err := utils.DecodeB64(r.EncryptedKey)
	if err != nil {
		return nil, "", unpackFailed("encrypted key encoding")
	}
	var cek []byte
	var ok bool
	if hdr.Alg == algAnon {
		cek, ok = box.OpenAnonymous(nil, ek, recipPub, recipPriv)
	} else {
		sealedSender, err := utils.DecodeB64(r.Header.Sender)
		if err != nil {
			return nil, "", unpackFailed("sender encoding")
		}
		vk, sok := box.OpenAnonymous(nil, sealedSender, recipPub, recipPriv)
		if !sok {
			return nil, "", unpackFailed("cannot open sender")
		}
		senderVerkey = string(vk)
		senderPub, err := curvePublic(senderVerkey)
		if err != nil {
			return nil, "", unpackFailed("sender key")
		}
		nonce, err := utils.DecodeB64(r.Header.IV)
		if err != nil || len(nonce) != 24 {
			return nil, "", unpackFailed("key nonce")
		}
		var n [24]byte
		copy(n[:], nonce)
		cek, ok = box.Open(nil, ek, &n, senderPub, recipPriv)
	}
	if !ok || len(cek) != cekSize {
		return nil, "", unpackFailed("cannot open content key")
	}

	var s sealed
	if err := json.Unmarshal(env.Payload, &s); err != nil {
		return nil, "", unpackFailed("sealed payload")
	}
	iv, e1 := utils.DecodeB64(s.IV)
	ct, e2 := utils.DecodeB64(s.Ciphertext)
	tag, e3 := utils.DecodeB64(s.Tag)
	if e1 != nil || e2 != nil || e3 != nil || len(iv) != nonceLen || len(tag) != tagSize {
		return nil, "", unpackFailed("sealed payload encoding")
	}
	aead, err := chacha20poly1305.New(cek)
	if err != nil {
		return nil, "", unpackFailed("content key")
	}
	msg, err = aead.Open(nil, iv, append(ct, tag...), []byte(s.Protected))
	if err != nil {
		return nil, "", unpackFailed("payload authentication")
	}
	return msg, senderVerkey, nil
}

func curvePublic(verkey string) (*[32]byte, error) {
	pub, err := ssi.DecodeVerkey(verkey)
	if err != nil {
		return nil, err
	}
	var edPub [32]byte
	copy(edPub[:], pub)
	curve := new([32]byte)
	if !extra25519.PublicKeyToCurve25519(curve, &edPub) {
		return nil, core.New(core.ValidationFailed, "verkey %s is not a curve point", verkey)
	}
	return curve, nil
}

func curvePrivate(priv ed25519.PrivateKey) *[32]byte {
	var edPriv [64]byte
	copy(edPriv[:], priv)
	curve := new([32]byte)
	extra25519.PrivateKeyToCurve25519(curve, &edPriv)
	return curve
}
