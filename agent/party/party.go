/*
Package party bundles one open wallet with every protocol service a party
needs, whatever its role: issuer, holder, prover, verifier and the
presentation archive. Artifacts leave a party only through Send and arrive
through Receive, both of which go through the secure envelope transport.

	p, err := party.Open(party.Config{Dir: dir, Name: "alice", Key: key,
		Ledger: lc, Engine: local.New(), Create: true})
	defer p.Close()
*/
package party

import (
	"encoding/json"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/engine"
	"github.com/arlindoconceicao/vertex-sub000/agent/ledger"
	"github.com/arlindoconceicao/vertex-sub000/agent/psm"
	"github.com/arlindoconceicao/vertex-sub000/agent/sec"
	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/arlindoconceicao/vertex-sub000/protocol/issuecredential/holder"
	"github.com/arlindoconceicao/vertex-sub000/protocol/issuecredential/issuer"
	"github.com/arlindoconceicao/vertex-sub000/protocol/presentproof/archive"
	"github.com/arlindoconceicao/vertex-sub000/protocol/presentproof/prover"
	"github.com/arlindoconceicao/vertex-sub000/protocol/presentproof/verifier"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

// Config tells which wallet to open and what the services run on.
type Config struct {
	Dir  string
	Name string
	Key  string

	Ledger *ledger.Client
	Engine engine.Engine

	// Create makes the wallet if it doesn't exist yet.
	Create bool
}

// Party is an open wallet with its services. It's one session: after Close
// every service fails with WalletNotOpen.
type Party struct {
	Name string

	Store    *enclave.Store
	Wallet   *ssi.Wallet
	Packer   *sec.Packer
	States   *psm.DB
	Issuer   *issuer.Issuer
	Holder   *holder.Holder
	Prover   *prover.Prover
	Verifier *verifier.Verifier
	Archive  *archive.Archive
}

// Open opens the party's wallet and builds the services on it.
func Open(cfg Config) (p *Party, err error) {
	defer err2.Handle(&err, "open party %s", cfg.Name)

	assert.INotNil(cfg.Engine)
	if cfg.Create && !enclave.Exists(cfg.Dir, cfg.Name) {
		try.To(enclave.Create(cfg.Dir, cfg.Name, cfg.Key))
	}
	s := try.To1(enclave.Open(cfg.Dir, cfg.Name, cfg.Key))

	w := ssi.NewWallet(s)
	h := holder.New(w, cfg.Ledger, cfg.Engine)
	states := psm.New(s)
	p = &Party{
		Name:     cfg.Name,
		Store:    s,
		Wallet:   w,
		Packer:   sec.NewPacker(w),
		States:   states,
		Issuer:   issuer.New(w, cfg.Ledger, cfg.Engine),
		Holder:   h,
		Prover:   prover.New(h, states, cfg.Name, cfg.Ledger, cfg.Engine),
		Verifier: verifier.New(w, cfg.Ledger, cfg.Engine),
		Archive:  archive.New(s),
	}
	glog.V(1).Infoln("party opened:", cfg.Name)
	return p, nil
}

// SetClock gives every service the same time source.
func (p *Party) SetClock(now func() time.Time) {
	p.Wallet.SetClock(now)
	p.Packer.SetClock(now)
	p.States.SetClock(now)
	p.Issuer.SetClock(now)
	p.Holder.SetClock(now)
	p.Prover.SetClock(now)
	p.Verifier.SetClock(now)
	p.Archive.SetClock(now)
}

func (p *Party) Close() error {
	return p.Store.Close()
}

// Message is an artifact on its way out.
type Message struct {
	Mode            sec.Mode
	SenderDid       string
	RecipientVerkey string
	ThreadID        string
	ExpiresAtMs     int64
	Meta            json.RawMessage
}

// Send validates the artifact as kind and packs it.
func (p *Party) Send(m Message, kind common.Kind, artifact any) (data []byte, err error) {
	defer err2.Handle(&err, "send %s", kind)

	pt := try.To1(json.Marshal(artifact))
	try.To(common.Validate(kind, pt))
	return p.Packer.Pack(sec.PackArgs{
		Mode:            m.Mode,
		SenderDid:       m.SenderDid,
		RecipientVerkey: m.RecipientVerkey,
		Kind:            string(kind),
		ThreadID:        m.ThreadID,
		Plaintext:       pt,
		ExpiresAtMs:     m.ExpiresAtMs,
		Meta:            m.Meta,
	})
}

// Receive unpacks an envelope for receiverDid and decodes its artifact into
// v, which must be of the expected kind. The raw artifact stays in the
// returned message's Plaintext.
func (p *Party) Receive(receiverDid string, data []byte, kind common.Kind, v any) (m *sec.Message, err error) {
	defer err2.Handle(&err, "receive %s", kind)

	m = try.To1(p.Packer.Unpack(receiverDid, data))
	if m.Kind != string(kind) {
		return nil, core.New(core.ValidationFailed, "got %s, expected %s", m.Kind, kind)
	}
	if v != nil {
		try.To(common.Unmarshal(kind, m.Plaintext, v))
	}
	return m, nil
}
