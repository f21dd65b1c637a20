// Package envelope packs and unpacks secure envelopes from the command line.
package envelope

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/sec"
	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// PackCmd packs the artifact in Filename (or stdin) as Kind.
type PackCmd struct {
	cmds.Cmd
	Mode            string
	SenderDid       string
	RecipientVerkey string
	Kind            string
	ThreadID        string
	TTL             time.Duration
	Filename        string
	Output          string
}

func (c PackCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	switch sec.Mode(c.Mode) {
	case sec.ModeAuthcrypt:
		if c.SenderDid == "" {
			return errors.New("authcrypt needs a sender DID")
		}
	case sec.ModeAnoncrypt, sec.ModeNone:
	default:
		return errors.New("mode must be authcrypt, anoncrypt or none")
	}
	if c.Kind == "" {
		return errors.New("artifact kind cannot be empty")
	}
	if c.RecipientVerkey == "" {
		return errors.New("recipient verkey cannot be empty")
	}
	if c.TTL < 0 {
		return errors.New("ttl cannot be negative")
	}
	return nil
}

func (c PackCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "pack cmd")

	plain := try.To1(cmds.ReadInput(c.Filename, os.Stdin))
	try.To(common.Validate(common.Kind(c.Kind), plain))

	var data []byte
	try.To1(c.Cmd.Exec(func(s *enclave.Store) (_ cmds.Result, err error) {
		p := sec.NewPacker(ssi.NewWallet(s))
		args := sec.PackArgs{
			Mode:            sec.Mode(c.Mode),
			SenderDid:       c.SenderDid,
			RecipientVerkey: c.RecipientVerkey,
			Kind:            c.Kind,
			ThreadID:        c.ThreadID,
			Plaintext:       plain,
		}
		if c.TTL > 0 {
			args.ExpiresAtMs = time.Now().Add(c.TTL).UnixMilli()
		}
		data, err = p.Pack(args)
		return nil, err
	}))
	try.To(cmds.WriteOutput(c.Output, w, data))
	return nil, nil
}

// UnpackCmd opens the envelope in Filename (or stdin) for ReceiverDid and
// prints the message with its plaintext as JSON.
type UnpackCmd struct {
	cmds.Cmd
	ReceiverDid string
	Filename    string
}

// Unpacked is the printed form of an opened envelope.
type Unpacked struct {
	Mode         sec.Mode        `json:"mode"`
	Kind         string          `json:"kind"`
	ThreadID     string          `json:"thread_id"`
	SenderDid    string          `json:"sender_did,omitempty"`
	SenderVerkey string          `json:"sender_verkey,omitempty"`
	ExpiresAtMs  int64           `json:"expires_at_ms,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	Plaintext    json.RawMessage `json:"plaintext"`
}

func (c UnpackCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.ReceiverDid == "" {
		return errors.New("receiver DID cannot be empty")
	}
	return nil
}

func (c UnpackCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "unpack cmd")

	data := try.To1(cmds.ReadInput(c.Filename, os.Stdin))
	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		m, err := sec.NewPacker(ssi.NewWallet(s)).Unpack(c.ReceiverDid, data)
		if err != nil {
			return nil, err
		}
		u := Unpacked{
			Mode:         m.Mode,
			Kind:         m.Kind,
			ThreadID:     m.ThreadID,
			SenderDid:    m.SenderDid,
			SenderVerkey: m.SenderVerkey,
			ExpiresAtMs:  m.ExpiresAtMs,
			Meta:         m.Meta,
			Plaintext:    m.Plaintext,
		}
		if !json.Valid(u.Plaintext) {
			d, _ := json.Marshal(string(m.Plaintext))
			u.Plaintext = d
		}
		return cmds.JSONResult{V: u}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}
