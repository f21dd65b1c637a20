// Package sec is the secure envelope transport. Every artifact that leaves a
// party is packed to an Envelope in one of three modes:
//
//	anoncrypt  only the recipient's verkey is needed, the sender is anonymous
//	authcrypt  the sender is authenticated by its own DID's key
//	none       plaintext, for public bootstrap data only
//
// The encrypted modes use the legacy DIDComm JWM/1.0 layout: a protected
// header with per-recipient wrapped content keys, and the payload sealed with
// ChaCha20-Poly1305 under the content key.
package sec

import (
	"encoding/json"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/arlindoconceicao/vertex-sub000/std/common"
)

// Mode is the trust mode of an envelope.
type Mode string

const (
	ModeAnoncrypt Mode = "anoncrypt"
	ModeAuthcrypt Mode = "authcrypt"
	ModeNone      Mode = "none"
)

const (
	encAlg   = "chacha20poly1305_ietf"
	typJWM   = "JWM/1.0"
	algAuth  = "Authcrypt"
	algAnon  = "Anoncrypt"
	tagSize  = 16
	cekSize  = 32
	nonceLen = 12
)

// Envelope is the wire form.
type Envelope struct {
	Mode            Mode            `json:"mode"`
	Kind            string          `json:"kind"`
	ThreadID        string          `json:"thread_id"`
	SenderDid       string          `json:"sender_did,omitempty"`
	RecipientVerkey string          `json:"recipient_verkey"`
	Payload         json.RawMessage `json:"payload"`
	ExpiresAtMs     int64           `json:"expires_at_ms,omitempty"`
	Meta            json.RawMessage `json:"meta,omitempty"`
}

// sealed is the payload of the encrypted modes.
type sealed struct {
	Protected  string `json:"protected"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
}

type plain struct {
	Plaintext string `json:"plaintext"`
}

// protected is the authenticated header. Kind, Thid and Exp repeat the outer
// fields so they can't be changed in transit.
type protected struct {
	Enc        string      `json:"enc"`
	Typ        string      `json:"typ"`
	Alg        string      `json:"alg"`
	Recipients []recipient `json:"recipients"`
	Kind       string      `json:"kind"`
	Thid       string      `json:"thid"`
	Exp        int64       `json:"exp,omitempty"`
}

type recipient struct {
	EncryptedKey string          `json:"encrypted_key"`
	Header       recipientHeader `json:"header"`
}

type recipientHeader struct {
	Kid    string `json:"kid"`
	Sender string `json:"sender,omitempty"`
	IV     string `json:"iv,omitempty"`
}

// Message is an unpacked envelope.
type Message struct {
	Mode         Mode            `json:"mode"`
	Kind         string          `json:"kind"`
	ThreadID     string          `json:"thread_id"`
	SenderDid    string          `json:"sender_did,omitempty"`
	SenderVerkey string          `json:"sender_verkey,omitempty"`
	ExpiresAtMs  int64           `json:"expires_at_ms,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	Plaintext    []byte          `json:"plaintext"`
}

func unpackFailed(format string, a ...any) error {
	return core.New(core.EnvelopeUnpackFailed, format, a...)
}

// parse reads and validates the outer envelope.
func parse(data []byte) (*Envelope, error) {
	if err := common.Validate(common.KindEnvelope, data); err != nil {
		return nil, core.Wrap(core.EnvelopeUnpackFailed, err, "envelope")
	}
	env := new(Envelope)
	if err := json.Unmarshal(data, env); err != nil {
		return nil, core.Wrap(core.EnvelopeUnpackFailed, err, "envelope")
	}
	return env, nil
}

// Detect tells the mode of a packed envelope from its payload. The outer mode
// field must agree with it.
func Detect(data []byte) (Mode, error) {
	env, err := parse(data)
	if err != nil {
		return "", err
	}
	mode, _, err := detect(env)
	return mode, err
}

func detect(env *Envelope) (Mode, *protected, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Payload, &fields); err != nil {
		return "", nil, unpackFailed("payload is not an object")
	}
	if _, ok := fields["plaintext"]; ok {
		if _, enc := fields["ciphertext"]; enc {
			return "", nil, unpackFailed("payload is both plain and sealed")
		}
		if env.Mode != ModeNone {
			return "", nil, unpackFailed("%s envelope carries plaintext", env.Mode)
		}
		return ModeNone, nil, nil
	}
	var s sealed
	if err := json.Unmarshal(env.Payload, &s); err != nil || s.Protected == "" {
		return "", nil, unpackFailed("payload has no protected header")
	}
	hdr, err := decodeProtected(s.Protected)
	if err != nil {
		return "", nil, err
	}
	var mode Mode
	switch hdr.Alg {
	case algAuth:
		mode = ModeAuthcrypt
	case algAnon:
		mode = ModeAnoncrypt
	default:
		return "", nil, unpackFailed("unknown alg %q", hdr.Alg)
	}
	if env.Mode != mode {
		return "", nil, unpackFailed("envelope says %s, payload is %s", env.Mode, mode)
	}
	return mode, hdr, nil
}

func decodeProtected(s string) (*protected, error) {
	d, err := utils.DecodeB64(s)
	if err != nil {
		return nil, unpackFailed("protected header encoding")
	}
	hdr := new(protected)
	if err := json.Unmarshal(d, hdr); err != nil {
		return nil, unpackFailed("protected header")
	}
	if hdr.Enc != encAlg || hdr.Typ != typJWM || len(hdr.Recipients) == 0 {
		return nil, unpackFailed("protected header enc %q typ %q", hdr.Enc, hdr.Typ)
	}
	return hdr, nil
}
