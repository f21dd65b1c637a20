// Package common validates the JSON artifacts that cross a party boundary.
// Every artifact kind has a JSON schema, and Unmarshal refuses a document
// with missing required fields or unexpected types before any protocol code
// sees it.
package common

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/golang/glog"
	"github.com/xeipuuv/gojsonschema"
)

// Kind names an artifact.
type Kind string

const (
	KindOffer                Kind = "offer"
	KindRequest              Kind = "request"
	KindCredential           Kind = "credential"
	KindCredDef              Kind = "cred_def"
	KindProofRequest         Kind = "proof_request"
	KindRequestedCredentials Kind = "requested_credentials"
	KindProof                Kind = "proof"
	KindEnvelope             Kind = "envelope"
	KindPresentationPackage  Kind = "presentation_package"
	KindCredentialPackage    Kind = "credential_package"
)

var (
	once     sync.Once
	compiled map[Kind]*gojsonschema.Schema
)

func load() {
	compiled = make(map[Kind]*gojsonschema.Schema, len(schemas))
	for kind, s := range schemas {
		sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
		if err != nil {
			panic("json schema " + string(kind) + ": " + err.Error())
		}
		compiled[kind] = sch
	}
}

// Validate checks data against the schema of kind.
func Validate(kind Kind, data []byte) error {
	once.Do(load)

	sch, ok := compiled[kind]
	if !ok {
		return core.New(core.ValidationFailed, "unknown artifact kind %q", kind)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return core.Wrap(core.ValidationFailed, err, string(kind))
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		glog.V(3).Infof("%s rejected: %v", kind, msgs)
		return core.New(core.ValidationFailed, "%s: %s", kind, strings.Join(msgs, "; "))
	}
	return nil
}

// Unmarshal validates data and decodes it to v.
func Unmarshal(kind Kind, data []byte, v any) error {
	if err := Validate(kind, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.Wrap(core.ValidationFailed, err, string(kind))
	}
	return nil
}
