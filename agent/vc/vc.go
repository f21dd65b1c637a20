// Package vc holds the public ledger objects of the credential layer, schemas
// and credential definitions, and their identifier formats:
//
//	schema:   <did>:2:<name>:<version>
//	cred def: <did>:3:CL:<schemaRef>:<tag>
//
// where schemaRef is the ledger seqNo of the schema or the whole schema id.
package vc

import (
	"strconv"
	"strings"

	"github.com/arlindoconceicao/vertex-sub000/core"
	"github.com/mr-tron/base58"
)

const (
	schemaMarker  = "2"
	credDefMarker = "3"

	// SignatureType is the only credential signature scheme.
	SignatureType = "CL"

	// DefaultTag is used when a cred def is created without one.
	DefaultTag = "default"
)

const ver = "1.0"

// Schema is a published, ordered list of attribute names.
type Schema struct {
	Ver       string   `json:"ver"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attrNames"`
	SeqNo     int      `json:"seqNo,omitempty"`
}

// CredDef binds a schema to the issuer's signing key.
type CredDef struct {
	Ver      string       `json:"ver"`
	ID       string       `json:"id"`
	SchemaID string       `json:"schemaId"`
	Type     string       `json:"type"`
	Tag      string       `json:"tag"`
	Value    CredDefValue `json:"value"`
}

// CredDefValue carries the public key material of the cred def.
type CredDefValue struct {
	PublicKey string `json:"publicKey"`
}

// NewSchema builds a schema of the issuer. Attribute names must be unique
// after normalization and their order is kept.
func NewSchema(issuerDid, name, version string, attrs []string) (*Schema, error) {
	if err := checkDid(issuerDid); err != nil {
		return nil, err
	}
	if name == "" || version == "" ||
		strings.Contains(name, ":") || strings.Contains(version, ":") {
		return nil, core.New(core.ValidationFailed,
			"schema name %q and version %q must be non-empty without ':'", name, version)
	}
	if len(attrs) == 0 {
		return nil, core.New(core.ValidationFailed, "schema %s has no attributes", name)
	}
	seen := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		n := NormalizeAttr(a)
		if n == "" {
			return nil, core.New(core.ValidationFailed, "empty attribute name")
		}
		if _, ok := seen[n]; ok {
			return nil, core.New(core.ValidationFailed, "duplicate attribute %q", a)
		}
		seen[n] = struct{}{}
	}
	return &Schema{
		Ver:       ver,
		ID:        SchemaID(issuerDid, name, version),
		Name:      name,
		Version:   version,
		AttrNames: append([]string(nil), attrs...),
	}, nil
}

// HasAttr tells if the schema has the attribute, names compared normalized.
func (s *Schema) HasAttr(name string) bool {
	n := NormalizeAttr(name)
	for _, a := range s.AttrNames {
		if NormalizeAttr(a) == n {
			return true
		}
	}
	return false
}

// NormalizeAttr is the attribute name form used for matching: lower case
// without spaces.
func NormalizeAttr(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

// SchemaID builds a schema id.
func SchemaID(issuerDid, name, version string) string {
	return strings.Join([]string{issuerDid, schemaMarker, name, version}, ":")
}

// SchemaIDParts is a parsed schema id.
type SchemaIDParts struct {
	IssuerDid string
	Name      string
	Version   string
}

// ParseSchemaID parses a schema id. A cred def id or any other string gives
// InvalidIdentifierFormat.
func ParseSchemaID(id string) (p SchemaIDParts, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[1] != schemaMarker {
		return p, core.New(core.InvalidIdentifierFormat, "not a schema id: %q", id)
	}
	if err := checkDid(parts[0]); err != nil {
		return p, err
	}
	if parts[2] == "" || parts[3] == "" {
		return p, core.New(core.InvalidIdentifierFormat, "schema id %q", id)
	}
	return SchemaIDParts{IssuerDid: parts[0], Name: parts[2], Version: parts[3]}, nil
}

// CredDefID builds a cred def id. schemaRef is a seqNo or a schema id.
func CredDefID(issuerDid, schemaRef, tag string) string {
	if tag == "" {
		tag = DefaultTag
	}
	return strings.Join([]string{issuerDid, credDefMarker, SignatureType, schemaRef, tag}, ":")
}

// CredDefIDParts is a parsed cred def id. SchemaID is set when the id embeds
// it, SeqNo when it refers the schema by ledger sequence number.
type CredDefIDParts struct {
	IssuerDid string
	SchemaID  string
	SeqNo     int
	Tag       string
}

// ParseCredDefID parses a cred def id. A schema id or any other string gives
// InvalidIdentifierFormat.
func ParseCredDefID(id string) (p CredDefIDParts, err error) {
	parts := strings.Split(id, ":")
	if (len(parts) != 5 && len(parts) != 8) ||
		parts[1] != credDefMarker || parts[2] != SignatureType {
		return p, core.New(core.InvalidIdentifierFormat, "not a cred def id: %q", id)
	}
	if err := checkDid(parts[0]); err != nil {
		return p, err
	}
	p.IssuerDid = parts[0]
	p.Tag = parts[len(parts)-1]
	if p.Tag == "" {
		return p, core.New(core.InvalidIdentifierFormat, "cred def id %q has no tag", id)
	}
	if len(parts) == 5 {
		p.SeqNo, err = strconv.Atoi(parts[3])
		if err != nil || p.SeqNo <= 0 {
			return p, core.New(core.InvalidIdentifierFormat,
				"cred def id %q schema seqNo", id)
		}
		return p, nil
	}
	p.SchemaID = strings.Join(parts[3:7], ":")
	if _, err := ParseSchemaID(p.SchemaID); err != nil {
		return p, err
	}
	return p, nil
}

// IssuerOf returns the issuer DID of a cred def id.
func IssuerOf(credDefID string) (string, error) {
	p, err := ParseCredDefID(credDefID)
	if err != nil {
		return "", err
	}
	return p.IssuerDid, nil
}

func checkDid(did string) error {
	b, err := base58.Decode(did)
	if err != nil || len(b) != 16 {
		return core.New(core.InvalidIdentifierFormat, "DID %q", did)
	}
	return nil
}
