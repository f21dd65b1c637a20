package issuecredential

import (
	"crypto/sha256"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/arlindoconceicao/vertex-sub000/core"
)

// MaxPredicateValue is the largest value a predicate can be proven on.
const MaxPredicateValue = 65535

// AttrValue is a credential value in both forms.
type AttrValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

// Values are credential values by attribute name.
type Values map[string]AttrValue

// NewValues encodes raw values.
func NewValues(raw map[string]string) Values {
	v := make(Values, len(raw))
	for name, r := range raw {
		v[name] = AttrValue{Raw: r, Encoded: Encode(r)}
	}
	return v
}

// Get finds the attribute, the name compared in the normalized form.
func (v Values) Get(name string) (AttrValue, bool) {
	if a, ok := v[name]; ok {
		return a, true
	}
	n := normalize(name)
	for k, a := range v {
		if normalize(k) == n {
			return a, true
		}
	}
	return AttrValue{}, false
}

// RawMap returns the raw values.
func (v Values) RawMap() map[string]string {
	m := make(map[string]string, len(v))
	for k, a := range v {
		m[k] = a.Raw
	}
	return m
}

// ParseValues reads the issuer's input values. An attribute may be given as
// a plain string or as {raw, encoded}, in which case the encoding must match.
func ParseValues(data []byte) (Values, error) {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, core.Wrap(core.ValidationFailed, err, "credential values")
	}
	v := make(Values, len(in))
	for name, d := range in {
		var s string
		if err := json.Unmarshal(d, &s); err == nil {
			v[name] = AttrValue{Raw: s, Encoded: Encode(s)}
			continue
		}
		var a AttrValue
		if err := json.Unmarshal(d, &a); err != nil {
			return nil, core.Wrap(core.ValidationFailed, err, "value of "+name)
		}
		if a.Encoded == "" {
			a.Encoded = Encode(a.Raw)
		}
		if a.Encoded != Encode(a.Raw) {
			return nil, core.New(core.ValidationFailed, "value of %s: encoding mismatch", name)
		}
		v[name] = a
	}
	return v, nil
}

// Encode is the credential encoding of a raw value: a canonical decimal
// integer that fits int32 is itself, anything else is the decimal of its
// SHA-256. "007" and "+7" are not canonical, so no two raw strings share an
// encoding.
func Encode(raw string) string {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil &&
		i >= math.MinInt32 && i <= math.MaxInt32 && strconv.FormatInt(i, 10) == raw {
		return raw
	}
	h := sha256.Sum256([]byte(raw))
	return new(big.Int).SetBytes(h[:]).String()
}

// PredicateValue returns the value a predicate is proven on. Only canonical
// non-negative integers up to MaxPredicateValue qualify.
func PredicateValue(raw string) (int, bool) {
	if raw == "" || len(raw) > 5 || (len(raw) > 1 && raw[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 || i > MaxPredicateValue || strconv.Itoa(i) != raw {
		return 0, false
	}
	return i, true
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}
