// Package codec implements the canonical byte encoding of transactions and
// headers (spec.md §4.2) used both for hashing and for the signature
// preimage, plus the Merkle root over transaction hashes. The encoding is a
// deterministic JSON-like form: fixed key order, bigints as decimal strings,
// no whitespace. Implementers must reproduce this exact ladder (spec.md §9).
package codec

import (
	"bytes"
	"fmt"
	"sort"
)

// Value is the minimal tagged-union the canonical encoder accepts: strings,
// decimal-string-rendered integers, nested ordered field lists, and lists of
// Values. Keeping this closed and explicit (rather than reflecting over
// arbitrary structs) is what makes the encoding reproducible across
// implementations, per spec.md §4.2.
type Value interface {
	isValue()
}

// Field is one key/value pair in a canonical object; order is significant and
// callers control it explicitly (no alphabetical re-sorting), matching "key
// order fixed" in spec.md §4.2.
type Field struct {
	Key   string
	Value Value
}

// Object is an ordered list of fields, encoded as {"k1":v1,"k2":v2,...}.
type Object []Field

func (Object) isValue() {}

// Str is a plain string value, encoded as a quoted JSON string.
type Str string

func (Str) isValue() {}

// Dec renders an arbitrary-precision non-negative integer (balances, gas
// values, nonces) as a quoted decimal string, per "bigints rendered as
// decimal strings" in spec.md §4.2.
type Dec string

func (Dec) isValue() {}

// Num is a small integer encoded as a bare JSON number (heights, timestamps);
// distinct from Dec because spec.md only mandates string rendering for the
// 256-bit monetary/gas values, not every integer field.
type Num int64

func (Num) isValue() {}

// List is an ordered sequence of values, encoded as [v1,v2,...].
type List []Value

func (List) isValue() {}

// Null encodes the JSON literal null, used for omitted optional fields so the
// preimage has one unambiguous shape whether or not a field is present.
type Null struct{}

func (Null) isValue() {}

// Encode renders v into its canonical, whitespace-free byte form.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encode(&buf, v)
	return buf.Bytes()
}

func encode(buf *bytes.Buffer, v Value) {
	switch t := v.(type) {
	case Object:
		buf.WriteByte('{')
		for i, f := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, f.Key)
			buf.WriteByte(':')
			encode(buf, f.Value)
		}
		buf.WriteByte('}')
	case List:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			encode(buf, e)
		}
		buf.WriteByte(']')
	case Str:
		encodeString(buf, string(t))
	case Dec:
		encodeString(buf, string(t))
	case Num:
		fmt.Fprintf(buf, "%d", int64(t))
	case Null:
		buf.WriteString("null")
	default:
		panic(fmt.Sprintf("codec: unencodable value type %T", v))
	}
}

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// SortedKeys returns ks sorted ascending — a helper for callers that must
// canonicalize a map (e.g. genesis alloc) into a deterministic Field order
// before encoding, since Object itself does not reorder.
func SortedKeys(ks []string) []string {
	out := append([]string(nil), ks...)
	sort.Strings(out)
	return out
}
