// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package document defines the persisted application configuration document:
// an open-ended mapping from setting keys to JSON values.
//
// A Document is immutable. Mutating helpers such as With and Without return a
// new Document and leave the receiver untouched, so a Document can be shared
// between goroutines without copying.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

var (
	// ErrNotObject is returned when a value whose top level is not a JSON
	// object is used as a document.
	ErrNotObject = errors.New("configuration document must be an object")

	// ErrEmptyKey is returned when a setting key is empty.
	ErrEmptyKey = errors.New("setting key must not be empty")

	// ErrUnsafeInteger is returned for integers that would be rewritten on
	// the next save because numbers are held as float64.
	ErrUnsafeInteger = errors.New("integer cannot be stored without losing precision")
)

// Document is the configuration document. The zero value is an empty document.
type Document struct {
	fields map[string]ldvalue.Value
}

// New returns an empty document.
func New() Document {
	return Document{}
}

// FromMap builds a document from arbitrary Go values (as produced by
// encoding/json or yaml decoding).
func FromMap(m map[string]any) Document {
	if len(m) == 0 {
		return Document{}
	}
	fields := make(map[string]ldvalue.Value, len(m))
	for k, v := range m {
		fields[k] = ldvalue.CopyArbitraryValue(v)
	}
	return Document{fields: fields}
}

// Get returns the value stored under key.
func (d Document) Get(key string) (ldvalue.Value, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// With returns a copy of d with key set to value.
func (d Document) With(key string, value ldvalue.Value) (Document, error) {
	if key == "" {
		return d, ErrEmptyKey
	}
	fields := make(map[string]ldvalue.Value, len(d.fields)+1)
	for k, v := range d.fields {
		fields[k] = v
	}
	fields[key] = value
	return Document{fields: fields}, nil
}

// Without returns a copy of d with key removed. Removing an absent key is a no-op.
func (d Document) Without(key string) Document {
	if _, ok := d.fields[key]; !ok {
		return d
	}
	fields := make(map[string]ldvalue.Value, len(d.fields))
	for k, v := range d.fields {
		if k != key {
			fields[k] = v
		}
	}
	return Document{fields: fields}
}

// Keys returns the setting keys in lexical order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of top-level settings.
func (d Document) Len() int {
	return len(d.fields)
}

// Equal reports whether both documents hold the same keys with equal values.
func (d Document) Equal(other Document) bool {
	if len(d.fields) != len(other.fields) {
		return false
	}
	for k, v := range d.fields {
		ov, ok := other.fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Value returns the document as an ldvalue object.
func (d Document) Value() ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for k, v := range d.fields {
		b.Set(k, v)
	}
	return b.Build()
}

// AsMap converts the document into plain Go values.
func (d Document) AsMap() map[string]any {
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v.AsArbitraryValue()
	}
	return out
}

// JSONString returns the compact JSON encoding of the document.
func (d Document) JSONString() string {
	return string(encodeJSON(d))
}

// MarshalJSON encodes the document as a compact JSON object.
func (d Document) MarshalJSON() ([]byte, error) {
	w := jwriter.NewWriter()
	writeDocument(&w, d)
	if err := w.Error(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the document.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := decodeJSON(data)
	if err != nil {
		return err
	}
	if err := checkIntegers(data); err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ChangedKeys lists the keys that were added, removed or modified between
// old and next, in lexical order.
func ChangedKeys(old, next Document) []string {
	var changed []string
	for k, v := range next.fields {
		if ov, ok := old.fields[k]; !ok || !ov.Equal(v) {
			changed = append(changed, k)
		}
	}
	for k := range old.fields {
		if _, ok := next.fields[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func writeDocument(w *jwriter.Writer, d Document) {
	obj := w.Object()
	for _, k := range d.Keys() {
		d.fields[k].WriteToJSONWriter(obj.Name(k))
	}
	obj.End()
}

func encodeJSON(d Document) []byte {
	w := jwriter.NewWriter()
	writeDocument(&w, d)
	return w.Bytes()
}

func decodeJSON(data []byte) (Document, error) {
	r := jreader.NewReader(data)
	fields := make(map[string]ldvalue.Value)
	for obj := r.Object(); obj.Next(); {
		var v ldvalue.Value
		v.ReadFromJSONReader(&r)
		fields[string(obj.Name())] = v
	}
	if err := r.Error(); err != nil {
		var typeErr jreader.TypeError
		if errors.As(err, &typeErr) {
			return Document{}, ErrNotObject
		}
		return Document{}, err
	}
	if err := r.RequireEOF(); err != nil {
		return Document{}, err
	}
	if len(fields) == 0 {
		return Document{}, nil
	}
	return Document{fields: fields}, nil
}

// checkIntegers rejects integer literals that float64 cannot hold exactly.
// jreader only surfaces numbers as float64, so the raw literals are scanned
// with a token decoder.
func checkIntegers(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n, ok := tok.(json.Number); ok {
			if err := checkIntegerLiteral(string(n)); err != nil {
				return err
			}
		}
	}
}

func checkIntegerLiteral(lit string) error {
	if strings.ContainsAny(lit, ".eE") {
		return nil
	}
	if !exactInFloat64(lit) {
		return fmt.Errorf("%w: %s", ErrUnsafeInteger, lit)
	}
	return nil
}

// exactInFloat64 reports whether the decimal integer lit survives a float64
// round trip unchanged.
func exactInFloat64(lit string) bool {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return false
	}
	return strconv.FormatFloat(f, 'f', -1, 64) == lit
}
