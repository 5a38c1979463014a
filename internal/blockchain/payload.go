package blockchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindBool
	KindNumber
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindRecord:
		return "record"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Payload is the opaque data carried by a block. It is a closed set of
// values with one canonical encoding, so equal payloads always fingerprint
// the same regardless of how they were built. Payloads are immutable.
type Payload struct {
	kind   Kind
	text   string
	flag   bool
	number float64
	fields []Field // sorted by Key, unique
}

// Field is one entry of a record payload.
type Field struct {
	Key   string
	Value Payload
}

func Null() Payload            { return Payload{} }
func Text(s string) Payload    { return Payload{kind: KindText, text: s} }
func Bool(b bool) Payload      { return Payload{kind: KindBool, flag: b} }
func Number(f float64) Payload { return Payload{kind: KindNumber, number: f} }

// Int stores n as a Number. Integers beyond 2^53 in magnitude may round to a
// neighbouring float64; PayloadOf rejects such values instead.
func Int(n int64) Payload { return Number(float64(n)) }

func (p Payload) Kind() Kind   { return p.kind }
func (p Payload) IsNull() bool { return p.kind == KindNull }

// Fields returns a copy of a record's entries in key order.
func (p Payload) Fields() []Field { return append([]Field(nil), p.fields...) }

// Record builds a string-keyed mapping. Values are expected to be scalars;
// a nested record is accepted here but fails canonical encoding.
func Record(m map[string]Payload) Payload {
	fields := make([]Field, 0, len(m))
	for k, v := range m {
		fields = append(fields, Field{Key: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return Payload{kind: KindRecord, fields: fields}
}

func (p Payload) Text() (string, bool) {
	return p.text, p.kind == KindText
}

func (p Payload) Bool() (bool, bool) {
	return p.flag, p.kind == KindBool
}

func (p Payload) Number() (float64, bool) {
	return p.number, p.kind == KindNumber
}

// Get returns the value stored under key in a record payload.
func (p Payload) Get(key string) (Payload, bool) {
	if p.kind != KindRecord {
		return Payload{}, false
	}
	i := sort.Search(len(p.fields), func(i int) bool { return p.fields[i].Key >= key })
	if i < len(p.fields) && p.fields[i].Key == key {
		return p.fields[i].Value, true
	}
	return Payload{}, false
}

// Equal compares payloads by value.
func (p Payload) Equal(o Payload) bool {
	if p.kind != o.kind {
		return false
	}
	switch p.kind {
	case KindNull:
		return true
	case KindText:
		return p.text == o.text
	case KindBool:
		return p.flag == o.flag
	case KindNumber:
		return p.number == o.number
	case KindRecord:
		if len(p.fields) != len(o.fields) {
			return false
		}
		for i := range p.fields {
			if p.fields[i].Key != o.fields[i].Key || !p.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// PayloadOf converts a plain Go value, typically decoded JSON, into a Payload.
func PayloadOf(v any) (Payload, error) {
	return payloadOf(v, true)
}

func payloadOf(v any, allowRecord bool) (Payload, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Payload:
		if x.kind == KindRecord && !allowRecord {
			return Payload{}, fmt.Errorf("%w: nested record", ErrSerialization)
		}
		return x, nil
	case string:
		return Text(x), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return exactInt(n)
		}
		f, err := x.Float64()
		if err != nil {
			return Payload{}, fmt.Errorf("%w: number %q: %v", ErrSerialization, x.String(), err)
		}
		return Number(f), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return exactInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if f := float64(u); f >= math.MaxUint64 || uint64(f) != u {
			return Payload{}, fmt.Errorf("%w: integer %d is not exact as a float64", ErrSerialization, u)
		}
		return Number(float64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Map:
		if !allowRecord {
			return Payload{}, fmt.Errorf("%w: nested mapping", ErrSerialization)
		}
		if rv.Type().Key().Kind() != reflect.String {
			return Payload{}, fmt.Errorf("%w: mapping key type %s", ErrSerialization, rv.Type().Key())
		}
		m := make(map[string]Payload, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			val, err := payloadOf(iter.Value().Interface(), false)
			if err != nil {
				return Payload{}, fmt.Errorf("field %q: %w", iter.Key().String(), err)
			}
			m[iter.Key().String()] = val
		}
		return Record(m), nil
	}
	return Payload{}, fmt.Errorf("%w: unsupported type %T", ErrSerialization, v)
}

// exactInt rejects integers that two distinct values would share once
// narrowed to float64.
func exactInt(n int64) (Payload, error) {
	if f := float64(n); f >= math.MaxInt64 || int64(f) != n {
		return Payload{}, fmt.Errorf("%w: integer %d is not exact as a float64", ErrSerialization, n)
	}
	return Int(n), nil
}

// ParsePayloadJSON decodes a JSON document into a Payload. Bare words that
// are not valid JSON are taken as text. Input that opens like an object,
// array or string must be well-formed JSON.
func ParsePayloadJSON(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && bytes.IndexByte([]byte(`{["`), trimmed[0]) >= 0 {
			return Payload{}, fmt.Errorf("%w: malformed JSON: %v", ErrSerialization, err)
		}
		return Text(string(trimmed)), nil
	}
	if dec.More() {
		return Payload{}, fmt.Errorf("%w: trailing data after JSON value", ErrSerialization)
	}
	return PayloadOf(v)
}

// EncodeMsgpack writes the canonical form used for fingerprinting.
func (p Payload) EncodeMsgpack(enc *msgpack.Encoder) error {
	return p.encode(enc, true)
}

func (p Payload) encode(enc *msgpack.Encoder, allowRecord bool) error {
	switch p.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindText:
		return enc.EncodeString(p.text)
	case KindBool:
		return enc.EncodeBool(p.flag)
	case KindNumber:
		f := p.number
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite number %v", ErrSerialization, f)
		}
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return enc.EncodeInt(int64(f))
		}
		return enc.EncodeFloat64(f)
	case KindRecord:
		if !allowRecord {
			return fmt.Errorf("%w: nested record", ErrSerialization)
		}
		if err := enc.EncodeMapLen(len(p.fields)); err != nil {
			return err
		}
		for _, f := range p.fields {
			if err := enc.EncodeString(f.Key); err != nil {
				return err
			}
			if err := f.Value.encode(enc, false); err != nil {
				return fmt.Errorf("field %q: %w", f.Key, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unknown payload kind %s", ErrSerialization, p.kind)
}

// Canonical returns the canonical msgpack bytes of the payload.
func (p Payload) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.EncodeMsgpack(msgpack.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case KindNull:
		return []byte("null"), nil
	case KindText:
		return json.Marshal(p.text)
	case KindBool:
		return json.Marshal(p.flag)
	case KindNumber:
		if math.IsNaN(p.number) || math.IsInf(p.number, 0) {
			return nil, fmt.Errorf("%w: non-finite number %v", ErrSerialization, p.number)
		}
		return []byte(strconv.FormatFloat(p.number, 'f', -1, 64)), nil
	case KindRecord:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range p.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(f.Key)
			buf.Write(k)
			buf.WriteByte(':')
			v, err := f.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: unknown payload kind %s", ErrSerialization, p.kind)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	out, err := PayloadOf(v)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

func (p Payload) String() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", p.kind, err)
	}
	return string(b)
}
