package blockchain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestRecordCanonicalIgnoresInsertionOrder(t *testing.T) {
	a := map[string]Payload{}
	a["to"] = Text("bob")
	a["amount"] = Number(4)
	a["memo"] = Null()

	b := map[string]Payload{}
	b["memo"] = Null()
	b["amount"] = Int(4)
	b["to"] = Text("bob")

	ca, err := Record(a).Canonical()
	if err != nil {
		t.Fatalf("Canonical error: %v", err)
	}
	cb, err := Record(b).Canonical()
	if err != nil {
		t.Fatalf("Canonical error: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("expected identical canonical bytes, got %x vs %x", ca, cb)
	}
	if !Record(a).Equal(Record(b)) {
		t.Fatalf("expected records to be equal")
	}
}

func TestPayloadKindsEncodeDistinctly(t *testing.T) {
	payloads := []Payload{
		Null(),
		Text("4"),
		Number(4),
		Number(4.5),
		Bool(true),
		Bool(false),
		Record(map[string]Payload{"amount": Number(4)}),
		Record(map[string]Payload{"amount": Text("4")}),
	}

	seen := make(map[string]int)
	for i, p := range payloads {
		c, err := p.Canonical()
		if err != nil {
			t.Fatalf("payload %d (%s) Canonical error: %v", i, p, err)
		}
		if j, dup := seen[string(c)]; dup {
			t.Fatalf("payloads %d and %d share canonical bytes %x", j, i, c)
		}
		seen[string(c)] = i
	}
}

func TestPayloadSerializationFailures(t *testing.T) {
	tests := []struct {
		name string
		p    Payload
	}{
		{"nan", Number(math.NaN())},
		{"inf", Number(math.Inf(1))},
		{"nested record", Record(map[string]Payload{"inner": Record(map[string]Payload{"x": Int(1)})})},
		{"nan in record", Record(map[string]Payload{"x": Number(math.Inf(-1))})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.p.Canonical(); !errors.Is(err, ErrSerialization) {
				t.Fatalf("expected ErrSerialization, got %v", err)
			}
		})
	}
}

func TestPayloadOf(t *testing.T) {
	got, err := PayloadOf(map[string]any{"amount": 4, "note": "x", "ok": true, "none": nil})
	if err != nil {
		t.Fatalf("PayloadOf error: %v", err)
	}
	want := Record(map[string]Payload{
		"amount": Number(4),
		"note":   Text("x"),
		"ok":     Bool(true),
		"none":   Null(),
	})
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if v, ok := got.Get("amount"); !ok || !v.Equal(Int(4)) {
		t.Fatalf("Get(amount) = %s, %v", v, ok)
	}
	if _, ok := got.Get("missing"); ok {
		t.Fatalf("Get(missing) should fail")
	}

	typed, err := PayloadOf(map[string]uint8{"a": 1})
	if err != nil {
		t.Fatalf("PayloadOf typed map error: %v", err)
	}
	if typed.Kind() != KindRecord || len(typed.Fields()) != 1 {
		t.Fatalf("unexpected typed map payload %s", typed)
	}
}

func TestPayloadOfIntegerPrecision(t *testing.T) {
	for _, in := range []any{int64(1 << 53), int64(-(1 << 53)), uint64(1 << 53), json.Number("9007199254740992")} {
		if _, err := PayloadOf(in); err != nil {
			t.Errorf("PayloadOf(%#v) error: %v", in, err)
		}
	}
	for _, in := range []any{int64(1<<53 + 1), int64(math.MaxInt64), uint64(1<<63 + 1), uint64(math.MaxUint64), json.Number("-9007199254740993")} {
		if _, err := PayloadOf(in); !errors.Is(err, ErrSerialization) {
			t.Errorf("PayloadOf(%#v) expected ErrSerialization, got %v", in, err)
		}
	}
}

func TestPayloadOfRejectsUnsupported(t *testing.T) {
	inputs := []any{
		struct{}{},
		[]int{1, 2},
		map[int]string{1: "a"},
		map[string]any{"nested": map[string]any{"x": 1}},
		map[string]any{"list": []any{1}},
	}
	for _, in := range inputs {
		if _, err := PayloadOf(in); !errors.Is(err, ErrSerialization) {
			t.Errorf("PayloadOf(%#v) expected ErrSerialization, got %v", in, err)
		}
	}
}

func TestParsePayloadJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Payload
	}{
		{`{"amount": 8}`, Record(map[string]Payload{"amount": Int(8)})},
		{`"hello"`, Text("hello")},
		{`12.5`, Number(12.5)},
		{`null`, Null()},
		{`hello world`, Text("hello world")},
	}
	for _, tt := range tests {
		got, err := ParsePayloadJSON([]byte(tt.in))
		if err != nil {
			t.Fatalf("ParsePayloadJSON(%q) error: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParsePayloadJSON(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	malformed := []string{
		`{"a":{"b":1}}`,
		`{"amount":4`,
		`{amount:4}`,
		`["a"`,
		` "unterminated`,
		`9007199254740993`,
	}
	for _, in := range malformed {
		got, err := ParsePayloadJSON([]byte(in))
		if !errors.Is(err, ErrSerialization) {
			t.Errorf("ParsePayloadJSON(%q) = %s, %v; want ErrSerialization", in, got, err)
		}
	}
}

func TestPayloadJSON(t *testing.T) {
	p := Record(map[string]Payload{"b": Number(1.5), "a": Text("x")})
	b, err := p.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	if got, want := string(b), `{"a":"x","b":1.5}`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	var back Payload
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON error: %v", err)
	}
	if !back.Equal(p) {
		t.Fatalf("expected %s after decode, got %s", p, back)
	}
}
