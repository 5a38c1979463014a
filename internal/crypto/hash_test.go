package crypto

import (
	"errors"
	"testing"
)

func TestSum256KnownVectors(t *testing.T) {
	tests := []struct {
		algo Algorithm
		in   string
		want string
	}{
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{Keccak256, "", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{Blake2b, "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algo)+"/"+tt.in, func(t *testing.T) {
			sum, err := Sum256(tt.algo, []byte(tt.in))
			if err != nil {
				t.Fatalf("Sum256 error: %v", err)
			}
			if got := Hex32(sum); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSum256EmptyAlgorithmIsDefault(t *testing.T) {
	a, _ := Sum256("", []byte("x"))
	b, _ := Sum256(DefaultAlgorithm, []byte("x"))
	if a != b {
		t.Fatalf("empty algorithm should hash like %s", DefaultAlgorithm)
	}
}

func TestSum256Unknown(t *testing.T) {
	if _, err := Sum256("md5", nil); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range Algorithms() {
		got, err := ParseAlgorithm(" " + string(a) + " ")
		if err != nil || got != a {
			t.Fatalf("ParseAlgorithm(%q) = %q, %v", a, got, err)
		}
		if !got.Valid() {
			t.Fatalf("%q should be valid", got)
		}
	}
	if got, _ := ParseAlgorithm(""); got != SHA256 {
		t.Fatalf("expected empty to parse as sha256, got %q", got)
	}
	if _, err := ParseAlgorithm("sha1"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestIsHex(t *testing.T) {
	sum, _ := Sum256(SHA256, []byte("abc"))
	if !IsHex(Hex32(sum)) {
		t.Fatalf("digest hex should be recognised")
	}
	if IsHex("0") || IsHex("ZZ"+Hex32(sum)[2:]) {
		t.Fatalf("unexpected hex acceptance")
	}
}
