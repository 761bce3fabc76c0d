package fwf

import (
	"testing"

	"github.com/fwftable/fwftable/internal/common"
)

func TestParseDecimalInt64Valid(t *testing.T) {
	cases := map[string]int64{
		"   123": 123,
		"-42":    -42,
		"+7":     7,
		"0":      0,
		"00042":  42,
	}
	for in, want := range cases {
		got, err := ParseDecimalInt64([]byte(in))
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %d, want %d", in, got, want)
		}
	}
}

func TestParseDecimalInt64RejectsNonDigit(t *testing.T) {
	_, err := ParseDecimalInt64([]byte("12a"))
	assertParseError(t, err)
}

func TestParseDecimalInt64RejectsNoDigits(t *testing.T) {
	_, err := ParseDecimalInt64([]byte("   "))
	assertParseError(t, err)
}

func TestParseDecimalInt64RejectsSignOnly(t *testing.T) {
	_, err := ParseDecimalInt64([]byte("-"))
	assertParseError(t, err)
}

func TestParseDecimalInt64RejectsOverflow(t *testing.T) {
	_, err := ParseDecimalInt64([]byte("99999999999999999999"))
	assertParseError(t, err)
}

func TestParseDecimalInt32RangeCheck(t *testing.T) {
	if _, err := ParseDecimalInt32([]byte("2147483648")); err == nil {
		t.Fatal("expected an overflow error for int32")
	}
	v, err := ParseDecimalInt32([]byte("2147483647"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2147483647 {
		t.Fatalf("got %d", v)
	}
}

func assertParseError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a ParseError")
	}
	pe, ok := err.(*common.ParseError)
	if !ok {
		t.Fatalf("expected *common.ParseError, got %T", err)
	}
	if pe.Err == nil {
		t.Fatal("expected a wrapped cause")
	}
}
