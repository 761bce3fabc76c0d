package common

import (
	"errors"
	"testing"
)

func TestErrorFormatsWithAndWithoutCause(t *testing.T) {
	bare := New(KindConfig, "bad field")
	if bare.Error() != "ConfigError: bad field" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}

	cause := errors.New("disk full")
	wrapped := Wrap(KindIO, "write chunk", cause)
	if wrapped.Error() != "IoError: write chunk: disk full" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to see through Unwrap to the cause")
	}
}

func TestKindStringCoversEveryKind(t *testing.T) {
	kinds := []Kind{KindConfig, KindIO, KindFilter, KindParse, KindState, KindOutOfRange}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		s := k.String()
		if s == "UnknownError" {
			t.Fatalf("Kind %d stringified to UnknownError", k)
		}
		seen[s] = true
	}
	if len(seen) != len(kinds) {
		t.Fatal("expected every Kind to stringify distinctly")
	}
}

func TestParseErrorIncludesLineAndRaw(t *testing.T) {
	pe := &ParseError{LineNo: 42, Raw: []byte("abc"), Err: New(KindParse, "non-digit byte")}
	msg := pe.Error()
	if msg != `ParseError: line 42: "abc": ParseError: non-digit byte` {
		t.Fatalf("unexpected message: %q", msg)
	}
	if !errors.Is(pe, pe.Err) {
		t.Fatal("expected errors.Is to see through Unwrap")
	}
}
