package logging

import "testing"

func TestNewDefaultsToInfoLevel(t *testing.T) {
	log, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "not-a-level"}); err == nil {
		t.Fatal("expected an error for an invalid level")
	}
}

func TestNewDevelopmentConfig(t *testing.T) {
	log, err := New(Config{Development: true, Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestOrNopHandlesNil(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) must never return nil")
	}
	log := Nop()
	if OrNop(log) != log {
		t.Fatal("OrNop must return the given logger unchanged when non-nil")
	}
}
