package common

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestNewSessionID_EntropyAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewSessionID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != SessionIDBytes*2 {
			t.Fatalf("expected %d hex chars, got %d", SessionIDBytes*2, len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestErrTokenExpired_IsInvalidToken(t *testing.T) {
	if !errors.Is(ErrTokenExpired, ErrInvalidToken) {
		t.Fatal("ErrTokenExpired must match ErrInvalidToken")
	}
	if errors.Is(ErrInvalidToken, ErrTokenExpired) {
		t.Fatal("ErrInvalidToken must not match ErrTokenExpired")
	}
}
