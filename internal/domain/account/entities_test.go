package account

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	mixed := "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	got, err := NormalizeAddress("  " + mixed + " ")
	if err != nil {
		t.Fatalf("NormalizeAddress err: %v", err)
	}
	if got != strings.ToLower(mixed) {
		t.Fatalf("got %q, want lower-cased %q", got, strings.ToLower(mixed))
	}

	for _, bad := range []string{
		"",
		"0x123",
		"AbCdEf0123456789aBcDeF0123456789AbCdEf0123",  // no prefix
		"0xZZCdEf0123456789aBcDeF0123456789AbCdEf01",  // non-hex
		"0xAbCdEf0123456789aBcDeF0123456789AbCdEf011", // 41 hex
	} {
		if _, err := NormalizeAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("NormalizeAddress(%q) err=%v, want ErrInvalidAddress", bad, err)
		}
	}
}

func TestNormalizeIdentityKey(t *testing.T) {
	got, err := NormalizeIdentityKey(" Alice@Example.COM ")
	if err != nil || got != "alice@example.com" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := NormalizeIdentityKey("   "); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("blank key err=%v, want ErrInvalidKey", err)
	}
	if _, err := NormalizeIdentityKey(strings.Repeat("a", 256)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("long key err=%v, want ErrInvalidKey", err)
	}
}
