package utils

import (
	"strings"
	"testing"
)

func TestNewBookingReferenceShape(t *testing.T) {
	ref := NewBookingReference()
	if !strings.HasPrefix(ref, "BK-") {
		t.Fatalf("ref %q missing BK- prefix", ref)
	}
	suffix := strings.TrimPrefix(ref, "BK-")
	if len(suffix) != 8 {
		t.Fatalf("suffix %q length = %d, want 8", suffix, len(suffix))
	}
	for _, r := range suffix {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			t.Fatalf("ref %q contains non-hex rune %q", ref, r)
		}
	}
}

func TestNewBookingReferenceUniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		ref := NewBookingReference()
		if seen[ref] {
			t.Fatalf("duplicate reference %q after %d draws", ref, i)
		}
		seen[ref] = true
	}
}
