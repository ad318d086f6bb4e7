package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("scan_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "scan_") {
		t.Fatalf("missing prefix: %s", id)
	}
	if len(id) <= len("scan_") {
		t.Fatalf("prefix only, no id body: %s", id)
	}
}
