package cache

import (
	"strings"
	"testing"
)

func TestKey_String(t *testing.T) {
	a := Key{IDs: []string{"EW005251410US", "EW005251411US"}}
	b := Key{IDs: []string{"EW005251410US", "EW005251411US"}}
	reversed := Key{IDs: []string{"EW005251411US", "EW005251410US"}}

	if a.String() != b.String() {
		t.Error("equal keys should render identically")
	}
	if a.String() == reversed.String() {
		t.Error("order must be part of the key")
	}
	if !strings.HasPrefix(a.String(), KeyPrefix) {
		t.Errorf("key %q missing prefix %q", a.String(), KeyPrefix)
	}
	// prefix + 64 hex chars
	if got := len(a.String()); got != len(KeyPrefix)+64 {
		t.Errorf("key length = %d, want %d", got, len(KeyPrefix)+64)
	}
}

func TestKey_NoJoinAmbiguity(t *testing.T) {
	a := Key{IDs: []string{"AB", "C"}}
	b := Key{IDs: []string{"A", "BC"}}
	if a.String() == b.String() {
		t.Error("different chunks must not collide")
	}
}
