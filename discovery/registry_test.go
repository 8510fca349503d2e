package discovery

import (
	"testing"

	"github.com/sparks-fm/sparks/models"
)

func TestRegistryIsolatesSessions(t *testing.T) {
	r := NewRegistry(Defaults{})

	a := r.ForSession("session-a")
	b := r.ForSession("session-b")
	if a == b {
		t.Fatal("Distinct sessions share a store")
	}

	if err := a.SetActiveSource(models.SourceSecondary); err != nil {
		t.Fatalf("SetActiveSource failed: %v", err)
	}
	if got := b.Snapshot().ActiveSource; got != models.SourcePrimary {
		t.Errorf("Session b saw session a's source switch: %q", got)
	}
}

func TestRegistryReturnsSameStoreForSameKey(t *testing.T) {
	r := NewRegistry(Defaults{})

	if r.ForSession("k") != r.ForSession("k") {
		t.Error("Repeated lookups returned different stores")
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Expected 1 live session, got %d", got)
	}
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry(Defaults{})

	first := r.ForSession("k")
	if err := first.SetLocation("Berlin"); err != nil {
		t.Fatalf("SetLocation failed: %v", err)
	}
	r.Drop("k")

	second := r.ForSession("k")
	if second == first {
		t.Error("Dropped session store was reused")
	}
	if got := second.Snapshot().Location; got == "Berlin" {
		t.Error("Dropped session state survived")
	}
}
