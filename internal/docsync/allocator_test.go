package docsync

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// stubTx fakes just enough of Tx for allocator tests.
type stubTx struct {
	Tx
	entries []RefEntry
	counter int
	taken   map[string]bool
}

func (s *stubTx) ListProjectRefs(kind types.EntityKind, includeDeleted bool) ([]RefEntry, error) {
	return s.entries, nil
}

func (s *stubTx) AdvanceCounter(scope CounterScope, min int) (int, error) {
	v := s.counter + 1
	if v < min {
		v = min
	}
	s.counter = v
	return v, nil
}

func (s *stubTx) LiveRefExists(kind types.EntityKind, ref string) (bool, error) {
	return s.taken[ref], nil
}

func TestAllocateAdvancesPastExistingSuffix(t *testing.T) {
	// Counter lags behind an import-seeded ref under the same prefix.
	tx := &stubTx{
		entries: []RefEntry{{EntityID: uuid.New(), Ref: "SRD-FUN-007"}},
		counter: 2,
		taken:   map[string]bool{},
	}

	ref, err := allocateRef(tx, types.KindRequirement, "SRD-FUN", CounterScope{DocumentSlug: "srd"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ref != "SRD-FUN-008" {
		t.Fatalf("expected SRD-FUN-008, got %q", ref)
	}
	if tx.counter != 8 {
		t.Fatalf("counter should track the allocated value, got %d", tx.counter)
	}
}

func TestAllocateUsesCounterWhenAhead(t *testing.T) {
	tx := &stubTx{
		entries: []RefEntry{{EntityID: uuid.New(), Ref: "SRD-001"}},
		counter: 3,
		taken:   map[string]bool{},
	}

	ref, err := allocateRef(tx, types.KindRequirement, "SRD", CounterScope{DocumentSlug: "srd"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ref != "SRD-004" {
		t.Fatalf("expected SRD-004 from the counter, got %q", ref)
	}
}

func TestAllocateIgnoresSoftDeletedForFloor(t *testing.T) {
	tx := &stubTx{
		entries: []RefEntry{
			{EntityID: uuid.New(), Ref: "SRD-001"},
			{EntityID: uuid.New(), Ref: "SRD-009", Deleted: true},
		},
		taken: map[string]bool{},
	}

	ref, err := allocateRef(tx, types.KindRequirement, "SRD", CounterScope{DocumentSlug: "srd"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ref != "SRD-002" {
		t.Fatalf("soft-deleted suffix must not raise the floor, got %q", ref)
	}
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	// A concurrent writer took the first candidate between the counter
	// advance and the existence check.
	tx := &stubTx{
		counter: 0,
		taken:   map[string]bool{"SRD-001": true, "SRD-002": true},
	}

	ref, err := allocateRef(tx, types.KindRequirement, "SRD", CounterScope{DocumentSlug: "srd"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ref != "SRD-003" {
		t.Fatalf("expected retry to land on SRD-003, got %q", ref)
	}
}

func TestAllocateExhaustsAfterBoundedRetries(t *testing.T) {
	taken := map[string]bool{}
	for i := 1; i <= 20; i++ {
		taken[FormatRef("SRD", i)] = true
	}
	tx := &stubTx{taken: taken}

	_, err := allocateRef(tx, types.KindRequirement, "SRD", CounterScope{DocumentSlug: "srd"})
	if !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("expected ErrAllocationExhausted, got %v", err)
	}
}
