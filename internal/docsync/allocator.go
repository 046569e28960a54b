package docsync

import (
	"fmt"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// allocAttempts bounds the collision-retry loop. Exhausting it surfaces
// ErrAllocationExhausted instead of silently reusing or skipping a ref.
const allocAttempts = 5

// allocateRef produces the next free ref under prefix inside the current
// store transaction.
//
// The stored counter is a coarse per-document (or per-project) value while
// refs are logically scoped by prefix, so the counter alone can lag behind
// manually-created or import-seeded refs. The allocator therefore scans the
// live refs sharing the prefix and advances the counter to at least
// maxExistingSuffix+1 before formatting a candidate. A candidate that still
// collides (a concurrent allocation won the race) is retried with the next
// integer.
func allocateRef(tx Tx, kind types.EntityKind, prefix string, scope CounterScope) (string, error) {
	entries, err := tx.ListProjectRefs(kind, false)
	if err != nil {
		return "", fmt.Errorf("list refs for prefix %s: %w", prefix, err)
	}
	floor := maxSuffix(prefix, entries) + 1

	for attempt := 0; attempt < allocAttempts; attempt++ {
		n, err := tx.AdvanceCounter(scope, floor)
		if err != nil {
			return "", fmt.Errorf("advance counter: %w", err)
		}
		candidate := FormatRef(prefix, n)
		taken, err := tx.LiveRefExists(kind, candidate)
		if err != nil {
			return "", fmt.Errorf("check ref %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		floor = n + 1
	}
	return "", fmt.Errorf("%w: prefix %s", ErrAllocationExhausted, prefix)
}
