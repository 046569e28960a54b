package docsync

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// FindDuplicates groups all live entities of one kind by ref and returns the
// groups that collide, ordered by ref. Read-only: it runs outside any
// transaction and tolerates eventually-consistent reads.
func (e *Engine) FindDuplicates(ctx context.Context, tenant, project string, kind types.EntityKind) ([]types.DuplicateGroup, error) {
	entries, err := e.store.ListProjectRefs(ctx, tenant, project, kind, false)
	if err != nil {
		return nil, fmt.Errorf("list project refs: %w", err)
	}
	return groupDuplicates(entries), nil
}

// FixDuplicates repairs every collision in one transaction per project: a
// crash mid-repair can never leave two entities sharing a ref. The first
// occurrence of each group (insertion order) keeps its ref; every subsequent
// occurrence is renumbered past the highest live suffix under the group's
// prefix.
func (e *Engine) FixDuplicates(ctx context.Context, tenant, project string, kind types.EntityKind) (*types.RepairResult, error) {
	result := &types.RepairResult{Changes: []types.RefChange{}}

	err := e.store.WithinTx(ctx, tenant, project, func(tx Tx) error {
		entries, err := tx.ListProjectRefs(kind, false)
		if err != nil {
			return fmt.Errorf("list project refs: %w", err)
		}

		groups := groupDuplicates(entries)
		if len(groups) == 0 {
			return nil
		}

		// Track live refs and the running max suffix per prefix so repairs
		// within one run cannot collide with each other.
		live := make(map[string]bool, len(entries))
		for _, en := range entries {
			live[en.Ref] = true
		}

		for _, g := range groups {
			prefix, _, ok := SplitRef(g.Ref)
			if !ok {
				prefix = g.Ref
			}
			next := maxSuffix(prefix, entries) + 1

			for _, id := range g.EntityIDs[1:] {
				for live[FormatRef(prefix, next)] {
					next++
				}
				newRef := FormatRef(prefix, next)
				if err := tx.UpdateRef(kind, id, newRef); err != nil {
					return fmt.Errorf("renumber %s -> %s: %w", g.Ref, newRef, err)
				}
				live[newRef] = true
				next++
				result.Changes = append(result.Changes, types.RefChange{
					EntityID: id,
					OldRef:   g.Ref,
					NewRef:   newRef,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Fixed = len(result.Changes)
	if result.Fixed > 0 {
		e.log.Info("duplicate refs repaired",
			"tenant", tenant, "project", project, "kind", string(kind), "fixed", result.Fixed)
	}
	return result, nil
}

// groupDuplicates keeps entity order stable (insertion order from the store)
// so the first occurrence of a group is deterministic.
func groupDuplicates(entries []RefEntry) []types.DuplicateGroup {
	byRef := make(map[string][]uuid.UUID)
	order := make([]string, 0)
	for _, en := range entries {
		if en.Deleted {
			continue
		}
		if _, ok := byRef[en.Ref]; !ok {
			order = append(order, en.Ref)
		}
		byRef[en.Ref] = append(byRef[en.Ref], en.EntityID)
	}

	groups := make([]types.DuplicateGroup, 0)
	for _, ref := range order {
		ids := byRef[ref]
		if len(ids) < 2 {
			continue
		}
		groups = append(groups, types.DuplicateGroup{
			Ref:       ref,
			Count:     len(ids),
			EntityIDs: ids,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Ref < groups[j].Ref })
	return groups
}
