package docsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// Reconcile diffs a freshly parsed document against the persisted state for
// the same document and applies the minimal create/update/delete set. All
// three passes (sections, requirements, infos) share one store transaction:
// partial application is never observable.
//
// Reconciling the same snapshot twice against an already-synced document
// produces zero mutations on the second pass.
func (e *Engine) Reconcile(ctx context.Context, tenant, project, slug string, parsed *types.ParsedDocument) (*types.SyncResult, error) {
	if parsed == nil {
		return nil, fmt.Errorf("docsync: nil parse result")
	}

	result := &types.SyncResult{}
	err := e.store.WithinTx(ctx, tenant, project, func(tx Tx) error {
		doc, err := tx.GetDocument(slug)
		if err != nil {
			return fmt.Errorf("load document %s: %w", slug, err)
		}

		secByName, err := e.syncSections(tx, doc, parsed.Sections, result)
		if err != nil {
			return err
		}
		if err := e.syncRequirements(tx, tenant, project, doc, parsed.Requirements, secByName, result); err != nil {
			return err
		}
		if err := e.syncInfos(tx, tenant, project, doc, parsed.Infos, secByName, result); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("document reconciled",
		"tenant", tenant,
		"project", project,
		"document_slug", slug,
		"synced_sections", result.SyncedSections,
		"synced_requirements", result.SyncedRequirements,
		"synced_infos", result.SyncedInfos,
	)
	return result, nil
}

// syncSections matches parsed headings against persisted sections by exact
// name, falling back to short code when both sides carry one. Order is always
// rewritten to the parsed position. Sections absent from the parse are
// hard-deleted: they carry no external references.
func (e *Engine) syncSections(tx Tx, doc *types.Document, parsed []types.ParsedSection, result *types.SyncResult) (map[string]*types.Section, error) {
	existing, err := tx.ListSections(doc.Slug)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	byName := make(map[string]*types.Section, len(existing))
	byCode := make(map[string]*types.Section)
	for _, s := range existing {
		byName[s.Name] = s
		if s.ShortCode != "" {
			byCode[s.ShortCode] = s
		}
	}

	matched := make(map[uuid.UUID]bool, len(parsed))
	secByName := make(map[string]*types.Section, len(parsed))

	for i, ps := range parsed {
		sec := byName[ps.Name]
		if sec == nil && ps.ShortCode != "" {
			sec = byCode[ps.ShortCode]
		}
		if sec != nil && matched[sec.ID] {
			sec = nil
		}

		if sec == nil {
			sec = &types.Section{
				ID:           uuid.New(),
				DocumentSlug: doc.Slug,
				Name:         ps.Name,
				ShortCode:    ps.ShortCode,
				Order:        i,
			}
			if err := tx.CreateSection(doc.Slug, sec); err != nil {
				return nil, fmt.Errorf("create section %s: %w", ps.Name, err)
			}
			result.SyncedSections++
		} else {
			oldPrefix := ResolvePrefix(doc.Project, doc, sec)
			changed := false
			if sec.Name != ps.Name {
				sec.Name = ps.Name
				changed = true
			}
			if ps.ShortCode != "" && sec.ShortCode != ps.ShortCode {
				sec.ShortCode = ps.ShortCode
				changed = true
			}
			if sec.Order != i {
				sec.Order = i
				changed = true
			}
			if changed {
				if err := tx.UpdateSection(sec); err != nil {
					return nil, fmt.Errorf("update section %s: %w", sec.Name, err)
				}
				result.SyncedSections++
				newPrefix := ResolvePrefix(doc.Project, doc, sec)
				if newPrefix != oldPrefix {
					if err := e.rewriteSectionPrefix(tx, doc, sec, oldPrefix, newPrefix); err != nil {
						return nil, err
					}
				}
			}
		}
		matched[sec.ID] = true
		secByName[ps.Name] = sec
	}

	for _, s := range existing {
		if matched[s.ID] {
			continue
		}
		if err := tx.DeleteSection(s.ID); err != nil {
			return nil, fmt.Errorf("delete section %s: %w", s.Name, err)
		}
		result.SyncedSections++
	}

	return secByName, nil
}

// rewriteSectionPrefix bulk-rewrites the refs of a renamed section's live
// entities, preserving each numeric suffix. Creation and rewrite share
// ResolvePrefix, so renumbering never depends on call site.
func (e *Engine) rewriteSectionPrefix(tx Tx, doc *types.Document, sec *types.Section, oldPrefix, newPrefix string) error {
	reqs, err := tx.ListRequirements(doc.Slug, false)
	if err != nil {
		return fmt.Errorf("list requirements for prefix rewrite: %w", err)
	}
	for _, r := range reqs {
		if r.SectionID == nil || *r.SectionID != sec.ID {
			continue
		}
		if p, n, ok := SplitRef(r.Ref); ok && p == oldPrefix {
			if err := tx.UpdateRef(types.KindRequirement, r.ID, FormatRef(newPrefix, n)); err != nil {
				return fmt.Errorf("rewrite ref %s: %w", r.Ref, err)
			}
		}
	}
	infos, err := tx.ListInfos(doc.Slug, false)
	if err != nil {
		return fmt.Errorf("list infos for prefix rewrite: %w", err)
	}
	for _, in := range infos {
		if in.SectionID == nil || *in.SectionID != sec.ID {
			continue
		}
		if p, n, ok := SplitRef(in.Ref); ok && p == oldPrefix {
			if err := tx.UpdateRef(types.KindInfo, in.ID, FormatRef(newPrefix, n)); err != nil {
				return fmt.Errorf("rewrite ref %s: %w", in.Ref, err)
			}
		}
	}
	e.log.Info("section prefix rewritten", "old_prefix", oldPrefix, "new_prefix", newPrefix)
	return nil
}

func (e *Engine) syncRequirements(tx Tx, tenant, project string, doc *types.Document, parsed []types.ParsedRequirement, secByName map[string]*types.Section, result *types.SyncResult) error {
	existing, err := tx.ListRequirements(doc.Slug, true)
	if err != nil {
		return fmt.Errorf("list requirements: %w", err)
	}

	byRef := make(map[string]*types.Requirement, len(existing))
	for _, r := range existing {
		if _, ok := byRef[r.Ref]; !ok {
			byRef[r.Ref] = r
		}
	}

	seen := make(map[string]bool, len(parsed))
	scope := CounterScope{Tenant: tenant, Project: project, DocumentSlug: doc.Slug}

	for _, pr := range parsed {
		sec, secID := e.resolveTargetSection(pr.SectionName, secByName, pr.Line)

		if pr.Ref != "" {
			if ex := byRef[pr.Ref]; ex != nil {
				seen[ex.Ref] = true
				changed := false
				if ex.Text != pr.Text {
					ex.Text = pr.Text
					changed = true
				}
				if ex.Pattern != pr.Pattern {
					ex.Pattern = pr.Pattern
					changed = true
				}
				if ex.Verification != pr.Verification {
					ex.Verification = pr.Verification
					changed = true
				}
				if !sameSectionID(ex.SectionID, secID) {
					ex.SectionID = secID
					changed = true
				}
				if ex.Deleted {
					// The ref reappeared in the text: resurrect it.
					ex.Deleted = false
					changed = true
				}
				if changed {
					if err := tx.UpdateRequirement(ex); err != nil {
						return fmt.Errorf("update requirement %s: %w", ex.Ref, err)
					}
					result.SyncedRequirements++
				}
				continue
			}
		}

		ref := pr.Ref
		if ref != "" {
			taken, err := tx.LiveRefExists(types.KindRequirement, ref)
			if err != nil {
				return fmt.Errorf("check ref %s: %w", ref, err)
			}
			if taken {
				// The authored ref is live in another document of this
				// project. Allocate the next free number under the authored
				// prefix instead of violating project-wide uniqueness.
				prefix, _, ok := SplitRef(ref)
				if !ok {
					prefix = ResolvePrefix(project, doc, sec)
				}
				ref, err = allocateRef(tx, types.KindRequirement, prefix, scope)
				if err != nil {
					return err
				}
				e.log.Warn("authored ref already in use, reallocated",
					"authored_ref", pr.Ref, "allocated_ref", ref, "line", pr.Line)
			}
		} else {
			prefix := ResolvePrefix(project, doc, sec)
			ref, err = allocateRef(tx, types.KindRequirement, prefix, scope)
			if err != nil {
				return err
			}
		}

		r := &types.Requirement{
			ID:           uuid.New(),
			DocumentSlug: doc.Slug,
			Ref:          ref,
			Text:         pr.Text,
			Pattern:      pr.Pattern,
			Verification: pr.Verification,
			SectionID:    secID,
		}
		if err := tx.CreateRequirement(doc.Slug, r); err != nil {
			return fmt.Errorf("create requirement %s: %w", ref, err)
		}
		seen[ref] = true
		result.SyncedRequirements++
	}

	for _, ex := range existing {
		if ex.Deleted || seen[ex.Ref] {
			continue
		}
		if err := tx.SoftDeleteRequirement(ex.ID); err != nil {
			return fmt.Errorf("soft-delete requirement %s: %w", ex.Ref, err)
		}
		result.SyncedRequirements++
	}

	return nil
}

func (e *Engine) syncInfos(tx Tx, tenant, project string, doc *types.Document, parsed []types.ParsedInfo, secByName map[string]*types.Section, result *types.SyncResult) error {
	existing, err := tx.ListInfos(doc.Slug, true)
	if err != nil {
		return fmt.Errorf("list infos: %w", err)
	}

	byRef := make(map[string]*types.InfoBlock, len(existing))
	for _, in := range existing {
		if _, ok := byRef[in.Ref]; !ok {
			byRef[in.Ref] = in
		}
	}

	docPrefix := ResolvePrefix(project, doc, nil)
	seen := make(map[string]bool, len(parsed))

	for idx, pi := range parsed {
		_, secID := e.resolveTargetSection(pi.SectionName, secByName, pi.Line)

		ref := pi.Ref
		if ref == "" {
			ref = pi.ID
		}
		if ref == "" {
			// Position-stable synthesized ref: the same block in the same
			// parse order gets the same ref on every save.
			ref = fmt.Sprintf("%s-INFO-%03d", docPrefix, idx+1)
		}
		seen[ref] = true

		if ex := byRef[ref]; ex != nil {
			changed := false
			if ex.Title != pi.Title {
				ex.Title = pi.Title
				changed = true
			}
			if ex.Text != pi.Text {
				ex.Text = pi.Text
				changed = true
			}
			if !sameSectionID(ex.SectionID, secID) {
				ex.SectionID = secID
				changed = true
			}
			if ex.Deleted {
				ex.Deleted = false
				changed = true
			}
			if changed {
				if err := tx.UpdateInfo(ex); err != nil {
					return fmt.Errorf("update info %s: %w", ex.Ref, err)
				}
				result.SyncedInfos++
			}
			continue
		}

		in := &types.InfoBlock{
			ID:           uuid.New(),
			DocumentSlug: doc.Slug,
			Ref:          ref,
			Title:        pi.Title,
			Text:         pi.Text,
			SectionID:    secID,
		}
		if err := tx.CreateInfo(doc.Slug, in); err != nil {
			return fmt.Errorf("create info %s: %w", ref, err)
		}
		result.SyncedInfos++
	}

	// Info blocks are not traceability targets, so absence means hard delete.
	for _, ex := range existing {
		if seen[ex.Ref] {
			continue
		}
		if err := tx.DeleteInfo(ex.ID); err != nil {
			return fmt.Errorf("delete info %s: %w", ex.Ref, err)
		}
		result.SyncedInfos++
	}

	return nil
}

// resolveTargetSection maps a parsed block's section name to the section
// entity built during the section pass. A name with no match keeps the entity
// unsectioned rather than dropping it.
func (e *Engine) resolveTargetSection(name string, secByName map[string]*types.Section, line int) (*types.Section, *uuid.UUID) {
	if name == "" {
		return nil, nil
	}
	sec := secByName[name]
	if sec == nil {
		e.log.Warn("no matching section for block, keeping unsectioned", "section_name", name, "line", line)
		return nil, nil
	}
	id := sec.ID
	return sec, &id
}

func sameSectionID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
