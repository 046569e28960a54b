package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// docTx adapts one managed write transaction to docsync.Tx.
type docTx struct {
	ctx     context.Context
	tx      neo4j.ManagedTransaction
	tenant  string
	project string
}

var _ docsync.Tx = (*docTx)(nil)

func (t *docTx) GetDocument(slug string) (*types.Document, error) {
	return getDocument(t.ctx, t.tx, t.tenant, t.project, slug)
}

func (t *docTx) ListSections(slug string) ([]*types.Section, error) {
	return listSections(t.ctx, t.tx, t.tenant, t.project, slug)
}

func (t *docTx) ListRequirements(slug string, includeDeleted bool) ([]*types.Requirement, error) {
	return listRequirements(t.ctx, t.tx, t.tenant, t.project, slug, includeDeleted)
}

func (t *docTx) ListInfos(slug string, includeDeleted bool) ([]*types.InfoBlock, error) {
	return listInfos(t.ctx, t.tx, t.tenant, t.project, slug, includeDeleted)
}

func (t *docTx) ListProjectRefs(kind types.EntityKind, includeDeleted bool) ([]docsync.RefEntry, error) {
	return listProjectRefs(t.ctx, t.tx, t.tenant, t.project, kind, includeDeleted)
}

func (t *docTx) run(query string, params map[string]any) (neo4j.ResultWithContext, error) {
	if params == nil {
		params = map[string]any{}
	}
	params["tenant"] = t.tenant
	params["project"] = t.project
	return t.tx.Run(t.ctx, query, params)
}

// runExpectOne runs a statement that returns one row when its target exists
// and maps an empty result to ErrNotFound.
func (t *docTx) runExpectOne(query string, params map[string]any, what string) error {
	res, err := t.run(query, params)
	if err != nil {
		return err
	}
	records, err := res.Collect(t.ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s: %w", what, docsync.ErrNotFound)
	}
	return nil
}

func (t *docTx) CreateSection(slug string, sec *types.Section) error {
	return t.runExpectOne(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})
CREATE (s:Section {
  id: $id, name: $name, short_code: $short_code, order: $order, created_at: timestamp()
})
MERGE (d)-[:HAS_SECTION]->(s)
RETURN s.id
`, map[string]any{
		"slug":       slug,
		"id":         sec.ID.String(),
		"name":       sec.Name,
		"short_code": sec.ShortCode,
		"order":      int64(sec.Order),
	}, fmt.Sprintf("document %s", slug))
}

func (t *docTx) UpdateSection(sec *types.Section) error {
	return t.runExpectOne(`
MATCH (s:Section {id: $id})
SET s.name = $name, s.short_code = $short_code, s.order = $order
RETURN s.id
`, map[string]any{
		"id":         sec.ID.String(),
		"name":       sec.Name,
		"short_code": sec.ShortCode,
		"order":      int64(sec.Order),
	}, fmt.Sprintf("section %s", sec.ID))
}

func (t *docTx) DeleteSection(id uuid.UUID) error {
	return t.runExpectOne(`
MATCH (s:Section {id: $id})
WITH s, s.id AS sid
DETACH DELETE s
RETURN sid
`, map[string]any{"id": id.String()}, fmt.Sprintf("section %s", id))
}

func (t *docTx) CreateRequirement(slug string, r *types.Requirement) error {
	var err error
	if slug == "" {
		// Legacy project-level requirement, no owning document.
		err = t.runExpectOne(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})
CREATE (r:Requirement {
  id: $id, ref: $ref, text: $text, pattern: $pattern, verification: $verification,
  deleted: false, created_at: timestamp()
})
MERGE (p)-[:HAS_REQUIREMENT]->(r)
RETURN r.id
`, requirementParams(r), fmt.Sprintf("project %s", t.project))
	} else {
		params := requirementParams(r)
		params["slug"] = slug
		err = t.runExpectOne(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})
CREATE (r:Requirement {
  id: $id, ref: $ref, text: $text, pattern: $pattern, verification: $verification,
  deleted: false, created_at: timestamp()
})
MERGE (d)-[:HAS_REQUIREMENT]->(r)
RETURN r.id
`, params, fmt.Sprintf("document %s", slug))
	}
	if err != nil {
		return err
	}
	return t.setSection("Requirement", r.ID, r.SectionID)
}

func (t *docTx) UpdateRequirement(r *types.Requirement) error {
	params := requirementParams(r)
	params["deleted"] = r.Deleted
	if err := t.runExpectOne(`
MATCH (r:Requirement {id: $id})
SET r.ref = $ref, r.text = $text, r.pattern = $pattern,
    r.verification = $verification, r.deleted = $deleted
RETURN r.id
`, params, fmt.Sprintf("requirement %s", r.ID)); err != nil {
		return err
	}
	return t.setSection("Requirement", r.ID, r.SectionID)
}

func (t *docTx) SoftDeleteRequirement(id uuid.UUID) error {
	return t.runExpectOne(`
MATCH (r:Requirement {id: $id})
SET r.deleted = true
RETURN r.id
`, map[string]any{"id": id.String()}, fmt.Sprintf("requirement %s", id))
}

func (t *docTx) CreateInfo(slug string, in *types.InfoBlock) error {
	var err error
	if slug == "" {
		err = t.runExpectOne(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})
CREATE (i:Info {
  id: $id, ref: $ref, title: $title, text: $text, deleted: false, created_at: timestamp()
})
MERGE (p)-[:HAS_INFO]->(i)
RETURN i.id
`, infoParams(in), fmt.Sprintf("project %s", t.project))
	} else {
		params := infoParams(in)
		params["slug"] = slug
		err = t.runExpectOne(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})
CREATE (i:Info {
  id: $id, ref: $ref, title: $title, text: $text, deleted: false, created_at: timestamp()
})
MERGE (d)-[:HAS_INFO]->(i)
RETURN i.id
`, params, fmt.Sprintf("document %s", slug))
	}
	if err != nil {
		return err
	}
	return t.setSection("Info", in.ID, in.SectionID)
}

func (t *docTx) UpdateInfo(in *types.InfoBlock) error {
	params := infoParams(in)
	params["deleted"] = in.Deleted
	if err := t.runExpectOne(`
MATCH (i:Info {id: $id})
SET i.ref = $ref, i.title = $title, i.text = $text, i.deleted = $deleted
RETURN i.id
`, params, fmt.Sprintf("info %s", in.ID)); err != nil {
		return err
	}
	return t.setSection("Info", in.ID, in.SectionID)
}

func (t *docTx) DeleteInfo(id uuid.UUID) error {
	return t.runExpectOne(`
MATCH (i:Info {id: $id})
WITH i, i.id AS iid
DETACH DELETE i
RETURN iid
`, map[string]any{"id": id.String()}, fmt.Sprintf("info %s", id))
}

func (t *docTx) UpdateRef(kind types.EntityKind, entityID uuid.UUID, newRef string) error {
	label, _ := kindLabel(kind)
	return t.runExpectOne(fmt.Sprintf(`
MATCH (n:%s {id: $id})
SET n.ref = $ref
RETURN n.id
`, label), map[string]any{"id": entityID.String(), "ref": newRef}, fmt.Sprintf("entity %s", entityID))
}

// AdvanceCounter bumps the scoped counter to max(current+1, min) so it can
// never fall behind a ref that was just allocated under it.
func (t *docTx) AdvanceCounter(scope docsync.CounterScope, min int) (int, error) {
	var query string
	params := map[string]any{"min": int64(min)}
	if scope.DocumentSlug == "" {
		query = `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})
SET p.ref_counter = CASE
  WHEN coalesce(p.ref_counter, 0) + 1 < $min THEN $min
  ELSE coalesce(p.ref_counter, 0) + 1
END
RETURN p.ref_counter AS v
`
	} else {
		query = `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})
SET d.ref_counter = CASE
  WHEN coalesce(d.ref_counter, 0) + 1 < $min THEN $min
  ELSE coalesce(d.ref_counter, 0) + 1
END
RETURN d.ref_counter AS v
`
		params["slug"] = scope.DocumentSlug
	}

	res, err := t.run(query, params)
	if err != nil {
		return 0, err
	}
	records, err := res.Collect(t.ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("counter scope %s: %w", scope.DocumentSlug, docsync.ErrNotFound)
	}
	v, _ := records[0].Get("v")
	n, _ := v.(int64)
	return int(n), nil
}

func (t *docTx) LiveRefExists(kind types.EntityKind, ref string) (bool, error) {
	label, rel := kindLabel(kind)
	res, err := t.run(fmt.Sprintf(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})
MATCH (p)-[:OWNS*0..1]->()-[:%s]->(n:%s {ref: $ref})
WHERE NOT coalesce(n.deleted, false)
RETURN count(n) > 0 AS taken
`, rel, label), map[string]any{"ref": ref})
	if err != nil {
		return false, err
	}
	records, err := res.Collect(t.ctx)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	taken, _ := records[0].Get("taken")
	return asBool(taken), nil
}

// setSection replaces the single IN_SECTION edge. A nil section detaches.
func (t *docTx) setSection(label string, entityID uuid.UUID, sectionID *uuid.UUID) error {
	res, err := t.run(fmt.Sprintf(`
MATCH (n:%s {id: $id})-[rel:IN_SECTION]->()
DELETE rel
`, label), map[string]any{"id": entityID.String()})
	if err != nil {
		return err
	}
	if _, err := res.Consume(t.ctx); err != nil {
		return err
	}
	if sectionID == nil {
		return nil
	}
	return t.runExpectOne(fmt.Sprintf(`
MATCH (n:%s {id: $id})
MATCH (s:Section {id: $section_id})
MERGE (n)-[:IN_SECTION]->(s)
RETURN s.id
`, label), map[string]any{
		"id":         entityID.String(),
		"section_id": sectionID.String(),
	}, fmt.Sprintf("section %s", sectionID))
}

func requirementParams(r *types.Requirement) map[string]any {
	return map[string]any{
		"id":           r.ID.String(),
		"ref":          r.Ref,
		"text":         r.Text,
		"pattern":      r.Pattern,
		"verification": r.Verification,
	}
}

func infoParams(in *types.InfoBlock) map[string]any {
	return map[string]any{
		"id":    in.ID.String(),
		"ref":   in.Ref,
		"title": in.Title,
		"text":  in.Text,
	}
}
