package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// Read queries shared between the store's session reads and the in-transaction
// reads of docTx.

func getDocument(ctx context.Context, tx neo4j.ManagedTransaction, tenant, project, slug string) (*types.Document, error) {
	res, err := tx.Run(ctx, `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})
RETURN d{.*} AS d
`, map[string]any{"tenant": tenant, "project": project, "slug": slug})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("document %s: %w", slug, docsync.ErrNotFound)
	}
	props := recordMap(records[0], "d")
	return &types.Document{
		ID:         propUUID(props, "id"),
		Tenant:     tenant,
		Project:    project,
		Slug:       slug,
		Name:       propStr(props, "name"),
		ShortCode:  propStr(props, "short_code"),
		RefCounter: propInt(props, "ref_counter"),
	}, nil
}

func listSections(ctx context.Context, tx neo4j.ManagedTransaction, tenant, project, slug string) ([]*types.Section, error) {
	res, err := tx.Run(ctx, `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})-[:HAS_SECTION]->(s:Section)
RETURN s{.*} AS s
ORDER BY s.order, s.created_at
`, map[string]any{"tenant": tenant, "project": project, "slug": slug})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Section, 0, len(records))
	for _, rec := range records {
		props := recordMap(rec, "s")
		out = append(out, &types.Section{
			ID:           propUUID(props, "id"),
			DocumentSlug: slug,
			Name:         propStr(props, "name"),
			ShortCode:    propStr(props, "short_code"),
			Order:        propInt(props, "order"),
		})
	}
	return out, nil
}

func listRequirements(ctx context.Context, tx neo4j.ManagedTransaction, tenant, project, slug string, includeDeleted bool) ([]*types.Requirement, error) {
	res, err := tx.Run(ctx, `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})-[:HAS_REQUIREMENT]->(r:Requirement)
WHERE $include_deleted OR NOT coalesce(r.deleted, false)
OPTIONAL MATCH (r)-[:IN_SECTION]->(s:Section)
RETURN r{.*} AS r, s.id AS section_id
ORDER BY r.created_at, r.ref
`, map[string]any{"tenant": tenant, "project": project, "slug": slug, "include_deleted": includeDeleted})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Requirement, 0, len(records))
	for _, rec := range records {
		props := recordMap(rec, "r")
		out = append(out, &types.Requirement{
			ID:           propUUID(props, "id"),
			DocumentSlug: slug,
			Ref:          propStr(props, "ref"),
			Text:         propStr(props, "text"),
			Pattern:      propStr(props, "pattern"),
			Verification: propStr(props, "verification"),
			SectionID:    recordUUIDPtr(rec, "section_id"),
			Deleted:      propBool(props, "deleted"),
		})
	}
	return out, nil
}

func listInfos(ctx context.Context, tx neo4j.ManagedTransaction, tenant, project, slug string, includeDeleted bool) ([]*types.InfoBlock, error) {
	res, err := tx.Run(ctx, `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})-[:OWNS]->(d:Document {slug: $slug})-[:HAS_INFO]->(i:Info)
WHERE $include_deleted OR NOT coalesce(i.deleted, false)
OPTIONAL MATCH (i)-[:IN_SECTION]->(s:Section)
RETURN i{.*} AS i, s.id AS section_id
ORDER BY i.created_at, i.ref
`, map[string]any{"tenant": tenant, "project": project, "slug": slug, "include_deleted": includeDeleted})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*types.InfoBlock, 0, len(records))
	for _, rec := range records {
		props := recordMap(rec, "i")
		out = append(out, &types.InfoBlock{
			ID:           propUUID(props, "id"),
			DocumentSlug: slug,
			Ref:          propStr(props, "ref"),
			Title:        propStr(props, "title"),
			Text:         propStr(props, "text"),
			SectionID:    recordUUIDPtr(rec, "section_id"),
			Deleted:      propBool(props, "deleted"),
		})
	}
	return out, nil
}

// listProjectRefs walks both document-owned entities and legacy project-level
// entities, hence the 0..1 OWNS hop.
func listProjectRefs(ctx context.Context, tx neo4j.ManagedTransaction, tenant, project string, kind types.EntityKind, includeDeleted bool) ([]docsync.RefEntry, error) {
	label, rel := kindLabel(kind)
	query := fmt.Sprintf(`
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})
MATCH (p)-[:OWNS*0..1]->()-[:%s]->(n:%s)
WHERE $include_deleted OR NOT coalesce(n.deleted, false)
RETURN n.id AS id, n.ref AS ref, coalesce(n.deleted, false) AS deleted
ORDER BY n.created_at, n.id
`, rel, label)
	res, err := tx.Run(ctx, query, map[string]any{
		"tenant": tenant, "project": project, "include_deleted": includeDeleted,
	})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]docsync.RefEntry, 0, len(records))
	for _, rec := range records {
		id, _ := rec.Get("id")
		ref, _ := rec.Get("ref")
		deleted, _ := rec.Get("deleted")
		entityID, _ := uuid.Parse(asString(id))
		out = append(out, docsync.RefEntry{
			EntityID: entityID,
			Ref:      asString(ref),
			Deleted:  asBool(deleted),
		})
	}
	return out, nil
}

func kindLabel(kind types.EntityKind) (label, rel string) {
	if kind == types.KindInfo {
		return "Info", "HAS_INFO"
	}
	return "Requirement", "HAS_REQUIREMENT"
}

// ---- record decoding ----

func recordMap(rec *neo4j.Record, key string) map[string]any {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

func recordUUIDPtr(rec *neo4j.Record, key string) *uuid.UUID {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	id, err := uuid.Parse(asString(v))
	if err != nil {
		return nil
	}
	return &id
}

func propStr(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func propInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func propBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func propUUID(m map[string]any, key string) uuid.UUID {
	id, _ := uuid.Parse(propStr(m, key))
	return id
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
