// Package graph persists documents, sections, requirements and info blocks in
// Neo4j. The graph shape is
//
//	(Tenant)-[:OWNS]->(Project)-[:OWNS]->(Document)
//	(Document)-[:HAS_SECTION]->(Section)
//	(Document)-[:HAS_REQUIREMENT]->(Requirement)-[:IN_SECTION]->(Section)
//	(Document)-[:HAS_INFO]->(Info)-[:IN_SECTION]->(Section)
//
// Ref counters live on the Document node (ref_counter) and on the Project
// node for document-less legacy requirements.
package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
	"github.com/specbridge/specbridge-backend/internal/platform/neo4jdb"
)

type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

var _ docsync.Store = (*Store)(nil)

func NewStore(client *neo4jdb.Client, log *logger.Logger) *Store {
	return &Store{client: client, log: log.With("store", "Neo4jDocStore")}
}

// EnsureSchema creates uniqueness constraints and lookup indexes. Best-effort:
// restricted users may not hold schema privileges, so failures only warn.
func (s *Store) EnsureSchema(ctx context.Context) {
	stmts := []string{
		`CREATE CONSTRAINT section_id_unique IF NOT EXISTS FOR (n:Section) REQUIRE n.id IS UNIQUE`,
		`CREATE CONSTRAINT requirement_id_unique IF NOT EXISTS FOR (n:Requirement) REQUIRE n.id IS UNIQUE`,
		`CREATE CONSTRAINT info_id_unique IF NOT EXISTS FOR (n:Info) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX requirement_ref_idx IF NOT EXISTS FOR (n:Requirement) ON (n.ref)`,
		`CREATE INDEX info_ref_idx IF NOT EXISTS FOR (n:Info) ON (n.ref)`,
		`CREATE INDEX document_slug_idx IF NOT EXISTS FOR (n:Document) ON (n.slug)`,
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	for _, stmt := range stmts {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

func (s *Store) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

// EnsureDocument provisions the document node on first save, creating the
// owning tenant and project as needed. Later saves refresh name and short
// code when the incoming values are non-empty.
func (s *Store) EnsureDocument(ctx context.Context, tenant, project string, doc *types.Document) (*types.Document, error) {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := ensureProject(ctx, tx, tenant, project); err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx, `
MATCH (t:Tenant {id: $tenant})-[:OWNS]->(p:Project {slug: $project})
MERGE (p)-[:OWNS]->(d:Document {slug: $slug})
ON CREATE SET d.id = $id, d.tenant = $tenant, d.project = $project,
              d.name = CASE WHEN $name = '' THEN $slug ELSE $name END,
              d.short_code = $short_code,
              d.ref_counter = 0, d.created_at = timestamp()
ON MATCH SET d.name = CASE WHEN $name = '' THEN d.name ELSE $name END,
             d.short_code = CASE WHEN $short_code = '' THEN d.short_code ELSE $short_code END
RETURN d{.*} AS d
`, map[string]any{
			"tenant": tenant, "project": project, "slug": doc.Slug,
			"id": uuid.New().String(), "name": doc.Name, "short_code": doc.ShortCode,
		})
		if err != nil {
			return nil, fmt.Errorf("ensure document: %w", err)
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("ensure document %s: no row returned", doc.Slug)
		}
		props := recordMap(records[0], "d")
		return &types.Document{
			ID:         propUUID(props, "id"),
			Tenant:     tenant,
			Project:    project,
			Slug:       doc.Slug,
			Name:       propStr(props, "name"),
			ShortCode:  propStr(props, "short_code"),
			RefCounter: propInt(props, "ref_counter"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*types.Document), nil
}

func (s *Store) GetDocument(ctx context.Context, tenant, project, slug string) (*types.Document, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return getDocument(ctx, tx, tenant, project, slug)
	})
	if err != nil {
		return nil, err
	}
	return out.(*types.Document), nil
}

func (s *Store) ListSections(ctx context.Context, tenant, project, slug string) ([]*types.Section, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return listSections(ctx, tx, tenant, project, slug)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*types.Section), nil
}

func (s *Store) ListRequirements(ctx context.Context, tenant, project, slug string, includeDeleted bool) ([]*types.Requirement, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return listRequirements(ctx, tx, tenant, project, slug, includeDeleted)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*types.Requirement), nil
}

func (s *Store) ListInfos(ctx context.Context, tenant, project, slug string, includeDeleted bool) ([]*types.InfoBlock, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return listInfos(ctx, tx, tenant, project, slug, includeDeleted)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*types.InfoBlock), nil
}

func (s *Store) ListProjectRefs(ctx context.Context, tenant, project string, kind types.EntityKind, includeDeleted bool) ([]docsync.RefEntry, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return listProjectRefs(ctx, tx, tenant, project, kind, includeDeleted)
	})
	if err != nil {
		return nil, err
	}
	return out.([]docsync.RefEntry), nil
}

// WithinTx runs fn inside one managed write transaction. The driver retries
// transient failures, so fn must be safe to re-run from scratch; every caller
// in this codebase rebuilds its state from in-transaction reads.
func (s *Store) WithinTx(ctx context.Context, tenant, project string, fn func(tx docsync.Tx) error) error {
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := ensureProject(ctx, tx, tenant, project); err != nil {
			return nil, err
		}
		dt := &docTx{ctx: ctx, tx: tx, tenant: tenant, project: project}
		if err := fn(dt); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func ensureProject(ctx context.Context, tx neo4j.ManagedTransaction, tenant, project string) error {
	res, err := tx.Run(ctx, `
MERGE (t:Tenant {id: $tenant})
MERGE (t)-[:OWNS]->(p:Project {slug: $project, tenant: $tenant})
`, map[string]any{"tenant": tenant, "project": project})
	if err != nil {
		return fmt.Errorf("ensure project: %w", err)
	}
	_, err = res.Consume(ctx)
	return err
}
