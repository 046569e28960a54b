package docsync

import (
	"context"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// CounterScope identifies the node carrying an allocation counter: a document
// when DocumentSlug is set, otherwise the project itself (legacy unsectioned
// requirements live directly under the project).
type CounterScope struct {
	Tenant       string
	Project      string
	DocumentSlug string
}

// RefEntry is the minimal projection used for collision scans and duplicate
// detection. Entries are returned in stable insertion order so duplicate
// repair has a deterministic tie-break.
type RefEntry struct {
	EntityID uuid.UUID
	Ref      string
	Deleted  bool
}

// Store is the graph persistence collaborator. Read methods run outside any
// transaction and may observe eventually-consistent state; every mutation
// goes through WithinTx so the whole reconciliation commits or none of it
// does.
type Store interface {
	// EnsureDocument provisions the document (and its owning tenant and
	// project) when absent, so the first save of a fresh slug succeeds.
	// When the document exists, non-empty incoming name and short code
	// refresh the stored values; empty ones never clobber them.
	EnsureDocument(ctx context.Context, tenant, project string, doc *types.Document) (*types.Document, error)

	GetDocument(ctx context.Context, tenant, project, slug string) (*types.Document, error)
	ListSections(ctx context.Context, tenant, project, slug string) ([]*types.Section, error)
	ListRequirements(ctx context.Context, tenant, project, slug string, includeDeleted bool) ([]*types.Requirement, error)
	ListInfos(ctx context.Context, tenant, project, slug string, includeDeleted bool) ([]*types.InfoBlock, error)
	ListProjectRefs(ctx context.Context, tenant, project string, kind types.EntityKind, includeDeleted bool) ([]RefEntry, error)

	WithinTx(ctx context.Context, tenant, project string, fn func(tx Tx) error) error
}

// Tx is one graph write transaction. Counter advancement and the collision
// checks the allocator relies on observe the same snapshot as the writes.
type Tx interface {
	GetDocument(slug string) (*types.Document, error)
	ListSections(slug string) ([]*types.Section, error)
	ListRequirements(slug string, includeDeleted bool) ([]*types.Requirement, error)
	ListInfos(slug string, includeDeleted bool) ([]*types.InfoBlock, error)
	ListProjectRefs(kind types.EntityKind, includeDeleted bool) ([]RefEntry, error)

	CreateSection(slug string, s *types.Section) error
	UpdateSection(s *types.Section) error
	DeleteSection(id uuid.UUID) error

	CreateRequirement(slug string, r *types.Requirement) error
	UpdateRequirement(r *types.Requirement) error
	SoftDeleteRequirement(id uuid.UUID) error

	CreateInfo(slug string, in *types.InfoBlock) error
	UpdateInfo(in *types.InfoBlock) error
	DeleteInfo(id uuid.UUID) error

	UpdateRef(kind types.EntityKind, entityID uuid.UUID, newRef string) error

	// AdvanceCounter sets the scope's counter to max(current+1, min) and
	// returns the new value. Atomic within the transaction.
	AdvanceCounter(scope CounterScope, min int) (int, error)

	// LiveRefExists reports whether a non-deleted entity of the given kind
	// already carries ref anywhere in the project.
	LiveRefExists(kind types.EntityKind, ref string) (bool, error)
}
