// Package synctest provides an in-memory docsync.Store used by engine and
// service tests. Transactions operate on a deep copy of the project state and
// swap it in on success, so a failed transaction is a true rollback.
package synctest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
)

type projectState struct {
	documents      map[string]*types.Document
	sections       []*types.Section
	requirements   []*types.Requirement
	infos          []*types.InfoBlock
	projectCounter int
}

type Store struct {
	mu       sync.Mutex
	projects map[string]*projectState
}

func NewStore() *Store {
	return &Store{projects: map[string]*projectState{}}
}

func key(tenant, project string) string { return tenant + "|" + project }

func (s *Store) state(tenant, project string) *projectState {
	k := key(tenant, project)
	if s.projects[k] == nil {
		s.projects[k] = &projectState{documents: map[string]*types.Document{}}
	}
	return s.projects[k]
}

// ---- seeding helpers ----

func (s *Store) AddDocument(tenant, project string, doc *types.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *doc
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.Tenant, d.Project = tenant, project
	s.state(tenant, project).documents[d.Slug] = &d
}

func (s *Store) AddSection(tenant, project string, sec *types.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sec
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	st := s.state(tenant, project)
	st.sections = append(st.sections, &c)
}

func (s *Store) AddRequirement(tenant, project string, r *types.Requirement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	st := s.state(tenant, project)
	st.requirements = append(st.requirements, &c)
}

func (s *Store) AddInfo(tenant, project string, in *types.InfoBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *in
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	st := s.state(tenant, project)
	st.infos = append(st.infos, &c)
}

// ---- docsync.Store ----

func (s *Store) EnsureDocument(ctx context.Context, tenant, project string, doc *types.Document) (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(tenant, project)
	existing, ok := st.documents[doc.Slug]
	if !ok {
		d := *doc
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		if d.Name == "" {
			d.Name = d.Slug
		}
		d.Tenant, d.Project = tenant, project
		st.documents[d.Slug] = &d
		c := d
		return &c, nil
	}
	if doc.Name != "" {
		existing.Name = doc.Name
	}
	if doc.ShortCode != "" {
		existing.ShortCode = doc.ShortCode
	}
	c := *existing
	return &c, nil
}

func (s *Store) GetDocument(ctx context.Context, tenant, project, slug string) (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getDocument(s.state(tenant, project), slug)
}

func (s *Store) ListSections(ctx context.Context, tenant, project, slug string) ([]*types.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listSections(s.state(tenant, project), slug), nil
}

func (s *Store) ListRequirements(ctx context.Context, tenant, project, slug string, includeDeleted bool) ([]*types.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listRequirements(s.state(tenant, project), slug, includeDeleted), nil
}

func (s *Store) ListInfos(ctx context.Context, tenant, project, slug string, includeDeleted bool) ([]*types.InfoBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listInfos(s.state(tenant, project), slug, includeDeleted), nil
}

func (s *Store) ListProjectRefs(ctx context.Context, tenant, project string, kind types.EntityKind, includeDeleted bool) ([]docsync.RefEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listProjectRefs(s.state(tenant, project), kind, includeDeleted), nil
}

func (s *Store) WithinTx(ctx context.Context, tenant, project string, fn func(tx docsync.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneState(s.state(tenant, project))
	if err := fn(&memTx{state: clone}); err != nil {
		return err
	}
	s.projects[key(tenant, project)] = clone
	return nil
}

// ---- docsync.Tx ----

type memTx struct {
	state *projectState
}

func (t *memTx) GetDocument(slug string) (*types.Document, error) {
	return getDocument(t.state, slug)
}

func (t *memTx) ListSections(slug string) ([]*types.Section, error) {
	return listSections(t.state, slug), nil
}

func (t *memTx) ListRequirements(slug string, includeDeleted bool) ([]*types.Requirement, error) {
	return listRequirements(t.state, slug, includeDeleted), nil
}

func (t *memTx) ListInfos(slug string, includeDeleted bool) ([]*types.InfoBlock, error) {
	return listInfos(t.state, slug, includeDeleted), nil
}

func (t *memTx) ListProjectRefs(kind types.EntityKind, includeDeleted bool) ([]docsync.RefEntry, error) {
	return listProjectRefs(t.state, kind, includeDeleted), nil
}

func (t *memTx) CreateSection(slug string, sec *types.Section) error {
	c := *sec
	c.DocumentSlug = slug
	t.state.sections = append(t.state.sections, &c)
	return nil
}

func (t *memTx) UpdateSection(sec *types.Section) error {
	for i, s := range t.state.sections {
		if s.ID == sec.ID {
			c := *sec
			t.state.sections[i] = &c
			return nil
		}
	}
	return fmt.Errorf("section %s: %w", sec.ID, docsync.ErrNotFound)
}

func (t *memTx) DeleteSection(id uuid.UUID) error {
	for i, s := range t.state.sections {
		if s.ID == id {
			t.state.sections = append(t.state.sections[:i], t.state.sections[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("section %s: %w", id, docsync.ErrNotFound)
}

func (t *memTx) CreateRequirement(slug string, r *types.Requirement) error {
	c := *r
	c.DocumentSlug = slug
	t.state.requirements = append(t.state.requirements, &c)
	return nil
}

func (t *memTx) UpdateRequirement(r *types.Requirement) error {
	for i, ex := range t.state.requirements {
		if ex.ID == r.ID {
			c := *r
			t.state.requirements[i] = &c
			return nil
		}
	}
	return fmt.Errorf("requirement %s: %w", r.ID, docsync.ErrNotFound)
}

func (t *memTx) SoftDeleteRequirement(id uuid.UUID) error {
	for _, r := range t.state.requirements {
		if r.ID == id {
			r.Deleted = true
			return nil
		}
	}
	return fmt.Errorf("requirement %s: %w", id, docsync.ErrNotFound)
}

func (t *memTx) CreateInfo(slug string, in *types.InfoBlock) error {
	c := *in
	c.DocumentSlug = slug
	t.state.infos = append(t.state.infos, &c)
	return nil
}

func (t *memTx) UpdateInfo(in *types.InfoBlock) error {
	for i, ex := range t.state.infos {
		if ex.ID == in.ID {
			c := *in
			t.state.infos[i] = &c
			return nil
		}
	}
	return fmt.Errorf("info %s: %w", in.ID, docsync.ErrNotFound)
}

func (t *memTx) DeleteInfo(id uuid.UUID) error {
	for i, in := range t.state.infos {
		if in.ID == id {
			t.state.infos = append(t.state.infos[:i], t.state.infos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("info %s: %w", id, docsync.ErrNotFound)
}

func (t *memTx) UpdateRef(kind types.EntityKind, entityID uuid.UUID, newRef string) error {
	switch kind {
	case types.KindRequirement:
		for _, r := range t.state.requirements {
			if r.ID == entityID {
				r.Ref = newRef
				return nil
			}
		}
	case types.KindInfo:
		for _, in := range t.state.infos {
			if in.ID == entityID {
				in.Ref = newRef
				return nil
			}
		}
	}
	return fmt.Errorf("entity %s: %w", entityID, docsync.ErrNotFound)
}

func (t *memTx) AdvanceCounter(scope docsync.CounterScope, min int) (int, error) {
	if scope.DocumentSlug == "" {
		v := t.state.projectCounter + 1
		if v < min {
			v = min
		}
		t.state.projectCounter = v
		return v, nil
	}
	doc, err := getDocument(t.state, scope.DocumentSlug)
	if err != nil {
		return 0, err
	}
	v := doc.RefCounter + 1
	if v < min {
		v = min
	}
	doc.RefCounter = v
	t.state.documents[scope.DocumentSlug] = doc
	return v, nil
}

func (t *memTx) LiveRefExists(kind types.EntityKind, ref string) (bool, error) {
	switch kind {
	case types.KindRequirement:
		for _, r := range t.state.requirements {
			if !r.Deleted && r.Ref == ref {
				return true, nil
			}
		}
	case types.KindInfo:
		for _, in := range t.state.infos {
			if !in.Deleted && in.Ref == ref {
				return true, nil
			}
		}
	}
	return false, nil
}

// ---- shared lookups ----

func getDocument(st *projectState, slug string) (*types.Document, error) {
	doc, ok := st.documents[slug]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", slug, docsync.ErrNotFound)
	}
	c := *doc
	return &c, nil
}

func listSections(st *projectState, slug string) []*types.Section {
	out := make([]*types.Section, 0)
	for _, s := range st.sections {
		if s.DocumentSlug != slug {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	return out
}

func listRequirements(st *projectState, slug string, includeDeleted bool) []*types.Requirement {
	out := make([]*types.Requirement, 0)
	for _, r := range st.requirements {
		if r.DocumentSlug != slug {
			continue
		}
		if r.Deleted && !includeDeleted {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out
}

func listInfos(st *projectState, slug string, includeDeleted bool) []*types.InfoBlock {
	out := make([]*types.InfoBlock, 0)
	for _, in := range st.infos {
		if in.DocumentSlug != slug {
			continue
		}
		if in.Deleted && !includeDeleted {
			continue
		}
		c := *in
		out = append(out, &c)
	}
	return out
}

func listProjectRefs(st *projectState, kind types.EntityKind, includeDeleted bool) []docsync.RefEntry {
	out := make([]docsync.RefEntry, 0)
	switch kind {
	case types.KindRequirement:
		for _, r := range st.requirements {
			if r.Deleted && !includeDeleted {
				continue
			}
			out = append(out, docsync.RefEntry{EntityID: r.ID, Ref: r.Ref, Deleted: r.Deleted})
		}
	case types.KindInfo:
		for _, in := range st.infos {
			if in.Deleted && !includeDeleted {
				continue
			}
			out = append(out, docsync.RefEntry{EntityID: in.ID, Ref: in.Ref, Deleted: in.Deleted})
		}
	}
	return out
}

func cloneState(st *projectState) *projectState {
	c := &projectState{
		documents:      make(map[string]*types.Document, len(st.documents)),
		projectCounter: st.projectCounter,
	}
	for slug, d := range st.documents {
		cd := *d
		c.documents[slug] = &cd
	}
	for _, s := range st.sections {
		cs := *s
		c.sections = append(c.sections, &cs)
	}
	for _, r := range st.requirements {
		cr := *r
		c.requirements = append(c.requirements, &cr)
	}
	for _, in := range st.infos {
		ci := *in
		c.infos = append(c.infos, &ci)
	}
	return c
}

// UpdateRefCounter lets a test force the stored counter out of sync with the
// live refs, mimicking out-of-band edits.
func (s *Store) UpdateRefCounter(tenant, project, slug string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc := s.state(tenant, project).documents[slug]; doc != nil {
		doc.RefCounter = value
	}
}
