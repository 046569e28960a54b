package docsync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/specbridge/specbridge-backend/internal/docparse"
	"github.com/specbridge/specbridge-backend/internal/docsync"
	"github.com/specbridge/specbridge-backend/internal/docsync/synctest"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

const (
	testTenant  = "acme"
	testProject = "rocket"
)

func newEngine(t *testing.T, store docsync.Store) *docsync.Engine {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return docsync.NewEngine(store, log)
}

func seedDocument(store *synctest.Store, slug, shortCode string, counter int) {
	store.AddDocument(testTenant, testProject, &types.Document{
		Tenant:     testTenant,
		Project:    testProject,
		Slug:       slug,
		Name:       "Test Document",
		ShortCode:  shortCode,
		RefCounter: counter,
	})
}

func TestReconcileCreatesSectionAndRequirement(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	engine := newEngine(t, store)

	parsed := docparse.Parse("## [SYS] System\n:::requirement{#REQ-001}\nThe system shall boot in 5s.\n:::\n")
	result, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.SyncedSections != 1 || result.SyncedRequirements != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	sections, _ := store.ListSections(context.Background(), testTenant, testProject, "srd")
	if len(sections) != 1 || sections[0].Name != "System" || sections[0].ShortCode != "SYS" || sections[0].Order != 0 {
		t.Fatalf("unexpected sections %+v", sections)
	}

	reqs, _ := store.ListRequirements(context.Background(), testTenant, testProject, "srd", false)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	r := reqs[0]
	if r.Ref != "REQ-001" || r.Text != "The system shall boot in 5s." {
		t.Fatalf("unexpected requirement %+v", r)
	}
	if r.SectionID == nil || *r.SectionID != sections[0].ID {
		t.Fatalf("requirement not linked to its section: %+v", r)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	engine := newEngine(t, store)

	text := "## [FUN] Functional\n:::requirement{#SRD-FUN-001}\nThe pump shall stop.\n**Pattern:** event-driven\n:::\n:::info{title=\"Note\"}\nBackground reading.\n:::\n"
	parsed := docparse.Parse(text)

	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}

	second, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", docparse.Parse(text))
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Total() != 0 {
		t.Fatalf("expected zero mutations on second pass, got %+v", second)
	}
}

func TestReconcilePreservesHeadingOrder(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	store.AddSection(testTenant, testProject, &types.Section{DocumentSlug: "srd", Name: "Beta", Order: 0})
	store.AddSection(testTenant, testProject, &types.Section{DocumentSlug: "srd", Name: "Alpha", Order: 1})
	engine := newEngine(t, store)

	parsed := docparse.Parse("## Alpha\n## Beta\n")
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	sections, _ := store.ListSections(context.Background(), testTenant, testProject, "srd")
	orders := map[string]int{}
	for _, s := range sections {
		orders[s.Name] = s.Order
	}
	if orders["Alpha"] != 0 || orders["Beta"] != 1 {
		t.Fatalf("section order does not match headings: %+v", orders)
	}
}

func TestReconcileSoftDeletesAndAdvancesPastHighestSeen(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "req", "REQ", 3)
	for i := 1; i <= 3; i++ {
		store.AddRequirement(testTenant, testProject, &types.Requirement{
			DocumentSlug: "req",
			Ref:          fmt.Sprintf("REQ-%03d", i),
			Text:         fmt.Sprintf("requirement %d", i),
		})
	}
	engine := newEngine(t, store)

	parsed := docparse.Parse(":::requirement{#REQ-001}\nrequirement 1\n:::\n:::requirement\na brand new one\n:::\n")
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "req", parsed); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	all, _ := store.ListRequirements(context.Background(), testTenant, testProject, "req", true)
	byRef := map[string]*types.Requirement{}
	for _, r := range all {
		byRef[r.Ref] = r
	}

	if r := byRef["REQ-001"]; r == nil || r.Deleted {
		t.Fatalf("REQ-001 should stay live: %+v", r)
	}
	if r := byRef["REQ-002"]; r == nil || !r.Deleted {
		t.Fatalf("REQ-002 should be soft-deleted: %+v", r)
	}
	if r := byRef["REQ-003"]; r == nil || !r.Deleted {
		t.Fatalf("REQ-003 should be soft-deleted: %+v", r)
	}
	if r := byRef["REQ-004"]; r == nil || r.Deleted || r.Text != "a brand new one" {
		t.Fatalf("new requirement must get REQ-004, never reuse REQ-002: %+v", r)
	}
}

func TestReconcileResurrectsSoftDeletedRef(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 1)
	store.AddRequirement(testTenant, testProject, &types.Requirement{
		DocumentSlug: "srd",
		Ref:          "SRD-001",
		Text:         "old text",
		Deleted:      true,
	})
	engine := newEngine(t, store)

	parsed := docparse.Parse(":::requirement{#SRD-001}\nnew text\n:::\n")
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	reqs, _ := store.ListRequirements(context.Background(), testTenant, testProject, "srd", false)
	if len(reqs) != 1 || reqs[0].Ref != "SRD-001" || reqs[0].Text != "new text" {
		t.Fatalf("expected SRD-001 resurrected with new text, got %+v", reqs)
	}
}

func TestReconcileRewritesPrefixOnShortCodeChange(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 2)
	secID := uuid.New()
	store.AddSection(testTenant, testProject, &types.Section{
		ID: secID, DocumentSlug: "srd", Name: "Functional", ShortCode: "FUN", Order: 0,
	})
	store.AddRequirement(testTenant, testProject, &types.Requirement{
		DocumentSlug: "srd",
		Ref:          "SRD-FUN-002",
		Text:         "the pump shall stop",
		SectionID:    &secID,
	})
	engine := newEngine(t, store)

	parsed := docparse.Parse("## [FNC] Functional\n:::requirement{#SRD-FNC-002}\nthe pump shall stop\n:::\n")
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	reqs, _ := store.ListRequirements(context.Background(), testTenant, testProject, "srd", true)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Ref != "SRD-FNC-002" {
		t.Fatalf("expected suffix-preserving rewrite to SRD-FNC-002, got %q", reqs[0].Ref)
	}
	if reqs[0].Deleted {
		t.Fatalf("rewritten requirement must stay live: %+v", reqs[0])
	}
}

func TestReconcileKeepsUnmatchedSectionNameUnsectioned(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	engine := newEngine(t, store)

	parsed := &types.ParsedDocument{
		Requirements: []types.ParsedRequirement{
			{Ref: "SRD-001", Text: "floating requirement", SectionName: "Ghost", Line: 1},
		},
	}
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	reqs, _ := store.ListRequirements(context.Background(), testTenant, testProject, "srd", false)
	if len(reqs) != 1 || reqs[0].SectionID != nil {
		t.Fatalf("expected unsectioned requirement, got %+v", reqs)
	}
}

func TestReconcileSynthesizesStableInfoRefs(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	engine := newEngine(t, store)

	text := ":::info{title=\"One\"}\nfirst\n:::\n:::info{title=\"Two\"}\nsecond\n:::\n"
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", docparse.Parse(text)); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	infos, _ := store.ListInfos(context.Background(), testTenant, testProject, "srd", false)
	if len(infos) != 2 {
		t.Fatalf("expected 2 infos, got %d", len(infos))
	}
	refs := map[string]bool{}
	for _, in := range infos {
		refs[in.Ref] = true
	}
	if !refs["SRD-INFO-001"] || !refs["SRD-INFO-002"] {
		t.Fatalf("unexpected synthesized refs: %+v", refs)
	}

	second, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", docparse.Parse(text))
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Total() != 0 {
		t.Fatalf("synthesized refs must be stable across saves, got %+v", second)
	}
}

func TestReconcileHardDeletesAbsentInfos(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	store.AddInfo(testTenant, testProject, &types.InfoBlock{
		DocumentSlug: "srd",
		Ref:          "SRD-INFO-001",
		Text:         "obsolete note",
	})
	engine := newEngine(t, store)

	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", docparse.Parse("")); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	infos, _ := store.ListInfos(context.Background(), testTenant, testProject, "srd", true)
	if len(infos) != 0 {
		t.Fatalf("info blocks must be hard-deleted, got %+v", infos)
	}
}

func TestReconcileReallocatesAuthoredRefTakenElsewhere(t *testing.T) {
	store := synctest.NewStore()
	seedDocument(store, "srd", "SRD", 0)
	seedDocument(store, "other", "OTH", 0)
	store.AddRequirement(testTenant, testProject, &types.Requirement{
		DocumentSlug: "other",
		Ref:          "X-001",
		Text:         "already owned elsewhere",
	})
	engine := newEngine(t, store)

	parsed := docparse.Parse(":::requirement{#X-001}\nconflicting author intent\n:::\n")
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	reqs, _ := store.ListRequirements(context.Background(), testTenant, testProject, "srd", false)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Ref != "X-002" {
		t.Fatalf("expected reallocation under the authored prefix, got %q", reqs[0].Ref)
	}
}

func TestReconcileMissingDocument(t *testing.T) {
	store := synctest.NewStore()
	engine := newEngine(t, store)

	_, err := engine.Reconcile(context.Background(), testTenant, testProject, "ghost", docparse.Parse(""))
	if !errors.Is(err, docsync.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// failingStore wraps the in-memory store and fails every requirement create,
// which aborts the transaction after the section pass already ran.
type failingStore struct {
	*synctest.Store
}

type failingTx struct {
	docsync.Tx
}

func (f *failingStore) WithinTx(ctx context.Context, tenant, project string, fn func(tx docsync.Tx) error) error {
	return f.Store.WithinTx(ctx, tenant, project, func(tx docsync.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

func (f *failingTx) CreateRequirement(slug string, r *types.Requirement) error {
	return errors.New("boom")
}

func TestReconcileRollsBackAllPassesTogether(t *testing.T) {
	inner := synctest.NewStore()
	seedDocument(inner, "srd", "SRD", 0)
	engine := newEngine(t, &failingStore{Store: inner})

	parsed := docparse.Parse("## [SYS] System\n:::requirement{#REQ-001}\nwill fail\n:::\n")
	if _, err := engine.Reconcile(context.Background(), testTenant, testProject, "srd", parsed); err == nil {
		t.Fatal("expected reconcile to fail")
	}

	sections, _ := inner.ListSections(context.Background(), testTenant, testProject, "srd")
	if len(sections) != 0 {
		t.Fatalf("section pass must roll back with the failed requirement pass, got %+v", sections)
	}
}
