package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	"github.com/specbridge/specbridge-backend/internal/docsync/synctest"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
	"github.com/specbridge/specbridge-backend/internal/realtime"
)

type memFiles struct {
	mu    sync.Mutex
	blobs map[string][]byte
	fail  bool
}

func newMemFiles() *memFiles {
	return &memFiles{blobs: map[string][]byte{}}
}

func (m *memFiles) Write(ctx context.Context, tenant, project, slug string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.blobs[tenant+"/"+project+"/"+slug] = append([]byte(nil), data...)
	return nil
}

func (m *memFiles) Read(ctx context.Context, tenant, project, slug string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[tenant+"/"+project+"/"+slug]
	if !ok {
		return nil, errors.New("no blob")
	}
	return data, nil
}

type memBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *memBus) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *memBus) Close() error { return nil }

func newDocumentFixture(t *testing.T) (DocumentService, *synctest.Store, *memFiles, *memBus) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := synctest.NewStore()
	store.AddDocument("acme", "rocket", &types.Document{
		Tenant: "acme", Project: "rocket", Slug: "srd", Name: "System Requirements", ShortCode: "SRD",
	})
	engine := docsync.NewEngine(store, log)
	files := newMemFiles()
	events := &memBus{}
	svc := NewDocumentService(engine, store, files, nil, events, log)
	return svc, store, files, events
}

func TestSaveValidatedPathSyncsAndPublishes(t *testing.T) {
	svc, store, files, events := newDocumentFixture(t)

	text := "## [FUN] Functional\n:::requirement{#SRD-FUN-001}\nThe pump shall stop.\n:::\n"
	result, err := svc.Save(context.Background(), "acme", "rocket", "srd", text, true)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !result.Synced || result.Result.SyncedRequirements != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	reqs, _ := store.ListRequirements(context.Background(), "acme", "rocket", "srd", false)
	if len(reqs) != 1 || reqs[0].Ref != "SRD-FUN-001" {
		t.Fatalf("requirement not persisted: %+v", reqs)
	}

	if _, err := files.Read(context.Background(), "acme", "rocket", "srd"); err != nil {
		t.Fatalf("raw text not persisted: %v", err)
	}

	if len(events.events) != 1 || events.events[0].Type != realtime.EventDocumentSynced {
		t.Fatalf("expected one document.synced event, got %+v", events.events)
	}
}

func TestSaveCreatesDocumentOnFirstSync(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := synctest.NewStore()
	engine := docsync.NewEngine(store, log)
	svc := NewDocumentService(engine, store, newMemFiles(), nil, &memBus{}, log)

	text := "# [SRD] System Requirements\n\n## [FUN] Functional\n:::requirement\nThe pump shall stop.\n:::\n"
	result, err := svc.Save(context.Background(), "acme", "rocket", "srd", text, true)
	if err != nil {
		t.Fatalf("first save of a fresh slug must succeed: %v", err)
	}
	if !result.Synced || result.Result.SyncedRequirements != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	doc, err := store.GetDocument(context.Background(), "acme", "rocket", "srd")
	if err != nil {
		t.Fatalf("document was not provisioned: %v", err)
	}
	if doc.Name != "System Requirements" || doc.ShortCode != "SRD" {
		t.Fatalf("document not named from the title heading: %+v", doc)
	}

	reqs, _ := store.ListRequirements(context.Background(), "acme", "rocket", "srd", false)
	if len(reqs) != 1 || reqs[0].Ref != "SRD-FUN-001" {
		t.Fatalf("requirement not allocated under the document prefix: %+v", reqs)
	}
}

func TestSaveDoesNotClobberDocumentNameWithoutTitle(t *testing.T) {
	svc, store, _, _ := newDocumentFixture(t)

	text := ":::requirement{#SRD-001}\nNo title heading here.\n:::\n"
	if _, err := svc.Save(context.Background(), "acme", "rocket", "srd", text, true); err != nil {
		t.Fatalf("save: %v", err)
	}

	doc, err := store.GetDocument(context.Background(), "acme", "rocket", "srd")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Name != "System Requirements" || doc.ShortCode != "SRD" {
		t.Fatalf("stored name and short code must survive a title-less save: %+v", doc)
	}
}

func TestSavePlainPathSkipsSync(t *testing.T) {
	svc, store, files, events := newDocumentFixture(t)

	text := ":::requirement\nnever synced\n:::\n"
	result, err := svc.Save(context.Background(), "acme", "rocket", "srd", text, false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Synced {
		t.Fatalf("plain save must not sync: %+v", result)
	}

	reqs, _ := store.ListRequirements(context.Background(), "acme", "rocket", "srd", false)
	if len(reqs) != 0 {
		t.Fatalf("plain save must not touch the graph: %+v", reqs)
	}
	if _, err := files.Read(context.Background(), "acme", "rocket", "srd"); err != nil {
		t.Fatalf("plain save must persist raw text: %v", err)
	}
	if len(events.events) != 0 {
		t.Fatalf("plain save must not publish events: %+v", events.events)
	}
}

func TestSaveBlocksOnErrorDiagnostics(t *testing.T) {
	svc, store, _, _ := newDocumentFixture(t)

	text := ":::requirement{#SRD-001}\nunterminated block\n"
	result, err := svc.Save(context.Background(), "acme", "rocket", "srd", text, true)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if result == nil || len(result.Diagnostics) == 0 {
		t.Fatalf("expected diagnostics alongside the rejection, got %+v", result)
	}

	reqs, _ := store.ListRequirements(context.Background(), "acme", "rocket", "srd", false)
	if len(reqs) != 0 {
		t.Fatalf("rejected save must not sync: %+v", reqs)
	}
}

func TestSaveSurvivesFilestoreFailure(t *testing.T) {
	svc, store, files, _ := newDocumentFixture(t)
	files.fail = true

	text := ":::requirement{#SRD-001}\nstill synced\n:::\n"
	result, err := svc.Save(context.Background(), "acme", "rocket", "srd", text, true)
	if err != nil {
		t.Fatalf("filestore failure must not fail a committed sync: %v", err)
	}
	if !result.Synced {
		t.Fatalf("expected synced result, got %+v", result)
	}

	reqs, _ := store.ListRequirements(context.Background(), "acme", "rocket", "srd", false)
	if len(reqs) != 1 {
		t.Fatalf("sync must persist despite filestore failure: %+v", reqs)
	}
}

func TestGetFallsBackToSerializedGraph(t *testing.T) {
	svc, store, _, _ := newDocumentFixture(t)
	store.AddRequirement("acme", "rocket", &types.Requirement{
		DocumentSlug: "srd", Ref: "SRD-001", Text: "The pump shall stop.",
	})

	view, err := svc.Get(context.Background(), "acme", "rocket", "srd")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(view.Text, "SRD-001") {
		t.Fatalf("serialized fallback missing requirement: %q", view.Text)
	}
	if len(view.Parsed.Requirements) != 1 {
		t.Fatalf("parsed view should round-trip: %+v", view.Parsed)
	}
}
