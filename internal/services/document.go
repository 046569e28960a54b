package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specbridge/specbridge-backend/internal/data/repos/audit"
	"github.com/specbridge/specbridge-backend/internal/docparse"
	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/pkg/dbctx"
	"github.com/specbridge/specbridge-backend/internal/platform/filestore"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
	"github.com/specbridge/specbridge-backend/internal/realtime"
	"github.com/specbridge/specbridge-backend/internal/realtime/bus"
)

// ErrValidation marks a save rejected by error-severity diagnostics. The
// accompanying SaveResult still carries the full diagnostic list.
var ErrValidation = errors.New("document failed validation")

type SaveResult struct {
	Synced      bool               `json:"synced"`
	Result      *types.SyncResult  `json:"result,omitempty"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
}

type DocumentView struct {
	Slug   string                `json:"slug"`
	Text   string                `json:"text"`
	Parsed *types.ParsedDocument `json:"parsed"`
}

type DocumentService interface {
	Save(ctx context.Context, tenant, project, slug, text string, validateAndSync bool) (*SaveResult, error)
	Get(ctx context.Context, tenant, project, slug string) (*DocumentView, error)
	Validate(ctx context.Context, text string) []types.Diagnostic
}

type documentService struct {
	engine   *docsync.Engine
	store    docsync.Store
	files    filestore.Store
	syncRuns audit.SyncRunRepo
	events   bus.Bus
	log      *logger.Logger
}

// NewDocumentService wires the save pipeline. syncRuns and events may be nil
// when the audit database or redis are not configured; those stages are then
// skipped.
func NewDocumentService(
	engine *docsync.Engine,
	store docsync.Store,
	files filestore.Store,
	syncRuns audit.SyncRunRepo,
	events bus.Bus,
	baseLog *logger.Logger,
) DocumentService {
	return &documentService{
		engine:   engine,
		store:    store,
		files:    files,
		syncRuns: syncRuns,
		events:   events,
		log:      baseLog.With("service", "DocumentService"),
	}
}

func (s *documentService) Save(ctx context.Context, tenant, project, slug, text string, validateAndSync bool) (*SaveResult, error) {
	parsed := docparse.Parse(text)

	if !validateAndSync {
		if err := s.files.Write(ctx, tenant, project, slug, []byte(text)); err != nil {
			return nil, fmt.Errorf("persist raw text: %w", err)
		}
		return &SaveResult{Synced: false, Diagnostics: parsed.Diagnostics}, nil
	}

	if parsed.HasErrors() {
		return &SaveResult{Synced: false, Diagnostics: parsed.Diagnostics}, ErrValidation
	}

	// First save of a fresh slug provisions the document, named by the
	// title heading when the text carries one.
	if _, err := s.store.EnsureDocument(ctx, tenant, project, &types.Document{
		Slug: slug, Name: parsed.Name, ShortCode: parsed.ShortCode,
	}); err != nil {
		return nil, fmt.Errorf("ensure document: %w", err)
	}

	result, err := s.engine.Reconcile(ctx, tenant, project, slug, parsed)
	if err != nil {
		s.recordSyncRun(ctx, tenant, project, slug, nil, err)
		return nil, err
	}

	// The graph transaction is committed; everything below is best-effort.
	if saveStageEnabled(s.log, "persist_raw") {
		if werr := s.files.Write(ctx, tenant, project, slug, []byte(text)); werr != nil {
			s.log.Warn("raw text persist failed after sync",
				"tenant", tenant, "project", project, "document_slug", slug, "error", werr)
		}
	}
	s.recordSyncRun(ctx, tenant, project, slug, result, nil)
	s.publishSynced(ctx, tenant, project, slug, result)

	return &SaveResult{Synced: true, Result: result, Diagnostics: parsed.Diagnostics}, nil
}

func (s *documentService) Get(ctx context.Context, tenant, project, slug string) (*DocumentView, error) {
	raw, err := s.files.Read(ctx, tenant, project, slug)
	if err != nil {
		// No raw blob, rebuild the canonical text from the graph.
		doc, derr := s.store.GetDocument(ctx, tenant, project, slug)
		if derr != nil {
			return nil, derr
		}
		sections, serr := s.store.ListSections(ctx, tenant, project, slug)
		if serr != nil {
			return nil, serr
		}
		reqs, rerr := s.store.ListRequirements(ctx, tenant, project, slug, false)
		if rerr != nil {
			return nil, rerr
		}
		infos, ierr := s.store.ListInfos(ctx, tenant, project, slug, false)
		if ierr != nil {
			return nil, ierr
		}
		raw = []byte(docparse.Serialize(doc, sections, reqs, infos))
	}

	text := string(raw)
	return &DocumentView{
		Slug:   slug,
		Text:   text,
		Parsed: docparse.Parse(text),
	}, nil
}

func (s *documentService) Validate(ctx context.Context, text string) []types.Diagnostic {
	return docparse.ValidateStructure(text)
}

func (s *documentService) recordSyncRun(ctx context.Context, tenant, project, slug string, result *types.SyncResult, syncErr error) {
	if s.syncRuns == nil || !saveStageEnabled(s.log, "audit") {
		return
	}
	run := &types.SyncRun{
		Tenant:       tenant,
		Project:      project,
		DocumentSlug: slug,
		Status:       "ok",
	}
	if result != nil {
		run.SyncedSections = result.SyncedSections
		run.SyncedRequirements = result.SyncedRequirements
		run.SyncedInfos = result.SyncedInfos
	}
	if syncErr != nil {
		run.Status = "failed"
		run.Error = syncErr.Error()
	}
	if _, err := s.syncRuns.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
		s.log.Warn("sync audit row write failed",
			"tenant", tenant, "project", project, "document_slug", slug, "error", err)
	}
}

func (s *documentService) publishSynced(ctx context.Context, tenant, project, slug string, result *types.SyncResult) {
	if s.events == nil || !saveStageEnabled(s.log, "publish") {
		return
	}
	ev := realtime.Event{
		Type:         realtime.EventDocumentSynced,
		Tenant:       tenant,
		Project:      project,
		DocumentSlug: slug,
		Counts: map[string]int{
			"sections":     result.SyncedSections,
			"requirements": result.SyncedRequirements,
			"infos":        result.SyncedInfos,
		},
		At: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("document.synced publish failed",
			"tenant", tenant, "project", project, "document_slug", slug, "error", err)
	}
}
