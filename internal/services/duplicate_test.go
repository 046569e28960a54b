package services

import (
	"context"
	"testing"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	"github.com/specbridge/specbridge-backend/internal/docsync/synctest"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
	"github.com/specbridge/specbridge-backend/internal/realtime"
)

func newDuplicateFixture(t *testing.T) (DuplicateService, *synctest.Store, *memBus) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := synctest.NewStore()
	store.AddDocument("acme", "rocket", &types.Document{
		Tenant: "acme", Project: "rocket", Slug: "srd", ShortCode: "SRD",
	})
	engine := docsync.NewEngine(store, log)
	events := &memBus{}
	svc := NewDuplicateService(engine, nil, events, log)
	return svc, store, events
}

func TestFindScansBothNamespaces(t *testing.T) {
	svc, store, _ := newDuplicateFixture(t)
	store.AddRequirement("acme", "rocket", &types.Requirement{DocumentSlug: "srd", Ref: "SRD-001", Text: "a"})
	store.AddRequirement("acme", "rocket", &types.Requirement{DocumentSlug: "srd", Ref: "SRD-001", Text: "b"})
	store.AddInfo("acme", "rocket", &types.InfoBlock{DocumentSlug: "srd", Ref: "SRD-INFO-001", Text: "x"})
	store.AddInfo("acme", "rocket", &types.InfoBlock{DocumentSlug: "srd", Ref: "SRD-INFO-001", Text: "y"})

	report, err := svc.Find(context.Background(), "acme", "rocket")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(report.Requirements) != 1 || report.Requirements[0].Ref != "SRD-001" {
		t.Fatalf("unexpected requirement groups %+v", report.Requirements)
	}
	if len(report.Infos) != 1 || report.Infos[0].Ref != "SRD-INFO-001" {
		t.Fatalf("unexpected info groups %+v", report.Infos)
	}
}

func TestFixRepairsAndPublishes(t *testing.T) {
	svc, store, events := newDuplicateFixture(t)
	store.AddRequirement("acme", "rocket", &types.Requirement{DocumentSlug: "srd", Ref: "SRD-FUN-001", Text: "keep"})
	store.AddRequirement("acme", "rocket", &types.Requirement{DocumentSlug: "srd", Ref: "SRD-FUN-001", Text: "move"})

	report, err := svc.Fix(context.Background(), "acme", "rocket")
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if report.TotalFixed() != 1 {
		t.Fatalf("expected one repair, got %+v", report)
	}

	after, err := svc.Find(context.Background(), "acme", "rocket")
	if err != nil {
		t.Fatalf("find after fix: %v", err)
	}
	if len(after.Requirements) != 0 || len(after.Infos) != 0 {
		t.Fatalf("expected clean project after repair, got %+v", after)
	}

	if len(events.events) != 1 || events.events[0].Type != realtime.EventRefsRepaired {
		t.Fatalf("expected one refs.repaired event, got %+v", events.events)
	}
	if events.events[0].Counts["fixed"] != 1 {
		t.Fatalf("unexpected event counts %+v", events.events[0].Counts)
	}
}

func TestFixNoopDoesNotPublish(t *testing.T) {
	svc, store, events := newDuplicateFixture(t)
	store.AddRequirement("acme", "rocket", &types.Requirement{DocumentSlug: "srd", Ref: "SRD-001", Text: "only"})

	report, err := svc.Fix(context.Background(), "acme", "rocket")
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if report.TotalFixed() != 0 {
		t.Fatalf("expected noop, got %+v", report)
	}
	if len(events.events) != 0 {
		t.Fatalf("noop repair must not publish, got %+v", events.events)
	}
}
