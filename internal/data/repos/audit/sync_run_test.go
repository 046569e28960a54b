package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/specbridge/specbridge-backend/internal/data/repos/testutil"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/pkg/dbctx"
)

func TestSyncRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewSyncRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	older := &types.SyncRun{
		Tenant:       "acme",
		Project:      "rocket",
		DocumentSlug: "srd",
		Status:       "ok",
		CreatedAt:    now.Add(-2 * time.Hour),
	}
	newer := &types.SyncRun{
		Tenant:             "acme",
		Project:            "rocket",
		DocumentSlug:       "srd",
		Status:             "failed",
		Error:              "document ghost: not found",
		SyncedRequirements: 3,
		CreatedAt:          now.Add(-1 * time.Hour),
	}

	if _, err := repo.Create(dbc, older); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, newer); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if older.ID == uuid.Nil {
		t.Fatal("Create must assign an ID")
	}

	runs, err := repo.ListByDocument(dbc, "acme", "rocket", "srd", 10)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Status != "failed" || runs[1].Status != "ok" {
		t.Fatalf("expected newest-first ordering, got %q then %q", runs[0].Status, runs[1].Status)
	}

	other, err := repo.ListByDocument(dbc, "acme", "rocket", "other-doc", 10)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no runs for another document, got %d", len(other))
	}
}

func TestRefChangeLogRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewRefChangeLogRepo(db, testutil.Logger(t))

	changes := []*types.RefChangeLog{
		{Tenant: "acme", Project: "rocket", Kind: "requirement", EntityID: uuid.New(), OldRef: "SRD-001", NewRef: "SRD-002"},
		{Tenant: "acme", Project: "rocket", Kind: "requirement", EntityID: uuid.New(), OldRef: "SRD-001", NewRef: "SRD-003"},
	}
	if _, err := repo.CreateBatch(dbc, changes); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	got, err := repo.ListByProject(dbc, "acme", "rocket", 10)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(got))
	}

	empty, err := repo.CreateBatch(dbc, nil)
	if err != nil {
		t.Fatalf("CreateBatch empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result, got %d", len(empty))
	}
}
