package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/pkg/dbctx"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

type SyncRunRepo interface {
	Create(dbc dbctx.Context, run *types.SyncRun) (*types.SyncRun, error)
	ListByDocument(dbc dbctx.Context, tenant, project, slug string, limit int) ([]*types.SyncRun, error)
}

type syncRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncRunRepo(db *gorm.DB, baseLog *logger.Logger) SyncRunRepo {
	return &syncRunRepo{
		db:  db,
		log: baseLog.With("repo", "SyncRunRepo"),
	}
}

func (r *syncRunRepo) Create(dbc dbctx.Context, run *types.SyncRun) (*types.SyncRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *syncRunRepo) ListByDocument(dbc dbctx.Context, tenant, project, slug string, limit int) ([]*types.SyncRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.SyncRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("tenant = ? AND project = ? AND document_slug = ?", tenant, project, slug).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
