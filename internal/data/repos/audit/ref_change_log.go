package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/pkg/dbctx"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

type RefChangeLogRepo interface {
	CreateBatch(dbc dbctx.Context, changes []*types.RefChangeLog) ([]*types.RefChangeLog, error)
	ListByProject(dbc dbctx.Context, tenant, project string, limit int) ([]*types.RefChangeLog, error)
}

type refChangeLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRefChangeLogRepo(db *gorm.DB, baseLog *logger.Logger) RefChangeLogRepo {
	return &refChangeLogRepo{
		db:  db,
		log: baseLog.With("repo", "RefChangeLogRepo"),
	}
}

func (r *refChangeLogRepo) CreateBatch(dbc dbctx.Context, changes []*types.RefChangeLog) ([]*types.RefChangeLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(changes) == 0 {
		return []*types.RefChangeLog{}, nil
	}
	now := time.Now().UTC()
	for _, c := range changes {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *refChangeLogRepo) ListByProject(dbc dbctx.Context, tenant, project string, limit int) ([]*types.RefChangeLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.RefChangeLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("tenant = ? AND project = ?", tenant, project).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
