package services

import (
	"context"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

// RequirementService creates single entities outside the document-save path,
// for API clients that manage requirements directly.
type RequirementService interface {
	CreateRequirement(ctx context.Context, tenant, project string, input docsync.CreateRequirementInput) (*types.Requirement, error)
	CreateInfo(ctx context.Context, tenant, project string, input docsync.CreateInfoInput) (*types.InfoBlock, error)
}

type requirementService struct {
	engine *docsync.Engine
	log    *logger.Logger
}

func NewRequirementService(engine *docsync.Engine, baseLog *logger.Logger) RequirementService {
	return &requirementService{
		engine: engine,
		log:    baseLog.With("service", "RequirementService"),
	}
}

func (s *requirementService) CreateRequirement(ctx context.Context, tenant, project string, input docsync.CreateRequirementInput) (*types.Requirement, error) {
	return s.engine.CreateRequirement(ctx, tenant, project, input)
}

func (s *requirementService) CreateInfo(ctx context.Context, tenant, project string, input docsync.CreateInfoInput) (*types.InfoBlock, error) {
	return s.engine.CreateInfo(ctx, tenant, project, input)
}
