package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specbridge/specbridge-backend/internal/data/repos/audit"
	"github.com/specbridge/specbridge-backend/internal/docsync"
	types "github.com/specbridge/specbridge-backend/internal/domain"
	"github.com/specbridge/specbridge-backend/internal/pkg/dbctx"
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
	"github.com/specbridge/specbridge-backend/internal/realtime"
	"github.com/specbridge/specbridge-backend/internal/realtime/bus"
)

type DuplicateReport struct {
	Requirements []types.DuplicateGroup `json:"requirements"`
	Infos        []types.DuplicateGroup `json:"infos"`
}

type RepairReport struct {
	Requirements *types.RepairResult `json:"requirements"`
	Infos        *types.RepairResult `json:"infos"`
}

func (r *RepairReport) TotalFixed() int {
	total := 0
	if r.Requirements != nil {
		total += r.Requirements.Fixed
	}
	if r.Infos != nil {
		total += r.Infos.Fixed
	}
	return total
}

type DuplicateService interface {
	Find(ctx context.Context, tenant, project string) (*DuplicateReport, error)
	Fix(ctx context.Context, tenant, project string) (*RepairReport, error)
}

type duplicateService struct {
	engine     *docsync.Engine
	refChanges audit.RefChangeLogRepo
	events     bus.Bus
	log        *logger.Logger
}

func NewDuplicateService(
	engine *docsync.Engine,
	refChanges audit.RefChangeLogRepo,
	events bus.Bus,
	baseLog *logger.Logger,
) DuplicateService {
	return &duplicateService{
		engine:     engine,
		refChanges: refChanges,
		events:     events,
		log:        baseLog.With("service", "DuplicateService"),
	}
}

// Find scans both ref namespaces concurrently; they never interact.
func (s *duplicateService) Find(ctx context.Context, tenant, project string) (*DuplicateReport, error) {
	report := &DuplicateReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := s.engine.FindDuplicates(gctx, tenant, project, types.KindRequirement)
		if err != nil {
			return err
		}
		report.Requirements = groups
		return nil
	})
	g.Go(func() error {
		groups, err := s.engine.FindDuplicates(gctx, tenant, project, types.KindInfo)
		if err != nil {
			return err
		}
		report.Infos = groups
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// Fix repairs the two namespaces one after the other: each runs in its own
// store transaction, and interleaving them buys nothing.
func (s *duplicateService) Fix(ctx context.Context, tenant, project string) (*RepairReport, error) {
	reqResult, err := s.engine.FixDuplicates(ctx, tenant, project, types.KindRequirement)
	if err != nil {
		return nil, err
	}
	infoResult, err := s.engine.FixDuplicates(ctx, tenant, project, types.KindInfo)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Requirements: reqResult, Infos: infoResult}
	s.recordChanges(ctx, tenant, project, types.KindRequirement, reqResult.Changes)
	s.recordChanges(ctx, tenant, project, types.KindInfo, infoResult.Changes)

	if report.TotalFixed() > 0 {
		s.publishRepaired(ctx, tenant, project, report.TotalFixed())
	}
	return report, nil
}

func (s *duplicateService) recordChanges(ctx context.Context, tenant, project string, kind types.EntityKind, changes []types.RefChange) {
	if s.refChanges == nil || len(changes) == 0 {
		return
	}
	rows := make([]*types.RefChangeLog, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, &types.RefChangeLog{
			Tenant:   tenant,
			Project:  project,
			Kind:     string(kind),
			EntityID: c.EntityID,
			OldRef:   c.OldRef,
			NewRef:   c.NewRef,
		})
	}
	if _, err := s.refChanges.CreateBatch(dbctx.Context{Ctx: ctx}, rows); err != nil {
		s.log.Warn("ref change audit write failed",
			"tenant", tenant, "project", project, "kind", string(kind), "error", err)
	}
}

func (s *duplicateService) publishRepaired(ctx context.Context, tenant, project string, fixed int) {
	if s.events == nil {
		return
	}
	ev := realtime.Event{
		Type:    realtime.EventRefsRepaired,
		Tenant:  tenant,
		Project: project,
		Counts:  map[string]int{"fixed": fixed},
		At:      time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("refs.repaired publish failed",
			"tenant", tenant, "project", project, "error", err)
	}
}
