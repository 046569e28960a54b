package docsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

// CreateRequirementInput captures a direct (non-save) requirement creation.
// DocumentSlug may be empty for legacy project-level requirements, which fall
// back to the project-derived prefix and the project-scoped counter.
type CreateRequirementInput struct {
	DocumentSlug string
	SectionName  string
	Text         string
	Pattern      string
	Verification string
}

// CreateRequirement allocates a ref and persists a single requirement outside
// the document-save path.
func (e *Engine) CreateRequirement(ctx context.Context, tenant, project string, input CreateRequirementInput) (*types.Requirement, error) {
	if input.Text == "" {
		return nil, fmt.Errorf("docsync: requirement text required")
	}

	var created *types.Requirement
	err := e.store.WithinTx(ctx, tenant, project, func(tx Tx) error {
		var (
			doc   *types.Document
			sec   *types.Section
			secID *uuid.UUID
		)
		if input.DocumentSlug != "" {
			var err error
			doc, err = tx.GetDocument(input.DocumentSlug)
			if err != nil {
				return fmt.Errorf("load document %s: %w", input.DocumentSlug, err)
			}
			if input.SectionName != "" {
				sections, err := tx.ListSections(input.DocumentSlug)
				if err != nil {
					return fmt.Errorf("list sections: %w", err)
				}
				for _, s := range sections {
					if s.Name == input.SectionName {
						sec = s
						id := s.ID
						secID = &id
						break
					}
				}
				if sec == nil {
					return fmt.Errorf("section %s: %w", input.SectionName, ErrNotFound)
				}
			}
		}

		prefix := ResolvePrefix(project, doc, sec)
		scope := CounterScope{Tenant: tenant, Project: project, DocumentSlug: input.DocumentSlug}
		ref, err := allocateRef(tx, types.KindRequirement, prefix, scope)
		if err != nil {
			return err
		}

		created = &types.Requirement{
			ID:           uuid.New(),
			DocumentSlug: input.DocumentSlug,
			Ref:          ref,
			Text:         input.Text,
			Pattern:      input.Pattern,
			Verification: input.Verification,
			SectionID:    secID,
		}
		return tx.CreateRequirement(input.DocumentSlug, created)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("requirement created", "tenant", tenant, "project", project, "ref", created.Ref)
	return created, nil
}

// CreateInfoInput captures a direct info-block creation.
type CreateInfoInput struct {
	DocumentSlug string
	SectionName  string
	Title        string
	Text         string
}

// CreateInfo allocates a ref and persists a single info block outside the
// document-save path.
func (e *Engine) CreateInfo(ctx context.Context, tenant, project string, input CreateInfoInput) (*types.InfoBlock, error) {
	if input.Text == "" {
		return nil, fmt.Errorf("docsync: info text required")
	}

	var created *types.InfoBlock
	err := e.store.WithinTx(ctx, tenant, project, func(tx Tx) error {
		var (
			doc   *types.Document
			sec   *types.Section
			secID *uuid.UUID
		)
		if input.DocumentSlug != "" {
			var err error
			doc, err = tx.GetDocument(input.DocumentSlug)
			if err != nil {
				return fmt.Errorf("load document %s: %w", input.DocumentSlug, err)
			}
			if input.SectionName != "" {
				sections, err := tx.ListSections(input.DocumentSlug)
				if err != nil {
					return fmt.Errorf("list sections: %w", err)
				}
				for _, s := range sections {
					if s.Name == input.SectionName {
						sec = s
						id := s.ID
						secID = &id
						break
					}
				}
				if sec == nil {
					return fmt.Errorf("section %s: %w", input.SectionName, ErrNotFound)
				}
			}
		}

		prefix := ResolvePrefix(project, doc, sec) + "-INFO"
		scope := CounterScope{Tenant: tenant, Project: project, DocumentSlug: input.DocumentSlug}
		ref, err := allocateRef(tx, types.KindInfo, prefix, scope)
		if err != nil {
			return err
		}

		created = &types.InfoBlock{
			ID:           uuid.New(),
			DocumentSlug: input.DocumentSlug,
			Ref:          ref,
			Title:        input.Title,
			Text:         input.Text,
			SectionID:    secID,
		}
		return tx.CreateInfo(input.DocumentSlug, created)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("info block created", "tenant", tenant, "project", project, "ref", created.Ref)
	return created, nil
}
