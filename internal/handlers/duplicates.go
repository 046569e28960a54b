package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/specbridge/specbridge-backend/internal/services"
)

type DuplicateHandler struct {
	duplicateService services.DuplicateService
}

func NewDuplicateHandler(duplicateService services.DuplicateService) *DuplicateHandler {
	return &DuplicateHandler{duplicateService: duplicateService}
}

// Find handles GET /api/tenants/:tenant/projects/:project/duplicate-refs.
func (h *DuplicateHandler) Find(c *gin.Context) {
	report, err := h.duplicateService.Find(c.Request.Context(), c.Param("tenant"), c.Param("project"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, report)
}

// Fix handles POST /api/tenants/:tenant/projects/:project/duplicate-refs/fix.
func (h *DuplicateHandler) Fix(c *gin.Context) {
	report, err := h.duplicateService.Fix(c.Request.Context(), c.Param("tenant"), c.Param("project"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, report)
}
