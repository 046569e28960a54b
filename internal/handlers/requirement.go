package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/specbridge/specbridge-backend/internal/docsync"
	"github.com/specbridge/specbridge-backend/internal/services"
)

type RequirementHandler struct {
	requirementService services.RequirementService
}

func NewRequirementHandler(requirementService services.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

type createRequirementRequest struct {
	DocumentSlug string `json:"document_slug"`
	SectionName  string `json:"section_name"`
	Text         string `json:"text"`
	Pattern      string `json:"pattern"`
	Verification string `json:"verification"`
}

// CreateRequirement handles POST /api/tenants/:tenant/projects/:project/requirements.
func (h *RequirementHandler) CreateRequirement(c *gin.Context) {
	var req createRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	r, err := h.requirementService.CreateRequirement(
		c.Request.Context(), c.Param("tenant"), c.Param("project"),
		docsync.CreateRequirementInput{
			DocumentSlug: req.DocumentSlug,
			SectionName:  req.SectionName,
			Text:         req.Text,
			Pattern:      req.Pattern,
			Verification: req.Verification,
		},
	)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

type createInfoRequest struct {
	DocumentSlug string `json:"document_slug"`
	SectionName  string `json:"section_name"`
	Title        string `json:"title"`
	Text         string `json:"text"`
}

// CreateInfo handles POST /api/tenants/:tenant/projects/:project/infos.
func (h *RequirementHandler) CreateInfo(c *gin.Context) {
	var req createInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	in, err := h.requirementService.CreateInfo(
		c.Request.Context(), c.Param("tenant"), c.Param("project"),
		docsync.CreateInfoInput{
			DocumentSlug: req.DocumentSlug,
			SectionName:  req.SectionName,
			Title:        req.Title,
			Text:         req.Text,
		},
	)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}
