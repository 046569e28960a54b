package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/specbridge/specbridge-backend/internal/services"
)

type DocumentHandler struct {
	documentService services.DocumentService
}

func NewDocumentHandler(documentService services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

type saveDocumentRequest struct {
	Text            string `json:"text"`
	ValidateAndSync bool   `json:"validate_and_sync"`
}

// Save handles PUT /api/tenants/:tenant/projects/:project/documents/:slug.
func (h *DocumentHandler) Save(c *gin.Context) {
	var req saveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.documentService.Save(
		c.Request.Context(),
		c.Param("tenant"), c.Param("project"), c.Param("slug"),
		req.Text, req.ValidateAndSync,
	)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusUnprocessableEntity, result)
			return
		}
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	view, err := h.documentService.Get(
		c.Request.Context(),
		c.Param("tenant"), c.Param("project"), c.Param("slug"),
	)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, view)
}

type validateDocumentRequest struct {
	Text string `json:"text"`
}

func (h *DocumentHandler) Validate(c *gin.Context) {
	var req validateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	diags := h.documentService.Validate(c.Request.Context(), req.Text)
	RespondOK(c, gin.H{"diagnostics": diags})
}
