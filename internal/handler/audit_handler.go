package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type auditService interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
	MaxLimit() int
}

type auditExporter interface {
	ExportAuditLog(ctx context.Context, format string) (*service.ExportFile, error)
}

// AuditHandler serves the audit log.
type AuditHandler struct {
	service  auditService
	exporter auditExporter
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(svc auditService, exporter auditExporter) *AuditHandler {
	return &AuditHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary Recent audit entries
// @Description Newest first, with the acting username
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries, capped at the configured limit"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} appErrors.Error
// @Router /logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = h.service.MaxLimit()
	}
	logs, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

// Export godoc
// @Summary Export the audit log
// @Tags Audit
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /logs/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	file, err := h.exporter.ExportAuditLog(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
