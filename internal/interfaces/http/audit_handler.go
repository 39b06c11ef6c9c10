package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tidianefall/cliniq-api/internal/application/dto"
	"github.com/tidianefall/cliniq-api/internal/domain/repository"
)

// AuditHandler consultation des logs d'audit (admin).
type AuditHandler struct {
	logs repository.AuditLogRepository
}

// NewAuditHandler construit le handler.
func NewAuditHandler(logs repository.AuditLogRepository) *AuditHandler {
	return &AuditHandler{logs: logs}
}

// List liste les logs d'audit avec filtres et pagination.
// GET /api/audit-logs?user_id=&entity=&entity_id=&action=&start_date=&end_date=&page=&limit=
func (h *AuditHandler) List(c *fiber.Ctx) error {
	filters := repository.AuditLogFilters{
		UserID:   c.Query("user_id"),
		Entity:   c.Query("entity"),
		EntityID: c.Query("entity_id"),
		Action:   c.Query("action"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 50),
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "start_date: format attendu YYYY-MM-DD"})
		}
		filters.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "end_date: format attendu YYYY-MM-DD"})
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filters.EndDate = &end
	}
	logs, total, err := h.logs.List(c.Context(), filters)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := dto.AuditLogListResponse{
		Logs: make([]dto.AuditLogResponse, 0, len(logs)),
		PageResponse: dto.PageResponse{
			Page:  filters.Page,
			Limit: filters.Limit,
			Total: total,
		},
	}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, dto.ToAuditLogResponse(l))
	}
	return c.JSON(resp)
}
