package handlers

import (
	"time"

	"room-advisor/internal/dto"
	"room-advisor/internal/service"
	"room-advisor/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const PlaceholderImage = "/static/placeholder.svg"

type AdvisorHandler struct {
	advisor *service.AdvisorService
	leads   *service.LeadService
	now     func() time.Time
	logger  *zap.Logger
}

func NewAdvisorHandler(advisor *service.AdvisorService, leads *service.LeadService, logger *zap.Logger) *AdvisorHandler {
	return &AdvisorHandler{
		advisor: advisor,
		leads:   leads,
		now:     time.Now,
		logger:  logger,
	}
}

// Recommend godoc
// @Summary Recommend products for a room
// @Description Ask the model for 2-4 products matching the room and platform, resolve their catalog pages and store them in the visitor session
// @Tags recommendations
// @Accept json
// @Produce json
// @Param request body dto.RecommendationRequest true "Room details"
// @Success 200 {object} dto.RecommendationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /recommendations [post]
func (h *AdvisorHandler) Recommend(c *fiber.Ctx) error {
	var req dto.RecommendationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	sessionID := middleware.SessionID(c)
	input := req.ToInput()

	set, err := h.advisor.Recommend(c.Context(), sessionID, input)
	if err != nil {
		h.logger.Warn("Recommendation failed", zap.String("session_id", sessionID), zap.Error(err))
		return writeError(c, err)
	}

	return c.JSON(dto.NewRecommendationResponse(sessionID, input, set, PlaceholderImage))
}

// Current godoc
// @Summary Current recommendations
// @Description Return the recommendations stored in the visitor session
// @Tags recommendations
// @Produce json
// @Success 200 {object} dto.RecommendationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /recommendations [get]
func (h *AdvisorHandler) Current(c *fiber.Ctx) error {
	sessionID := middleware.SessionID(c)
	session, err := h.advisor.Current(c.Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	if session.Set.Empty() {
		return writeError(c, service.ErrSessionNotFound)
	}
	return c.JSON(dto.NewRecommendationResponse(sessionID, session.Input, session.Set, PlaceholderImage))
}

// SubmitLead godoc
// @Summary Request a quote
// @Description Record a lead for the current recommendations
// @Tags leads
// @Accept json
// @Produce json
// @Param request body dto.LeadRequest true "Contact details"
// @Success 201 {object} dto.LeadResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /leads [post]
func (h *AdvisorHandler) SubmitLead(c *fiber.Ctx) error {
	var req dto.LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	lead, err := h.advisor.SubmitLead(c.Context(), middleware.SessionID(c), req.ToContact())
	if err != nil {
		h.logger.Warn("Lead rejected", zap.Error(err))
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.LeadResponse{
		LeadID:  lead.ID,
		Message: "Lead recorded. A specialist will follow up with a quote.",
	})
}

// LeadCount godoc
// @Summary Count recorded leads
// @Tags leads
// @Produce json
// @Success 200 {object} dto.LeadCountResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /leads/count [get]
func (h *AdvisorHandler) LeadCount(c *fiber.Ctx) error {
	n, err := h.leads.Count()
	if err != nil {
		h.logger.Error("Failed to read ledger", zap.Error(err))
		return writeError(c, err)
	}
	return c.JSON(dto.LeadCountResponse{Count: n})
}

// Export godoc
// @Summary Download the recommendation summary
// @Description Render the session's input and recommendations as a PDF
// @Tags export
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Router /export [get]
func (h *AdvisorHandler) Export(c *fiber.Ctx) error {
	data, err := h.advisor.Export(c.Context(), middleware.SessionID(c))
	if err != nil {
		h.logger.Warn("Export failed", zap.Error(err))
		return writeError(c, err)
	}

	filename := "room_recommendation_" + h.now().Format("20060102_150405") + ".pdf"
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
