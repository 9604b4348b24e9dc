package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SuggestionsHandler exposes AI enrichment ahead of submission.
type SuggestionsHandler struct {
	service *service.SuggestionService
}

// NewSuggestionsHandler constructs handler.
func NewSuggestionsHandler(suggestionService *service.SuggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{service: suggestionService}
}

// Suggest POST /api/tickets/ai/suggestions.
func (h *SuggestionsHandler) Suggest(c *fiber.Ctx) error {
	var req dto.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	suggestion, err := h.service.Suggest(c.UserContext(), req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": suggestion})
}
