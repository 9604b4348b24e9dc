package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets. Accepts multipart form data, where every
// file part is an attachment, or a JSON body without files.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var uploads []service.FileUpload
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid multipart form", nil)
		}
		uploads = fileUploads(form)
	}

	input := service.TicketCreateInput{
		Title:               req.Title,
		Description:         req.Description,
		Priority:            req.Priority,
		Email:               req.Email,
		StepsToReproduce:    req.StepsToReproduce,
		Category:            req.Category,
		AISuggestedTitle:    req.AISuggestedTitle,
		AISuggestedPriority: req.AISuggestedPriority,
		AISuggestedSteps:    req.AISuggestedSteps,
		Attachments:         uploads,
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /api/tickets[?category=name].
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	ctx := c.UserContext()
	category := strings.TrimSpace(c.Query("category"))

	var (
		items []dto.TicketResponse
		err   error
	)
	if category != "" {
		tickets, lerr := h.service.ListTicketsByCategory(ctx, category)
		items, err = dto.NewTicketResponses(tickets), lerr
	} else {
		tickets, lerr := h.service.ListTickets(ctx)
		items, err = dto.NewTicketResponses(tickets), lerr
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), service.TicketUpdateInput{
		Title:               req.Title,
		Description:         req.Description,
		Priority:            req.Priority,
		Email:               req.Email,
		StepsToReproduce:    req.StepsToReproduce,
		Category:            req.Category,
		AISuggestedTitle:    req.AISuggestedTitle,
		AISuggestedPriority: req.AISuggestedPriority,
		AISuggestedSteps:    req.AISuggestedSteps,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.DeleteTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// DownloadAttachment GET /api/tickets/:id/attachments/:attachmentId.
func (h *TicketsHandler) DownloadAttachment(c *fiber.Ctx) error {
	att, rc, err := h.service.OpenAttachment(c.UserContext(), c.Params("id"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename*=UTF-8''"+url.PathEscape(att.FileName))
	return c.SendStream(rc, int(att.FileSize))
}

// fileUploads collects every file part, ordered by field name and then
// by position within the field.
func fileUploads(form *multipart.Form) []service.FileUpload {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var uploads []service.FileUpload
	for _, field := range fields {
		for _, fh := range form.File[field] {
			fh := fh
			uploads = append(uploads, service.FileUpload{
				FileName: fh.Filename,
				Size:     fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return uploads
}
