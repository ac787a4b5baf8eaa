package fiber

import (
	"context"
	"errors"
	"net/http"

	"pulsetrack-api/internal/ingest/core/usecase"

	"github.com/gofiber/fiber/v2"
)

type IngestEventUseCase interface {
	Execute(ctx context.Context, in usecase.IngestInput) (usecase.IngestResult, error)
}

type EventHandler struct {
	ingestUC IngestEventUseCase
}

func NewEventHandler(ingestUC IngestEventUseCase) *EventHandler {
	return &EventHandler{ingestUC: ingestUC}
}

// TrackEvent godoc
// @Summary Ingest a tracking beacon
// @Description Validates, deduplicates and durably stores one tracker event
// @Tags Events
// @Accept json
// @Produce json
// @Param request body TrackEventRequest true "Beacon payload"
// @Success 201 {object} TrackEventResponse
// @Success 200 {object} TrackEventResponse "Duplicate delivery"
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /events [post]
func (h *EventHandler) TrackEvent(c *fiber.Ctx) error {
	var req TrackEventRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid_json",
		})
	}

	input := usecase.IngestInput{
		SiteID:     req.SiteID,
		VisitorID:  req.VisitorID,
		Name:       req.Name,
		OccurredAt: req.OccurredAt,
		Properties: req.Properties,
	}

	res, err := h.ingestUC.Execute(c.UserContext(), input)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnknownSite):
			return badRequest(c, "unknown_site", err)
		case errors.Is(err, usecase.ErrInvalidEventName):
			return badRequest(c, "invalid_event_name", err)
		case errors.Is(err, usecase.ErrMissingVisitor):
			return badRequest(c, "missing_visitor", err)
		case errors.Is(err, usecase.ErrPayloadTooLarge):
			return badRequest(c, "payload_too_large", err)
		case errors.Is(err, usecase.ErrTimestampSkew):
			return badRequest(c, "timestamp_skew", err)
		case errors.Is(err, usecase.ErrStorageUnavailable):
			// Durable append failed: the client's retry logic re-sends and
			// the idempotency key makes the retry safe.
			return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
				Error: "storage_unavailable",
			})
		default:
			return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
				Error: "internal_server_error",
			})
		}
	}

	if res.Duplicate {
		return c.Status(http.StatusOK).JSON(TrackEventResponse{
			Status:  "duplicate",
			EventID: res.EventID,
		})
	}
	return c.Status(http.StatusCreated).JSON(TrackEventResponse{
		Status:  "created",
		EventID: res.EventID,
	})
}

func badRequest(c *fiber.Ctx, reason string, err error) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Error:   reason,
		Message: err.Error(),
	})
}
