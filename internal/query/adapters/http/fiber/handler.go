package fiber

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"pulsetrack-api/internal/query/core/domain"
	"pulsetrack-api/internal/query/core/usecase"
)

type AnalyticsUseCase interface {
	Overview(ctx context.Context, siteID int64, days int) (domain.Overview, error)
	PagePerformance(ctx context.Context, siteID int64, days int) ([]domain.DailyPagePerformance, error)
	PageVisits(ctx context.Context, siteID int64, days int) ([]domain.DailyVisits, error)
	ClickRate(ctx context.Context, siteID int64, days int) (float64, bool, error)
	BounceRate(ctx context.Context, siteID int64, days int) (float64, bool, error)
	ConversionRate(ctx context.Context, siteID int64, days int) (float64, bool, error)
	RetentionRate(ctx context.Context, siteID int64, days int) (float64, bool, error)
}

type AnalyticsHandler struct {
	uc AnalyticsUseCase
}

func NewAnalyticsHandler(uc AnalyticsUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

const defaultWindowDays = 30

func (h *AnalyticsHandler) params(c *fiber.Ctx) (int64, int, error) {
	siteIDStr := c.Query("site_id", "")
	if siteIDStr == "" {
		return 0, 0, errors.New("site_id is required")
	}
	siteID, err := strconv.ParseInt(siteIDStr, 10, 64)
	if err != nil {
		return 0, 0, errors.New("invalid 'site_id' parameter")
	}

	days := defaultWindowDays
	if daysStr := c.Query("days", ""); daysStr != "" {
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			return 0, 0, errors.New("invalid 'days' parameter")
		}
	}
	return siteID, days, nil
}

// Overview godoc
// @Summary Site overview
// @Description Returns headline totals for one site over the last N days
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} OverviewResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	siteID, days, err := h.params(c)
	if err != nil {
		return badRequest(c, err)
	}

	ov, err := h.uc.Overview(c.Context(), siteID, days)
	if err != nil {
		return queryError(c, err)
	}

	return c.Status(http.StatusOK).JSON(OverviewResponse{
		SiteID:                 ov.SiteID,
		PeriodDays:             ov.PeriodDays,
		TotalPageviews:         ov.TotalPageviews,
		TotalEvents:            ov.TotalEvents,
		UniqueUsers:            ov.UniqueVisitors,
		AverageSessionDuration: ov.AverageSessionDuration,
		LateEvents:             ov.LateEvents,
		IncludesLiveEstimate:   ov.IncludesLiveEstimate,
		Stale:                  ov.Stale,
	})
}

// PagePerformance godoc
// @Summary Daily page performance
// @Description Returns per-day pageviews, clicks and bounce rate
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} PagePerformanceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/pages [get]
func (h *AnalyticsHandler) PagePerformance(c *fiber.Ctx) error {
	siteID, days, err := h.params(c)
	if err != nil {
		return badRequest(c, err)
	}

	data, err := h.uc.PagePerformance(c.Context(), siteID, days)
	if err != nil {
		return queryError(c, err)
	}
	return c.Status(http.StatusOK).JSON(PagePerformanceResponse{SiteID: siteID, Data: data})
}

// PageVisits godoc
// @Summary Daily page visits
// @Description Returns per-day pageview counts
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} PageVisitsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/page-visits [get]
func (h *AnalyticsHandler) PageVisits(c *fiber.Ctx) error {
	siteID, days, err := h.params(c)
	if err != nil {
		return badRequest(c, err)
	}

	data, err := h.uc.PageVisits(c.Context(), siteID, days)
	if err != nil {
		return queryError(c, err)
	}
	return c.Status(http.StatusOK).JSON(PageVisitsResponse{SiteID: siteID, Data: data})
}

// ClickRate godoc
// @Summary Click rate
// @Description Returns clicks per pageview as a percentage
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} RateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/click-rate [get]
func (h *AnalyticsHandler) ClickRate(c *fiber.Ctx) error {
	return h.rate(c, h.uc.ClickRate)
}

// BounceRate godoc
// @Summary Bounce rate
// @Description Returns single-event sessions per session as a percentage
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} RateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/bounce-rate [get]
func (h *AnalyticsHandler) BounceRate(c *fiber.Ctx) error {
	return h.rate(c, h.uc.BounceRate)
}

// ConversionRate godoc
// @Summary Conversion rate
// @Description Returns goal-completing sessions per session as a percentage
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} RateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/conversion-rate [get]
func (h *AnalyticsHandler) ConversionRate(c *fiber.Ctx) error {
	return h.rate(c, h.uc.ConversionRate)
}

// RetentionRate godoc
// @Summary Retention rate
// @Description Returns the share of visitors who came back later in the window
// @Tags Analytics
// @Produce json
// @Param site_id query int true "Site ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} RateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/retention-rate [get]
func (h *AnalyticsHandler) RetentionRate(c *fiber.Ctx) error {
	return h.rate(c, h.uc.RetentionRate)
}

func (h *AnalyticsHandler) rate(c *fiber.Ctx, fn func(ctx context.Context, siteID int64, days int) (float64, bool, error)) error {
	siteID, days, err := h.params(c)
	if err != nil {
		return badRequest(c, err)
	}

	rate, stale, err := fn(c.Context(), siteID, days)
	if err != nil {
		return queryError(c, err)
	}
	return c.Status(http.StatusOK).JSON(RateResponse{
		SiteID:     siteID,
		PeriodDays: days,
		Rate:       rate,
		Stale:      stale,
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_query",
		Message: err.Error(),
	})
}

func queryError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidSite), errors.Is(err, usecase.ErrInvalidWindow):
		return badRequest(c, err)
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}
