package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
	"github.com/mamadbah2/agriforecast/internal/reference"
)

const reportWindowDays = 7

// ForecastService serves forecasts and never fails.
type ForecastService interface {
	GetForecast(ctx context.Context, req models.ForecastRequest) models.Forecast
}

// SimulationService serves market simulations.
type SimulationService interface {
	GetSimulation(ctx context.Context, req models.SimulationRequest) models.SimulationResult
}

// HistoryStore lists previously served forecasts.
type HistoryStore interface {
	RecentForecasts(ctx context.Context, crop string, limit int) ([]models.Forecast, error)
}

// ReportService builds forecast digests.
type ReportService interface {
	WeeklySummary(ctx context.Context, start, end time.Time) (models.ForecastDigest, error)
}

type forecastBody struct {
	Crop     string   `json:"crop" binding:"required"`
	District string   `json:"district" binding:"required"`
	Season   string   `json:"season" binding:"required"`
	Quantity *float64 `json:"quantity" binding:"omitempty,gt=0,lte=1000000000"`
}

type simulateBody struct {
	forecastBody
	Market string `json:"market" binding:"required"`
}

// ForecastHandler exposes the forecast API over HTTP.
type ForecastHandler struct {
	forecasts   ForecastService
	simulations SimulationService
	history     HistoryStore
	reports     ReportService
	logger      *zap.Logger
	now         func() time.Time
}

// NewForecastHandler constructs the HTTP handler adapter. history and reports
// may be nil when their backends are not configured.
func NewForecastHandler(forecasts ForecastService, simulations SimulationService, history HistoryStore, reports ReportService, logger *zap.Logger) *ForecastHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastHandler{
		forecasts:   forecasts,
		simulations: simulations,
		history:     history,
		reports:     reports,
		logger:      logger,
		now:         time.Now,
	}
}

// Forecast returns demand and price trends for a crop.
func (h *ForecastHandler) Forecast(c *gin.Context) {
	var body forecastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid forecast payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "crop, district and season are required; quantity must be between 0 and 1e9 kg"})
		return
	}

	req, ok := h.toRequest(c, body)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.forecasts.GetForecast(c.Request.Context(), req))
}

// Simulate projects revenue and profit for selling at a market.
func (h *ForecastHandler) Simulate(c *gin.Context) {
	var body simulateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid simulation payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "crop, district, season and market are required; quantity must be between 0 and 1e9 kg"})
		return
	}

	req, ok := h.toRequest(c, body.forecastBody)
	if !ok {
		return
	}

	sim := models.SimulationRequest{Forecast: req, Market: strings.TrimSpace(body.Market)}
	if body.Quantity != nil {
		sim.Quantity = *body.Quantity
	}

	c.JSON(http.StatusOK, h.simulations.GetSimulation(c.Request.Context(), sim))
}

// Markets lists the reference markets of a region.
func (h *ForecastHandler) Markets(c *gin.Context) {
	region := c.Param("region")
	c.JSON(http.StatusOK, gin.H{
		"region":  region,
		"markets": reference.MarketsFor(region),
	})
}

// History lists recently served forecasts.
func (h *ForecastHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "forecast history is not configured"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	forecasts, err := h.history.RecentForecasts(c.Request.Context(), c.Query("crop"), limit)
	if err != nil {
		h.logger.Error("failed loading forecast history", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load forecast history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"forecasts": forecasts})
}

// WeeklyReport summarizes the forecasts served over the last seven days.
func (h *ForecastHandler) WeeklyReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "forecast export is not configured"})
		return
	}

	end := h.now()
	start := end.AddDate(0, 0, -(reportWindowDays - 1))

	digest, err := h.reports.WeeklySummary(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("failed building weekly report", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to build weekly report"})
		return
	}

	c.JSON(http.StatusOK, digest)
}

func (h *ForecastHandler) toRequest(c *gin.Context, body forecastBody) (models.ForecastRequest, bool) {
	season, err := models.ParseSeason(body.Season)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "season must be one of Kharif, Rabi, Zaid"})
		return models.ForecastRequest{}, false
	}

	req := models.ForecastRequest{
		Crop:   strings.TrimSpace(body.Crop),
		Region: strings.TrimSpace(body.District),
		Season: season,
	}
	if body.Quantity != nil {
		req.Quantity = *body.Quantity
	}
	return req.WithDefaults(), true
}
