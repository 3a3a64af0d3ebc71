package simulation

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

// UnitCostPerKg is the assumed cultivation cost per kilogram.
const UnitCostPerKg = 12.0

const (
	lowVolatilityCeiling    = 0.08
	mediumVolatilityCeiling = 0.15
)

var seasonalFactors = map[models.Season]string{
	models.SeasonKharif: "Monsoon-dependent: rainfall variability can swing yields and prices.",
	models.SeasonRabi:   "Irrigation-dependent: stable weather, watch winter demand peaks.",
	models.SeasonZaid:   "Short summer season: heat stress and water availability are the main risks.",
}

// ForecastProvider returns a forecast and never fails.
type ForecastProvider interface {
	GetForecast(ctx context.Context, req models.ForecastRequest) models.Forecast
}

// Service derives financial projections from a forecast.
type Service struct {
	forecasts ForecastProvider
	logger    *zap.Logger
}

// NewService wires the simulation orchestrator.
func NewService(forecasts ForecastProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{forecasts: forecasts, logger: logger}
}

// GetSimulation projects revenue and profit for selling at req.Market.
func (s *Service) GetSimulation(ctx context.Context, req models.SimulationRequest) models.SimulationResult {
	forecastReq := req.Forecast
	if req.Quantity > 0 {
		forecastReq.Quantity = req.Quantity
	}
	f := s.forecasts.GetForecast(ctx, forecastReq)

	quantity := min(req.Quantity, models.MaxQuantityKg)
	if quantity <= 0 {
		quantity = f.RecommendedQuantity
	}

	prices := f.PriceTrend.ThirtyDay
	revenue := mean(prices) * quantity
	profit := revenue - quantity*UnitCostPerKg

	s.logger.Debug("simulation computed",
		zap.String("crop", f.Crop),
		zap.String("market", req.Market),
		zap.Float64("quantity", quantity),
		zap.Float64("revenue", revenue),
		zap.Float64("profit", profit))

	return models.SimulationResult{
		Forecast: f,
		Market:   req.Market,
		Revenue:  revenue,
		Profit:   profit,
		RiskAssessment: models.RiskAssessment{
			GlutRisk:       f.GlutRisk,
			Volatility:     VolatilityBucket(prices),
			SeasonalFactor: SeasonalFactor(f.Season),
		},
	}
}

// VolatilityBucket classifies the coefficient of variation of prices.
func VolatilityBucket(prices []float64) string {
	m := mean(prices)
	if m == 0 {
		return "low"
	}
	cv := stddev(prices, m) / m
	switch {
	case cv < lowVolatilityCeiling:
		return "low"
	case cv < mediumVolatilityCeiling:
		return "medium"
	default:
		return "high"
	}
}

// SeasonalFactor describes the qualitative risk of a season.
func SeasonalFactor(season models.Season) string {
	if factor, ok := seasonalFactors[season]; ok {
		return factor
	}
	return "Standard seasonal risk."
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation around m.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}
