package mock

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
	"github.com/mamadbah2/agriforecast/internal/reference"
)

const (
	horizonDays         = 30
	seasonalPeriodDays  = 7.0
	seasonalAmplitude   = 0.10
	highRiskRatio       = 1.5
	mediumRiskRatio     = 1.2
	recommendedFraction = 0.9
	plantingLeadDays    = 7
	growthCycleDays     = 90
)

// Generator produces synthetic forecasts without any network call.
type Generator struct {
	rand func() float64
	now  func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRand replaces the random source. It must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(g *Generator) { g.rand = fn }
}

// WithClock replaces the clock used for dates and timestamps.
func WithClock(fn func() time.Time) Option {
	return func(g *Generator) { g.now = fn }
}

// NewGenerator builds a generator backed by the global random source.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rand: rand.Float64, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a complete forecast for req. It never fails.
func (g *Generator) Generate(req models.ForecastRequest) models.Forecast {
	req = req.WithDefaults()
	params := reference.Economics(req.Crop)
	baseline := req.Quantity * params.DemandMultiplier

	demand := make([]float64, horizonDays)
	price := make([]float64, horizonDays)
	for i := range horizonDays {
		seasonal := 1 + seasonalAmplitude*math.Sin(2*math.Pi*float64(i)/seasonalPeriodDays)
		demand[i] = math.Round(baseline * seasonal * g.randomFactor(params.Volatility))
		price[i] = round2(params.BasePrice * g.randomFactor(params.Volatility))
	}

	meanDemand := mean(demand)
	risk := ClassifyGlutRisk(req.Quantity, meanDemand)
	recommended := math.Round(meanDemand * recommendedFraction)

	now := g.now()
	planting := now.AddDate(0, 0, plantingLeadDays)
	selling := planting.AddDate(0, 0, growthCycleDays)

	suggested := reference.SuggestedMarketsFor(req.Region)
	avgPrice := round2(mean(price))

	return models.Forecast{
		ID:                  uuid.NewString(),
		Crop:                req.Crop,
		Region:              req.Region,
		Season:              req.Season,
		Quantity:            req.Quantity,
		DemandTrend:         models.NewTrendSeries(demand),
		PriceTrend:          models.NewTrendSeries(price),
		GlutRisk:            risk,
		OptimalPlantingTime: planting.Format(models.DateLayout),
		OptimalSellingTime:  selling.Format(models.DateLayout),
		RecommendedQuantity: recommended,
		SuggestedMarkets:    suggested,
		ActionSummary:       actionSummary(req, risk, recommended),
		Recommendations: models.Recommendations{
			SowingTime:     fmt.Sprintf("Sow %s around %s for the %s season.", req.Crop, planting.Format(models.DateLayout), req.Season),
			SellingTime:    fmt.Sprintf("Plan to sell around %s, after a %d-day growth cycle.", selling.Format(models.DateLayout), growthCycleDays),
			MarketStrategy: fmt.Sprintf("Target %s where the expected price averages %.2f per kg.", strings.Join(suggested, ", "), avgPrice),
			Actions:        actions(risk, recommended, suggested),
		},
		Markets:   reference.MarketsFor(req.Region),
		Source:    models.SourceMock,
		Timestamp: now.UTC(),
	}
}

// ClassifyGlutRisk compares the planned quantity with the mean forecast demand.
func ClassifyGlutRisk(quantity, meanDemand float64) models.GlutRisk {
	switch {
	case quantity > highRiskRatio*meanDemand:
		return models.GlutRiskHigh
	case quantity > mediumRiskRatio*meanDemand:
		return models.GlutRiskMedium
	default:
		return models.GlutRiskLow
	}
}

// randomFactor is uniform in [1-volatility/2, 1+volatility/2).
func (g *Generator) randomFactor(volatility float64) float64 {
	return 1 - volatility/2 + g.rand()*volatility
}

func actionSummary(req models.ForecastRequest, risk models.GlutRisk, recommended float64) string {
	switch risk {
	case models.GlutRiskHigh:
		return fmt.Sprintf("High glut risk for %s in %s: reduce planting to about %.0f kg.", req.Crop, req.Region, recommended)
	case models.GlutRiskMedium:
		return fmt.Sprintf("Moderate glut risk for %s in %s: consider planting about %.0f kg.", req.Crop, req.Region, recommended)
	default:
		return fmt.Sprintf("Demand for %s in %s looks healthy: about %.0f kg is a safe quantity.", req.Crop, req.Region, recommended)
	}
}

func actions(risk models.GlutRisk, recommended float64, markets []string) []string {
	out := []string{fmt.Sprintf("Plant about %.0f kg to stay below expected demand.", recommended)}
	if len(markets) > 0 {
		out = append(out, fmt.Sprintf("Contact buyers at %s before harvest.", markets[0]))
	}
	switch risk {
	case models.GlutRiskHigh:
		out = append(out, "Stagger sowing or diversify into a second crop.", "Arrange storage to avoid distress sales.")
	case models.GlutRiskMedium:
		out = append(out, "Monitor weekly mandi prices and split sales across markets.")
	default:
		out = append(out, "Lock in forward contracts while prices are stable.")
	}
	return out
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

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
