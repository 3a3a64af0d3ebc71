package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
	"github.com/mamadbah2/agriforecast/internal/reference"
)

// jitterDegrees bounds the random offset applied to unknown market locations.
const jitterDegrees = 0.5

// aiForecast is the snake_case schema the model is instructed to return.
type aiForecast struct {
	ForecastTrend         []aiTrendPoint `json:"forecast_trend" validate:"required,min=1"`
	GlutRisk              string         `json:"glut_risk" validate:"required,oneof=Low Medium High"`
	OptimalPlantingTime   string         `json:"optimal_planting_time"`
	OptimalSellingTime    string         `json:"optimal_selling_time"`
	RecommendedQuantityKg float64        `json:"recommended_quantity_kg"`
	SuggestedMarkets      []string       `json:"suggested_markets"`
	ActionSummary         string         `json:"action_summary"`
}

type aiTrendPoint struct {
	Date               string  `json:"date"`
	ExpectedDemandKg   float64 `json:"expected_demand_kg"`
	ExpectedPricePerKg float64 `json:"expected_price_per_kg"`
}

// Normalizer turns raw model output into a canonical forecast.
type Normalizer struct {
	validate *validator.Validate
	rand     func() float64
	now      func() time.Time
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithRand replaces the random source used for location jitter.
func WithRand(fn func() float64) Option {
	return func(n *Normalizer) { n.rand = fn }
}

// WithClock replaces the clock used for timestamps.
func WithClock(fn func() time.Time) Option {
	return func(n *Normalizer) { n.now = fn }
}

// New builds a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{validate: validator.New(), rand: rand.Float64, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ExtractJSON strips code fences and surrounding prose, returning the text
// between the first '{' and the last '}'.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no json object in response: %w", models.ErrMalformedResponse)
	}
	return text[start : end+1], nil
}

// Normalize validates raw and reshapes it for req.
func (n *Normalizer) Normalize(raw string, req models.ForecastRequest) (models.Forecast, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return models.Forecast{}, err
	}

	var parsed aiForecast
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.Forecast{}, fmt.Errorf("%w: %s must be %s, got %s", models.ErrValidation, typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return models.Forecast{}, fmt.Errorf("decode json: %w: %w", models.ErrMalformedResponse, err)
	}

	if err := n.validate.Struct(parsed); err != nil {
		return models.Forecast{}, fmt.Errorf("%w: %s", models.ErrValidation, describe(err))
	}

	// oneof already restricts the value, so this cannot fail.
	risk, _ := models.ParseGlutRisk(parsed.GlutRisk)

	points := parsed.ForecastTrend
	demand := make([]float64, len(points))
	price := make([]float64, len(points))
	for i, p := range points {
		demand[i] = p.ExpectedDemandKg
		price[i] = p.ExpectedPricePerKg
	}

	req = req.WithDefaults()
	markets := n.marketRecords(parsed.SuggestedMarkets, price, risk)

	return models.Forecast{
		ID:                  uuid.NewString(),
		Crop:                req.Crop,
		Region:              req.Region,
		Season:              req.Season,
		Quantity:            req.Quantity,
		DemandTrend:         models.NewTrendSeries(demand),
		PriceTrend:          models.NewTrendSeries(price),
		GlutRisk:            risk,
		OptimalPlantingTime: parsed.OptimalPlantingTime,
		OptimalSellingTime:  parsed.OptimalSellingTime,
		RecommendedQuantity: parsed.RecommendedQuantityKg,
		SuggestedMarkets:    parsed.SuggestedMarkets,
		ActionSummary:       parsed.ActionSummary,
		Recommendations:     recommendations(parsed, risk),
		Markets:             markets,
		Source:              models.SourceAI,
		Timestamp:           n.now().UTC(),
	}, nil
}

func (n *Normalizer) marketRecords(names []string, prices []float64, risk models.GlutRisk) []models.MarketRecord {
	avg := averagePrice(prices)
	records := make([]models.MarketRecord, 0, len(names))
	for i, name := range names {
		coord, ok := reference.Locate(name)
		if !ok {
			coord = reference.Coordinate{
				Lat: reference.DefaultCoordinate.Lat + (n.rand()*2-1)*jitterDegrees,
				Lng: reference.DefaultCoordinate.Lng + (n.rand()*2-1)*jitterDegrees,
			}
		}
		demand := "medium"
		if i == 0 {
			demand = "high"
		}
		p := avg
		records = append(records, models.MarketRecord{
			Name:   name,
			Lat:    coord.Lat,
			Lng:    coord.Lng,
			Demand: demand,
			Price:  &p,
			Risk:   risk,
		})
	}
	return records
}

func recommendations(parsed aiForecast, risk models.GlutRisk) models.Recommendations {
	rec := models.Recommendations{
		SowingTime:  fmt.Sprintf("Sow around %s.", parsed.OptimalPlantingTime),
		SellingTime: fmt.Sprintf("Sell around %s.", parsed.OptimalSellingTime),
		Actions:     []string{},
	}
	if len(parsed.SuggestedMarkets) > 0 {
		rec.MarketStrategy = fmt.Sprintf("Prioritise %s (glut risk %s).", strings.Join(parsed.SuggestedMarkets, ", "), risk)
	} else {
		rec.MarketStrategy = fmt.Sprintf("Sell through the nearest mandi (glut risk %s).", risk)
	}
	if parsed.ActionSummary != "" {
		rec.Actions = append(rec.Actions, parsed.ActionSummary)
	}
	if parsed.RecommendedQuantityKg > 0 {
		rec.Actions = append(rec.Actions, fmt.Sprintf("Plant about %.0f kg.", parsed.RecommendedQuantityKg))
	}
	return rec
}

func averagePrice(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return math.Round(sum/float64(len(prices))*100) / 100
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
