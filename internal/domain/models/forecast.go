package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for planting and selling dates.
const DateLayout = "2006-01-02"

// DefaultQuantityKg is applied when a request omits the planned quantity.
const DefaultQuantityKg = 100.0

// MaxQuantityKg caps the planned quantity so derived series stay finite.
const MaxQuantityKg = 1e9

// Source tags the generator that produced a forecast.
type Source string

const (
	SourceAI   Source = "ai-generated"
	SourceMock Source = "mock-data"
)

// Season enumerates the supported cropping seasons.
type Season string

const (
	SeasonKharif Season = "Kharif"
	SeasonRabi   Season = "Rabi"
	SeasonZaid   Season = "Zaid"
)

// ParseSeason resolves a season label case-insensitively.
func ParseSeason(value string) (Season, error) {
	normalized := strings.TrimSpace(value)
	for _, s := range []Season{SeasonKharif, SeasonRabi, SeasonZaid} {
		if strings.EqualFold(normalized, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unsupported season %q", value)
}

// GlutRisk classifies the oversupply likelihood of a planned quantity.
type GlutRisk string

const (
	GlutRiskLow    GlutRisk = "low"
	GlutRiskMedium GlutRisk = "medium"
	GlutRiskHigh   GlutRisk = "high"
)

// ParseGlutRisk accepts any casing and returns the lower-case enum value.
func ParseGlutRisk(value string) (GlutRisk, error) {
	switch GlutRisk(strings.ToLower(strings.TrimSpace(value))) {
	case GlutRiskLow:
		return GlutRiskLow, nil
	case GlutRiskMedium:
		return GlutRiskMedium, nil
	case GlutRiskHigh:
		return GlutRiskHigh, nil
	}
	return "", fmt.Errorf("unknown glut risk %q", value)
}

// ForecastRequest is the farmer input for a single forecast.
type ForecastRequest struct {
	Crop     string  `json:"crop" bson:"crop"`
	Region   string  `json:"district" bson:"district"`
	Season   Season  `json:"season" bson:"season"`
	Quantity float64 `json:"quantity" bson:"quantity"`
}

// WithDefaults returns a copy with the default quantity applied and the
// quantity capped at MaxQuantityKg.
func (r ForecastRequest) WithDefaults() ForecastRequest {
	switch {
	case r.Quantity <= 0 || math.IsNaN(r.Quantity):
		r.Quantity = DefaultQuantityKg
	case r.Quantity > MaxQuantityKg:
		r.Quantity = MaxQuantityKg
	}
	return r
}

// TrendSeries exposes one 30-point daily series through three nested horizons.
// The shorter horizons share the backing array of the 30-day series.
type TrendSeries struct {
	SevenDay    []float64 `json:"7day" bson:"7day"`
	FourteenDay []float64 `json:"14day" bson:"14day"`
	ThirtyDay   []float64 `json:"30day" bson:"30day"`
}

// NewTrendSeries builds the horizon views over series. Horizons longer than
// the series are truncated to its length; nothing is padded.
func NewTrendSeries(series []float64) TrendSeries {
	if len(series) > 30 {
		series = series[:30]
	}
	return TrendSeries{
		SevenDay:    series[:min(7, len(series))],
		FourteenDay: series[:min(14, len(series))],
		ThirtyDay:   series,
	}
}

// MarketRecord is a market shown on the dashboard map.
type MarketRecord struct {
	Name   string   `json:"name" bson:"name"`
	Lat    float64  `json:"lat" bson:"lat"`
	Lng    float64  `json:"lng" bson:"lng"`
	Demand string   `json:"demand" bson:"demand"`
	Price  *float64 `json:"price,omitempty" bson:"price,omitempty"`
	Risk   GlutRisk `json:"risk,omitempty" bson:"risk,omitempty"`
}

// Recommendations is the structured advice block rendered under the charts.
type Recommendations struct {
	SowingTime     string   `json:"sowingTime" bson:"sowing_time"`
	SellingTime    string   `json:"sellingTime" bson:"selling_time"`
	MarketStrategy string   `json:"marketStrategy" bson:"market_strategy"`
	Actions        []string `json:"actions" bson:"actions"`
}

// Forecast is the canonical result returned for a ForecastRequest.
type Forecast struct {
	ID                  string          `json:"id" bson:"_id"`
	Crop                string          `json:"crop" bson:"crop"`
	Region              string          `json:"district" bson:"district"`
	Season              Season          `json:"season" bson:"season"`
	Quantity            float64         `json:"quantity" bson:"quantity"`
	DemandTrend         TrendSeries     `json:"demandTrend" bson:"demand_trend"`
	PriceTrend          TrendSeries     `json:"priceTrend" bson:"price_trend"`
	GlutRisk            GlutRisk        `json:"glutRisk" bson:"glut_risk"`
	OptimalPlantingTime string          `json:"optimalPlantingTime" bson:"optimal_planting_time"`
	OptimalSellingTime  string          `json:"optimalSellingTime" bson:"optimal_selling_time"`
	RecommendedQuantity float64         `json:"recommendedQuantity" bson:"recommended_quantity"`
	SuggestedMarkets    []string        `json:"suggestedMarkets" bson:"suggested_markets"`
	ActionSummary       string          `json:"actionSummary" bson:"action_summary"`
	Recommendations     Recommendations `json:"recommendations" bson:"recommendations"`
	Markets             []MarketRecord  `json:"markets" bson:"markets"`
	Source              Source          `json:"source" bson:"source"`
	Warning             string          `json:"warning,omitempty" bson:"warning,omitempty"`
	Timestamp           time.Time       `json:"timestamp" bson:"timestamp"`
}
