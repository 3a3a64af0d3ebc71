package models

import "time"

// ForecastDigest aggregates the forecasts served over a period.
type ForecastDigest struct {
	PeriodStart            time.Time        `bson:"period_start" json:"periodStart"`
	PeriodEnd              time.Time        `bson:"period_end" json:"periodEnd"`
	TotalForecasts         int              `bson:"total_forecasts" json:"totalForecasts"`
	AIForecasts            int              `bson:"ai_forecasts" json:"aiForecasts"`
	MockForecasts          int              `bson:"mock_forecasts" json:"mockForecasts"`
	RiskCounts             map[GlutRisk]int `bson:"risk_counts" json:"riskCounts"`
	AvgRecommendedQuantity float64          `bson:"avg_recommended_quantity" json:"avgRecommendedQuantity"`
	TopCrops               []string         `bson:"top_crops" json:"topCrops"`
	Summary                string           `bson:"summary" json:"summary"`
	CreatedAt              time.Time        `bson:"created_at" json:"createdAt"`
}
