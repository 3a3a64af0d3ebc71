package models

// SimulationRequest asks for financial projections of a market scenario.
// Quantity is zero when the caller did not provide one.
type SimulationRequest struct {
	Forecast ForecastRequest
	Market   string
	Quantity float64
}

// RiskAssessment summarizes the risks attached to a simulated scenario.
type RiskAssessment struct {
	GlutRisk       GlutRisk `json:"glutRisk"`
	Volatility     string   `json:"volatility"`
	SeasonalFactor string   `json:"seasonalFactor"`
}

// SimulationResult is a forecast plus the projections for the chosen market.
type SimulationResult struct {
	Forecast
	Market         string         `json:"market"`
	Revenue        float64        `json:"revenue"`
	Profit         float64        `json:"profit"`
	RiskAssessment RiskAssessment `json:"riskAssessment"`
}
