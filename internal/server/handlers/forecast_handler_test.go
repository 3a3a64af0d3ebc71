package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

type forecastStub struct {
	got models.ForecastRequest
}

func (s *forecastStub) GetForecast(_ context.Context, req models.ForecastRequest) models.Forecast {
	s.got = req
	return models.Forecast{Crop: req.Crop, Region: req.Region, Season: req.Season, Quantity: req.Quantity, Source: models.SourceMock}
}

type simulationStub struct {
	got models.SimulationRequest
}

func (s *simulationStub) GetSimulation(_ context.Context, req models.SimulationRequest) models.SimulationResult {
	s.got = req
	return models.SimulationResult{Market: req.Market, Revenue: 2000, Profit: 800}
}

type historyStub struct {
	crop  string
	limit int
	err   error
}

func (s *historyStub) RecentForecasts(_ context.Context, crop string, limit int) ([]models.Forecast, error) {
	s.crop, s.limit = crop, limit
	return []models.Forecast{{Crop: "Rice"}}, s.err
}

type reportStub struct {
	start, end time.Time
}

func (s *reportStub) WeeklySummary(_ context.Context, start, end time.Time) (models.ForecastDigest, error) {
	s.start, s.end = start, end
	return models.ForecastDigest{TotalForecasts: 4, Summary: "four"}, nil
}

func newEngine(h *ForecastHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/forecast", h.Forecast)
	r.POST("/api/simulate", h.Simulate)
	r.GET("/api/markets/:region", h.Markets)
	r.GET("/api/forecasts/history", h.History)
	r.GET("/api/reports/weekly", h.WeeklyReport)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestForecastDefaultsQuantity(t *testing.T) {
	stub := &forecastStub{}
	r := newEngine(NewForecastHandler(stub, nil, nil, nil, nil))

	w := do(r, http.MethodPost, "/api/forecast", `{"crop":" Rice ","district":"Karnataka","season":"kharif"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ForecastRequest{Crop: "Rice", Region: "Karnataka", Season: models.SeasonKharif, Quantity: 100}, stub.got)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "mock-data", body["source"])
	assert.Equal(t, "Karnataka", body["district"])
}

func TestForecastRejectsInvalidInput(t *testing.T) {
	r := newEngine(NewForecastHandler(&forecastStub{}, nil, nil, nil, nil))

	tests := []struct {
		name string
		body string
	}{
		{name: "missing crop", body: `{"district":"Karnataka","season":"Kharif"}`},
		{name: "missing district", body: `{"crop":"Rice","season":"Kharif"}`},
		{name: "unknown season", body: `{"crop":"Rice","district":"Karnataka","season":"Monsoon"}`},
		{name: "zero quantity", body: `{"crop":"Rice","district":"Karnataka","season":"Kharif","quantity":0}`},
		{name: "negative quantity", body: `{"crop":"Rice","district":"Karnataka","season":"Kharif","quantity":-5}`},
		{name: "oversized quantity", body: `{"crop":"Rice","district":"Karnataka","season":"Kharif","quantity":1e308}`},
		{name: "just above cap", body: `{"crop":"Rice","district":"Karnataka","season":"Kharif","quantity":1000000001}`},
		{name: "not json", body: `crop=Rice`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/forecast", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSimulate(t *testing.T) {
	sims := &simulationStub{}
	r := newEngine(NewForecastHandler(&forecastStub{}, sims, nil, nil, nil))

	w := do(r, http.MethodPost, "/api/simulate", `{"crop":"Rice","district":"Karnataka","season":"Rabi","market":"Mysore Market","quantity":250}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mysore Market", sims.got.Market)
	assert.Equal(t, 250.0, sims.got.Quantity)
	assert.Equal(t, 250.0, sims.got.Forecast.Quantity)
	assert.Equal(t, models.SeasonRabi, sims.got.Forecast.Season)
	assert.Contains(t, w.Body.String(), `"profit":800`)
}

func TestSimulateRequiresMarket(t *testing.T) {
	r := newEngine(NewForecastHandler(&forecastStub{}, &simulationStub{}, nil, nil, nil))
	w := do(r, http.MethodPost, "/api/simulate", `{"crop":"Rice","district":"Karnataka","season":"Rabi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulateRejectsOversizedQuantity(t *testing.T) {
	sims := &simulationStub{}
	r := newEngine(NewForecastHandler(&forecastStub{}, sims, nil, nil, nil))

	w := do(r, http.MethodPost, "/api/simulate", `{"crop":"Rice","district":"Karnataka","season":"Rabi","market":"Mysore Market","quantity":1e308}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sims.got.Market)
}

func TestForecastAcceptsQuantityAtCap(t *testing.T) {
	stub := &forecastStub{}
	r := newEngine(NewForecastHandler(stub, nil, nil, nil, nil))

	w := do(r, http.MethodPost, "/api/forecast", `{"crop":"Rice","district":"Karnataka","season":"Kharif","quantity":1000000000}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MaxQuantityKg, stub.got.Quantity)
}

func TestSimulateWithoutQuantity(t *testing.T) {
	sims := &simulationStub{}
	r := newEngine(NewForecastHandler(&forecastStub{}, sims, nil, nil, nil))

	w := do(r, http.MethodPost, "/api/simulate", `{"crop":"Rice","district":"Karnataka","season":"Rabi","market":"Mysore Market"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, sims.got.Quantity)
	assert.Equal(t, models.DefaultQuantityKg, sims.got.Forecast.Quantity)
}

func TestMarkets(t *testing.T) {
	r := newEngine(NewForecastHandler(&forecastStub{}, nil, nil, nil, nil))

	w := do(r, http.MethodGet, "/api/markets/Karnataka", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Region  string                `json:"region"`
		Markets []models.MarketRecord `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Karnataka", body.Region)
	assert.Len(t, body.Markets, 4)
}

func TestHistory(t *testing.T) {
	store := &historyStub{}
	r := newEngine(NewForecastHandler(&forecastStub{}, nil, store, nil, nil))

	w := do(r, http.MethodGet, "/api/forecasts/history?crop=rice&limit=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rice", store.crop)
	assert.Equal(t, 5, store.limit)

	w = do(r, http.MethodGet, "/api/forecasts/history?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryErrors(t *testing.T) {
	r := newEngine(NewForecastHandler(&forecastStub{}, nil, nil, nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/forecasts/history", "").Code)

	r = newEngine(NewForecastHandler(&forecastStub{}, nil, &historyStub{err: errors.New("timeout")}, nil, nil))
	assert.Equal(t, http.StatusBadGateway, do(r, http.MethodGet, "/api/forecasts/history", "").Code)
}

func TestWeeklyReport(t *testing.T) {
	reports := &reportStub{}
	h := NewForecastHandler(&forecastStub{}, nil, nil, reports, nil)
	now := time.Date(2026, time.May, 8, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	w := do(newEngine(h), http.MethodGet, "/api/reports/weekly", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, now, reports.end)
	assert.Equal(t, time.Date(2026, time.May, 2, 12, 0, 0, 0, time.UTC), reports.start)
	assert.Contains(t, w.Body.String(), `"four"`)
}

func TestWeeklyReportNotConfigured(t *testing.T) {
	r := newEngine(NewForecastHandler(&forecastStub{}, nil, nil, nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/reports/weekly", "").Code)
}
