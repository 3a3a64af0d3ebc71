package forecast

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
	"github.com/mamadbah2/agriforecast/internal/service/mock"
	"github.com/mamadbah2/agriforecast/internal/service/normalizer"
)

const validAIResponse = "```json\n" + `{
  "forecast_trend": [
    {"date": "2026-07-01", "expected_demand_kg": 120, "expected_price_per_kg": 30},
    {"date": "2026-07-02", "expected_demand_kg": 125, "expected_price_per_kg": 31}
  ],
  "glut_risk": "High",
  "optimal_planting_time": "2026-07-08",
  "optimal_selling_time": "2026-10-06",
  "recommended_quantity_kg": 90,
  "suggested_markets": ["Bangalore APMC"],
  "action_summary": "Reduce the planned quantity."
}` + "\n```"

var request = models.ForecastRequest{Crop: "Rice", Region: "Karnataka", Season: models.SeasonKharif, Quantity: 100}

type fakeAI struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	delay time.Duration
}

func (f *fakeAI) RequestForecast(ctx context.Context, _ models.ForecastRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type memoryCache struct {
	items  map[string]models.Forecast
	getErr error
}

func (m *memoryCache) Get(_ context.Context, req models.ForecastRequest) (models.Forecast, bool, error) {
	if m.getErr != nil {
		return models.Forecast{}, false, m.getErr
	}
	f, ok := m.items[req.Crop]
	return f, ok, nil
}

func (m *memoryCache) Set(_ context.Context, req models.ForecastRequest, f models.Forecast) error {
	if m.items == nil {
		m.items = map[string]models.Forecast{}
	}
	m.items[req.Crop] = f
	return nil
}

type recorder struct {
	mu    sync.Mutex
	saved []models.Forecast
	err   error
}

func (r *recorder) SaveForecast(_ context.Context, f models.Forecast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, f)
	return r.err
}

// stalledRecorder blocks until its context expires.
type stalledRecorder struct {
	done chan error
}

func (r *stalledRecorder) SaveForecast(ctx context.Context, _ models.Forecast) error {
	<-ctx.Done()
	r.done <- ctx.Err()
	return ctx.Err()
}

func newGenerator() *mock.Generator {
	r := rand.New(rand.NewPCG(1, 2))
	return mock.NewGenerator(mock.WithRand(r.Float64))
}

func newService(ai AIClient, available bool, logger *zap.Logger, opts ...Option) *Service {
	return NewService(ai, available, normalizer.New(), newGenerator(), logger, opts...)
}

func TestGetForecastUsesAIWhenHealthy(t *testing.T) {
	ai := &fakeAI{text: validAIResponse}
	f := newService(ai, true, nil).GetForecast(context.Background(), request)

	assert.Equal(t, models.SourceAI, f.Source)
	assert.Equal(t, models.GlutRiskHigh, f.GlutRisk)
	assert.Empty(t, f.Warning)
	assert.Len(t, f.DemandTrend.ThirtyDay, 2)
	assert.Equal(t, 1, ai.calls)
}

func TestGetForecastUnavailableSkipsClient(t *testing.T) {
	ai := &fakeAI{text: validAIResponse}
	f := newService(ai, false, nil).GetForecast(context.Background(), request)

	assert.Equal(t, models.SourceMock, f.Source)
	assert.Equal(t, FallbackReason(models.ErrUnavailable), f.Warning)
	assert.Zero(t, ai.calls)
}

func TestGetForecastFallsBackOnEveryFailure(t *testing.T) {
	tests := []struct {
		name string
		ai   *fakeAI
	}{
		{name: "timeout", ai: &fakeAI{err: fmt.Errorf("slow: %w", models.ErrTimeout)}},
		{name: "transport", ai: &fakeAI{err: fmt.Errorf("dial: %w", models.ErrTransport)}},
		{name: "unexpected error", ai: &fakeAI{err: errors.New("boom")}},
		{name: "malformed", ai: &fakeAI{text: "I am not JSON"}},
		{name: "invalid", ai: &fakeAI{text: `{"forecast_trend": [], "glut_risk": "Extreme"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			f := newService(tt.ai, true, zap.New(core)).GetForecast(context.Background(), request)

			assert.Equal(t, models.SourceMock, f.Source)
			assert.NotEmpty(t, f.Warning)
			assert.Len(t, f.DemandTrend.ThirtyDay, 30)
			assert.Equal(t, 1, logs.FilterMessage("ai forecast failed, using mock data").Len())
		})
	}
}

func TestGetForecastTimeoutIsBounded(t *testing.T) {
	ai := &fakeAI{delay: 50 * time.Millisecond, err: models.ErrTimeout}

	start := time.Now()
	f := newService(ai, true, nil).GetForecast(context.Background(), request)

	assert.Equal(t, models.SourceMock, f.Source)
	assert.Equal(t, FallbackReason(models.ErrTimeout), f.Warning)
	assert.Less(t, time.Since(start), 15*time.Second)
}

func TestGetForecastCachesAIResults(t *testing.T) {
	ai := &fakeAI{text: validAIResponse}
	c := &memoryCache{}
	svc := newService(ai, true, nil, WithCache(c))

	first := svc.GetForecast(context.Background(), request)
	second := svc.GetForecast(context.Background(), request)

	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, first.DemandTrend, second.DemandTrend)
	assert.Equal(t, models.SourceAI, second.Source)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetForecastIgnoresCacheErrors(t *testing.T) {
	ai := &fakeAI{text: validAIResponse}
	svc := newService(ai, true, nil, WithCache(&memoryCache{getErr: errors.New("redis down")}))

	f := svc.GetForecast(context.Background(), request)
	assert.Equal(t, models.SourceAI, f.Source)
	assert.Equal(t, 1, ai.calls)
}

func TestGetForecastDoesNotCacheMock(t *testing.T) {
	c := &memoryCache{}
	newService(&fakeAI{text: "nope"}, true, nil, WithCache(c)).GetForecast(context.Background(), request)
	assert.Empty(t, c.items)
}

func TestGetForecastRecordsEveryResult(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("mongo down")}
	core, logs := observer.New(zapcore.ErrorLevel)
	svc := newService(&fakeAI{}, false, zap.New(core), WithRecorders(ok, failing))

	f := svc.GetForecast(context.Background(), request)
	svc.Wait()

	require.Len(t, ok.saved, 1)
	assert.Equal(t, f.ID, ok.saved[0].ID)
	assert.Len(t, failing.saved, 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to record forecast").Len())
}

func TestGetForecastDoesNotWaitForRecorders(t *testing.T) {
	stalled := &stalledRecorder{done: make(chan error, 1)}
	svc := newService(nil, false, nil, WithRecorders(stalled))

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	f := svc.GetForecast(ctx, request)
	elapsed := time.Since(start)
	cancel()

	assert.Equal(t, models.SourceMock, f.Source)
	assert.Less(t, elapsed, time.Second)

	// The write is detached from the request context and bounded by its own timeout.
	select {
	case err := <-stalled.done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(recordTimeout + 2*time.Second):
		t.Fatal("recorder write never timed out")
	}
	svc.Wait()
}

func TestGetForecastAppliesDefaultQuantity(t *testing.T) {
	f := newService(nil, true, nil).GetForecast(context.Background(), models.ForecastRequest{Crop: "Rice", Region: "Karnataka", Season: models.SeasonRabi})
	assert.Equal(t, models.DefaultQuantityKg, f.Quantity)
	assert.Equal(t, models.SourceMock, f.Source)
}

func TestFallbackReasonDistinguishesFailures(t *testing.T) {
	seen := map[string]bool{}
	for _, err := range []error{models.ErrUnavailable, models.ErrTimeout, models.ErrTransport, models.ErrMalformedResponse, models.ErrValidation, errors.New("other")} {
		seen[FallbackReason(err)] = true
	}
	assert.Len(t, seen, 6)
}
