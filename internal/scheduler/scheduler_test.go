package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/agriforecast/internal/config"
	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

type runnerStub struct {
	requests []models.ForecastRequest
}

func (r *runnerStub) GetForecast(_ context.Context, req models.ForecastRequest) models.Forecast {
	r.requests = append(r.requests, req)
	return models.Forecast{Crop: req.Crop, Region: req.Region, Season: req.Season, Source: models.SourceMock}
}

type digestStub struct {
	start, end time.Time
	err        error
}

func (d *digestStub) WeeklySummary(_ context.Context, start, end time.Time) (models.ForecastDigest, error) {
	d.start, d.end = start, end
	return models.ForecastDigest{Summary: "ok"}, d.err
}

type storeStub struct {
	saved []models.ForecastDigest
}

func (s *storeStub) SaveDigest(_ context.Context, d models.ForecastDigest) error {
	s.saved = append(s.saved, d)
	return nil
}

func schedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		WatchlistCron: "0 6 * * *",
		DigestCron:    "0 20 * * 5",
		Timezone:      "Asia/Kolkata",
		Watchlist: []config.WatchItem{
			{Crop: "Rice", Region: "Karnataka", Season: "kharif", Quantity: 250},
			{Crop: "Wheat", Region: "Punjab", Season: "winter"},
		},
	}
}

func TestNewSchedulerRejectsBadTimezone(t *testing.T) {
	cfg := schedulerConfig()
	cfg.Timezone = "Nowhere/Land"
	_, err := NewScheduler(cfg, &runnerStub{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestStartRejectsBadCron(t *testing.T) {
	cfg := schedulerConfig()
	cfg.WatchlistCron = "every morning"
	s, err := NewScheduler(cfg, &runnerStub{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestRefreshWatchlist(t *testing.T) {
	runner := &runnerStub{}
	core, logs := observer.New(zapcore.WarnLevel)
	s, err := NewScheduler(schedulerConfig(), runner, nil, nil, zap.New(core))
	require.NoError(t, err)

	s.refreshWatchlist()

	require.Len(t, runner.requests, 1)
	assert.Equal(t, models.ForecastRequest{Crop: "Rice", Region: "Karnataka", Season: models.SeasonKharif, Quantity: 250}, runner.requests[0])
	assert.Equal(t, 1, logs.FilterMessage("skip watchlist entry").Len())
}

func TestBuildWeeklyDigest(t *testing.T) {
	digests := &digestStub{}
	store := &storeStub{}
	s, err := NewScheduler(schedulerConfig(), &runnerStub{}, digests, store, nil)
	require.NoError(t, err)
	now := time.Date(2026, time.May, 8, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.buildWeeklyDigest()

	assert.Equal(t, now, digests.end)
	assert.Equal(t, time.Date(2026, time.May, 2, 20, 0, 0, 0, time.UTC), digests.start)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "ok", store.saved[0].Summary)
}

func TestBuildWeeklyDigestSkipsSaveOnError(t *testing.T) {
	store := &storeStub{}
	s, err := NewScheduler(schedulerConfig(), &runnerStub{}, &digestStub{err: errors.New("sheet missing")}, store, nil)
	require.NoError(t, err)

	s.buildWeeklyDigest()
	assert.Empty(t, store.saved)
}

func TestStartAndStop(t *testing.T) {
	s, err := NewScheduler(schedulerConfig(), &runnerStub{}, &digestStub{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
