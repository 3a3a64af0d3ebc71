package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriforecast/internal/cache"
	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const recordTimeout = 5 * time.Second

// AIClient fetches raw forecast text from the generative model.
type AIClient interface {
	RequestForecast(ctx context.Context, req models.ForecastRequest) (string, error)
}

// Normalizer converts raw model text into a canonical forecast.
type Normalizer interface {
	Normalize(raw string, req models.ForecastRequest) (models.Forecast, error)
}

// Generator produces the fallback forecast.
type Generator interface {
	Generate(req models.ForecastRequest) models.Forecast
}

// Recorder persists served forecasts.
type Recorder interface {
	SaveForecast(ctx context.Context, forecast models.Forecast) error
}

// Service is the single place where the AI path falls back to mock data.
type Service struct {
	ai         AIClient
	available  bool
	normalizer Normalizer
	generator  Generator
	cache      cache.ForecastCache
	recorders  []Recorder
	logger     *zap.Logger

	pending sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithCache enables caching of AI-generated forecasts.
func WithCache(c cache.ForecastCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRecorders registers sinks that receive every served forecast.
func WithRecorders(recorders ...Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, recorders...) }
}

// NewService wires the forecast orchestrator. available reports whether the
// AI client has credentials; when false the client is never called.
func NewService(ai AIClient, available bool, normalizer Normalizer, generator Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		ai:         ai,
		available:  available && ai != nil,
		normalizer: normalizer,
		generator:  generator,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetForecast returns a well-formed forecast for req. It never fails: any AI
// failure yields the generator's output with Warning set.
func (s *Service) GetForecast(ctx context.Context, req models.ForecastRequest) models.Forecast {
	req = req.WithDefaults()

	result, err := s.aiForecast(ctx, req)
	if err != nil {
		reason := FallbackReason(err)
		fields := []zap.Field{
			zap.String("crop", req.Crop),
			zap.String("district", req.Region),
			zap.String("reason", reason),
			zap.Error(err),
		}
		if errors.Is(err, models.ErrUnavailable) {
			s.logger.Debug("ai forecast not configured, using mock data", fields...)
		} else {
			s.logger.Warn("ai forecast failed, using mock data", fields...)
		}

		result = s.generator.Generate(req)
		result.Warning = reason
	}

	s.record(ctx, result)
	return result
}

// Wait blocks until every in-flight recorder write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) aiForecast(ctx context.Context, req models.ForecastRequest) (models.Forecast, error) {
	if !s.available {
		return models.Forecast{}, models.ErrUnavailable
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, req)
		if err != nil {
			s.logger.Warn("forecast cache read failed", zap.Error(err))
		} else if ok {
			s.logger.Debug("forecast cache hit", zap.String("crop", req.Crop), zap.String("district", req.Region))
			cached.ID = uuid.NewString()
			cached.Timestamp = time.Now().UTC()
			return cached, nil
		}
	}

	raw, err := s.ai.RequestForecast(ctx, req)
	if err != nil {
		return models.Forecast{}, err
	}

	result, err := s.normalizer.Normalize(raw, req)
	if err != nil {
		s.logger.Debug("rejected ai response", zap.String("raw", truncate(raw, 512)))
		return models.Forecast{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, req, result); err != nil {
			s.logger.Warn("forecast cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

func (s *Service) record(ctx context.Context, result models.Forecast) {
	if len(s.recorders) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()

		for _, r := range s.recorders {
			if err := r.SaveForecast(ctx, result); err != nil {
				s.logger.Error("failed to record forecast", zap.String("id", result.ID), zap.Error(err))
			}
		}
	}()
}

// FallbackReason maps an AI failure to the advisory shown to the caller.
func FallbackReason(err error) string {
	switch {
	case errors.Is(err, models.ErrUnavailable):
		return "AI forecasting is not configured; showing simulated market data."
	case errors.Is(err, models.ErrTimeout):
		return "AI forecast timed out; showing simulated market data."
	case errors.Is(err, models.ErrMalformedResponse):
		return "AI returned an unreadable forecast; showing simulated market data."
	case errors.Is(err, models.ErrValidation):
		return "AI returned an incomplete forecast; showing simulated market data."
	case errors.Is(err, models.ErrTransport):
		return "AI service is unreachable; showing simulated market data."
	default:
		return "AI forecast failed; showing simulated market data."
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
