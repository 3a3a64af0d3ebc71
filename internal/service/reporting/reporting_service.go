package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
	repo "github.com/mamadbah2/agriforecast/internal/repository/sheets"
)

const (
	dateLayout  = models.DateLayout
	topCropsMax = 3
)

// column positions in repo.ForecastsRange
const (
	colDate = iota
	colCrop
	colDistrict
	colSeason
	colQuantity
	colRisk
	colRecommended
	colSource
)

// Service summarizes the forecast export log.
type Service struct {
	repo   repo.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(repository repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, logger: logger, now: time.Now}
}

// WeeklySummary aggregates the forecasts logged within [start, end].
func (s *Service) WeeklySummary(ctx context.Context, start, end time.Time) (models.ForecastDigest, error) {
	rows, err := s.repo.ReadRows(ctx, repo.ForecastsRange)
	if err != nil {
		return models.ForecastDigest{}, fmt.Errorf("load forecasts range: %w", err)
	}

	startDay := truncateDay(start)
	endDay := truncateDay(end)

	digest := models.ForecastDigest{
		PeriodStart: startDay,
		PeriodEnd:   endDay,
		RiskCounts:  map[models.GlutRisk]int{},
		TopCrops:    []string{},
		CreatedAt:   s.now().UTC(),
	}

	var recommendedTotal float64
	var recommendedEntries int
	crops := map[string]int{}

	for _, row := range rows {
		if len(row) <= colSource {
			continue
		}

		dateValue, err := parseDate(row[colDate])
		if err != nil {
			s.logger.Debug("skip forecast row with invalid date", zap.Any("value", row[colDate]), zap.Error(err))
			continue
		}
		if dateValue.Before(startDay) || dateValue.After(endDay) {
			continue
		}

		digest.TotalForecasts++
		switch models.Source(fmt.Sprint(row[colSource])) {
		case models.SourceAI:
			digest.AIForecasts++
		case models.SourceMock:
			digest.MockForecasts++
		}

		if risk, err := models.ParseGlutRisk(fmt.Sprint(row[colRisk])); err == nil {
			digest.RiskCounts[risk]++
		}

		if crop := strings.TrimSpace(fmt.Sprint(row[colCrop])); crop != "" {
			crops[crop]++
		}

		qty, err := parseFloat(row[colRecommended])
		if err != nil {
			s.logger.Debug("skip recommended qty", zap.Any("value", row[colRecommended]), zap.Error(err))
			continue
		}
		recommendedTotal += qty
		recommendedEntries++
	}

	if recommendedEntries > 0 {
		digest.AvgRecommendedQuantity = math.Round(recommendedTotal/float64(recommendedEntries)*100) / 100
	}
	digest.TopCrops = topCrops(crops, topCropsMax)
	digest.Summary = summarize(digest)

	return digest, nil
}

func summarize(d models.ForecastDigest) string {
	period := fmt.Sprintf("%s-%s", d.PeriodStart.Format(dateLayout), d.PeriodEnd.Format(dateLayout))
	if d.TotalForecasts == 0 {
		return fmt.Sprintf("Forecasts (%s): no forecasts served.", period)
	}

	return fmt.Sprintf("Forecasts (%s): %d served (%d AI, %d simulated). Glut risk high=%d medium=%d low=%d. Avg recommended %.2f kg. Top crops: %s.",
		period, d.TotalForecasts, d.AIForecasts, d.MockForecasts,
		d.RiskCounts[models.GlutRiskHigh], d.RiskCounts[models.GlutRiskMedium], d.RiskCounts[models.GlutRiskLow],
		d.AvgRecommendedQuantity, strings.Join(d.TopCrops, ", "))
}

func topCrops(counts map[string]int, limit int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

// truncateDay returns UTC midnight of t's UTC date, matching the export log rows.
func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(value interface{}) (time.Time, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}

func parseFloat(value interface{}) (float64, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseFloat(str, 64)
}
