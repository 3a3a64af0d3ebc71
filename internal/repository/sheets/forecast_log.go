package sheets

import (
	"context"
	"fmt"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const (
	// ForecastsRange is the sheet range holding one row per served forecast.
	ForecastsRange = "Forecasts!A:I"
	headerRange    = "Forecasts!A1:I1"
)

// ForecastHeader names the columns of ForecastsRange.
var ForecastHeader = []interface{}{"date", "crop", "district", "season", "quantity", "glut_risk", "recommended_qty", "source", "id"}

// ForecastLog appends served forecasts to the export sheet.
type ForecastLog struct {
	repo Repository
}

// NewForecastLog wraps a sheet repository.
func NewForecastLog(repo Repository) *ForecastLog {
	return &ForecastLog{repo: repo}
}

// EnsureHeader writes ForecastHeader when the sheet is still empty.
func (l *ForecastLog) EnsureHeader(ctx context.Context) error {
	rows, err := l.repo.ReadRows(ctx, headerRange)
	if err != nil {
		return fmt.Errorf("check forecast sheet header: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		return nil
	}
	if err := l.repo.AppendRows(ctx, ForecastsRange, [][]interface{}{ForecastHeader}); err != nil {
		return fmt.Errorf("write forecast sheet header: %w", err)
	}
	return nil
}

// SaveForecast appends forecast as a row.
func (l *ForecastLog) SaveForecast(ctx context.Context, forecast models.Forecast) error {
	if err := l.repo.AppendRows(ctx, ForecastsRange, [][]interface{}{ForecastRow(forecast)}); err != nil {
		return fmt.Errorf("log forecast %s: %w", forecast.ID, err)
	}
	return nil
}

// ForecastRow encodes forecast in the column order of ForecastHeader.
func ForecastRow(f models.Forecast) []interface{} {
	return []interface{}{
		f.Timestamp.UTC().Format(models.DateLayout),
		f.Crop,
		f.Region,
		string(f.Season),
		f.Quantity,
		string(f.GlutRisk),
		f.RecommendedQuantity,
		string(f.Source),
		f.ID,
	}
}
