package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const (
	forecastsCollection = "forecasts"
	digestsCollection   = "forecast_digests"
	maxHistoryLimit     = 100
)

// Repository defines the interface for forecast history storage.
type Repository interface {
	SaveForecast(ctx context.Context, forecast models.Forecast) error
	RecentForecasts(ctx context.Context, crop string, limit int) ([]models.Forecast, error)
	SaveDigest(ctx context.Context, digest models.ForecastDigest) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

// SaveForecast records a served forecast.
func (r *MongoDBRepository) SaveForecast(ctx context.Context, forecast models.Forecast) error {
	collection := r.client.Database(r.dbName).Collection(forecastsCollection)
	if _, err := collection.InsertOne(ctx, forecast); err != nil {
		return fmt.Errorf("failed to insert forecast: %w", err)
	}
	return nil
}

// RecentForecasts returns the newest forecasts, optionally filtered by crop.
func (r *MongoDBRepository) RecentForecasts(ctx context.Context, crop string, limit int) ([]models.Forecast, error) {
	collection := r.client.Database(r.dbName).Collection(forecastsCollection)

	filter := HistoryFilter(crop)
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(ClampLimit(limit)))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer cursor.Close(ctx)

	forecasts := []models.Forecast{}
	if err := cursor.All(ctx, &forecasts); err != nil {
		return nil, fmt.Errorf("failed to decode forecasts: %w", err)
	}
	return forecasts, nil
}

// SaveDigest stores a periodic digest.
func (r *MongoDBRepository) SaveDigest(ctx context.Context, digest models.ForecastDigest) error {
	collection := r.client.Database(r.dbName).Collection(digestsCollection)
	if _, err := collection.InsertOne(ctx, digest); err != nil {
		return fmt.Errorf("failed to insert digest: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// HistoryFilter matches a crop case-insensitively, or everything when crop is empty.
func HistoryFilter(crop string) bson.M {
	crop = strings.TrimSpace(crop)
	if crop == "" {
		return bson.M{}
	}
	return bson.M{"crop": bson.M{"$regex": "^" + regexp.QuoteMeta(crop) + "$", "$options": "i"}}
}

// ClampLimit bounds a history page size to [1, 100], defaulting to 20.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}
