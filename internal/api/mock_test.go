package api

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
)

// MockDataStore implements datastore.Interface with testify mocks.
type MockDataStore struct {
	mock.Mock
}

var _ datastore.Interface = (*MockDataStore)(nil)

func (m *MockDataStore) Open() error  { return m.Called().Error(0) }
func (m *MockDataStore) Close() error { return m.Called().Error(0) }

func (m *MockDataStore) SaveDetections(ctx context.Context, records []datastore.Detection) error {
	return m.Called(ctx, records).Error(0)
}

func (m *MockDataStore) ListDetections(ctx context.Context, opts datastore.ListOptions) ([]datastore.Detection, error) {
	args := m.Called(ctx, opts)
	out, _ := args.Get(0).([]datastore.Detection)
	return out, args.Error(1)
}

func (m *MockDataStore) AllDetections(ctx context.Context, fn func([]datastore.Detection) error) error {
	return m.Called(ctx, fn).Error(0)
}

func (m *MockDataStore) CountDetections(ctx context.Context, species string) (int64, error) {
	args := m.Called(ctx, species)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataStore) DistinctDetectedSpecies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

func (m *MockDataStore) UpdateMissingPhotoURLs(ctx context.Context, species, photoURL string) (int64, error) {
	args := m.Called(ctx, species, photoURL)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataStore) GetSpecies(ctx context.Context, name string) (*datastore.Species, error) {
	args := m.Called(ctx, name)
	out, _ := args.Get(0).(*datastore.Species)
	return out, args.Error(1)
}

func (m *MockDataStore) UpsertSpecies(ctx context.Context, sp *datastore.Species) error {
	return m.Called(ctx, sp).Error(0)
}

func (m *MockDataStore) ListSpecies(ctx context.Context) ([]datastore.Species, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]datastore.Species)
	return out, args.Error(1)
}

func (m *MockDataStore) SpeciesSummary(ctx context.Context) ([]datastore.SpeciesSummary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]datastore.SpeciesSummary)
	return out, args.Error(1)
}

func (m *MockDataStore) Summary(ctx context.Context) (*datastore.Summary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(*datastore.Summary)
	return out, args.Error(1)
}

func (m *MockDataStore) SpeciesDistribution(ctx context.Context, limit int) ([]datastore.SpeciesCount, error) {
	args := m.Called(ctx, limit)
	out, _ := args.Get(0).([]datastore.SpeciesCount)
	return out, args.Error(1)
}

func (m *MockDataStore) Trends(ctx context.Context, period datastore.TrendPeriod, since time.Time) ([]datastore.TrendPoint, error) {
	args := m.Called(ctx, period, since)
	out, _ := args.Get(0).([]datastore.TrendPoint)
	return out, args.Error(1)
}

func (m *MockDataStore) HourlyActivity(ctx context.Context) ([]datastore.HourlyCount, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]datastore.HourlyCount)
	return out, args.Error(1)
}

func (m *MockDataStore) ConfidenceDistribution(ctx context.Context) ([]datastore.ConfidenceBucket, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]datastore.ConfidenceBucket)
	return out, args.Error(1)
}
