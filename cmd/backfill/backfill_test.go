package backfill

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

type fakeStore struct {
	names   []string
	updates map[string]string
}

func (f *fakeStore) GetSpecies(context.Context, string) (*datastore.Species, error) {
	return nil, datastore.ErrSpeciesNotFound
}

func (f *fakeStore) UpsertSpecies(context.Context, *datastore.Species) error { return nil }

func (f *fakeStore) DistinctDetectedSpecies(context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeStore) UpdateMissingPhotoURLs(_ context.Context, species, photoURL string) (int64, error) {
	if f.updates == nil {
		f.updates = make(map[string]string)
	}
	f.updates[species] = photoURL
	return 2, nil
}

type fakeResolver struct {
	infos  map[string]*speciesinfo.Info
	warmed []string
}

func (f *fakeResolver) Resolve(_ context.Context, name string) (*speciesinfo.Info, error) {
	if info, ok := f.infos[name]; ok {
		return info, nil
	}
	return nil, speciesinfo.ErrSpeciesNotFound
}

func (f *fakeResolver) Warm(_ context.Context, names []string, _ *rate.Limiter) (speciesinfo.WarmReport, error) {
	f.warmed = names
	var report speciesinfo.WarmReport
	for _, n := range names {
		if _, ok := f.infos[n]; ok {
			report.Resolved++
		} else {
			report.Missing = append(report.Missing, n)
		}
	}
	return report, nil
}

func photo(url string) *speciesinfo.Info {
	return &speciesinfo.Info{ImageURL: &url}
}

func TestSpeciesBackfill(t *testing.T) {
	t.Parallel()

	store := &fakeStore{names: []string{"Robin", "Snark"}}
	resolver := &fakeResolver{infos: map[string]*speciesinfo.Info{"Robin": photo("https://img/robin.jpg")}}

	var out bytes.Buffer
	require.NoError(t, Species(context.Background(), &out, store, resolver, rate.NewLimiter(rate.Inf, 1)))

	assert.Equal(t, []string{"Robin", "Snark"}, resolver.warmed)
	assert.Contains(t, out.String(), "Resolved 1 of 2 species")
	assert.Contains(t, out.String(), "not found: Snark")
}

func TestPhotosBackfill(t *testing.T) {
	t.Parallel()

	store := &fakeStore{names: []string{"Robin", "Wren", "Snark"}}
	resolver := &fakeResolver{infos: map[string]*speciesinfo.Info{
		"Robin": photo("https://img/robin.jpg"),
		"Wren":  {Name: "Wren"}, // known, no photo
	}}

	var out bytes.Buffer
	require.NoError(t, Photos(context.Background(), &out, store, resolver, rate.NewLimiter(rate.Inf, 1)))

	assert.Equal(t, map[string]string{"Robin": "https://img/robin.jpg"}, store.updates)
	assert.Contains(t, out.String(), "Updated 2 detections across 3 species")
}

func TestPhotosBackfillStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{names: []string{"Robin"}}
	err := Photos(ctx, &bytes.Buffer{}, store, &fakeResolver{}, rate.NewLimiter(1, 1))
	require.ErrorIs(t, err, context.Canceled)
}
