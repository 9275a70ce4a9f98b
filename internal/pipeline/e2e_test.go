package pipeline

import (
	"math"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
	"github.com/tphakala/birdnet-ingest/internal/myaudio"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
	"github.com/tphakala/birdnet-ingest/internal/spectrogram"
)

const wikiEndpoint = "https://en.wikipedia.org/w/api.php"

const robinPage = `{"query":{"pages":{"101":{"pageid":101,"title":"Robin",
"thumbnail":{"source":"https://upload.wikimedia.org/robin.jpg"},
"extract":"The robin is a small songbird. It is found in gardens across Europe. It sings all year."}}}}`

// writeRecording writes a mono 16 kHz WAV with a chirp every few seconds.
func writeRecording(t *testing.T, seconds int) string {
	t.Helper()
	const sr = 16000
	data := make([]int, seconds*sr)
	for i := range data {
		ts := float64(i) / sr
		if math.Mod(ts, 5) < 1 {
			data[i] = int(8000 * math.Sin(2*math.Pi*(2000+500*math.Mod(ts, 1))*ts))
		}
	}

	path := filepath.Join(t.TempDir(), "upload.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, sr, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sr, NumChannels: 1},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestProcessUpload_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	settings := &conf.Settings{}
	settings.Database.Type = conf.DatabaseSQLite
	settings.Database.SQLite.Path = filepath.Join(dir, "birds.db")
	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, wikiEndpoint, httpmock.NewStringResponder(http.StatusOK, robinPage))
	client := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(client.Close)
	cache := speciesinfo.NewCache(store, speciesinfo.NewWikipediaSource(client, wikiEndpoint))

	detector := &fixedDetector{dets: []detection.Detection{
		{SpeciesName: "Robin", StartTime: 2.0, EndTime: 4.5, Confidence: 0.81},
		{SpeciesName: "Robin", StartTime: 10.0, EndTime: 12.0, Confidence: 0.77},
	}}

	generator := spectrogram.NewGenerator(spectrogram.Options{
		FFTSize: 2048, HopSize: 512, MelBands: 128, MaxFrequency: 8000, PixelsPerInch: 100, Height: 600,
	}, nil)
	coord := NewCoordinator(newPool(t), generator, myaudio.TrimClip, nil, nil)

	storage := filepath.Join(dir, "storage")
	orch := NewOrchestrator(Config{
		StorageDir:         storage,
		URLPrefix:          "/storage",
		MinConfidence:      0.7,
		ResolveConcurrency: 1,
	}, detector, coord, cache, store)

	audio, err := os.Open(writeRecording(t, 30))
	require.NoError(t, err)
	defer audio.Close()

	res, err := orch.ProcessUpload(t.Context(), UploadRequest{Audio: audio, RecordedAt: "2024-04-20 05:45:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.BirdsFound)

	rows, err := store.ListDetections(t.Context(), datastore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	a, b := rows[0], rows[1]
	assert.Equal(t, a.AudioURL, b.AudioURL, "session audio is shared")
	assert.Equal(t, a.ImageURL, b.ImageURL, "session image is shared")
	assert.NotEqual(t, a.SingleAudioURL, b.SingleAudioURL)
	assert.NotEqual(t, a.SingleImageURL, b.SingleImageURL)
	require.NotNil(t, a.BirdPhotoURL)
	require.NotNil(t, b.BirdPhotoURL)
	assert.Equal(t, "https://upload.wikimedia.org/robin.jpg", *a.BirdPhotoURL)
	assert.Equal(t, *a.BirdPhotoURL, *b.BirdPhotoURL)

	assert.Equal(t, 1, transport.GetTotalCallCount(), "one resolution for two Robin detections")

	sp, err := store.GetSpecies(t.Context(), "Robin")
	require.NoError(t, err)
	require.NotNil(t, sp.Region)
	assert.Equal(t, "gardens across Europe", *sp.Region)

	for _, name := range []string{".wav", ".png", "0.png", "1.png", "0.wav", "1.wav"} {
		assert.FileExists(t, filepath.Join(storage, res.ID+name))
	}

	clip, err := myaudio.ReadWAVInfo(filepath.Join(storage, res.ID+"0.wav"))
	require.NoError(t, err)
	assert.Equal(t, 40000, clip.Frames, "2.0s..4.5s at 16 kHz")
}
