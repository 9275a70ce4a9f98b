package detection

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/errors"
)

func requireShell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell based engine tests require a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExpandArgs(t *testing.T) {
	t.Parallel()

	lat, lon := 60.1699, 24.9384
	req := Request{
		AudioPath:     "/data/abc.wav",
		Lat:           &lat,
		Lon:           &lon,
		RecordedAt:    time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC),
		MinConfidence: 0.7,
	}

	got := expandArgs([]string{
		"--input={input}", "--lat", "{lat}", "--lon", "{lon}",
		"--date", "{date}", "--week", "{week}", "--min-conf", "{min_conf}",
	}, req)

	assert.Equal(t, []string{
		"--input=/data/abc.wav", "--lat", "60.1699", "--lon", "24.9384",
		"--date", "2024-03-10", "--week", "10", "--min-conf", "0.7",
	}, got)
}

func TestExpandArgs_MissingCoordinates(t *testing.T) {
	t.Parallel()

	got := expandArgs([]string{"{lat}", "{lon}"}, Request{})
	assert.Equal(t, []string{"", ""}, got)
}

func TestCommandEngine_Analyze(t *testing.T) {
	t.Parallel()
	sh := requireShell(t)

	engine := &CommandEngine{
		Path: sh,
		Args: []string{"-c", `printf '[{"common_name":"%s","confidence":0.9,"start_time":0,"end_time":3}]' "$1"`, "sh", "{input}"},
	}

	raw, err := engine.Analyze(t.Context(), Request{AudioPath: "Robin"})
	require.NoError(t, err)
	got := Normalize(raw, 0.7)
	require.Len(t, got, 1)
	assert.Equal(t, "Robin", got[0].SpeciesName)
}

func TestCommandEngine_NonZeroExit(t *testing.T) {
	t.Parallel()
	sh := requireShell(t)

	engine := &CommandEngine{Path: sh, Args: []string{"-c", "echo boom >&2; exit 3"}}
	_, err := engine.Analyze(t.Context(), Request{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCommand))
	assert.Contains(t, err.Error(), "boom")
}

func TestCommandEngine_InvalidOutput(t *testing.T) {
	t.Parallel()
	sh := requireShell(t)

	engine := &CommandEngine{Path: sh, Args: []string{"-c", "echo not-json"}}
	_, err := engine.Analyze(t.Context(), Request{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudioAnalysis))
}

func TestCommandEngine_Timeout(t *testing.T) {
	t.Parallel()
	sh := requireShell(t)

	engine := &CommandEngine{Path: sh, Args: []string{"-c", "sleep 5"}, Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := engine.Analyze(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(&conf.DetectionSettings{
		Engine:  conf.EngineCommand,
		Command: conf.DetectionCommandSettings{Path: "/usr/bin/classify", Args: []string{"{input}"}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "command", e.Name())

	e, err = NewEngine(&conf.DetectionSettings{
		Engine: conf.EngineHTTP,
		HTTP:   conf.DetectionHTTPSettings{URL: "http://classifier:8080/analyze"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http", e.Name())

	_, err = NewEngine(&conf.DetectionSettings{Engine: "tflite"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
