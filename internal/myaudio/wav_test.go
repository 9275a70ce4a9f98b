package myaudio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/errors"
)

func TestReadWAV_Mono(t *testing.T) {
	t.Parallel()

	path := writeWAVData(t, t.TempDir(), 8000, 16, 1, []int{0, 16384, -16384, 32767, -32768})
	sig, err := ReadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, sig.SampleRate)
	require.Len(t, sig.Samples, 5)
	assert.InDelta(t, 0.0, sig.Samples[0], 1e-9)
	assert.InDelta(t, 0.5, sig.Samples[1], 1e-9)
	assert.InDelta(t, -0.5, sig.Samples[2], 1e-9)
	assert.InDelta(t, -1.0, sig.Samples[4], 1e-9)
}

func TestReadWAV_StereoDownmix(t *testing.T) {
	t.Parallel()

	// left/right pairs
	path := writeWAVData(t, t.TempDir(), 8000, 16, 2, []int{16384, 0, 16384, 16384, -16384, 16384})
	sig, err := ReadWAV(path)
	require.NoError(t, err)

	require.Len(t, sig.Samples, 3)
	assert.InDelta(t, 0.25, sig.Samples[0], 1e-9)
	assert.InDelta(t, 0.5, sig.Samples[1], 1e-9)
	assert.InDelta(t, 0.0, sig.Samples[2], 1e-9)
	assert.Equal(t, 2, sig.Info.NumChannels)
}

func TestReadWAVInfo(t *testing.T) {
	t.Parallel()

	path := writeRampWAV(t, t.TempDir(), 16000, 16, 1, 16000*3)
	info, err := ReadWAVInfo(path)
	require.NoError(t, err)

	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 1, info.NumChannels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, 48000, info.Frames)
	assert.Equal(t, 3*time.Second, info.Duration())
	assert.InDelta(t, 3.0, info.Seconds(), 1e-9)
}

func TestReadWAV_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := ReadWAV(filepath.Join(dir, "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not RIFF data"), 0o600))
	_, err = ReadWAV(garbage)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudio))
}

func TestGetAudioDivisor(t *testing.T) {
	t.Parallel()

	for depth, want := range map[int]float64{16: 32768, 24: 8388608, 32: 2147483648} {
		got, err := getAudioDivisor(depth)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	}
	_, err := getAudioDivisor(12)
	require.Error(t, err)
}
