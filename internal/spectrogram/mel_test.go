package spectrogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMelScaleRoundTrip(t *testing.T) {
	t.Parallel()

	for _, hz := range []float64{0, 200, 999, 1000, 2500, 8000, 11025} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6, "hz %v", hz)
	}
	assert.InDelta(t, 15.0, hzToMel(1000), 1e-9)
	assert.InDelta(t, 3.0, hzToMel(200), 1e-9)
}

func TestMelFilterbank(t *testing.T) {
	t.Parallel()

	bands := melFilterbank(22050, 2048, 128, 8000)
	require.Len(t, bands, 128)

	binHz := 22050.0 / 2048
	for m, band := range bands {
		require.NotEmpty(t, band.weights, "band %d has no bins", m)
		upperBin := band.first + len(band.weights) - 1
		assert.LessOrEqual(t, float64(upperBin)*binHz, 8000.0+binHz, "band %d exceeds fmax", m)
	}

	// filters are ordered by centre frequency
	for m := 1; m < len(bands); m++ {
		assert.GreaterOrEqual(t, bands[m].first, bands[m-1].first)
	}
}

func TestPowerToDB(t *testing.T) {
	t.Parallel()

	spec := [][]float64{{1, 0.1}, {1e-3, 1e-12}}
	powerToDB(spec, 80)

	assert.InDelta(t, 0.0, spec[0][0], 1e-9)
	assert.InDelta(t, -10.0, spec[0][1], 1e-9)
	assert.InDelta(t, -30.0, spec[1][0], 1e-9)
	assert.InDelta(t, -80.0, spec[1][1], 1e-9, "floored at top_db")
}

func TestMelSpectrogramPeaksAtTone(t *testing.T) {
	t.Parallel()

	const sr = 16000
	samples := make([]float64, sr)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 2000 * float64(i) / sr)
	}

	spec := MelSpectrogram(samples, sr, testOptions())
	require.Len(t, spec, 1+sr/512)

	frame := spec[len(spec)/2]
	peak := 0
	for m := range frame {
		if frame[m] > frame[peak] {
			peak = m
		}
	}
	// band centre of the loudest band is close to the tone
	centre := melToHz(hzToMel(8000) * float64(peak+1) / 129)
	assert.InDelta(t, 2000, centre, 150)
	for _, v := range frame {
		assert.GreaterOrEqual(t, v, -80.0)
		assert.LessOrEqual(t, v, 0.0)
	}
}

func TestPowerFramesShortInput(t *testing.T) {
	t.Parallel()

	frames := powerFrames(make([]float64, 10), 2048, 512)
	require.Len(t, frames, 1)
	assert.Len(t, frames[0], 1025)
}

func TestColorAt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, magma[0], colorAt(-1))
	assert.Equal(t, magma[len(magma)-1], colorAt(2))
	assert.Equal(t, magma[4], colorAt(0.5))
}
