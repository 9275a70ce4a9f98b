package myaudio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeRampWAV writes frames of interleaved samples where every sample of
// frame i equals i, so cut positions can be checked from the output data.
func writeRampWAV(t *testing.T, dir string, sampleRate, bitDepth, channels, frames int) string {
	t.Helper()
	data := make([]int, frames*channels)
	for i := range frames {
		for c := range channels {
			data[i*channels+c] = i % 30000
		}
	}
	return writeWAVData(t, dir, sampleRate, bitDepth, channels, data)
}

func writeWAVData(t *testing.T, dir string, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(dir, "source.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}
