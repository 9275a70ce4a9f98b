package myaudio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/birdnet-ingest/internal/logger"
)

// TrimClip writes the [startMs, endMs) window of src to dst as a standalone
// WAV with the source format. The window is clamped to the recording, so a
// window past the end produces a valid file with no samples.
func TrimClip(src, dst string, startMs, endMs int64) error {
	buf, info, err := readPCM(src)
	if err != nil {
		return err
	}

	first, last := frameWindow(info, startMs, endMs)
	ch := info.NumChannels
	clip := &audio.IntBuffer{
		Data:           buf.Data[first*ch : last*ch],
		Format:         &audio.Format{SampleRate: info.SampleRate, NumChannels: ch},
		SourceBitDepth: info.BitDepth,
	}

	if err := writeWAV(dst, clip, info); err != nil {
		return fileError(err, dst, "trim_clip")
	}

	GetLogger().Debug("clip written",
		logger.String("source", src),
		logger.String("output", dst),
		logger.Int64("start_ms", startMs),
		logger.Int64("end_ms", endMs),
		logger.Int("frames", last-first))
	return nil
}

// frameWindow converts a millisecond window into a clamped frame range.
func frameWindow(info AudioInfo, startMs, endMs int64) (first, last int) {
	toFrame := func(ms int64) int {
		f := int(ms * int64(info.SampleRate) / 1000)
		return min(max(f, 0), info.Frames)
	}
	first = toFrame(startMs)
	last = max(toFrame(endMs), first)
	return first, last
}

func writeWAV(path string, buf *audio.IntBuffer, info AudioInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	enc := wav.NewEncoder(out, info.SampleRate, info.BitDepth, info.NumChannels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return out.Close()
}
