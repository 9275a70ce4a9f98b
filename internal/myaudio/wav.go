package myaudio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

const wavFormatPCM = 1

// AudioInfo describes a WAV file's format.
type AudioInfo struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
	Frames      int
}

// Duration returns the playback length.
func (i AudioInfo) Duration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(i.Frames) / float64(i.SampleRate) * float64(time.Second))
}

// Seconds returns the playback length in seconds.
func (i AudioInfo) Seconds() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.SampleRate)
}

// Signal is a mono, normalized rendition of a recording.
type Signal struct {
	Samples    []float64
	SampleRate int
	Info       AudioInfo
}

// GetLogger returns the myaudio package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("myaudio")
}

// ReadWAV decodes the file at path and downmixes it to mono.
func ReadWAV(path string) (*Signal, error) {
	buf, info, err := readPCM(path)
	if err != nil {
		return nil, err
	}

	divisor, err := getAudioDivisor(info.BitDepth)
	if err != nil {
		return nil, audioError(err, path, "read_wav")
	}

	channels := info.NumChannels
	samples := make([]float64, info.Frames)
	for frame := range samples {
		var sum float64
		base := frame * channels
		for ch := range channels {
			sum += float64(buf.Data[base+ch])
		}
		samples[frame] = sum / float64(channels) / divisor
	}

	return &Signal{Samples: samples, SampleRate: info.SampleRate, Info: info}, nil
}

// ReadWAVInfo reads only the header of the WAV file at path.
func ReadWAVInfo(path string) (AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, fileError(err, path, "read_wav_info")
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if err := validateDecoder(decoder); err != nil {
		return AudioInfo{}, audioError(err, path, "read_wav_info")
	}
	d, err := decoder.Duration()
	if err != nil {
		return AudioInfo{}, audioError(err, path, "read_wav_info")
	}
	info := infoFromDecoder(decoder)
	info.Frames = int(d.Seconds()*float64(info.SampleRate) + 0.5)
	return info, nil
}

// readPCM decodes every sample of the file at path. Data is interleaved and
// trimmed to whole frames.
func readPCM(path string) (*audio.IntBuffer, AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, AudioInfo{}, fileError(err, path, "read_pcm")
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if err := validateDecoder(decoder); err != nil {
		return nil, AudioInfo{}, audioError(err, path, "read_pcm")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, AudioInfo{}, audioError(err, path, "read_pcm")
	}

	if buf == nil {
		buf = &audio.IntBuffer{Format: decoder.Format()}
	}

	info := infoFromDecoder(decoder)
	whole := len(buf.Data) - len(buf.Data)%info.NumChannels
	buf.Data = buf.Data[:whole]
	info.Frames = whole / info.NumChannels
	return buf, info, nil
}

func validateDecoder(decoder *wav.Decoder) error {
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return fmt.Errorf("invalid WAV file format")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return fmt.Errorf("unsupported WAV encoding: %d", decoder.WavAudioFormat)
	}
	switch decoder.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", decoder.BitDepth)
	}
	if decoder.NumChans == 0 {
		return fmt.Errorf("WAV file declares no channels")
	}
	return nil
}

func infoFromDecoder(decoder *wav.Decoder) AudioInfo {
	return AudioInfo{
		SampleRate:  int(decoder.SampleRate),
		NumChannels: int(decoder.NumChans),
		BitDepth:    int(decoder.BitDepth),
	}
}

// getAudioDivisor returns the full-scale value for a signed PCM bit depth.
func getAudioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}

func fileError(err error, path, op string) error {
	return errors.New(err).
		Component("myaudio").
		Category(errors.CategoryFileIO).
		Context("operation", op).
		Context("path", path).
		Build()
}

func audioError(err error, path, op string) error {
	return errors.New(err).
		Component("myaudio").
		Category(errors.CategoryAudio).
		Context("operation", op).
		Context("path", path).
		Build()
}
