package spectrogram

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hannWindow returns a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// powerFrames computes the short-time power spectrum of samples. Frames are
// centred: the signal is zero padded by nFFT/2 on both sides, and frame t
// covers padded[t*hop : t*hop+nFFT]. Each row holds nFFT/2+1 bins.
func powerFrames(samples []float64, nFFT, hop int) [][]float64 {
	pad := nFFT / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)

	nFrames := 1 + (len(padded)-nFFT)/hop
	if nFrames < 1 {
		return nil
	}

	fft := fourier.NewFFT(nFFT)
	window := hannWindow(nFFT)
	frame := make([]float64, nFFT)
	coeffs := make([]complex128, nFFT/2+1)

	frames := make([][]float64, nFrames)
	for t := range frames {
		offset := t * hop
		for i := range frame {
			frame[i] = padded[offset+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)

		power := make([]float64, len(coeffs))
		for k, c := range coeffs {
			m := cmplx.Abs(c)
			power[k] = m * m
		}
		frames[t] = power
	}
	return frames
}

// powerToDB converts power values to decibels relative to the maximum,
// floored topDB below the peak. Values are modified in place.
func powerToDB(spec [][]float64, topDB float64) {
	const amin = 1e-10

	peak := amin
	for _, row := range spec {
		for _, v := range row {
			peak = max(peak, v)
		}
	}
	ref := 10 * math.Log10(peak)

	for _, row := range spec {
		for i, v := range row {
			row[i] = max(10*math.Log10(max(v, amin))-ref, -topDB)
		}
	}
}
