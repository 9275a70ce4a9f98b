package spectrogram

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3
	melLogMinHz   = 1000.0
	melLogMin     = melLogMinHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz < melLogMinHz {
		return hz / melLinearStep
	}
	return melLogMin + math.Log(hz/melLogMinHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melLogMin {
		return mel * melLinearStep
	}
	return melLogMinHz * math.Exp(melLogStep*(mel-melLogMin))
}

// melBand is one triangular filter, stored sparsely from its first bin.
type melBand struct {
	first   int
	weights []float64
}

// melFilterbank builds nMels area-normalized triangular filters spanning
// 0..fMax Hz over the nFFT/2+1 bins of a real FFT.
func melFilterbank(sampleRate, nFFT, nMels int, fMax float64) []melBand {
	fMax = min(fMax, float64(sampleRate)/2)
	nBins := nFFT/2 + 1

	points := make([]float64, nMels+2)
	maxMel := hzToMel(fMax)
	for i := range points {
		points[i] = melToHz(maxMel * float64(i) / float64(nMels+1))
	}

	binHz := float64(sampleRate) / float64(nFFT)
	bands := make([]melBand, nMels)
	for m := range bands {
		lower, centre, upper := points[m], points[m+1], points[m+2]
		norm := 2 / (upper - lower)

		band := melBand{first: -1}
		for k := range nBins {
			f := float64(k) * binHz
			w := max(0, min((f-lower)/(centre-lower), (upper-f)/(upper-centre)))
			if w <= 0 {
				if band.first >= 0 {
					break
				}
				continue
			}
			if band.first < 0 {
				band.first = k
			}
			band.weights = append(band.weights, w*norm)
		}
		if band.first < 0 {
			band.first = 0
		}
		bands[m] = band
	}
	return bands
}

// applyFilterbank projects one power frame onto the filterbank.
func applyFilterbank(bands []melBand, power []float64) []float64 {
	out := make([]float64, len(bands))
	for m, band := range bands {
		var sum float64
		for i, w := range band.weights {
			if k := band.first + i; k < len(power) {
				sum += w * power[k]
			}
		}
		out[m] = sum
	}
	return out
}

// MelSpectrogram returns a frames x nMels matrix in dB (0 at the peak,
// floored at -topDB).
func MelSpectrogram(samples []float64, sampleRate int, opts Options) [][]float64 {
	frames := powerFrames(samples, opts.FFTSize, opts.HopSize)
	bands := melFilterbank(sampleRate, opts.FFTSize, opts.MelBands, opts.MaxFrequency)

	mel := make([][]float64, len(frames))
	for t, power := range frames {
		mel[t] = applyFilterbank(bands, power)
	}
	powerToDB(mel, opts.TopDB)
	return mel
}
