// Package dsp computes per-block loudness and spectrum frames for the
// recording visualizer.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// NumBands is the number of spectrum bars surfaced to the UI.
const NumBands = 20

// Voice band limits: 80 Hz covers the low end of fundamentals, 3500 Hz the
// upper formants (F1-F3) of voiced speech.
const (
	minFreqHz = 80.0
	maxFreqHz = 3500.0
)

// Asymmetric EMA coefficients: fast attack, slow decay, so bars light up
// immediately and fade out smoothly.
const (
	loudnessAttack = 0.6
	loudnessDecay  = 0.25
	bandAttack     = 0.72
	bandDecay      = 0.2
)

// Logarithmic compression gains. Raw RMS and magnitude values for speech sit
// far below 1.0; log1p(v*gain)/log1p(gain) lifts them into a usable [0,1]
// display range.
const (
	loudnessGain = 90.0
	bandGain     = 140.0
)

// Frame is one smoothed visualizer update derived from a single audio block.
type Frame struct {
	Loudness float64
	Bands    []float64
}

// Analyzer turns fixed-size audio blocks into smoothed loudness and
// log-spaced frequency-band magnitudes. It is not safe for concurrent use;
// the capture callback is the only producer and delivers blocks serially.
type Analyzer struct {
	blockSize  int
	sampleRate float64

	fft      *fourier.FFT
	bandBins [][2]int

	scratch []float64
	coeffs  []complex128

	loudness float64
	bands    []float64
}

// NewAnalyzer precomputes the FFT plan and the log-spaced band bin ranges
// for the given block size and sample rate.
func NewAnalyzer(blockSize int, sampleRate int) *Analyzer {
	a := &Analyzer{
		blockSize:  blockSize,
		sampleRate: float64(sampleRate),
		fft:        fourier.NewFFT(blockSize),
		scratch:    make([]float64, blockSize),
		coeffs:     make([]complex128, blockSize/2+1),
		bands:      make([]float64, NumBands),
	}

	binCount := blockSize/2 + 1
	binFreq := func(i int) float64 { return float64(i) * a.sampleRate / float64(blockSize) }

	edges := make([]float64, NumBands+1)
	ratio := maxFreqHz / minFreqHz
	for i := range edges {
		edges[i] = minFreqHz * math.Pow(ratio, float64(i)/NumBands)
	}

	searchBin := func(freq float64) int {
		lo := 0
		for lo < binCount && binFreq(lo) < freq {
			lo++
		}
		return lo
	}

	a.bandBins = make([][2]int, NumBands)
	for i := 0; i < NumBands; i++ {
		lo := searchBin(edges[i])
		hi := searchBin(edges[i+1])
		if hi > binCount-1 {
			hi = binCount - 1
		}
		if hi <= lo {
			hi = lo + 1
		}
		a.bandBins[i] = [2]int{lo, hi}
	}

	return a
}

// Analyze consumes one audio block and returns the updated frame. Blocks
// shorter than the configured size are zero-padded; longer ones truncated.
func (a *Analyzer) Analyze(block []float32) Frame {
	n := len(block)
	if n > a.blockSize {
		n = a.blockSize
	}
	var sumSquares float64
	for i := 0; i < n; i++ {
		v := float64(block[i])
		a.scratch[i] = v
		sumSquares += v * v
	}
	for i := n; i < a.blockSize; i++ {
		a.scratch[i] = 0
	}

	rms := 0.0
	if n > 0 {
		rms = math.Sqrt(sumSquares / float64(n))
	}
	rawLoudness := compress(rms, loudnessGain)
	a.loudness = ema(a.loudness, rawLoudness, loudnessAttack, loudnessDecay)

	// Magnitudes normalized by N/2 so values are independent of block size.
	a.coeffs = a.fft.Coefficients(a.coeffs, a.scratch)
	norm := float64(a.blockSize) / 2

	for i, bins := range a.bandBins {
		var sum float64
		for b := bins[0]; b < bins[1]; b++ {
			sum += cmplxAbs(a.coeffs[b]) / norm
		}
		mean := sum / float64(bins[1]-bins[0])
		raw := compress(mean, bandGain)
		a.bands[i] = ema(a.bands[i], raw, bandAttack, bandDecay)
	}

	return a.snapshot()
}

// Reset zeroes all smoothing state so recording sessions start dark.
func (a *Analyzer) Reset() {
	a.loudness = 0
	for i := range a.bands {
		a.bands[i] = 0
	}
}

// snapshot copies the smoothed state into an immutable frame.
func (a *Analyzer) snapshot() Frame {
	bands := make([]float64, NumBands)
	copy(bands, a.bands)
	return Frame{Loudness: a.loudness, Bands: bands}
}

// ema blends a raw value into the smoothed value with a faster coefficient
// on rising edges than on falling ones.
func ema(prev, raw, attack, decay float64) float64 {
	alpha := decay
	if raw > prev {
		alpha = attack
	}
	return alpha*raw + (1-alpha)*prev
}

// compress applies logarithmic compression and clamps the result to [0,1].
func compress(v, gain float64) float64 {
	if v < 0 {
		v = -v
	}
	c := math.Log1p(v*gain) / math.Log1p(gain)
	if c > 1 {
		return 1
	}
	return c
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
