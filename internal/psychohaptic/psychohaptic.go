// Package psychohaptic computes a per-sub-band signal-to-mask ratio and
// turns it into a bit budget for the SPIHT coder (spec.md §4.3). Constants
// are transcribed from
// original_source/source/PsychohapticModel/include/PsychohapticModel.h;
// the body of PsychohapticModel.cpp was not present in the retrieved
// sources, so the peak/masking/SMR computation below follows spec.md §4.3's
// textual algorithm directly.
package psychohaptic

import (
	"math"
	"sync"

	"hapcodec/internal/filterbank"
)

// Constants transcribed verbatim from PsychohapticModel.h. This resolves
// spec.md's Open Question (a): a=50/e=45, not the alternate a=62/e=77
// that also appears in some source trees.
const (
	thresholdA = 50
	thresholdC = 1.0 / 550.0
	thresholdB = 1 - 250*thresholdC
	thresholdE = 45 // MIN_PEAK_HEIGHT_DIFF

	maskA = 5
	maskB = 1400
	maskC = 30

	minPeakProminence = 12

	zeroComp = 1e-35
)

// Peaks is a retained set of spectral peak locations (FFT bin index) and
// their dB heights.
type Peaks struct {
	Locations []int
	Heights   []float64
}

// Result is the output of one block's psychohaptic analysis.
type Result struct {
	SMR        []float64 // dB, one per sub-band (book entry)
	BandEnergy []float64 // linear energy, one per sub-band
}

// Model holds the per-(bl, fs) memoized perceptual threshold and book
// layout; construct one per distinct (block length, sample rate) pair and
// reuse it across blocks (spec.md §9 "Global constants table").
type Model struct {
	bl int
	fs float64

	freqs     []float64
	percThres []float64

	book           []int
	bookCumulative []int
}

var (
	cacheMu sync.Mutex
	cache   = map[[2]int]*Model{}
)

// New returns the Model for (bl, fs), building and memoizing it on first
// use.
func New(bl int, fs float64) *Model {
	key := [2]int{bl, int(fs)}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if m, ok := cache[key]; ok {
		return m
	}
	m := build(bl, fs)
	cache[key] = m
	return m
}

func build(bl int, fs float64) *Model {
	half := bl / 2
	freqs := make([]float64, half)
	percThres := make([]float64, half)
	for k := 0; k < half; k++ {
		f := filterbank.GetFrequency(k, bl, fs)
		freqs[k] = f
		percThres[k] = perceptualThreshold(f)
	}
	book, cum := Book(bl)
	return &Model{bl: bl, fs: fs, freqs: freqs, percThres: percThres, book: book, bookCumulative: cum}
}

// perceptualThreshold evaluates the closed-form a + b*f + c*f^2 shaped
// model at frequency f (Hz), scaled to kHz so the quadratic term stays on
// the same order of magnitude as a.
func perceptualThreshold(f float64) float64 {
	x := f / 1000
	return thresholdA + thresholdB*x + thresholdC*x*x
}

// Book returns the dyadic sub-band sizes {1, 1, 2, 4, 8, ..., bl/4}
// partitioning [0, bl/2), and their prefix sums (book_cumulative), per
// spec.md §4.3.
func Book(bl int) (sizes []int, cumulative []int) {
	half := bl / 2
	sizes = []int{1, 1}
	total := 2
	for s := 2; total < half; s *= 2 {
		n := s
		if total+n > half {
			n = half - total
		}
		sizes = append(sizes, n)
		total += n
	}
	cumulative = make([]int, len(sizes)+1)
	for i, s := range sizes {
		cumulative[i+1] = cumulative[i] + s
	}
	return sizes, cumulative
}

// FindPeaks locates strict local maxima in spectrum and retains those with
// prominence >= minProminence and height >= the per-bin threshold
// (percThres[loc] - thresholdE).
func (m *Model) FindPeaks(spectrumDB []float64) Peaks {
	var out Peaks
	n := len(spectrumDB)
	for i := 1; i < n-1; i++ {
		if !isStrictLocalMax(spectrumDB, i) {
			continue
		}
		prominence := peakProminence(spectrumDB, i)
		if prominence < minPeakProminence {
			continue
		}
		minHeight := thresholdE
		if i < len(m.percThres) {
			minHeight = m.percThres[i] - thresholdE
		}
		if spectrumDB[i] < minHeight {
			continue
		}
		out.Locations = append(out.Locations, i)
		out.Heights = append(out.Heights, spectrumDB[i])
	}
	return out
}

func isStrictLocalMax(x []float64, i int) bool {
	// Compare against the immediate neighbors only: a sample equal to either
	// neighbor sits on a plateau, so a flat top is never counted as a peak.
	if i < 1 || i >= len(x)-1 {
		return false
	}
	return x[i] > x[i-1] && x[i] > x[i+1]
}

// peakProminence walks outward from peak i in both directions until the
// signal exceeds the peak height or an edge is hit, tracking the minimum
// ("valley") seen on each side, and returns height minus the higher of the
// two valley minima.
func peakProminence(x []float64, i int) float64 {
	height := x[i]

	leftMin := height
	for j := i - 1; j >= 0; j-- {
		if x[j] > height {
			break
		}
		if x[j] < leftMin {
			leftMin = x[j]
		}
	}
	rightMin := height
	for j := i + 1; j < len(x); j++ {
		if x[j] > height {
			break
		}
		if x[j] < rightMin {
			rightMin = x[j]
		}
	}

	valley := leftMin
	if rightMin > valley {
		valley = rightMin
	}
	return height - valley
}

// PeakMask adds each retained peak's Gaussian masking spread to build a
// per-bin mask contribution, combined by maximum across peaks.
func (m *Model) PeakMask(peaks Peaks) []float64 {
	mask := make([]float64, len(m.freqs))
	for i := range mask {
		mask[i] = math.Inf(-1)
	}
	for pi, loc := range peaks.Locations {
		fPeak := m.freqs[loc]
		height := peaks.Heights[pi]
		for k, f := range m.freqs {
			contribution := height - maskA*math.Exp(-math.Pow((f-fPeak)/maskB, 2))*maskC
			if contribution > mask[k] {
				mask[k] = contribution
			}
		}
	}
	return mask
}

// globalMaskingThreshold combines the peak mask with the fixed perceptual
// threshold by per-frequency maximum.
func (m *Model) globalMaskingThreshold(peakMask []float64) []float64 {
	out := make([]float64, len(m.percThres))
	for i := range out {
		out[i] = math.Max(m.percThres[i], peakMask[i])
	}
	return out
}

// GetSMR runs the full per-block analysis: FFT magnitude spectrum, peak
// detection, masking, and per-sub-band SMR/energy.
func (m *Model) GetSMR(block []float64) Result {
	spectrumDB := filterbank.AmplitudeSpectrumDB(block, m.bl)
	half := m.bl / 2
	if len(spectrumDB) > half {
		spectrumDB = spectrumDB[:half]
	}

	peaks := m.FindPeaks(spectrumDB)
	mask := m.PeakMask(peaks)
	global := m.globalMaskingThreshold(mask)

	bins := filterbank.FFT(block, m.bl)

	smr := make([]float64, len(m.book))
	energy := make([]float64, len(m.book))
	for b := range m.book {
		lo, hi := m.bookCumulative[b], m.bookCumulative[b+1]
		var e, masked float64
		for k := lo; k < hi && k < len(bins); k++ {
			mag2 := math.Pow(filterbank.GetAmplitude(bins[k]), 2)
			e += mag2
			masked += math.Pow(10, global[k]/10)
		}
		energy[b] = e
		if masked < zeroComp {
			masked = zeroComp
		}
		if e < zeroComp {
			e = zeroComp
		}
		smr[b] = 10 * math.Log10(e/masked)
	}

	return Result{SMR: smr, BandEnergy: energy}
}

// AllocateBits distributes a budget of B bits across sub-bands in
// proportion to their (non-negative) SMR, floor-dividing and handing
// leftover bits to the sub-bands with the largest residual, with each
// sub-band capped at maxBits (spec.md §4.3 "Bit allocation").
func AllocateBits(smr []float64, budget, maxBits int) []int {
	n := len(smr)
	clamped := make([]float64, n)
	var total float64
	for i, v := range smr {
		if v < 0 {
			v = 0
		}
		clamped[i] = v
		total += v
	}

	alloc := make([]int, n)
	if total <= 0 {
		return alloc
	}

	type residual struct {
		idx int
		r   float64
	}
	residuals := make([]residual, n)
	spent := 0
	for i, v := range clamped {
		share := float64(budget) * v / total
		whole := math.Floor(share)
		alloc[i] = capAt(int(whole), maxBits)
		spent += alloc[i]
		residuals[i] = residual{idx: i, r: share - whole}
	}

	remaining := budget - spent
	for remaining > 0 {
		best := -1
		bestR := -1.0
		for _, r := range residuals {
			if alloc[r.idx] >= maxBits {
				continue
			}
			if r.r > bestR {
				bestR = r.r
				best = r.idx
			}
		}
		if best < 0 {
			break
		}
		alloc[best]++
		residuals[best].r = -1
		remaining--
	}
	return alloc
}

func capAt(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}
