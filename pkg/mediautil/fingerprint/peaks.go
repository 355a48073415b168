package fingerprint

import (
	"math"
	"sort"
)

// Peak is a local spectral maximum.
type Peak struct {
	TimeIdx int
	FreqIdx int
	Time    float64 // seconds
	Freq    float64 // Hz
	MagDB   float64
}

const (
	freqNeighbourhood = 3
	timeNeighbourhood = 1
	minDBAboveAverage = 3.0
	epsilon           = 1e-10
)

// bandEdges splits nBins into a first band of 10 bins followed by octave
// bands, so low frequencies do not crowd out the rest.
func bandEdges(nBins int) [][2]int {
	bands := [][2]int{{0, min(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := min(start*2, nBins)
		bands = append(bands, [2]int{start, end})
	}
	return bands
}

func toDB(mag float64) float64 {
	return 20 * math.Log10(mag+epsilon)
}

// ExtractPeaks keeps, per frame, the strongest bin of each band when it
// stands out from the frame's band average and is a local maximum in its
// time/frequency neighbourhood. Peaks are ordered by time, then frequency.
func ExtractPeaks(spec [][]float64, sampleRate int, p Params) []Peak {
	if len(spec) == 0 || len(spec[0]) == 0 || sampleRate <= 0 {
		return nil
	}
	p = p.withDefaults()

	nBins := len(spec[0])
	bands := bandEdges(nBins)
	freqRes := float64(sampleRate) / float64(p.WindowSize)
	frameTime := float64(p.HopSize) / float64(sampleRate)

	peaks := make([]Peak, 0, len(spec)*2)
	maxMag := make([]float64, len(bands))
	maxIdx := make([]int, len(bands))

	for t, frame := range spec {
		var sumDB float64
		for bi, b := range bands {
			maxMag[bi], maxIdx[bi] = 0, b[0]
			for i := b[0]; i < b[1]; i++ {
				if frame[i] > maxMag[bi] {
					maxMag[bi], maxIdx[bi] = frame[i], i
				}
			}
			sumDB += toDB(maxMag[bi])
		}
		avgDB := sumDB / float64(len(bands))

		for bi, mag := range maxMag {
			if mag <= 0 {
				continue
			}
			magDB := toDB(mag)
			if magDB < avgDB+minDBAboveAverage {
				continue
			}
			bin := maxIdx[bi]
			if !isLocalMax(spec, t, bin, mag) {
				continue
			}
			peaks = append(peaks, Peak{
				TimeIdx: t,
				FreqIdx: bin,
				Time:    float64(t) * frameTime,
				Freq:    float64(bin) * freqRes,
				MagDB:   magDB,
			})
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].TimeIdx == peaks[j].TimeIdx {
			return peaks[i].FreqIdx < peaks[j].FreqIdx
		}
		return peaks[i].TimeIdx < peaks[j].TimeIdx
	})
	return peaks
}

func isLocalMax(spec [][]float64, t, bin int, mag float64) bool {
	nBins := len(spec[0])
	for dt := -timeNeighbourhood; dt <= timeNeighbourhood; dt++ {
		ti := t + dt
		if ti < 0 || ti >= len(spec) {
			continue
		}
		for df := -freqNeighbourhood; df <= freqNeighbourhood; df++ {
			fi := bin + df
			if fi < 0 || fi >= nBins || (dt == 0 && df == 0) {
				continue
			}
			if spec[ti][fi] > mag {
				return false
			}
		}
	}
	return true
}
