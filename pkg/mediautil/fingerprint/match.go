package fingerprint

import (
	"math"
	"sort"

	"github.com/ramadan8/MediaUtility/pkg/models"
)

// Analyze runs the full pipeline over mono samples.
func Analyze(samples []float64, sampleRate int, p Params) ([]Peak, []Hash, error) {
	spec, err := Spectrogram(samples, p)
	if err != nil {
		return nil, nil, err
	}
	peaks := ExtractPeaks(spec, sampleRate, p)
	return peaks, Hashes(peaks), nil
}

// Couples groups hashes by address for storage under songID.
func Couples(hashes []Hash, songID string) map[uint32][]models.Couple {
	out := make(map[uint32][]models.Couple, len(hashes))
	for _, h := range hashes {
		out[h.Address] = append(out[h.Address], models.Couple{SongID: songID, AnchorTimeMs: h.AnchorMs})
	}
	return out
}

// Vote aligns query hashes with indexed couples. Each song's score is the
// size of its most popular time offset (db anchor minus query anchor).
// Matches are returned best first.
func Vote(query []Hash, buckets map[uint32][]models.Couple) []models.Match {
	votes := make(map[string]map[int32]int)
	for _, h := range query {
		for _, c := range buckets[h.Address] {
			offset := int32(c.AnchorTimeMs) - int32(h.AnchorMs)
			byOffset, ok := votes[c.SongID]
			if !ok {
				byOffset = make(map[int32]int)
				votes[c.SongID] = byOffset
			}
			byOffset[offset]++
		}
	}

	matches := make([]models.Match, 0, len(votes))
	for songID, byOffset := range votes {
		best := models.Match{SongID: songID}
		for off, n := range byOffset {
			if n > best.Count || (n == best.Count && off < best.OffsetMs) {
				best.Count, best.OffsetMs = n, off
			}
		}
		matches = append(matches, best)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Count == matches[j].Count {
			return matches[i].SongID < matches[j].SongID
		}
		return matches[i].Count > matches[j].Count
	})
	return matches
}

// Confidence maps an aligned-hash count to 0-100 with a logistic curve
// centred on a 15% overlap of the smaller fingerprint set. Matches under
// five hashes are scaled down.
func Confidence(matchCount, queryCount, indexedCount int) float64 {
	if matchCount <= 0 || queryCount <= 0 || indexedCount <= 0 {
		return 0
	}

	const (
		steepness = 20.0
		midpoint  = 0.15
	)

	ratio := float64(matchCount) / float64(min(queryCount, indexedCount))
	confidence := 100 / (1 + math.Exp(-steepness*(ratio-midpoint)))
	if ratio > 0.30 {
		confidence = math.Min(100, confidence+(ratio-0.30)*50)
	}
	if matchCount < 5 {
		confidence *= float64(matchCount) / 5
	}
	return confidence
}
