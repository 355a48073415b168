package fingerprint

import "math"

const (
	FreqBits   = 9
	DeltaBits  = 14
	FanOut     = 6
	MinDeltaMs = 10
	MaxDeltaMs = 15000
)

// Hash is one anchor/target landmark.
type Hash struct {
	Address  uint32
	AnchorMs uint32
}

// address packs anchor bin, target bin and their time distance as
// [anchor:9][target:9][delta:14]. ok is false when a field does not fit.
func address(anchor, target Peak) (uint32, bool) {
	const (
		freqMask  = 1<<FreqBits - 1
		deltaMask = 1<<DeltaBits - 1
	)

	deltaMs := math.Round((target.Time - anchor.Time) * 1000)
	if deltaMs < MinDeltaMs || deltaMs > MaxDeltaMs || deltaMs > deltaMask {
		return 0, false
	}
	if anchor.FreqIdx < 0 || target.FreqIdx < 0 ||
		anchor.FreqIdx > freqMask || target.FreqIdx > freqMask {
		return 0, false
	}

	return uint32(anchor.FreqIdx)<<(DeltaBits+FreqBits) |
		uint32(target.FreqIdx)<<DeltaBits |
		uint32(deltaMs), true
}

// Hashes pairs every peak with up to FanOut later peaks. peaks must be
// time-ordered, as returned by ExtractPeaks.
func Hashes(peaks []Peak) []Hash {
	out := make([]Hash, 0, len(peaks)*FanOut)
	for i, anchor := range peaks {
		anchorMs := uint32(math.Round(anchor.Time * 1000))
		paired := 0
		for j := i + 1; j < len(peaks) && paired < FanOut; j++ {
			addr, ok := address(anchor, peaks[j])
			if !ok {
				continue
			}
			out = append(out, Hash{Address: addr, AnchorMs: anchorMs})
			paired++
		}
	}
	return out
}

// Addresses returns the distinct addresses in hashes.
func Addresses(hashes []Hash) []uint32 {
	seen := make(map[uint32]struct{}, len(hashes))
	out := make([]uint32, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h.Address]; ok {
			continue
		}
		seen[h.Address] = struct{}{}
		out = append(out, h.Address)
	}
	return out
}
