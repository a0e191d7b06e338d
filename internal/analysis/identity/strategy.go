package identity

// Strategy is how span identities are obtained for a working set.
type Strategy string

const (
	// Direct uses the identities already attached to the samples.
	Direct Strategy = "direct"
	// Resample looks identities up for a capped, duration-prioritised subset.
	Resample Strategy = "resample"
)

// DirectCoverageThreshold is the smallest share of identified samples for which
// Direct is used.
const DirectCoverageThreshold = 0.5

// ChooseStrategy picks Direct when at least half the working set already carries an
// identity. A ratio of zero always resamples.
func ChooseStrategy(coverageRatio float64) Strategy {
	if coverageRatio > 0 && coverageRatio >= DirectCoverageThreshold {
		return Direct
	}
	return Resample
}

// CoverageRatio is resolved/total, or 0 for an empty working set.
func CoverageRatio(resolved, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(resolved) / float64(total)
}
