package fit

import "PerfectFit/internal/entity"

const (
	TightBelowMm = -3.0
	LooseAboveMm = 5.0
)

// Classify compares a frame's physical width against the wearer's face width.
// The band is asymmetric: undersized frames pinch sooner than oversized frames
// look loose.
func Classify(frameWidthMm, faceWidthMm float64) entity.FitCategory {
	diff := frameWidthMm - faceWidthMm
	switch {
	case diff <= TightBelowMm:
		return entity.FitTight
	case diff >= LooseAboveMm:
		return entity.FitLoose
	default:
		return entity.FitPerfect
	}
}
