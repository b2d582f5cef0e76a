package detect

import (
	"image"
	"sort"
)

const defaultIoUThreshold = 0.45

// nonMaxSuppression drops boxes that overlap a higher-confidence box of the
// same class beyond the IoU threshold.
func nonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) <= 1 {
		return dets
	}
	if iouThreshold <= 0 {
		iouThreshold = defaultIoUThreshold
	}

	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	for _, cand := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Label == cand.Label && iou(k.Box, cand.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()) + float64(b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
