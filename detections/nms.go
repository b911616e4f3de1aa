package detections

import (
	"math"
	"sort"

	"github.com/Tutortoise/threat-detection-service/models"
)

// suppressOverlaps performs class-aware non-maximum suppression. The result
// is ordered by descending confidence.
func suppressOverlaps(candidates []models.RawDetection, iouThreshold float64) []models.RawDetection {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]models.RawDetection, len(candidates))
	copy(sorted, candidates)
	sortByConfidence(sorted)

	kept := make([]models.RawDetection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].Class != sorted[i].Class {
				continue
			}
			if calculateIOU(sorted[i], sorted[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func calculateIOU(a, b models.RawDetection) float64 {
	x1 := math.Max(a.XMin, b.XMin)
	y1 := math.Max(a.YMin, b.YMin)
	x2 := math.Min(a.XMax, b.XMax)
	y2 := math.Min(a.YMax, b.YMax)

	if x2 <= x1 || y2 <= y1 {
		return 0.0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	area2 := (b.XMax - b.XMin) * (b.YMax - b.YMin)
	union := area1 + area2 - intersection
	if union <= 0 {
		return 0.0
	}

	return intersection / union
}

func sortByConfidence(rows []models.RawDetection) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Confidence > rows[j].Confidence
	})
}

// scaleBox converts a centre-format box in model input pixels to corner
// format in source image pixels, clamped to the image.
func scaleBox(cx, cy, w, h float64, origWidth, origHeight int) (x1, y1, x2, y2 float64) {
	scaleX := float64(origWidth) / InputWidth
	scaleY := float64(origHeight) / InputHeight

	x1 = math.Max(0, (cx-w/2)*scaleX)
	y1 = math.Max(0, (cy-h/2)*scaleY)
	x2 = math.Min(float64(origWidth), (cx+w/2)*scaleX)
	y2 = math.Min(float64(origHeight), (cy+h/2)*scaleY)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return x1, y1, x2, y2
}
