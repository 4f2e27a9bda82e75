package pipeline

import (
	"fmt"
	"math"

	iface "MicroDetServer/interface"
)

// Normalize resolves class names, clamps geometry to the image bounds and
// drops detections whose clamped box has no area. Emission order is
// preserved and confidences are never re-filtered here; the threshold
// policy lives in the backend. A class id outside the table is a
// backend/class-table mismatch and fails with ErrUnknownClass.
func Normalize(raw []iface.RawDetection, width, height int, classTable []string) ([]iface.Detection, error) {
	dets := make([]iface.Detection, 0, len(raw))
	for _, r := range raw {
		if r.ClassID < 0 || r.ClassID >= len(classTable) {
			return nil, fmt.Errorf("%w: class id %d not in table of %d classes",
				iface.ErrUnknownClass, r.ClassID, len(classTable))
		}
		box := r.Box.Clamp(float64(width), float64(height))
		box = iface.BoundingBox{
			X1: round(box.X1, 2),
			Y1: round(box.Y1, 2),
			X2: round(box.X2, 2),
			Y2: round(box.Y2, 2),
		}
		if box.Area() <= 0 {
			continue
		}
		dets = append(dets, iface.Detection{
			ClassID:    r.ClassID,
			ClassName:  classTable[r.ClassID],
			Confidence: round(float64(r.Confidence), 4),
			Box:        box,
		})
	}
	return dets, nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
