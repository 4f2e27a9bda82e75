package iface

// BoundingBox is an axis-aligned box in pixel coordinates, origin top-left.
// A valid box satisfies X1 < X2 and Y1 < Y2.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Clamp limits the box to [0,width]x[0,height].
func (b BoundingBox) Clamp(width, height float64) BoundingBox {
	out := b
	if out.X1 < 0 {
		out.X1 = 0
	}
	if out.Y1 < 0 {
		out.Y1 = 0
	}
	if out.X2 > width {
		out.X2 = width
	}
	if out.Y2 > height {
		out.Y2 = height
	}
	return out
}

// Area returns the box area, negative if the box is inverted.
func (b BoundingBox) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// RawDetection is a single backend output before class resolution.
type RawDetection struct {
	ClassID    int
	Confidence float32
	Box        BoundingBox
}

// Detection is one located, classified particle with a confidence score.
// Immutable once produced by the normalizer.
type Detection struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"bbox"`
}

// Summary holds the per-request statistics derived from a detection list.
type Summary struct {
	TotalParticles int            `json:"total_particles"`
	CountsByType   map[string]int `json:"counts_by_type"`
	AvgConfidence  float64        `json:"avg_confidence"`
	MaxConfidence  float64        `json:"max_confidence"`
	DemoMode       bool           `json:"demo_mode"`
}

// DetectionResult is the aggregate returned for one image.
type DetectionResult struct {
	RequestID      string      `json:"request_id"`
	Detections     []Detection `json:"detections"`
	Summary        Summary     `json:"summary"`
	AnnotatedImage []byte      `json:"-"`
}
