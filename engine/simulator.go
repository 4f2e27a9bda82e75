package engine

import (
	"math/rand"
	"time"

	"MicroDetServer/config"
	iface "MicroDetServer/interface"

	"gocv.io/x/gocv"
)

const (
	simMinCount = 3
	simMaxCount = 8
	simMaxConf  = 0.97
	simMinFrac  = 0.10
	simMaxFrac  = 0.25
)

// Simulator is the demo backend used when no model is available. It emits a
// plausible synthetic detection set: the boxes always lie fully inside the
// image and confidences always respect the configured threshold.
type Simulator struct {
	conf       float32
	numClasses int
}

// NewSimulator builds the demo backend for a class table of the given size.
func NewSimulator(cfg config.Config, numClasses int) *Simulator {
	return &Simulator{conf: cfg.ConfidenceThreshold, numClasses: numClasses}
}

// DemoMode reports true so the summary flags simulated results.
func (s *Simulator) DemoMode() bool { return true }

// Close is a no-op: the simulator holds no resources.
func (s *Simulator) Close() error { return nil }

// Infer generates between simMinCount and simMaxCount random detections.
// The random source is local to the call so concurrent requests and test
// runs never share seeding state.
func (s *Simulator) Infer(img gocv.Mat) ([]iface.RawDetection, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	w := float64(img.Cols())
	h := float64(img.Rows())

	n := simMinCount + rng.Intn(simMaxCount-simMinCount+1)
	dets := make([]iface.RawDetection, 0, n)
	for i := 0; i < n; i++ {
		bw := (simMinFrac + rng.Float64()*(simMaxFrac-simMinFrac)) * w
		bh := (simMinFrac + rng.Float64()*(simMaxFrac-simMinFrac)) * h
		x1 := rng.Float64() * (w - bw)
		y1 := rng.Float64() * (h - bh)

		lo := float64(s.conf)
		if lo < 0.5 {
			lo = 0.5
		}
		hi := float64(simMaxConf)
		if hi < lo {
			hi = lo
		}
		conf := lo + rng.Float64()*(hi-lo)

		dets = append(dets, iface.RawDetection{
			ClassID:    rng.Intn(s.numClasses),
			Confidence: float32(conf),
			Box:        iface.BoundingBox{X1: x1, Y1: y1, X2: x1 + bw, Y2: y1 + bh},
		})
	}
	return dets, nil
}
