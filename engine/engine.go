package engine

import (
	"fmt"
	"image"
	"os"
	"sync"

	"MicroDetServer/config"
	iface "MicroDetServer/interface"
	"MicroDetServer/logger"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// New selects the backend variant once at startup: if the configured model
// artifact loads, the model-inference variant is used, otherwise the
// simulated demo variant. The choice is never re-evaluated per request and
// a runtime inference failure never falls back to the simulator.
func New(cfg config.Config) iface.Backend {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		det, err := NewDetector(cfg)
		if err == nil {
			logger.Log().Info("model loaded",
				zap.String("modelPath", cfg.ModelPath),
				zap.Float32("confidence", cfg.ConfidenceThreshold),
				zap.Float32("iou", cfg.IouThreshold))
			return det
		}
		logger.Log().Warn("model failed to load, running in demo mode",
			zap.String("modelPath", cfg.ModelPath), zap.Error(err))
	} else {
		logger.Log().Warn("model file not found, running in demo mode",
			zap.String("modelPath", cfg.ModelPath))
	}
	return NewSimulator(cfg, len(config.ClassNames))
}

// Detector runs a YOLO-family ONNX model through the OpenCV DNN module.
// The loaded network is shared by every concurrent call; SetInput and
// Forward mutate session state, so the forward pass is serialized under an
// exclusive lock and each call still sees only its own output.
type Detector struct {
	mu         sync.Mutex
	net        gocv.Net
	conf       float32
	iou        float32
	resolution int
}

// NewDetector loads the ONNX model at cfg.ModelPath.
func NewDetector(cfg config.Config) (*Detector, error) {
	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model: %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendOpenCV); err != nil {
		return nil, fmt.Errorf("set dnn backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("set dnn target: %w", err)
	}
	return &Detector{
		net:        net,
		conf:       cfg.ConfidenceThreshold,
		iou:        cfg.IouThreshold,
		resolution: cfg.ProcessingResolution,
	}, nil
}

// DemoMode reports false: this is the real inference path.
func (d *Detector) DemoMode() bool { return false }

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// Infer runs one forward pass and returns detections at or above the
// confidence threshold, NMS-suppressed at the IoU threshold, with boxes in
// original-image pixel coordinates.
func (d *Detector) Infer(img gocv.Mat) (dets []iface.RawDetection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", iface.ErrInference, r)
		}
	}()

	square, maxDim := letterbox(img)
	defer square.Close()
	scale := float64(maxDim) / float64(d.resolution)

	blob := gocv.BlobFromImage(square, 1.0/255.0,
		image.Pt(d.resolution, d.resolution), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("%w: empty network output", iface.ErrInference)
	}
	return d.decodeOutput(out, scale), nil
}

// letterbox copies img onto a black square canvas sized to its larger
// side, so the model resize keeps the aspect ratio. Callers own the
// returned Mat.
func letterbox(img gocv.Mat) (gocv.Mat, int) {
	rows, cols := img.Rows(), img.Cols()
	maxDim := max(rows, cols)
	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
		maxDim, maxDim, gocv.MatTypeCV8UC3)
	roi := square.Region(image.Rect(0, 0, cols, rows))
	img.CopyTo(&roi)
	roi.Close()
	return square, maxDim
}

// decodeOutput walks the YOLOv8 output tensor, shape [1, 4+numClasses, N]:
// rows 0-3 are cx,cy,w,h in input-resolution space, the rest per-class scores.
func (d *Detector) decodeOutput(out gocv.Mat, scale float64) []iface.RawDetection {
	dims := out.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil
	}
	channels, cells := dims[1], dims[2]

	var (
		rects   []image.Rectangle
		boxes   []iface.BoundingBox
		scores  []float32
		classes []int
	)
	for i := 0; i < cells; i++ {
		classID := 0
		best := float32(0)
		for j := 4; j < channels; j++ {
			if s := out.GetFloatAt3(0, j, i); s > best {
				best = s
				classID = j - 4
			}
		}
		if best < d.conf {
			continue
		}
		cx := float64(out.GetFloatAt3(0, 0, i))
		cy := float64(out.GetFloatAt3(0, 1, i))
		w := float64(out.GetFloatAt3(0, 2, i))
		h := float64(out.GetFloatAt3(0, 3, i))
		box := iface.BoundingBox{
			X1: (cx - w/2) * scale,
			Y1: (cy - h/2) * scale,
			X2: (cx + w/2) * scale,
			Y2: (cy + h/2) * scale,
		}
		rects = append(rects, image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)))
		boxes = append(boxes, box)
		scores = append(scores, best)
		classes = append(classes, classID)
	}
	if len(rects) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(rects, scores, d.conf, d.iou)
	dets := make([]iface.RawDetection, 0, len(indices))
	for _, idx := range indices {
		dets = append(dets, iface.RawDetection{
			ClassID:    classes[idx],
			Confidence: scores[idx],
			Box:        boxes[idx],
		})
	}
	return dets
}
