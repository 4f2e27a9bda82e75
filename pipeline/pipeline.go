package pipeline

import (
	"sync"

	"MicroDetServer/config"
	iface "MicroDetServer/interface"
	"MicroDetServer/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline composes decode, inference, normalization, aggregation and
// annotation into one request-scoped Detect operation. It holds no mutable
// state beyond the backend, so concurrent Detect calls on separate inputs
// are safe.
type Pipeline struct {
	backend iface.Backend
	classes []string
}

// New builds a pipeline around the backend selected at startup.
func New(backend iface.Backend) *Pipeline {
	return &Pipeline{backend: backend, classes: config.ClassNames}
}

// Detect runs the full pipeline on raw image bytes and assembles the
// result under a fresh request id.
func (p *Pipeline) Detect(data []byte) (*iface.DetectionResult, error) {
	requestID := uuid.NewString()[:8]

	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	raw, err := p.backend.Infer(img)
	if err != nil {
		return nil, err
	}
	dets, err := Normalize(raw, img.Cols(), img.Rows(), p.classes)
	if err != nil {
		return nil, err
	}

	// Summary and annotation both only read the normalized detections and
	// the decoded image, so they run in parallel.
	var (
		wg        sync.WaitGroup
		summary   iface.Summary
		annotated []byte
		annErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		summary = Summarize(dets, p.backend.DemoMode(), p.classes)
	}()
	go func() {
		defer wg.Done()
		annotated, annErr = Annotate(img, dets)
	}()
	wg.Wait()
	if annErr != nil {
		return nil, annErr
	}

	logger.Log().Info("detection complete",
		zap.String("requestID", requestID),
		zap.Int("width", img.Cols()),
		zap.Int("height", img.Rows()),
		zap.Int("particles", summary.TotalParticles),
		zap.Bool("demoMode", summary.DemoMode))

	return &iface.DetectionResult{
		RequestID:      requestID,
		Detections:     dets,
		Summary:        summary,
		AnnotatedImage: annotated,
	}, nil
}

// Classes returns the ordered class table.
func (p *Pipeline) Classes() []string { return p.classes }

// Status reports which backend variant is active.
func (p *Pipeline) Status() (modelLoaded, demoMode bool) {
	demo := p.backend.DemoMode()
	return !demo, demo
}

// Close releases backend resources.
func (p *Pipeline) Close() error { return p.backend.Close() }
