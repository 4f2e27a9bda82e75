package pipeline

import (
	"testing"

	"MicroDetServer/config"
	"MicroDetServer/engine"
	iface "MicroDetServer/interface"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

// testJPEG encodes a black BGR image of the given size.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer img.Close()
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	assert.NoError(t, err)
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

// stubBackend replays a fixed raw detection list.
type stubBackend struct {
	raw  []iface.RawDetection
	demo bool
}

func (s *stubBackend) Infer(img gocv.Mat) ([]iface.RawDetection, error) { return s.raw, nil }
func (s *stubBackend) DemoMode() bool                                   { return s.demo }
func (s *stubBackend) Close() error                                     { return nil }

func TestDecode(t *testing.T) {
	t.Run("Test EmptyInput", func(t *testing.T) {
		_, err := Decode(nil)
		assert.ErrorIs(t, err, iface.ErrInvalidImage)
	})

	t.Run("Test GarbageInput", func(t *testing.T) {
		_, err := Decode([]byte("definitely not an image"))
		assert.ErrorIs(t, err, iface.ErrInvalidImage)
	})

	t.Run("Test ValidJPEG", func(t *testing.T) {
		img, err := Decode(testJPEG(t, 100, 80))
		assert.NoError(t, err)
		defer img.Close()
		assert.Equal(t, 100, img.Cols())
		assert.Equal(t, 80, img.Rows())
	})
}

func TestNormalize(t *testing.T) {
	table := config.ClassNames

	t.Run("Test ClampToBounds", func(t *testing.T) {
		raw := []iface.RawDetection{
			{ClassID: 0, Confidence: 0.9, Box: iface.BoundingBox{X1: -10, Y1: -5, X2: 120, Y2: 90}},
		}
		dets, err := Normalize(raw, 100, 80, table)
		assert.NoError(t, err)
		assert.Len(t, dets, 1)
		assert.Equal(t, iface.BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 80}, dets[0].Box)
	})

	t.Run("Test DropZeroArea", func(t *testing.T) {
		raw := []iface.RawDetection{
			{ClassID: 1, Confidence: 0.8, Box: iface.BoundingBox{X1: 150, Y1: 20, X2: 170, Y2: 40}},
			{ClassID: 2, Confidence: 0.7, Box: iface.BoundingBox{X1: 10, Y1: 10, X2: 20, Y2: 20}},
		}
		dets, err := Normalize(raw, 100, 80, table)
		assert.NoError(t, err)
		assert.Len(t, dets, 1)
		assert.Equal(t, "Film", dets[0].ClassName)
	})

	t.Run("Test UnknownClass", func(t *testing.T) {
		raw := []iface.RawDetection{
			{ClassID: 4, Confidence: 0.9, Box: iface.BoundingBox{X1: 10, Y1: 10, X2: 20, Y2: 20}},
		}
		_, err := Normalize(raw, 100, 80, table)
		assert.ErrorIs(t, err, iface.ErrUnknownClass)
	})

	t.Run("Test OrderPreserved", func(t *testing.T) {
		raw := []iface.RawDetection{
			{ClassID: 3, Confidence: 0.6, Box: iface.BoundingBox{X1: 1, Y1: 1, X2: 10, Y2: 10}},
			{ClassID: 0, Confidence: 0.9, Box: iface.BoundingBox{X1: 2, Y1: 2, X2: 12, Y2: 12}},
			{ClassID: 1, Confidence: 0.4, Box: iface.BoundingBox{X1: 3, Y1: 3, X2: 14, Y2: 14}},
		}
		dets, err := Normalize(raw, 100, 80, table)
		assert.NoError(t, err)
		assert.Equal(t, []string{"Pellet", "Fragment", "Fiber"},
			[]string{dets[0].ClassName, dets[1].ClassName, dets[2].ClassName})
	})

	t.Run("Test ConfidencePassthrough", func(t *testing.T) {
		// below-threshold values are kept; filtering is the backend's job
		raw := []iface.RawDetection{
			{ClassID: 0, Confidence: 0.12345, Box: iface.BoundingBox{X1: 1, Y1: 1, X2: 10, Y2: 10}},
		}
		dets, err := Normalize(raw, 100, 80, table)
		assert.NoError(t, err)
		assert.Equal(t, 0.1235, dets[0].Confidence)
	})
}

func TestSummarize(t *testing.T) {
	table := config.ClassNames

	t.Run("Test EmptySequence", func(t *testing.T) {
		s := Summarize(nil, true, table)
		assert.Equal(t, 0, s.TotalParticles)
		assert.Equal(t, 0.0, s.AvgConfidence)
		assert.Equal(t, 0.0, s.MaxConfidence)
		assert.True(t, s.DemoMode)
		assert.Len(t, s.CountsByType, 4)
		for _, name := range table {
			assert.Equal(t, 0, s.CountsByType[name])
		}
	})

	t.Run("Test Statistics", func(t *testing.T) {
		dets := []iface.Detection{
			{ClassID: 0, ClassName: "Fragment", Confidence: 0.5},
			{ClassID: 0, ClassName: "Fragment", Confidence: 0.9},
			{ClassID: 2, ClassName: "Film", Confidence: 0.7},
		}
		s := Summarize(dets, false, table)
		assert.Equal(t, 3, s.TotalParticles)
		assert.Equal(t, 2, s.CountsByType["Fragment"])
		assert.Equal(t, 1, s.CountsByType["Film"])
		assert.Equal(t, 0, s.CountsByType["Fiber"])
		assert.Equal(t, 0, s.CountsByType["Pellet"])
		assert.Equal(t, 0.7, s.AvgConfidence)
		assert.Equal(t, 0.9, s.MaxConfidence)
		assert.False(t, s.DemoMode)

		total := 0
		for _, c := range s.CountsByType {
			total += c
		}
		assert.Equal(t, s.TotalParticles, total)
	})

	t.Run("Test AvgWithinMinMax", func(t *testing.T) {
		dets := []iface.Detection{
			{ClassName: "Fiber", Confidence: 0.31},
			{ClassName: "Fiber", Confidence: 0.92},
		}
		s := Summarize(dets, false, table)
		assert.GreaterOrEqual(t, s.AvgConfidence, 0.31)
		assert.LessOrEqual(t, s.AvgConfidence, 0.92)
	})
}

func TestAnnotate(t *testing.T) {
	data := testJPEG(t, 100, 100)
	img, err := Decode(data)
	assert.NoError(t, err)
	defer img.Close()
	before := img.ToBytes()

	t.Run("Test EmptyDetections", func(t *testing.T) {
		out, err := Annotate(img, nil)
		assert.NoError(t, err)
		assert.NotEmpty(t, out)

		decoded, err := Decode(out)
		assert.NoError(t, err)
		defer decoded.Close()
		assert.Equal(t, img.Cols(), decoded.Cols())
		assert.Equal(t, img.Rows(), decoded.Rows())
	})

	t.Run("Test WithDetections", func(t *testing.T) {
		dets := []iface.Detection{
			{ClassID: 0, ClassName: "Fragment", Confidence: 0.91,
				Box: iface.BoundingBox{X1: 10, Y1: 10, X2: 40, Y2: 40}},
			{ClassID: 3, ClassName: "Pellet", Confidence: 0.55,
				Box: iface.BoundingBox{X1: 50, Y1: 2, X2: 90, Y2: 30}},
		}
		out, err := Annotate(img, dets)
		assert.NoError(t, err)

		decoded, err := Decode(out)
		assert.NoError(t, err)
		defer decoded.Close()
		assert.Equal(t, img.Cols(), decoded.Cols())
		assert.Equal(t, img.Rows(), decoded.Rows())
	})

	t.Run("Test InputUnmodified", func(t *testing.T) {
		// boxes and labels go on a copy, never the caller's Mat
		assert.Equal(t, before, img.ToBytes())
	})
}

func TestDetect_SimulatedBackend(t *testing.T) {
	cfg := config.Default()
	cfg.ConfidenceThreshold = 0.25
	pipe := New(engine.NewSimulator(cfg, len(config.ClassNames)))
	data := testJPEG(t, 100, 100)

	result, err := pipe.Detect(data)
	assert.NoError(t, err)
	assert.Len(t, result.RequestID, 8)
	assert.True(t, result.Summary.DemoMode)
	assert.GreaterOrEqual(t, len(result.Detections), 3)
	assert.LessOrEqual(t, len(result.Detections), 8)
	assert.Equal(t, len(result.Detections), result.Summary.TotalParticles)

	total := 0
	for _, c := range result.Summary.CountsByType {
		total += c
	}
	assert.Equal(t, result.Summary.TotalParticles, total)

	for _, d := range result.Detections {
		assert.GreaterOrEqual(t, d.Box.X1, 0.0)
		assert.GreaterOrEqual(t, d.Box.Y1, 0.0)
		assert.LessOrEqual(t, d.Box.X2, 100.0)
		assert.LessOrEqual(t, d.Box.Y2, 100.0)
		assert.Greater(t, d.Box.X2, d.Box.X1)
		assert.Greater(t, d.Box.Y2, d.Box.Y1)
	}

	annotated, err := Decode(result.AnnotatedImage)
	assert.NoError(t, err)
	defer annotated.Close()
	assert.Equal(t, 100, annotated.Cols())
	assert.Equal(t, 100, annotated.Rows())
}

func TestDetect_Errors(t *testing.T) {
	t.Run("Test EmptyInput", func(t *testing.T) {
		cfg := config.Default()
		pipe := New(engine.NewSimulator(cfg, len(config.ClassNames)))
		_, err := pipe.Detect(nil)
		assert.ErrorIs(t, err, iface.ErrInvalidImage)
	})

	t.Run("Test UnknownClassFromBackend", func(t *testing.T) {
		backend := &stubBackend{raw: []iface.RawDetection{
			{ClassID: 4, Confidence: 0.8, Box: iface.BoundingBox{X1: 1, Y1: 1, X2: 20, Y2: 20}},
		}}
		pipe := New(backend)
		_, err := pipe.Detect(testJPEG(t, 50, 50))
		assert.ErrorIs(t, err, iface.ErrUnknownClass)
	})
}

func TestStatus(t *testing.T) {
	pipe := New(&stubBackend{demo: true})
	modelLoaded, demoMode := pipe.Status()
	assert.False(t, modelLoaded)
	assert.True(t, demoMode)
	assert.Equal(t, []string{"Fragment", "Fiber", "Film", "Pellet"}, pipe.Classes())
}
