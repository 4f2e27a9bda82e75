package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"MicroDetServer/config"
	iface "MicroDetServer/interface"

	"gocv.io/x/gocv"
)

var labelFallback = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Annotate draws each detection as a rectangle with a "Name NN%" label on a
// copy of the image and returns the JPEG-encoded result. The input Mat is
// never mutated and an empty detection list still produces a valid image.
func Annotate(img gocv.Mat, dets []iface.Detection) ([]byte, error) {
	canvas := img.Clone()
	defer canvas.Close()

	for _, d := range dets {
		col := classColor(d.ClassID)
		rect := image.Rect(int(d.Box.X1), int(d.Box.Y1), int(d.Box.X2), int(d.Box.Y2))
		gocv.Rectangle(&canvas, rect, col, 2)

		label := fmt.Sprintf("%s %.0f%%", d.ClassName, d.Confidence*100)
		org := image.Pt(rect.Min.X, rect.Min.Y-4)
		if org.Y < 12 {
			// keep the label inside the frame for boxes at the top edge
			org.Y = rect.Min.Y + 14
		}
		gocv.PutText(&canvas, label, org, gocv.FontHersheyPlain, 1.2, col, 2)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", iface.ErrEncodingFailed, err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

func classColor(classID int) color.RGBA {
	if classID >= 0 && classID < len(config.ClassColors) {
		return config.ClassColors[classID]
	}
	return labelFallback
}
