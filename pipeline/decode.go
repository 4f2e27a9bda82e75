package pipeline

import (
	"fmt"

	iface "MicroDetServer/interface"

	"gocv.io/x/gocv"
)

// Decode turns raw JPEG/PNG bytes into a BGR Mat. The caller owns the Mat
// and must Close it. Empty input, unparseable bytes and zero-area images
// all fail with ErrInvalidImage.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty input", iface.ErrInvalidImage)
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", iface.ErrInvalidImage, err)
	}
	if mat.Empty() || mat.Cols() == 0 || mat.Rows() == 0 {
		_ = mat.Close()
		return gocv.Mat{}, fmt.Errorf("%w: decoded image is empty or unsupported format", iface.ErrInvalidImage)
	}
	return mat, nil
}
