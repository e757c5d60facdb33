// Package postprocess crops a merged canvas back to the original image
// extent, applies task-specific transforms and converts the result to 8-bit.
package postprocess

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
)

// BinarizeThreshold separates foreground from background for TaskBinarize.
// Samples strictly above it become 1, everything else 0.
const BinarizeThreshold = 0.95

// Finalize crops canvas to its top-left height×width region and applies the
// transform for task. The canvas is left untouched.
func Finalize(canvas *mat.Dense, height, width int, task models.Task) (*mat.Dense, error) {
	out, err := Crop(canvas, height, width)
	if err != nil {
		return nil, err
	}

	switch task {
	case models.TaskBinarize:
		Binarize(out)
	case models.TaskDeblur, models.TaskUnwatermark:
	default:
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("no post-processing defined for task %q", task)}
	}
	return out, nil
}

// Crop copies the top-left height×width region of canvas.
func Crop(canvas *mat.Dense, height, width int) (*mat.Dense, error) {
	if canvas == nil || canvas.IsEmpty() {
		return nil, &models.InvalidImageError{Reason: "canvas has no samples"}
	}
	ch, cw := canvas.Dims()
	if height < 1 || width < 1 || height > ch || width > cw {
		return nil, &models.ShapeMismatchError{
			Op:       "crop",
			Expected: fmt.Sprintf("a region inside %dx%d", cw, ch),
			Got:      fmt.Sprintf("%dx%d", width, height),
		}
	}
	return mat.DenseCopyOf(canvas.Slice(0, height, 0, width)), nil
}

// Binarize thresholds m in place at BinarizeThreshold.
func Binarize(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		if v > BinarizeThreshold {
			return 1
		}
		return 0
	}, m)
}

// InRange reports whether every sample of m lies in [0,1].
func InRange(m *mat.Dense) bool {
	raw := m.RawMatrix()
	for r := 0; r < raw.Rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		if floats.HasNaN(row) || floats.Min(row) < 0 || floats.Max(row) > 1 {
			return false
		}
	}
	return true
}

// ToGray converts normalized samples to an 8-bit single channel image by
// truncating v*255. With clamp set, values outside [0,1] saturate and NaN
// maps to 0; without it, out-of-range values wrap as a uint8 conversion does.
func ToGray(m *mat.Dense, clamp bool) *image.Gray {
	h, w := m.Dims()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := range row {
			v := m.At(y, x)
			if clamp {
				v = clampUnit(v)
			}
			row[x] = uint8(int64(v * 255))
		}
	}
	return img
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
