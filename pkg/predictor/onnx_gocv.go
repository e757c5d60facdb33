//go:build gocv

package predictor

import (
	"context"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
)

// ONNX runs an ONNX export of the restoration generator through the OpenCV
// DNN module. A gocv.Net is not safe for concurrent use; wrap it with
// Serialize when tiles are predicted in parallel.
type ONNX struct {
	net  gocv.Net
	path string
}

// NewONNX loads the model at path. With useCUDA the network is placed on the
// CUDA backend and target.
func NewONNX(path string, useCUDA bool) (*ONNX, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &models.ConfigurationError{Reason: "missing model weights " + path, Err: err}
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, &models.ConfigurationError{Reason: "unable to load ONNX model " + path}
	}

	if useCUDA {
		if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err != nil {
			net.Close()
			return nil, &models.ConfigurationError{Reason: "select CUDA backend", Err: err}
		}
		if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err != nil {
			net.Close()
			return nil, &models.ConfigurationError{Reason: "select CUDA target", Err: err}
		}
	}

	return &ONNX{net: net, path: path}, nil
}

// Predict feeds tile as a 1×1×H×W blob and reads back the generator output.
func (o *ONNX) Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, cols := tile.Dims()

	in := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	defer in.Close()
	pix, err := in.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("access input buffer: %w", err)
	}
	copy(pix, flatten(tile))

	blob := gocv.BlobFromImage(in, 1.0, image.Pt(cols, rows), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	o.net.SetInput(blob, "")
	out := o.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output blob: %w", err)
	}
	if len(data) != rows*cols {
		return nil, &models.ShapeMismatchError{
			Op:       "onnx forward",
			Expected: fmt.Sprintf("%d samples", rows*cols),
			Got:      fmt.Sprintf("%d samples", len(data)),
		}
	}

	return unflatten(data, rows, cols), nil
}

// Close releases the network.
func (o *ONNX) Close() error {
	return o.net.Close()
}
