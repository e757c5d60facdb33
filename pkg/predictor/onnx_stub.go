//go:build !gocv

package predictor

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
)

// ONNX is unavailable in builds without the gocv tag.
type ONNX struct{}

// NewONNX always fails; rebuild with -tags gocv and OpenCV installed.
func NewONNX(path string, useCUDA bool) (*ONNX, error) {
	return nil, &models.ConfigurationError{Reason: "onnx backend requires a build with -tags gocv"}
}

// Predict is never reached because NewONNX cannot succeed.
func (o *ONNX) Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error) {
	return nil, &models.ConfigurationError{Reason: "onnx backend requires a build with -tags gocv"}
}

// Close does nothing.
func (o *ONNX) Close() error { return nil }
