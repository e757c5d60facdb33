// Package predictor wraps the opaque restoration model behind a uniform
// tile in, tile out contract.
package predictor

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/tiling"
)

// Predictor restores one normalized size×size tile. Implementations return a
// tile of the same shape with values expected, but not required, in [0,1].
type Predictor interface {
	Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error)
}

// Func adapts a plain function to the Predictor interface.
type Func func(ctx context.Context, tile *mat.Dense) (*mat.Dense, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error) {
	return f(ctx, tile)
}

// Adapter enforces the tile contract around a Predictor: exactly one model
// call per tile, square tiles of TileSize in and out, and every failure
// (including a panic inside the model) reported as a PredictionError that
// names the tile.
type Adapter struct {
	predictor Predictor
	tileSize  int
}

// NewAdapter wraps p for tiles of edge length tileSize.
func NewAdapter(p Predictor, tileSize int) *Adapter {
	return &Adapter{predictor: p, tileSize: tileSize}
}

// TileSize returns the tile edge length the adapter accepts.
func (a *Adapter) TileSize() int { return a.tileSize }

// Predict runs the model on tile and returns the predicted tile at the same
// sequence position.
func (a *Adapter) Predict(ctx context.Context, tile tiling.Tile) (out tiling.Tile, err error) {
	if err := a.checkShape(tile.Data, "input"); err != nil {
		return tiling.Tile{}, &models.PredictionError{Index: tile.Index, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			out = tiling.Tile{}
			err = &models.PredictionError{Index: tile.Index, Err: fmt.Errorf("predictor panic: %v", r)}
		}
	}()

	pred, err := a.predictor.Predict(ctx, tile.Data)
	if err != nil {
		return tiling.Tile{}, &models.PredictionError{Index: tile.Index, Err: err}
	}
	if err := a.checkShape(pred, "output"); err != nil {
		return tiling.Tile{}, &models.PredictionError{Index: tile.Index, Err: err}
	}

	return tiling.Tile{Index: tile.Index, Row: tile.Row, Col: tile.Col, Data: pred}, nil
}

func (a *Adapter) checkShape(m *mat.Dense, which string) error {
	if m == nil || m.IsEmpty() {
		return &models.ShapeMismatchError{
			Op:       "predict " + which,
			Expected: fmt.Sprintf("%dx%d tile", a.tileSize, a.tileSize),
			Got:      "empty tile",
		}
	}
	if r, c := m.Dims(); r != a.tileSize || c != a.tileSize {
		return &models.ShapeMismatchError{
			Op:       "predict " + which,
			Expected: fmt.Sprintf("%dx%d tile", a.tileSize, a.tileSize),
			Got:      fmt.Sprintf("%dx%d tile", c, r),
		}
	}
	return nil
}

// Serialized guards a Predictor that is not safe for concurrent use so that
// only one call reaches it at a time.
type Serialized struct {
	mu sync.Mutex
	p  Predictor
}

// Serialize wraps p behind a single access point.
func Serialize(p Predictor) *Serialized {
	return &Serialized{p: p}
}

// Predict forwards to the wrapped predictor while holding the lock.
func (s *Serialized) Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Predict(ctx, tile)
}

// Close releases the wrapped predictor if it holds resources.
func (s *Serialized) Close() error {
	if c, ok := s.p.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Identity returns every tile unchanged. It lets the whole pipeline run
// without a model, which is useful for dry runs and for testing the
// tiling contract end to end.
type Identity struct{}

// Predict returns a copy of tile.
func (Identity) Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(tile), nil
}
