// Package tiling pads arbitrary-sized images onto a tile-aligned canvas,
// splits the canvas into fixed-size tiles and merges predicted tiles back.
//
// Split and Merge are exact structural inverses: tiles are produced and
// consumed in row-major order (every tile of tile-row 0 left to right, then
// tile-row 1, ...). Each Tile also carries its index and grid position so
// that Merge can verify the order instead of trusting it.
package tiling

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
)

// PadValue fills the canvas outside the original image (white background).
const PadValue = 1.0

// Tile is one size×size block of a padded canvas.
type Tile struct {
	// Index is the position of the tile in the row-major sequence
	Index int

	// Row and Col locate the tile in the tile grid
	Row, Col int

	// Data holds the samples, normalized to [0,1]
	Data *mat.Dense
}

// Grid describes how a padded canvas divides into tiles.
type Grid struct {
	TileSize     int
	PaddedHeight int
	PaddedWidth  int
}

// Rows returns the number of tile rows.
func (g Grid) Rows() int { return g.PaddedHeight / g.TileSize }

// Cols returns the number of tile columns.
func (g Grid) Cols() int { return g.PaddedWidth / g.TileSize }

// Len returns the total number of tiles.
func (g Grid) Len() int { return g.Rows() * g.Cols() }

// Position maps a sequence index onto its tile row and column.
func (g Grid) Position(index int) (row, col int) {
	return index / g.Cols(), index % g.Cols()
}

// PaddedSize returns the tile-aligned size of one axis. It always rounds up
// to the next multiple, so an axis that is already a multiple of tileSize
// still gains a full tile of padding.
func PaddedSize(n, tileSize int) int {
	return (n/tileSize + 1) * tileSize
}

// NewGrid computes the padded canvas for an image of height×width.
func NewGrid(height, width, tileSize int) (Grid, error) {
	if tileSize <= 0 {
		return Grid{}, &models.InvalidImageError{Reason: fmt.Sprintf("tile size must be positive, got %d", tileSize)}
	}
	if height < 1 || width < 1 {
		return Grid{}, &models.InvalidImageError{Reason: fmt.Sprintf("empty image %dx%d", width, height)}
	}
	return Grid{
		TileSize:     tileSize,
		PaddedHeight: PaddedSize(height, tileSize),
		PaddedWidth:  PaddedSize(width, tileSize),
	}, nil
}

// Pad places img in the top-left corner of a canvas filled with PadValue.
func Pad(img *mat.Dense, tileSize int) (*mat.Dense, Grid, error) {
	if img == nil || img.IsEmpty() {
		return nil, Grid{}, &models.InvalidImageError{Reason: "image has no samples"}
	}
	h, w := img.Dims()
	g, err := NewGrid(h, w, tileSize)
	if err != nil {
		return nil, Grid{}, err
	}

	fill := make([]float64, g.PaddedHeight*g.PaddedWidth)
	for i := range fill {
		fill[i] = PadValue
	}
	canvas := mat.NewDense(g.PaddedHeight, g.PaddedWidth, fill)
	canvas.Slice(0, h, 0, w).(*mat.Dense).Copy(img)

	return canvas, g, nil
}

// Split walks a tile-aligned canvas in row-major order and copies every
// block into its own tile. No overlap, no resampling.
func Split(canvas *mat.Dense, tileSize int) ([]Tile, Grid, error) {
	if canvas == nil || canvas.IsEmpty() {
		return nil, Grid{}, &models.InvalidImageError{Reason: "canvas has no samples"}
	}
	if tileSize <= 0 {
		return nil, Grid{}, &models.InvalidImageError{Reason: fmt.Sprintf("tile size must be positive, got %d", tileSize)}
	}
	ph, pw := canvas.Dims()
	if ph%tileSize != 0 || pw%tileSize != 0 {
		return nil, Grid{}, &models.ShapeMismatchError{
			Op:       "split",
			Expected: fmt.Sprintf("canvas dimensions divisible by %d", tileSize),
			Got:      fmt.Sprintf("%dx%d", pw, ph),
		}
	}

	g := Grid{TileSize: tileSize, PaddedHeight: ph, PaddedWidth: pw}
	tiles := make([]Tile, 0, g.Len())
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			y0, x0 := r*tileSize, c*tileSize
			block := canvas.Slice(y0, y0+tileSize, x0, x0+tileSize)
			tiles = append(tiles, Tile{
				Index: len(tiles),
				Row:   r,
				Col:   c,
				Data:  mat.DenseCopyOf(block),
			})
		}
	}
	return tiles, g, nil
}

// PadAndSplit pads img to a tile-aligned canvas and splits it into tiles.
func PadAndSplit(img *mat.Dense, tileSize int) ([]Tile, Grid, error) {
	canvas, _, err := Pad(img, tileSize)
	if err != nil {
		return nil, Grid{}, err
	}
	return Split(canvas, tileSize)
}

// Merge rebuilds a PaddedHeight×PaddedWidth canvas from tiles, placing
// tiles[i] at the row-major position implied by i. Any disagreement between
// the sequence and the grid is a ShapeMismatchError.
func Merge(tiles []Tile, g Grid) (*mat.Dense, error) {
	if g.TileSize <= 0 || g.PaddedHeight <= 0 || g.PaddedWidth <= 0 ||
		g.PaddedHeight%g.TileSize != 0 || g.PaddedWidth%g.TileSize != 0 {
		return nil, &models.ShapeMismatchError{
			Op:       "merge",
			Expected: "a tile-aligned grid",
			Got:      fmt.Sprintf("%dx%d with tile size %d", g.PaddedWidth, g.PaddedHeight, g.TileSize),
		}
	}
	if len(tiles) != g.Len() {
		return nil, &models.ShapeMismatchError{
			Op:       "merge",
			Expected: fmt.Sprintf("%d tiles", g.Len()),
			Got:      fmt.Sprintf("%d tiles", len(tiles)),
		}
	}

	canvas := mat.NewDense(g.PaddedHeight, g.PaddedWidth, nil)
	for i, t := range tiles {
		row, col := g.Position(i)
		if t.Index != i || t.Row != row || t.Col != col {
			return nil, &models.ShapeMismatchError{
				Op:       "merge",
				Expected: fmt.Sprintf("tile %d at (%d,%d)", i, row, col),
				Got:      fmt.Sprintf("tile %d at (%d,%d)", t.Index, t.Row, t.Col),
			}
		}
		if t.Data == nil {
			return nil, &models.ShapeMismatchError{Op: "merge", Expected: fmt.Sprintf("data for tile %d", i), Got: "nil"}
		}
		if r, c := t.Data.Dims(); r != g.TileSize || c != g.TileSize {
			return nil, &models.ShapeMismatchError{
				Op:       "merge",
				Expected: fmt.Sprintf("%dx%d tile", g.TileSize, g.TileSize),
				Got:      fmt.Sprintf("%dx%d tile at index %d", c, r, i),
			}
		}

		y0, x0 := row*g.TileSize, col*g.TileSize
		canvas.Slice(y0, y0+g.TileSize, x0, x0+g.TileSize).(*mat.Dense).Copy(t.Data)
	}
	return canvas, nil
}
