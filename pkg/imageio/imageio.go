// Package imageio loads raster images as normalized single channel matrices
// and writes 8-bit grayscale results. Conversion to and from 8-bit happens
// only here; the rest of the pipeline works on [0,1] samples.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
)

// JPEGQuality is used when the output path has a .jpg or .jpeg extension.
const JPEGQuality = 95

// imageExtensions are the extensions picked up when scanning a directory.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

// IsImageFile reports whether name carries a recognized image extension.
// The comparison is case-insensitive.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Load decodes the image at path, converts it to 8-bit luma and returns the
// samples normalized to [0,1].
func Load(path string) (*mat.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &models.IOError{Op: "decode", Path: path, Err: err}
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, &models.InvalidImageError{Reason: fmt.Sprintf("%s has no pixels", path)}
	}

	return GrayToDense(ToGray(img)), nil
}

// ToGray converts any image to 8-bit luma anchored at the origin. Alpha is
// ignored: luma comes from the straight (non-premultiplied) color, so a
// transparent white background stays white.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
		return gray
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(c).(color.Gray))
		}
	}
	return gray
}

// GrayToDense normalizes an 8-bit image to a height×width matrix.
func GrayToDense(img *image.Gray) *mat.Dense {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	data := make([]float64, width*height)

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		for x, p := range row {
			data[y*width+x] = float64(p) / 255.0
		}
	}

	return mat.NewDense(height, width, data)
}

// Save encodes img to path using the encoder implied by the extension. The
// data goes to a temporary file next to path that is renamed into place only
// after a successful encode, so a failed save leaves nothing behind.
func Save(path string, img image.Image) (err error) {
	encode, err := encoderFor(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".degan-*"+filepath.Ext(path))
	if err != nil {
		return &models.IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = encode(tmp, img); err != nil {
		tmp.Close()
		return &models.IOError{Op: "encode", Path: path, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err = os.Rename(tmpName, path); err != nil {
		return &models.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

type encodeFunc func(f *os.File, img image.Image) error

func encoderFor(path string) (encodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return func(f *os.File, img image.Image) error { return png.Encode(f, img) }, nil
	case ".jpg", ".jpeg":
		return func(f *os.File, img image.Image) error {
			return jpeg.Encode(f, img, &jpeg.Options{Quality: JPEGQuality})
		}, nil
	case ".bmp":
		return func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }, nil
	case ".tif", ".tiff":
		return func(f *os.File, img image.Image) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	}
	return nil, &models.IOError{
		Op:   "encode",
		Path: path,
		Err:  errors.New("unsupported output format " + filepath.Ext(path)),
	}
}
