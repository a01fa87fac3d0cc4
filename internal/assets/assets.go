// Package assets loads the raster images stamped on every ticket sheet: the
// logo in the top-left corner and the faint vertical watermark.
package assets

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"github.com/ginjaninja78/pega-tickets/internal/layout"
)

// MaxSide bounds the longest side of an embedded image, in pixels. Larger
// sources are downscaled so a few hundred pages stay small on disk.
const MaxSide = 1600

// ErrDecode is returned when an image file cannot be read as a raster image.
var ErrDecode = errors.New("cannot decode image")

// Image is a PNG-encoded raster image ready for embedding.
type Image struct {
	Name   string
	PNG    []byte
	Width  int
	Height int
}

// Empty reports whether the image carries no pixels.
func (i Image) Empty() bool {
	return len(i.PNG) == 0 || i.Width == 0 || i.Height == 0
}

// Info returns the layout view of the image.
func (i Image) Info() layout.ImageInfo {
	if i.Empty() {
		return layout.ImageInfo{Name: i.Name}
	}
	return layout.ImageInfo{Name: i.Name, Width: i.Width, Height: i.Height}
}

// Set is the pair of images used by the renderer.
type Set struct {
	Logo      Image
	Watermark Image
}

// None is the path value that leaves an image off the page.
const None = "none"

var (
	//go:embed default/logo.png
	defaultLogo []byte

	//go:embed default/watermark.png
	defaultWatermark []byte
)

// Default returns the images bundled with the program.
func Default() (Set, error) {
	logo, err := Decode("logo", bytes.NewReader(defaultLogo))
	if err != nil {
		return Set{}, err
	}
	watermark, err := Decode("watermark", bytes.NewReader(defaultWatermark))
	if err != nil {
		return Set{}, err
	}
	return Set{Logo: logo, Watermark: watermark}, nil
}

// LoadSet loads the logo and watermark. An empty path selects the bundled
// image and None leaves that image out.
func LoadSet(logoPath, watermarkPath string) (Set, error) {
	defaults, err := Default()
	if err != nil {
		return Set{}, err
	}

	var set Set
	if set.Logo, err = loadOr("logo", logoPath, defaults.Logo); err != nil {
		return Set{}, err
	}
	if set.Watermark, err = loadOr("watermark", watermarkPath, defaults.Watermark); err != nil {
		return Set{}, err
	}
	return set, nil
}

func loadOr(name, path string, fallback Image) (Image, error) {
	switch path {
	case "":
		return fallback, nil
	case None:
		return Image{Name: name}, nil
	}
	return Load(name, path)
}

// Load reads any format imaging understands (PNG, JPEG, GIF, BMP, TIFF) and
// re-encodes it as PNG.
func Load(name, path string) (Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}
	return fromImage(name, img)
}

// Decode is Load for an in-memory source.
func Decode(name string, r io.Reader) (Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w %s: %v", ErrDecode, name, err)
	}
	return fromImage(name, img)
}

// Placeholder returns a solid image of the given size.
func Placeholder(name string, width, height int, c color.Color) Image {
	img, _ := fromImage(name, imaging.New(width, height, c))
	return img
}

func fromImage(name string, img image.Image) (Image, error) {
	b := img.Bounds()
	if b.Dx() > MaxSide || b.Dy() > MaxSide {
		img = imaging.Fit(img, MaxSide, MaxSide, imaging.Lanczos)
		b = img.Bounds()
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Image{}, fmt.Errorf("encode %s: %w", name, err)
	}

	return Image{
		Name:   name,
		PNG:    buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
