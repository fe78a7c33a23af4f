package imageio

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Channels is the number of interleaved channels of a decoded Buffer.
const Channels = 3

// ErrUnsupportedFormat is returned when an output extension has no encoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Buffer holds 8-bit interleaved RGB pixels.
type Buffer struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
}

// NewBuffer allocates a zeroed RGB buffer.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Pix:      make([]byte, width*height*Channels),
		Width:    width,
		Height:   height,
		Channels: Channels,
	}
}

// FromImage copies any image into an RGB buffer, dropping alpha.
func FromImage(img image.Image) *Buffer {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	buf := NewBuffer(bounds.Dx(), bounds.Dy())

	for y := 0; y < buf.Height; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+buf.Width*4]
		dst := buf.Pix[y*buf.Width*Channels : (y+1)*buf.Width*Channels]
		for x := 0; x < buf.Width; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return buf
}

// Image returns an opaque NRGBA copy of the buffer.
func (b *Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i := 0; i < b.Width*b.Height; i++ {
		img.Pix[i*4] = b.Pix[i*3]
		img.Pix[i*4+1] = b.Pix[i*3+1]
		img.Pix[i*4+2] = b.Pix[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img
}

// Decode reads an image file into an RGB buffer, honoring EXIF orientation.
func Decode(path string) (*Buffer, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}

	buf := FromImage(img)
	if buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("image %s is empty", path)
	}
	return buf, nil
}

// Encode writes img to path in the format implied by the file extension.
func Encode(img image.Image, path string) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, strings.ToLower(filepath.Ext(path)))
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to write image %s: %w", path, err)
	}
	return nil
}
