// Package image converts texture buffers to and from image files.
//
// Texture buffers are tightly packed RGBA8 with premultiplied alpha, the
// same layout as the standard library's *image.RGBA with Stride == 4*width,
// so conversions in both directions are plain copies.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	// Decoders for input images. PNG and JPEG register through the imports
	// above.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned for a file extension with no encoder.
	ErrUnsupportedFormat = errors.New("image: unsupported format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("image: empty data")

	// ErrInvalidDimensions is returned when the pixel slice does not match
	// the given width and height.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")
)

// DefaultJPEGQuality is used by Save for JPEG output.
const DefaultJPEGQuality = 90

// Format is an output encoding.
type Format uint8

const (
	// FormatPNG is lossless PNG.
	FormatPNG Format = iota + 1

	// FormatJPEG is baseline JPEG. Alpha is dropped.
	FormatJPEG
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// FormatFromPath picks the output format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case "":
		return 0, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, path)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Wrap returns an *image.RGBA sharing pix.
func Wrap(pix []byte, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 || len(pix) != w*h*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidDimensions, len(pix), w, h)
	}
	return &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
}

// Encode writes pix in the given format.
func Encode(out io.Writer, f Format, pix []byte, w, h int) error {
	img, err := Wrap(pix, w, h)
	if err != nil {
		return err
	}
	switch f {
	case FormatPNG:
		if err := png.Encode(out, img); err != nil {
			return fmt.Errorf("image: encode PNG: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(out, img, &jpeg.Options{Quality: DefaultJPEGQuality}); err != nil {
			return fmt.Errorf("image: encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	return nil
}

// Save encodes pix to path, choosing the format from the extension. An
// unsupported extension fails before the file is created.
func Save(path string, pix []byte, w, h int) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if _, err := Wrap(pix, w, h); err != nil {
		return err
	}

	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}
	if err := Encode(file, f, pix, w, h); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Decode decodes any registered format: PNG, JPEG, BMP, TIFF or WebP.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("image: decode: %w", err)
	}
	return img, format, nil
}

// Load decodes the image file at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("image: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := Decode(f)
	return img, err
}

// LoadFromBytes decodes an image held in memory.
func LoadFromBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

// Texture resamples img to a size x size premultiplied RGBA8 buffer.
// Images already at that size are copied without filtering.
func Texture(img image.Image, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: texture size %d", ErrInvalidDimensions, size)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}
	return dst.Pix, nil
}

// LoadTexture loads the image file at path as a size x size texture.
func LoadTexture(path string, size int) ([]byte, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Texture(img, size)
}
