package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/bmp"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"out.png", FormatPNG, false},
		{"OUT.PNG", FormatPNG, false},
		{"a/b.jpg", FormatJPEG, false},
		{"x.jpeg", FormatJPEG, false},
		{"x.gif", 0, true},
		{"x.bmp", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("FormatFromPath() = (%v, %v), want %v", got, err, tt.want)
			}
		})
	}
}

func TestUnsupportedExtensionNamedInError(t *testing.T) {
	_, err := FormatFromPath("shot.gif")
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte(".gif")) {
		t.Errorf("error %v does not name the extension", err)
	}
}

func TestSavePNGRoundTrip(t *testing.T) {
	pix := []byte{
		255, 0, 0, 255, 0, 128, 0, 128,
		0, 0, 0, 0, 10, 20, 30, 255,
	}
	path := filepath.Join(t.TempDir(), "out.png")
	if err := Save(path, pix, 2, 2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := Texture(img, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(pix, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveJPEG(t *testing.T) {
	pix := bytes.Repeat([]byte{200, 100, 50, 255}, 16*16)
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := Save(path, pix, 16, 16); err != nil {
		t.Fatalf("Save: %v", err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, g, b, _ := img.At(8, 8).RGBA()
	if absDiff(r>>8, 200) > 8 || absDiff(g>>8, 100) > 8 || absDiff(b>>8, 50) > 8 {
		t.Errorf("centre = (%d, %d, %d), want about (200, 100, 50)", r>>8, g>>8, b>>8)
	}
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestSaveRejectsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		pix  []byte
		want error
	}{
		{"extension", "out.tga", make([]byte, 4), ErrUnsupportedFormat},
		{"dimensions", "out.png", make([]byte, 3), ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := Save(path, tt.pix, 1, 1); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("%s was written", tt.file)
			}
		})
	}
}

func TestDecodeBMP(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "bmp" {
		t.Errorf("format = %q, want bmp", format)
	}
	if got := img.Bounds().Size(); got != (image.Point{3, 2}) {
		t.Errorf("size = %v", got)
	}
}

func TestLoadFromBytes(t *testing.T) {
	if _, err := LoadFromBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("LoadFromBytes(nil) err = %v", err)
	}
	if _, err := LoadFromBytes([]byte("not an image")); err == nil {
		t.Error("LoadFromBytes accepted garbage")
	}

	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromBytes(buf.Bytes()); err != nil {
		t.Errorf("LoadFromBytes(png) = %v", err)
	}
}

func TestTextureResamplesToSize(t *testing.T) {
	src := image.NewUniform(color.NRGBA{R: 255, G: 0, B: 0, A: 128})
	img := image.NewNRGBA(image.Rect(0, 0, 7, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 7; x++ {
			img.Set(x, y, src.C)
		}
	}
	pix, err := Texture(img, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(pix) != 4*4*4 {
		t.Fatalf("len = %d", len(pix))
	}
	// Premultiplied: red channel tracks alpha.
	for i := 0; i < len(pix); i += 4 {
		r, a := pix[i], pix[i+3]
		if a < 126 || a > 130 || absDiff(uint32(r), uint32(a)) > 1 {
			t.Fatalf("texel %d = %v, want premultiplied half red", i/4, pix[i:i+4])
		}
	}
}

func TestTextureInvalidSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if _, err := Texture(img, 0); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("err = %v, want ErrInvalidDimensions", err)
	}
}
