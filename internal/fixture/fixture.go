// Package fixture builds small encoded images and dataset trees for tests.
package fixture

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// Root is the dataset root used by in-memory fixtures.
const Root = "/data"

// NewFS returns an empty in-memory filesystem.
func NewFS() billy.Filesystem {
	return memfs.New()
}

// Write stores data at path, creating parent directories.
func Write(t testing.TB, fs billy.Filesystem, path string, data []byte) string {
	t.Helper()
	if err := util.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Image stores a file under <Root>/images/<rel> and returns its absolute path.
func Image(t testing.TB, fs billy.Filesystem, rel string, data []byte) string {
	t.Helper()
	return Write(t, fs, filepath.Join(Root, "images", filepath.FromSlash(rel)), data)
}

// RGBPNG encodes an opaque w x h PNG filled with c. It decodes as mode "RGB".
func RGBPNG(t testing.TB, w, h int, c color.RGBA) []byte {
	t.Helper()
	c.A = 255
	return encodePNG(t, fill(w, h, c))
}

// RGBAPNG encodes a half-transparent w x h PNG. It decodes as mode "RGBA".
func RGBAPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	return encodePNG(t, fill(w, h, color.RGBA{R: 100, G: 50, B: 25, A: 128}))
}

// GrayPNG encodes a w x h 8-bit grayscale PNG. It decodes as mode "L".
func GrayPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x * 255) / max(w, 1))})
		}
	}
	return encodePNG(t, img)
}

// GradientPNG encodes an opaque horizontal gradient. dir > 0 brightens to
// the right, dir < 0 darkens to the right.
func GradientPNG(t testing.TB, w, h, dir int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			if dir < 0 {
				v = 255 - v
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return encodePNG(t, img)
}

// JPEG encodes a w x h JPEG. It decodes as mode "RGB".
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fill(w, h, color.RGBA{R: 10, G: 200, B: 30, A: 255}), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// GIF encodes a w x h paletted GIF. It decodes as mode "P".
func GIF(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode gif: %v", err)
	}
	return buf.Bytes()
}

// Truncate returns the first half of data, which no decoder accepts.
func Truncate(data []byte) []byte {
	return append([]byte(nil), data[:len(data)/2]...)
}

// WithOrientation inserts an APP1 EXIF segment carrying the given
// orientation tag right after the JPEG start-of-image marker.
func WithOrientation(jpg []byte, orientation uint16) []byte {
	tiff := make([]byte, 0, 26)
	tiff = append(tiff, 'I', 'I', 0x2A, 0x00)
	tiff = binary.LittleEndian.AppendUint32(tiff, 8) // IFD0 offset
	tiff = binary.LittleEndian.AppendUint16(tiff, 1) // entry count
	tiff = binary.LittleEndian.AppendUint16(tiff, 0x0112)
	tiff = binary.LittleEndian.AppendUint16(tiff, 3) // SHORT
	tiff = binary.LittleEndian.AppendUint32(tiff, 1)
	tiff = binary.LittleEndian.AppendUint16(tiff, orientation)
	tiff = binary.LittleEndian.AppendUint16(tiff, 0)
	tiff = binary.LittleEndian.AppendUint32(tiff, 0) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff...)
	segment := []byte{0xFF, 0xE1}
	segment = binary.BigEndian.AppendUint16(segment, uint16(len(payload)+2))
	segment = append(segment, payload...)

	out := make([]byte, 0, len(jpg)+len(segment))
	out = append(out, jpg[:2]...)
	out = append(out, segment...)
	out = append(out, jpg[2:]...)
	return out
}

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}
