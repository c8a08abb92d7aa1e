package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	"github.com/go-git/go-billy/v5"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/nao1215/datalens/internal/model"
)

// headSize is how much of a file is buffered for header and EXIF parsing.
const headSize = 256 * 1024

// ErrEmptyFile is returned for zero-byte files.
var ErrEmptyFile = errors.New("empty file")

// Decode fully decodes the image at path and returns it with its format name.
func Decode(fs billy.Filesystem, path string) (image.Image, string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Verify checks that the file at path decodes completely.
// Truncated data, bad checksums and unknown formats all fail.
func Verify(fs billy.Filesystem, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return ErrEmptyFile
	}
	_, _, err = Decode(fs, path)
	return err
}

// Inspect reads the header of the image at path and returns its dimensions,
// color mode and EXIF orientation without decoding pixel data.
func Inspect(fs billy.Filesystem, path string) (model.ImageStat, error) {
	f, err := fs.Open(path)
	if err != nil {
		return model.ImageStat{}, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, headSize))
	if err != nil {
		return model.ImageStat{}, err
	}
	if len(head) == 0 {
		return model.ImageStat{}, ErrEmptyFile
	}

	cfg, format, err := image.DecodeConfig(io.MultiReader(bytes.NewReader(head), f))
	if err != nil {
		return model.ImageStat{}, fmt.Errorf("failed to read image header: %w", err)
	}

	stat := model.ImageStat{
		Path:   path,
		Width:  cfg.Width,
		Height: cfg.Height,
		Mode:   colorMode(format, head, cfg.ColorModel),
	}
	if format == "jpeg" || format == "tiff" {
		stat.Orientation = orientation(head)
	}
	return stat, nil
}

// colorMode prefers the on-disk header over the decoder's color model
// where the decoder widens the pixel format (PNG and BMP truecolor both
// decode to RGBA).
func colorMode(format string, head []byte, m color.Model) string {
	switch format {
	case "png":
		if mode, ok := pngMode(head); ok {
			return mode
		}
	case "bmp":
		if mode, ok := bmpMode(head); ok {
			return mode
		}
	}
	return ModeName(m)
}

// pngMode reads bit depth and color type from the IHDR chunk.
func pngMode(head []byte) (string, bool) {
	if len(head) < 26 || string(head[12:16]) != "IHDR" {
		return "", false
	}
	depth, colorType := head[24], head[25]
	switch colorType {
	case 0:
		switch depth {
		case 1:
			return "1", true
		case 16:
			return "I;16", true
		default:
			return "L", true
		}
	case 2:
		return "RGB", true
	case 3:
		return "P", true
	case 4:
		return "LA", true
	case 6:
		return "RGBA", true
	}
	return "", false
}

// BMP header layout. Offsets are absolute from the start of the file.
const (
	bmpFileHeaderSize = 14
	bmpCoreHeaderSize = 12
	bmpInfoHeaderSize = 40
	bmpBitfields      = 3
)

// bmpMode derives the color mode from the DIB header. 32-bit pixels carry
// alpha only with BI_BITFIELDS and a non-zero alpha mask. Palettes of 8 bits
// or less are "L" (or "1" with two entries) when every entry i is the grey
// level i, and "P" otherwise.
func bmpMode(head []byte) (string, bool) {
	if len(head) < bmpFileHeaderSize+4 || string(head[:2]) != "BM" {
		return "", false
	}
	dibSize := int(binary.LittleEndian.Uint32(head[14:18]))

	var bpp, colors, entrySize int
	var compression uint32
	switch {
	case dibSize == bmpCoreHeaderSize:
		if len(head) < 26 {
			return "", false
		}
		bpp = int(binary.LittleEndian.Uint16(head[24:26]))
		entrySize = 3
	case dibSize >= bmpInfoHeaderSize:
		if len(head) < bmpFileHeaderSize+bmpInfoHeaderSize {
			return "", false
		}
		bpp = int(binary.LittleEndian.Uint16(head[28:30]))
		compression = binary.LittleEndian.Uint32(head[30:34])
		colors = int(binary.LittleEndian.Uint32(head[46:50]))
		entrySize = 4
	default:
		return "", false
	}

	switch {
	case bpp == 32:
		if compression == bmpBitfields && dibSize >= 56 && len(head) >= 70 &&
			binary.LittleEndian.Uint32(head[66:70]) != 0 {
			return "RGBA", true
		}
		return "RGB", true
	case bpp == 16 || bpp == 24:
		return "RGB", true
	case bpp == 1 || bpp == 4 || bpp == 8:
	default:
		return "", false
	}

	if colors == 0 || colors > 1<<bpp {
		colors = 1 << bpp
	}
	offset := bmpFileHeaderSize + dibSize
	if len(head) < offset+colors*entrySize {
		return "", false
	}
	levels := func(i int) byte { return byte(i) }
	if colors == 2 {
		levels = func(i int) byte { return byte(i * 255) }
	}
	for i := range colors {
		entry := head[offset+i*entrySize : offset+i*entrySize+3]
		want := levels(i)
		if entry[0] != want || entry[1] != want || entry[2] != want {
			return "P", true
		}
	}
	if colors == 2 {
		return "1", true
	}
	return "L", true
}

// ModeName maps a Go color model to a color mode name.
func ModeName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model, color.NYCbCrAModel:
		return "RGBA"
	default:
		return "unknown"
	}
}
