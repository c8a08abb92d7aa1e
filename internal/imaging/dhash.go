package imaging

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// dHash grid: 9 columns give 8 horizontal comparisons per row.
const (
	hashCols = 9
	hashRows = 8
)

// DifferenceHash computes the 64-bit difference hash of img.
//
// The image is converted to 8-bit luma, resampled to 9x8 with Catmull-Rom,
// and each row contributes 8 bits (left > right is 1), most significant
// bit first.
func DifferenceHash(img image.Image) uint64 {
	gray := Grayscale(img)
	small := image.NewGray(image.Rect(0, 0, hashCols, hashRows))
	draw.CatmullRom.Scale(small, small.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	var v uint64
	for y := 0; y < hashRows; y++ {
		for x := 0; x < hashCols-1; x++ {
			v <<= 1
			if small.GrayAt(x, y).Y > small.GrayAt(x+1, y).Y {
				v |= 1
			}
		}
	}
	return v
}

// FormatHash renders a difference hash as 16 lowercase hex digits.
func FormatHash(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

// Grayscale converts img to 8-bit luma using ITU-R 601-2 weights on
// non-premultiplied color, ignoring alpha.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, _ := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			lum := (19595*uint32(c.R) + 38470*uint32(c.G) + 7471*uint32(c.B) + 1<<15) >> 16
			out.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return out
}
