// Package privacy masks people who are not part of a threat, so stored
// snapshots and sink payloads never carry identifiable faces from routine
// daytime traffic.
package privacy

import (
	"image"
	"image/draw"
)

// DefaultStrength is the mosaic block size in pixels.
const DefaultStrength = 15

// Pixelate returns a copy of img with each region replaced by a block mosaic.
// Regions outside the image are clipped; the input image is not modified.
func Pixelate(img image.Image, regions []image.Rectangle, strength int) *image.RGBA {
	if strength <= 0 {
		strength = DefaultStrength
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, region := range regions {
		mosaic(out, region.Intersect(bounds), strength)
	}
	return out
}

// mosaic overwrites rect with strength-sized blocks of their own average
// color.
func mosaic(img *image.RGBA, rect image.Rectangle, strength int) {
	if rect.Empty() {
		return
	}

	for by := rect.Min.Y; by < rect.Max.Y; by += strength {
		for bx := rect.Min.X; bx < rect.Max.X; bx += strength {
			block := image.Rect(bx, by, bx+strength, by+strength).Intersect(rect)
			fillWithAverage(img, block)
		}
	}
}

func fillWithAverage(img *image.RGBA, block image.Rectangle) {
	var rSum, gSum, bSum uint64
	count := uint64(block.Dx() * block.Dy())
	if count == 0 {
		return
	}

	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			c := img.RGBAAt(x, y)
			rSum += uint64(c.R)
			gSum += uint64(c.G)
			bSum += uint64(c.B)
		}
	}

	avg := img.RGBAAt(block.Min.X, block.Min.Y)
	avg.R = uint8(rSum / count)
	avg.G = uint8(gSum / count)
	avg.B = uint8(bSum / count)
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			prev := img.RGBAAt(x, y)
			avg.A = prev.A
			img.SetRGBA(x, y, avg)
		}
	}
}
