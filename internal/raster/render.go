package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	// Bounds for native buffers; corrupt headers can claim absurd sizes.
	maxImageDimension = 32768
	maxImagePixels    = int64(64 * 1024 * 1024)
)

func validateBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxImageDimension || height > maxImageDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	if pixels := int64(width) * int64(height); pixels > maxImagePixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, maxImagePixels)
	}
	return nil
}

// renderSamples converts per-pixel stored values into an 8-bit image.
func renderSamples(samples [][]int, g Geometry, mode VOIMode) (image.Image, error) {
	pixels := g.Rows * g.Columns
	if len(samples) < pixels {
		return nil, fmt.Errorf("frame has %d pixels, expected %d", len(samples), pixels)
	}
	switch g.SamplesPerPixel {
	case 1:
		return renderGray(samples[:pixels], g, mode)
	case 3:
		return renderColor(samples[:pixels], g)
	default:
		return nil, fmt.Errorf("unsupported samples per pixel: %d", g.SamplesPerPixel)
	}
}

// storedValue masks v to BitsStored and applies two's complement for signed data.
func storedValue(v int, g Geometry) int {
	bits := uint(g.BitsStored)
	if bits == 0 || bits >= 63 {
		return v
	}
	mask := (1 << bits) - 1
	v &= mask
	if g.PixelRepresentation == 1 && v&(1<<(bits-1)) != 0 {
		v -= 1 << bits
	}
	return v
}

func renderGray(samples [][]int, g Geometry, mode VOIMode) (image.Image, error) {
	values := make([]float64, len(samples))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, px := range samples {
		if len(px) == 0 {
			return nil, fmt.Errorf("pixel %d has no samples", i)
		}
		v := float64(storedValue(px[0], g))*g.RescaleSlope + g.RescaleIntercept
		values[i] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	lut := normalizer(lo, hi)
	if mode == VOIWindow && g.WindowCenter != nil && g.WindowWidth != nil {
		lut = windower(*g.WindowCenter, *g.WindowWidth)
	}
	invert := g.Photometric == "MONOCHROME1"

	img := image.NewGray(image.Rect(0, 0, g.Columns, g.Rows))
	for i, v := range values {
		out := lut(v)
		if invert {
			out = 255 - out
		}
		img.Pix[i] = out
	}
	return img, nil
}

// normalizer maps [lo, hi] linearly onto 0..255.
func normalizer(lo, hi float64) func(float64) uint8 {
	span := hi - lo
	return func(v float64) uint8 {
		if span <= 0 {
			return 0
		}
		return clamp8((v - lo) / span * 255)
	}
}

// windower implements the linear VOI window function of PS3.3 C.11.2.1.2.
func windower(center, width float64) func(float64) uint8 {
	lower := center - 0.5 - (width-1)/2
	upper := center - 0.5 + (width-1)/2
	return func(v float64) uint8 {
		switch {
		case v <= lower:
			return 0
		case v > upper:
			return 255
		case width <= 1:
			return 255
		default:
			return clamp8(((v-(center-0.5))/(width-1) + 0.5) * 255)
		}
	}
}

func clamp8(f float64) uint8 {
	switch {
	case f <= 0 || math.IsNaN(f):
		return 0
	case f >= 255:
		return 255
	default:
		return uint8(math.Round(f))
	}
}

func renderColor(samples [][]int, g Geometry) (image.Image, error) {
	pixels := len(samples)
	flat := make([]int, 0, pixels*3)
	for i, px := range samples {
		if len(px) < 3 {
			return nil, fmt.Errorf("pixel %d has %d samples, expected 3", i, len(px))
		}
		flat = append(flat, px[0], px[1], px[2])
	}
	// planar data was read pixel-wise, so the flat order is RRR...GGG...BBB
	if g.PlanarConfiguration == 1 {
		interleaved := make([]int, len(flat))
		for i := 0; i < pixels; i++ {
			interleaved[3*i] = flat[i]
			interleaved[3*i+1] = flat[pixels+i]
			interleaved[3*i+2] = flat[2*pixels+i]
		}
		flat = interleaved
	}

	shift := 0
	if g.BitsStored > 8 {
		shift = g.BitsStored - 8
	}
	ybr := g.Photometric == "YBR_FULL" || g.Photometric == "YBR_FULL_422"

	img := image.NewRGBA(image.Rect(0, 0, g.Columns, g.Rows))
	for i := 0; i < pixels; i++ {
		a := to8(flat[3*i], shift)
		b := to8(flat[3*i+1], shift)
		c := to8(flat[3*i+2], shift)
		if ybr {
			a, b, c = color.YCbCrToRGB(a, b, c)
		}
		o := 4 * i
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = a, b, c, 0xFF
	}
	return img, nil
}

func to8(v, shift int) uint8 {
	v >>= uint(shift)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
