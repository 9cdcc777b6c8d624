package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	rleHeaderSize  = 64
	rleMaxSegments = 15
)

var errRLECorrupt = errors.New("corrupt rle segment")

// decodeRLE decodes one RLE Lossless frame (PS3.5 Annex G) into per-pixel
// sample values. Each segment holds one byte plane, most significant byte
// first within a sample.
func decodeRLE(data []byte, g Geometry) ([][]int, error) {
	if len(data) < rleHeaderSize {
		return nil, fmt.Errorf("rle header truncated: %d bytes", len(data))
	}
	bps := (g.BitsAllocated + 7) / 8
	if bps < 1 || bps > 2 {
		return nil, fmt.Errorf("rle with %d bits allocated is not supported", g.BitsAllocated)
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	want := g.SamplesPerPixel * bps
	if count != want || count > rleMaxSegments {
		return nil, fmt.Errorf("rle header lists %d segments, expected %d", count, want)
	}

	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	offsets[count] = len(data)

	pixels := g.Rows * g.Columns
	planes := make([][]byte, count)
	for i := 0; i < count; i++ {
		start, end := offsets[i], offsets[i+1]
		if start < rleHeaderSize || end > len(data) || start > end {
			return nil, fmt.Errorf("%w: segment %d spans [%d,%d)", errRLECorrupt, i, start, end)
		}
		plane, err := unpackBits(data[start:end], pixels)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		planes[i] = plane
	}

	samples := make([][]int, pixels)
	for p := 0; p < pixels; p++ {
		px := make([]int, g.SamplesPerPixel)
		for s := 0; s < g.SamplesPerPixel; s++ {
			v := 0
			for b := 0; b < bps; b++ {
				v = v<<8 | int(planes[s*bps+b][p])
			}
			px[s] = v
		}
		samples[p] = px
	}
	return samples, nil
}

// unpackBits expands a PackBits segment into exactly n bytes. Trailing padding
// past n is ignored.
func unpackBits(src []byte, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for i := 0; i < len(src) && len(out) < n; {
		h := int(int8(src[i]))
		i++
		switch {
		case h >= 0:
			cnt := h + 1
			if i+cnt > len(src) {
				return nil, fmt.Errorf("%w: literal run overruns segment", errRLECorrupt)
			}
			out = append(out, src[i:i+cnt]...)
			i += cnt
		case h == -128:
		default:
			if i >= len(src) {
				return nil, fmt.Errorf("%w: replicate run missing byte", errRLECorrupt)
			}
			for k := 0; k < 1-h; k++ {
				out = append(out, src[i])
			}
			i++
		}
	}
	if len(out) < n {
		return nil, fmt.Errorf("%w: decoded %d of %d bytes", errRLECorrupt, len(out), n)
	}
	return out[:n], nil
}
