package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/quantarax/dicompreview/internal/elemval"
)

// TSExplicitVRBigEndian is the only transfer syntax with big endian native
// pixel data.
const TSExplicitVRBigEndian = "1.2.840.10008.1.2.2"

var (
	ErrUnsupportedBitsAllocated = errors.New("unsupported bits allocated")
	ErrPixelLengthMismatch      = errors.New("pixel data length does not match image geometry")
)

// frameCount reads NumberOfFrames. An absent element means a single frame.
func frameCount(elems []*dicom.Element) (int, error) {
	if elemval.Find(elems, tag.NumberOfFrames) == nil {
		return 1, nil
	}
	n, err := elemval.IntOf(elems, tag.NumberOfFrames)
	if err != nil {
		return 0, fmt.Errorf("reading number of frames: %w", err)
	}
	if n < 1 {
		return 0, fmt.Errorf("number of frames %d is not positive", n)
	}
	return n, nil
}

func bytesPerSample(bitsAllocated int) (int, error) {
	switch bitsAllocated {
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	case 32:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitsAllocated, bitsAllocated)
}

func byteOrder(ts string) binary.ByteOrder {
	if strings.TrimSpace(ts) == TSExplicitVRBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// splitNative cuts an unprocessed native PixelData value into frames. The
// value may carry one trailing pad byte.
func splitNative(data []byte, g Geometry, frames int) ([]rawFrame, error) {
	bps, err := bytesPerSample(g.BitsAllocated)
	if err != nil {
		return nil, err
	}
	if g.SamplesPerPixel < 1 || g.SamplesPerPixel > 4 {
		return nil, fmt.Errorf("unsupported samples per pixel: %d", g.SamplesPerPixel)
	}
	frameLen := int64(g.Rows) * int64(g.Columns) * int64(g.SamplesPerPixel) * int64(bps)
	want := frameLen * int64(frames)
	got := int64(len(data))
	if got != want && !(got == want+1 && got%2 == 0) {
		return nil, fmt.Errorf("%w: expected %d bytes for %d frame(s), got %d", ErrPixelLengthMismatch, want, frames, got)
	}

	out := make([]rawFrame, frames)
	for i := range out {
		start := int64(i) * frameLen
		out[i] = rawFrame{data: data[start : start+frameLen]}
	}
	return out, nil
}

// unpackNative reads the packed samples of one native frame.
func unpackNative(data []byte, g Geometry, order binary.ByteOrder) ([][]int, error) {
	bps, err := bytesPerSample(g.BitsAllocated)
	if err != nil {
		return nil, err
	}
	spp := g.SamplesPerPixel
	pixels := g.Rows * g.Columns
	if len(data) < pixels*spp*bps {
		return nil, fmt.Errorf("%w: frame holds %d bytes", ErrPixelLengthMismatch, len(data))
	}

	samples := make([][]int, pixels)
	for p := range samples {
		px := make([]int, spp)
		for s := range px {
			o := (p*spp + s) * bps
			switch bps {
			case 1:
				px[s] = int(data[o])
			case 2:
				px[s] = int(order.Uint16(data[o:]))
			default:
				px[s] = int(order.Uint32(data[o:]))
			}
		}
		samples[p] = px
	}
	return samples, nil
}
