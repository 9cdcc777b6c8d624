// Package raster turns the pixel data of a decoded dataset into 8-bit frames
// ready for display.
package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/quantarax/dicompreview/internal/elemval"
)

// Transfer syntaxes whose encapsulated frames can be decoded.
const (
	TSJPEGBaseline = "1.2.840.10008.1.2.4.50"
	TSJPEGExtended = "1.2.840.10008.1.2.4.51"
	TSRLELossless  = "1.2.840.10008.1.2.5"
)

var (
	ErrNoPixelData               = errors.New("dataset has no pixel data")
	ErrNoFrames                  = errors.New("pixel data contains no frames")
	ErrUnsupportedTransferSyntax = errors.New("unsupported transfer syntax for encapsulated pixel data")
	ErrFrameOutOfRange           = errors.New("frame index out of range")
)

// VOIMode selects how stored values are mapped to display intensities.
type VOIMode string

const (
	// VOINormalize stretches the min-max range of each frame to 0..255.
	VOINormalize VOIMode = "normalize"
	// VOIWindow applies WindowCenter/WindowWidth when present, falling back to
	// VOINormalize otherwise.
	VOIWindow VOIMode = "window"
)

// Frames gives access to the decoded frames of one pixel data element.
type Frames interface {
	FrameCount() int
	// Frame converts frame i to an 8-bit image.
	Frame(i int) (image.Image, error)
}

// Decoder produces Frames from a dataset.
type Decoder interface {
	Decode(ds *dicom.Dataset) (Frames, error)
}

// DatasetDecoder is the Decoder for datasets read by suyashkumar/dicom.
type DatasetDecoder struct {
	mode VOIMode
}

// NewDecoder creates a decoder using the given VOI mode.
func NewDecoder(mode VOIMode) *DatasetDecoder {
	if mode == "" {
		mode = VOINormalize
	}
	return &DatasetDecoder{mode: mode}
}

// rawFrame is one frame as stored in the file. Native frames carry either
// unpacked samples or packed bytes in data.
type rawFrame struct {
	encapsulated bool
	data         []byte
	native       [][]int
}

// Pixels holds the frames and pixel module attributes of one dataset.
type Pixels struct {
	geom           Geometry
	transferSyntax string
	order          binary.ByteOrder
	mode           VOIMode
	frames         []rawFrame
}

// Geometry is the subset of the image pixel module needed for conversion.
type Geometry struct {
	Rows                int
	Columns             int
	SamplesPerPixel     int
	BitsAllocated       int
	BitsStored          int
	PixelRepresentation int
	PlanarConfiguration int
	Photometric         string
	RescaleSlope        float64
	RescaleIntercept    float64
	WindowCenter        *float64
	WindowWidth         *float64
}

// Decode gathers the frames of ds. It fails when there is nothing that could
// be converted later. Native pixel data read without processing is checked
// against the image geometry here.
func (d *DatasetDecoder) Decode(ds *dicom.Dataset) (Frames, error) {
	if ds == nil {
		return nil, ErrNoPixelData
	}
	el := elemval.Find(ds.Elements, tag.PixelData)
	if el == nil || el.Value == nil {
		return nil, ErrNoPixelData
	}
	info, ok := el.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("%w: value holds %T", ErrNoPixelData, el.Value.GetValue())
	}

	ts, _ := elemval.StringOf(ds.Elements, tag.TransferSyntaxUID)
	ts = strings.TrimSpace(ts)

	if info.IntentionallyUnprocessed {
		geom, err := readGeometry(ds.Elements)
		if err != nil {
			return nil, err
		}
		n, err := frameCount(ds.Elements)
		if err != nil {
			return nil, err
		}
		frames, err := splitNative(info.UnprocessedValueData, geom, n)
		if err != nil {
			return nil, err
		}
		return &Pixels{geom: geom, transferSyntax: ts, order: byteOrder(ts), mode: d.mode, frames: frames}, nil
	}

	if len(info.Frames) == 0 {
		return nil, ErrNoFrames
	}
	if info.IsEncapsulated && !supportedEncapsulated(ts) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransferSyntax, ts)
	}

	geom, err := readGeometry(ds.Elements)
	if err != nil {
		return nil, err
	}

	px := &Pixels{geom: geom, transferSyntax: ts, order: byteOrder(ts), mode: d.mode}
	for _, fr := range info.Frames {
		if fr.Encapsulated {
			px.frames = append(px.frames, rawFrame{encapsulated: true, data: fr.EncapsulatedData.Data})
		} else {
			px.frames = append(px.frames, rawFrame{native: fr.NativeData.Data})
		}
	}
	return px, nil
}

func supportedEncapsulated(ts string) bool {
	switch ts {
	case TSJPEGBaseline, TSJPEGExtended, TSRLELossless:
		return true
	}
	return false
}

func readGeometry(elems []*dicom.Element) (Geometry, error) {
	rows, err := elemval.IntOf(elems, tag.Rows)
	if err != nil {
		return Geometry{}, fmt.Errorf("reading rows: %w", err)
	}
	cols, err := elemval.IntOf(elems, tag.Columns)
	if err != nil {
		return Geometry{}, fmt.Errorf("reading columns: %w", err)
	}
	if err := validateBounds(cols, rows); err != nil {
		return Geometry{}, err
	}

	g := Geometry{
		Rows:             rows,
		Columns:          cols,
		SamplesPerPixel:  intOr(elems, tag.SamplesPerPixel, 1),
		BitsAllocated:    intOr(elems, tag.BitsAllocated, 8),
		Photometric:      "MONOCHROME2",
		RescaleSlope:     1,
		RescaleIntercept: 0,
	}
	g.BitsStored = intOr(elems, tag.BitsStored, g.BitsAllocated)
	if g.BitsStored <= 0 || g.BitsStored > g.BitsAllocated {
		g.BitsStored = g.BitsAllocated
	}
	g.PixelRepresentation = intOr(elems, tag.PixelRepresentation, 0)
	g.PlanarConfiguration = intOr(elems, tag.PlanarConfiguration, 0)
	if s, err := elemval.StringOf(elems, tag.PhotometricInterpretation); err == nil && s != "" {
		g.Photometric = strings.TrimSpace(s)
	}
	if f, err := elemval.FloatOf(elems, tag.RescaleSlope); err == nil && f != 0 {
		g.RescaleSlope = f
	}
	if f, err := elemval.FloatOf(elems, tag.RescaleIntercept); err == nil {
		g.RescaleIntercept = f
	}
	if c, err := elemval.FloatOf(elems, tag.WindowCenter); err == nil {
		if w, err := elemval.FloatOf(elems, tag.WindowWidth); err == nil && w >= 1 {
			g.WindowCenter, g.WindowWidth = &c, &w
		}
	}
	return g, nil
}

func intOr(elems []*dicom.Element, t tag.Tag, def int) int {
	n, err := elemval.IntOf(elems, t)
	if err != nil {
		return def
	}
	return n
}

// FrameCount returns the number of frames read from the file.
func (p *Pixels) FrameCount() int { return len(p.frames) }

// Frame converts frame i to an 8-bit grayscale or RGB image.
func (p *Pixels) Frame(i int) (image.Image, error) {
	if i < 0 || i >= len(p.frames) {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, i, len(p.frames))
	}
	fr := p.frames[i]
	if !fr.encapsulated {
		samples := fr.native
		if samples == nil {
			order := p.order
			if order == nil {
				order = binary.LittleEndian
			}
			var err error
			if samples, err = unpackNative(fr.data, p.geom, order); err != nil {
				return nil, fmt.Errorf("native frame %d: %w", i, err)
			}
		}
		return renderSamples(samples, p.geom, p.mode)
	}

	switch p.transferSyntax {
	case TSRLELossless:
		samples, err := decodeRLE(fr.data, p.geom)
		if err != nil {
			return nil, fmt.Errorf("rle frame %d: %w", i, err)
		}
		// decodeRLE already interleaves the sample planes
		g := p.geom
		g.PlanarConfiguration = 0
		return renderSamples(samples, g, p.mode)
	default:
		img, err := jpeg.Decode(bytes.NewReader(fr.data))
		if err != nil {
			return nil, fmt.Errorf("jpeg frame %d: %w", i, err)
		}
		return img, nil
	}
}
