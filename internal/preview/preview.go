// Package preview renders the frames of a dataset as base64 JPEG previews.
package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/suyashkumar/dicom"
	"golang.org/x/image/draw"

	"github.com/quantarax/dicompreview/internal/model"
	"github.com/quantarax/dicompreview/internal/observability"
	"github.com/quantarax/dicompreview/internal/raster"
)

// DefaultQuality is the JPEG quality used for previews.
const DefaultQuality = 60

// Pixel stages, also used as metric labels.
const (
	StageDecode  = "decode"
	StageConvert = "convert"
	StageEncode  = "encode"
)

// Policy controls what happens to rendered frames when a later frame fails.
type Policy int

const (
	// FailFast discards every frame once any frame fails.
	FailFast Policy = iota
	// BestEffort skips failing frames and keeps the rest. The first failure
	// is still reported.
	BestEffort
)

// ParsePolicy maps a config value to a Policy. Unknown values select FailFast.
func ParsePolicy(s string) Policy {
	if s == "best_effort" {
		return BestEffort
	}
	return FailFast
}

// Encoder compresses one image.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// JPEGEncoder encodes baseline JPEG at a fixed quality.
type JPEGEncoder struct {
	Quality int
}

// Encode implements Encoder.
func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	q := e.Quality
	if q <= 0 {
		q = DefaultQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

// Options configures a Renderer.
type Options struct {
	Policy Policy
	// MaxDimension bounds the longer side of each preview; 0 keeps the
	// native size.
	MaxDimension int
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// Renderer turns pixel data into previews.
type Renderer struct {
	decoder raster.Decoder
	encoder Encoder
	opts    Options
}

// NewRenderer creates a renderer. Nil collaborators fall back to the
// normalising raster decoder and JPEGEncoder at DefaultQuality.
func NewRenderer(dec raster.Decoder, enc Encoder, opts Options) *Renderer {
	if dec == nil {
		dec = raster.NewDecoder(raster.VOINormalize)
	}
	if enc == nil {
		enc = JPEGEncoder{Quality: DefaultQuality}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Renderer{decoder: dec, encoder: enc, opts: opts}
}

// Render decodes the pixel data of ds and encodes one preview per frame. The
// frame count and colour hints come from info, which also receives at most
// one pixel-stage error. It returns nil when no preview was produced.
func (r *Renderer) Render(ds *dicom.Dataset, info *model.DebugInfo) []string {
	if info == nil {
		info = &model.DebugInfo{}
	}

	frames, err := r.decoder.Decode(ds)
	if err != nil {
		info.PixelDecodeError = model.StringPtr(fmt.Sprintf("Pixel data decode error: %v", err))
		r.failed(StageDecode, -1, err)
		return nil
	}

	count := 1
	if info.NumberOfFrames != nil {
		count = *info.NumberOfFrames
	}
	if n := frames.FrameCount(); n != count {
		r.opts.Logger.FrameCountMismatch(count, n)
	}
	gray := info.PhotometricInterpretation != nil && *info.PhotometricInterpretation == "MONOCHROME2" &&
		info.SamplesPerPixel != nil && *info.SamplesPerPixel == 1

	var out []string
	// only the first failing stage is reported
	recorded := false
	for i := 0; i < count; i++ {
		img, err := frames.Frame(i)
		if err != nil {
			r.failed(StageConvert, i, err)
			if !recorded {
				info.PixelConvertError = model.StringPtr(fmt.Sprintf("Image conversion error for frame %d: %v", i, err))
				recorded = true
			}
			if r.opts.Policy == FailFast {
				return nil
			}
			continue
		}

		var buf bytes.Buffer
		if err := r.encoder.Encode(&buf, r.layout(img, gray)); err != nil {
			r.failed(StageEncode, i, err)
			if !recorded {
				info.PixelEncodeError = model.StringPtr(fmt.Sprintf("JPEG encoding error for frame %d: %v", i, err))
				recorded = true
			}
			if r.opts.Policy == FailFast {
				return nil
			}
			continue
		}
		out = append(out, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}

	if len(out) == 0 {
		return nil
	}
	r.opts.Metrics.RecordPreviewFrames(len(out))
	return out
}

// layout converts img to 8-bit luma or RGB, scaling it down when the
// renderer has a size bound.
func (r *Renderer) layout(img image.Image, gray bool) image.Image {
	src := img.Bounds()
	w, h := fit(src.Dx(), src.Dy(), r.opts.MaxDimension)
	rect := image.Rect(0, 0, w, h)

	var dst draw.Image
	if gray {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, rect, img, src.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, rect, img, src, draw.Src, nil)
	}
	return dst
}

// fit scales w x h so the longer side is at most max, keeping the aspect
// ratio. limit <= 0 disables scaling.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}

func (r *Renderer) failed(stage string, frame int, err error) {
	r.opts.Logger.PixelStageFailed(stage, frame, err)
	r.opts.Metrics.RecordPixelError(stage)
}
