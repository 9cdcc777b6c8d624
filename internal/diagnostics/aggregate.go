package diagnostics

import (
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/quantarax/dicompreview/internal/elemval"
	"github.com/quantarax/dicompreview/internal/model"
	"github.com/quantarax/dicompreview/internal/probe"
)

const metaGroup = 0x0002

// FromProbe starts a report from raw-byte findings. Structure fields stay at
// their zero value until Aggregate runs.
func FromProbe(p probe.Result) *model.DebugInfo {
	info := &model.DebugInfo{
		FilePreamble: p.Preamble,
		DicomMagic:   p.Magic,
	}
	if p.Size > 0 {
		info.FileSize = uint64(p.Size)
	}
	if p.HasTransferSyntax() {
		info.TransferSyntax = model.StringPtr(p.TransferSyntax)
	}
	return info
}

// Aggregate fills the structure-level fields of info from the top-level
// elements of ds. Every field is computed independently; a missing or
// malformed element only leaves its own field unset.
func Aggregate(ds *dicom.Dataset, info *model.DebugInfo) {
	if ds == nil || info == nil {
		return
	}
	elems := ds.Elements

	info.AttributeCount = 0
	info.SequenceCount = 0
	info.MetaInfoPresent = false
	for _, el := range elems {
		if el == nil {
			continue
		}
		info.AttributeCount++
		if el.RawValueRepresentation == "SQ" {
			info.SequenceCount++
		}
		if el.Tag.Group == metaGroup {
			info.MetaInfoPresent = true
		}
	}

	if px := elemval.Find(elems, tag.PixelData); px != nil {
		info.HasPixelData = true
		info.PixelDataVR = model.StringPtr(px.RawValueRepresentation)
	}

	rows, rowsErr := elemval.IntOf(elems, tag.Rows)
	cols, colsErr := elemval.IntOf(elems, tag.Columns)
	if rowsErr == nil && colsErr == nil {
		info.ImageDimensions = &model.Dimensions{Rows: rows, Columns: cols}
	}

	info.NumberOfFrames = optionalInt(elems, tag.NumberOfFrames)
	info.BitsAllocated = optionalInt(elems, tag.BitsAllocated)
	info.SamplesPerPixel = optionalInt(elems, tag.SamplesPerPixel)
	info.PixelRepresentation = optionalInt(elems, tag.PixelRepresentation)

	if s, err := elemval.StringOf(elems, tag.PhotometricInterpretation); err == nil {
		info.PhotometricInterpretation = model.StringPtr(s)
	}
}

func optionalInt(elems []*dicom.Element, t tag.Tag) *int {
	n, err := elemval.IntOf(elems, t)
	if err != nil {
		return nil
	}
	return model.IntPtr(n)
}
