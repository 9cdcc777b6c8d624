// Package attrtree flattens a decoded dataset into depth-annotated attributes.
//
// Sequences are expanded item by item; item boundaries are not represented,
// only the elements of every item in decoder order, one level deeper than the
// sequence itself. Expansion stops at MaxDepth: a sequence whose items would
// land deeper than that is rendered as a leaf, which for SQ yields the
// "[Cannot display value of type SQ]" placeholder.
package attrtree

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/quantarax/dicompreview/internal/dictionary"
	"github.com/quantarax/dicompreview/internal/elemval"
	"github.com/quantarax/dicompreview/internal/model"
)

// DefaultMaxDepth keeps the historical output: root attributes at depth 0,
// sequence items at depth 1, and items of nested sequences at depth 2.
const DefaultMaxDepth = 2

const (
	vrSequence = "SQ"

	pixelDataPlaceholder = "[PixelData]"
	binaryPlaceholder    = "[Binary data]"
)

// binaryVRs are rendered as a placeholder instead of their bytes.
var binaryVRs = map[string]bool{"OB": true, "OW": true, "UN": true}

// Builder converts datasets into attribute trees.
type Builder struct {
	dict     dictionary.Dictionary
	maxDepth int
}

// NewBuilder creates a builder. maxDepth <= 0 expands sequences without limit.
func NewBuilder(dict dictionary.Dictionary, maxDepth int) *Builder {
	return &Builder{dict: dict, maxDepth: maxDepth}
}

// Build flattens the top-level elements of ds.
func (b *Builder) Build(ds *dicom.Dataset) []model.Attribute {
	attrs := []model.Attribute{}
	if ds == nil {
		return attrs
	}
	return b.appendElements(attrs, ds.Elements, 0)
}

func (b *Builder) appendElements(dst []model.Attribute, elems []*dicom.Element, depth int) []model.Attribute {
	for _, el := range elems {
		if attr, ok := b.convert(el, depth); ok {
			dst = append(dst, attr)
		}
	}
	return dst
}

// convert turns one element into an attribute. Elements that cannot be read
// are dropped rather than reported.
func (b *Builder) convert(el *dicom.Element, depth int) (attr model.Attribute, ok bool) {
	if el == nil {
		return model.Attribute{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			attr, ok = model.Attribute{}, false
		}
	}()

	attr = model.Attribute{
		Depth: depth,
		Tag:   dictionary.FormatTag(el.Tag),
		Name:  dictionary.Resolve(b.dict, el.Tag),
		VR:    el.RawValueRepresentation,
	}

	switch {
	case el.Tag == tag.PixelData:
		attr.Value = model.Text(pixelDataPlaceholder)
	case el.RawValueRepresentation == vrSequence && b.canDescend(depth):
		attr.Value = model.Group(b.flattenItems(el.Value, depth+1))
	default:
		attr.Value = model.Text(leafText(el))
	}
	return attr, true
}

func (b *Builder) canDescend(depth int) bool {
	return b.maxDepth <= 0 || depth+1 <= b.maxDepth
}

// flattenItems lists the elements of every sequence item at depth.
func (b *Builder) flattenItems(v dicom.Value, depth int) []model.Attribute {
	out := []model.Attribute{}
	if v == nil {
		return out
	}
	items, ok := v.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return out
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		elems, ok := item.GetValue().([]*dicom.Element)
		if !ok {
			continue
		}
		out = b.appendElements(out, elems, depth)
	}
	return out
}

func leafText(el *dicom.Element) string {
	if binaryVRs[el.RawValueRepresentation] {
		return binaryPlaceholder
	}
	s, err := elemval.String(el.Value)
	if err != nil {
		return fmt.Sprintf("[Cannot display value of type %s]", el.RawValueRepresentation)
	}
	return s
}
