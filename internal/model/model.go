package model

import (
	"encoding/json"
	"fmt"
)

// Value kinds as they appear in the "type" discriminator of a serialized value.
const (
	KindString   = "String"
	KindSequence = "Sequence"
)

// AttributeValue is either a display string or the flattened contents of a sequence.
type AttributeValue struct {
	text  string
	group []Attribute
	isSeq bool
}

// Text creates a leaf value.
func Text(s string) AttributeValue {
	return AttributeValue{text: s}
}

// Group creates a sequence value. A nil slice is stored as empty.
func Group(items []Attribute) AttributeValue {
	if items == nil {
		items = []Attribute{}
	}
	return AttributeValue{group: items, isSeq: true}
}

// IsGroup reports whether the value holds nested attributes.
func (v AttributeValue) IsGroup() bool { return v.isSeq }

// String returns the text content; empty for groups.
func (v AttributeValue) String() string { return v.text }

// Items returns the nested attributes; nil for text values.
func (v AttributeValue) Items() []Attribute { return v.group }

type wireValue struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes the value as {"type": ..., "content": ...}.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
		kind    = KindString
	)
	if v.isSeq {
		kind = KindSequence
		content, err = json.Marshal(v.group)
	} else {
		content, err = json.Marshal(v.text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: kind, Content: content})
}

// UnmarshalJSON decodes the adjacently tagged form produced by MarshalJSON.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case KindString:
		var s string
		if err := json.Unmarshal(w.Content, &s); err != nil {
			return err
		}
		*v = Text(s)
	case KindSequence:
		var items []Attribute
		if err := json.Unmarshal(w.Content, &items); err != nil {
			return err
		}
		*v = Group(items)
	default:
		return fmt.Errorf("unknown attribute value type %q", w.Type)
	}
	return nil
}

// Attribute is one flattened metadata entry.
type Attribute struct {
	Depth int            `json:"depth"`
	Tag   string         `json:"tag"`
	Name  string         `json:"name"`
	VR    string         `json:"vr"`
	Value AttributeValue `json:"value"`
}

// Dimensions holds image geometry.
type Dimensions struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// DebugInfo is the diagnostic report of one parse attempt. Optional fields
// serialize as null.
type DebugInfo struct {
	// File information, populated from raw bytes
	FileSize       uint64  `json:"file_size"`
	FilePreamble   string  `json:"file_preamble"`
	DicomMagic     string  `json:"dicom_magic"`
	TransferSyntax *string `json:"transfer_syntax"`
	FileDigest     *string `json:"file_digest"`

	// Dataset structure, populated only after a successful decode
	AttributeCount  int  `json:"attribute_count"`
	SequenceCount   int  `json:"sequence_count"`
	MetaInfoPresent bool `json:"meta_info_present"`

	HasPixelData              bool        `json:"has_pixel_data"`
	PixelDataVR               *string     `json:"pixel_data_vr"`
	ImageDimensions           *Dimensions `json:"image_dimensions"`
	NumberOfFrames            *int        `json:"number_of_frames"`
	BitsAllocated             *int        `json:"bits_allocated"`
	SamplesPerPixel           *int        `json:"samples_per_pixel"`
	PhotometricInterpretation *string     `json:"photometric_interpretation"`
	PixelRepresentation       *int        `json:"pixel_representation"`

	// Error tracking
	ParseError        *string `json:"parse_error"`
	PixelDecodeError  *string `json:"pixel_decode_error"`
	PixelConvertError *string `json:"pixel_convert_error"`
	PixelEncodeError  *string `json:"pixel_encode_error"`
}

// ParseOutput is the document returned for a successfully decoded file.
type ParseOutput struct {
	Attributes    []Attribute `json:"attributes"`
	PreviewImages []string    `json:"preview_images"`
	DebugInfo     DebugInfo   `json:"debug_info"`
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to a copy of i.
func IntPtr(i int) *int { return &i }
