// Package dictionary resolves DICOM tags to their standard keyword names.
package dictionary

import (
	"fmt"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// UnknownName is returned for tags absent from the dictionary.
const UnknownName = "Unknown"

// Dictionary maps a tag to its display name.
type Dictionary interface {
	Lookup(t tag.Tag) (string, bool)
}

type standard struct{}

// Standard returns the DICOM standard data dictionary.
func Standard() Dictionary { return standard{} }

func (standard) Lookup(t tag.Tag) (string, bool) {
	info, err := tag.Find(t)
	if err != nil || info.Name == "" {
		return "", false
	}
	return info.Name, true
}

// Static is a fixed tag table, mostly useful in tests.
type Static map[tag.Tag]string

func (s Static) Lookup(t tag.Tag) (string, bool) {
	name, ok := s[t]
	return name, ok
}

// Resolve returns the name of t in d, or UnknownName.
func Resolve(d Dictionary, t tag.Tag) string {
	if d == nil {
		return UnknownName
	}
	if name, ok := d.Lookup(t); ok {
		return name
	}
	return UnknownName
}

// FormatTag renders t as (GGGG,EEEE) in uppercase hex.
func FormatTag(t tag.Tag) string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}
