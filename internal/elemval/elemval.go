// Package elemval converts decoded element values into display strings and
// numbers.
package elemval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Separator joins the values of a multi-valued element.
const Separator = `\`

var (
	ErrNoValue     = errors.New("element has no value")
	ErrNotScalar   = errors.New("value is not a scalar")
	ErrNotNumeric  = errors.New("value is not numeric")
	ErrEmptyValues = errors.New("value list is empty")
)

// String renders v as text. Sequences and pixel data cannot be rendered.
func String(v dicom.Value) (string, error) {
	if v == nil {
		return "", ErrNoValue
	}
	switch data := v.GetValue().(type) {
	case []string:
		parts := make([]string, len(data))
		for i, s := range data {
			parts[i] = trimPadding(s)
		}
		return strings.Join(parts, Separator), nil
	case []int:
		parts := make([]string, len(data))
		for i, n := range data {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, Separator), nil
	case []float64:
		parts := make([]string, len(data))
		for i, f := range data {
			parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strings.Join(parts, Separator), nil
	case []byte:
		parts := make([]string, len(data))
		for i, b := range data {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, Separator), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrNotScalar, data)
	}
}

// Int returns the first value of v as an integer. Numeric strings (IS, DS
// without a fraction) are parsed.
func Int(v dicom.Value) (int, error) {
	if v == nil {
		return 0, ErrNoValue
	}
	switch data := v.GetValue().(type) {
	case []int:
		if len(data) == 0 {
			return 0, ErrEmptyValues
		}
		return data[0], nil
	case []string:
		if len(data) == 0 {
			return 0, ErrEmptyValues
		}
		n, err := strconv.Atoi(strings.TrimSpace(trimPadding(data[0])))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNotNumeric, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, data)
	}
}

// Float returns the first value of v as a float. Decimal strings are parsed.
func Float(v dicom.Value) (float64, error) {
	if v == nil {
		return 0, ErrNoValue
	}
	switch data := v.GetValue().(type) {
	case []float64:
		if len(data) == 0 {
			return 0, ErrEmptyValues
		}
		return data[0], nil
	case []int:
		if len(data) == 0 {
			return 0, ErrEmptyValues
		}
		return float64(data[0]), nil
	case []string:
		if len(data) == 0 {
			return 0, ErrEmptyValues
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimPadding(data[0])), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNotNumeric, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, data)
	}
}

// Find returns the top-level element with tag t, or nil.
func Find(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, el := range elems {
		if el != nil && el.Tag == t {
			return el
		}
	}
	return nil
}

// IntOf is Int applied to the top-level element t.
func IntOf(elems []*dicom.Element, t tag.Tag) (int, error) {
	el := Find(elems, t)
	if el == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoValue, t)
	}
	return Int(el.Value)
}

// StringOf is String applied to the top-level element t.
func StringOf(elems []*dicom.Element, t tag.Tag) (string, error) {
	el := Find(elems, t)
	if el == nil {
		return "", fmt.Errorf("%w: %s", ErrNoValue, t)
	}
	return String(el.Value)
}

// FloatOf is Float applied to the top-level element t.
func FloatOf(elems []*dicom.Element, t tag.Tag) (float64, error) {
	el := Find(elems, t)
	if el == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoValue, t)
	}
	return Float(el.Value)
}

func trimPadding(s string) string {
	return strings.TrimRight(s, " \x00")
}
