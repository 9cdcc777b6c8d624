// Package dcmtest writes small explicit VR little endian Part-10 files for
// tests.
package dcmtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// ExplicitVRLittleEndian is the transfer syntax written into the meta group.
const ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

// MetaElementCount is the number of file meta elements Meta writes,
// including the group length.
const MetaElementCount = 5

// Element is one encoded data element.
type Element struct {
	Group, Elem uint16
	VR          string
	Value       []byte
}

var longVRs = map[string]bool{"OB": true, "OW": true, "OF": true, "SQ": true, "UT": true, "UN": true}

// Encode writes e in explicit VR little endian form, padding the value to
// even length.
func (e Element) Encode(buf *bytes.Buffer) {
	val := e.Value
	if len(val)%2 == 1 {
		pad := byte(' ')
		if e.VR == "UI" || e.VR == "OB" || e.VR == "UN" {
			pad = 0
		}
		val = append(append([]byte{}, val...), pad)
	}
	_ = binary.Write(buf, binary.LittleEndian, e.Group)
	_ = binary.Write(buf, binary.LittleEndian, e.Elem)
	buf.WriteString(e.VR)
	if longVRs[e.VR] {
		buf.Write([]byte{0, 0})
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(val)))
	} else {
		_ = binary.Write(buf, binary.LittleEndian, uint16(len(val)))
	}
	buf.Write(val)
}

// Str builds a text element.
func Str(group, elem uint16, vr, s string) Element {
	return Element{Group: group, Elem: elem, VR: vr, Value: []byte(s)}
}

// US builds an unsigned short element.
func US(group, elem uint16, v uint16) Element {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return Element{Group: group, Elem: elem, VR: "US", Value: b}
}

// Meta returns the preamble, marker and file meta group.
func Meta() []byte {
	var group bytes.Buffer
	Element{Group: 0x0002, Elem: 0x0001, VR: "OB", Value: []byte{0, 1}}.Encode(&group)
	Str(0x0002, 0x0002, "UI", "1.2.840.10008.5.1.4.1.1.7").Encode(&group)
	Str(0x0002, 0x0003, "UI", "1.2.826.0.1.3680043.2.1125.1").Encode(&group)
	Str(0x0002, 0x0010, "UI", ExplicitVRLittleEndian).Encode(&group)

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(group.Len()))
	Element{Group: 0x0002, Elem: 0x0000, VR: "UL", Value: length}.Encode(&out)
	out.Write(group.Bytes())
	return out.Bytes()
}

// GrayImage returns dataset elements for a rows x cols 8-bit MONOCHROME2
// image with the given pixel values.
func GrayImage(rows, cols uint16, pixels []byte) []Element {
	return []Element{
		US(0x0028, 0x0002, 1),
		Str(0x0028, 0x0004, "CS", "MONOCHROME2"),
		US(0x0028, 0x0010, rows),
		US(0x0028, 0x0011, cols),
		US(0x0028, 0x0100, 8),
		US(0x0028, 0x0101, 8),
		US(0x0028, 0x0102, 7),
		US(0x0028, 0x0103, 0),
		{Group: 0x7FE0, Elem: 0x0010, VR: "OB", Value: pixels},
	}
}

// With returns elems with each of extra replacing the element of the same tag,
// or inserted in tag order when there is none.
func With(elems []Element, extra ...Element) []Element {
	out := append([]Element{}, elems...)
	for _, e := range extra {
		replaced := false
		for i := range out {
			if out[i].Group == e.Group && out[i].Elem == e.Elem {
				out[i], replaced = e, true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Elem < out[j].Elem
	})
	return out
}

// Build returns a complete file: meta group followed by elems, which must be
// in ascending tag order.
func Build(elems ...Element) []byte {
	var buf bytes.Buffer
	buf.Write(Meta())
	for _, e := range elems {
		e.Encode(&buf)
	}
	return buf.Bytes()
}

// Write stores data under t.TempDir and returns the path.
func Write(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
