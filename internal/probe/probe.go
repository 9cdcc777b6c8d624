package probe

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	preambleLen = 128
	magicEnd    = 132
	headerLen   = 256
	uidMaxLen   = 64
)

// Result is what the raw bytes of a file reveal without structured decoding.
type Result struct {
	Size           int64
	Preamble       string
	Magic          string
	TransferSyntax string
	// UIDOffset is the byte offset of TransferSyntax, -1 when none was found.
	UIDOffset int
}

// HasTransferSyntax reports whether a candidate UID was found in the header.
func (r Result) HasTransferSyntax() bool { return r.UIDOffset >= 0 }

// Probe inspects the header of r. It never fails: anything it cannot read is
// left empty. r is rewound to the start before returning.
func Probe(r io.ReadSeeker) Result {
	res := Result{UIDOffset: -1}
	defer r.Seek(0, io.SeekStart)

	if size, err := r.Seek(0, io.SeekEnd); err == nil {
		res.Size = size
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return res
	}

	header := make([]byte, headerLen)
	n, _ := io.ReadFull(r, header)
	header = header[:n]

	if len(header) >= preambleLen {
		res.Preamble = formatHex(header[:preambleLen])
	}
	if len(header) >= magicEnd {
		res.Magic = lossy(header[preambleLen:magicEnd])
	}
	if len(header) > magicEnd {
		// DICOM UIDs all start with the "1." root arc
		if pos := bytes.Index(header[magicEnd:], []byte("1.")); pos >= 0 {
			start := magicEnd + pos
			end := start + uidMaxLen
			if end > len(header) {
				end = len(header)
			}
			res.TransferSyntax = lossy(header[start:end])
			res.UIDOffset = start
		}
	}
	return res
}

// Analysis renders the probe result as the human-readable block embedded in
// decode failure messages.
func (r Result) Analysis() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File size: %d bytes\n", r.Size)
	if r.Preamble == "" {
		b.WriteString("Header analysis: file too short for a 128-byte preamble\n")
		return b.String()
	}
	b.WriteString("Header analysis:\n")
	fmt.Fprintf(&b, "First 128 bytes (preamble): %s\n", r.Preamble)
	fmt.Fprintf(&b, "DICM marker at 128: %s\n", r.Magic)
	if r.HasTransferSyntax() {
		b.WriteString("Looking for transfer syntax UID...\n")
		fmt.Fprintf(&b, "Possible UID found at offset %d: %s\n", r.UIDOffset, r.TransferSyntax)
	}
	return b.String()
}

// IsDICOM reports whether the Part-10 "DICM" marker sits at offset 128.
func (r Result) IsDICOM() bool {
	return r.Magic == "DICM"
}

// formatHex renders bytes as "[00, 1A, FF]".
func formatHex(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b)*4 + 2)
	sb.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	sb.WriteByte(']')
	return sb.String()
}

// lossy decodes b as UTF-8, replacing invalid sequences with U+FFFD.
func lossy(b []byte) string {
	s, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(s)
}
