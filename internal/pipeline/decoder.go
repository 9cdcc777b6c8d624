package pipeline

import (
	"fmt"

	"github.com/suyashkumar/dicom"
)

// Decoder reads a file into a structured dataset.
type Decoder interface {
	Decode(path string) (*dicom.Dataset, error)
}

// FileDecoder decodes Part-10 files with suyashkumar/dicom.
type FileDecoder struct{}

// Decode implements Decoder. Native pixel data is kept as raw bytes so that
// a malformed pixel payload cannot fail the structured decode. A panic inside
// the parser is reported as an error.
func (FileDecoder) Decode(path string) (ds *dicom.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()
	parsed, err := dicom.ParseFile(path, nil, dicom.SkipProcessingPixelDataValue())
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
