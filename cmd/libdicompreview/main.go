// Command libdicompreview builds the C shared library:
//
//	go build -buildmode=c-shared -o libdicompreview.so ./cmd/libdicompreview
//
// Every DicomParseResult returned by parse_dicom_file must be passed to
// free_dicom_parse_result.
package main

/*
#include <stdlib.h>

typedef struct {
	char* json_data;
	char* error_message;
} DicomParseResult;
*/
import "C"

import (
	"unsafe"

	"github.com/quantarax/dicompreview/internal/boundary"
)

//export parse_dicom_file
func parse_dicom_file(path *C.char) C.DicomParseResult {
	var out C.DicomParseResult
	if path == nil {
		out.error_message = C.CString("Path is null")
		return out
	}

	res := boundary.Call(C.GoString(path))
	defer res.Release()
	if res.JSON != nil {
		out.json_data = C.CString(*res.JSON)
	}
	if res.Error != nil {
		out.error_message = C.CString(*res.Error)
	}
	return out
}

//export free_dicom_parse_result
func free_dicom_parse_result(result *C.DicomParseResult) {
	if result == nil {
		return
	}
	if result.json_data != nil {
		C.free(unsafe.Pointer(result.json_data))
		result.json_data = nil
	}
	if result.error_message != nil {
		C.free(unsafe.Pointer(result.error_message))
		result.error_message = nil
	}
}

func main() {}
