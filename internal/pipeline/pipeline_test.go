package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"

	"github.com/quantarax/dicompreview/internal/config"
	"github.com/quantarax/dicompreview/internal/dcmtest"
	"github.com/quantarax/dicompreview/internal/observability"
	"github.com/quantarax/dicompreview/internal/validation"
)

func parse(t *testing.T, p *Parser, path string) (*Result, *Error) {
	t.Helper()
	res, err := p.ParseFile(context.Background(), path)
	if err == nil {
		return res, nil
	}
	var perr *Error
	require.True(t, errors.As(err, &perr), "unexpected error type %T", err)
	return nil, perr
}

func TestParseFile_MetaOnlyRoundTrip(t *testing.T) {
	path := dcmtest.Write(t, "meta.dcm", dcmtest.Build())

	res, perr := parse(t, New(nil), path)
	require.Nil(t, perr)
	require.NotNil(t, res)

	out := res.Output
	require.NotEmpty(t, out.Attributes)
	for _, a := range out.Attributes {
		assert.True(t, strings.HasPrefix(a.Tag, "(0002,"), "non-meta attribute %s", a.Tag)
		assert.Equal(t, 0, a.Depth)
	}
	assert.False(t, out.DebugInfo.HasPixelData)
	assert.True(t, out.DebugInfo.MetaInfoPresent)
	assert.Nil(t, out.PreviewImages)
	assert.Equal(t, "DICM", out.DebugInfo.DicomMagic)
	assert.NotNil(t, out.DebugInfo.FileDigest)
	assert.NotNil(t, out.DebugInfo.PixelDecodeError)
	assert.Nil(t, out.DebugInfo.PixelConvertError)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(res.JSON, &doc))
	assert.Equal(t, "null", string(doc["preview_images"]))

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(doc["debug_info"], &info))
	assert.Equal(t, float64(len(dcmtest.Build())), info["file_size"])
	assert.Contains(t, info, "image_dimensions")
	assert.Nil(t, info["image_dimensions"])
	assert.Equal(t, float64(len(out.Attributes)), info["attribute_count"])

	var found bool
	for _, a := range out.Attributes {
		if a.Tag == "(0002,0010)" {
			found = true
			assert.Equal(t, "TransferSyntaxUID", a.Name)
			assert.Equal(t, dcmtest.ExplicitVRLittleEndian, a.Value.String())
		}
	}
	assert.True(t, found, "transfer syntax attribute missing")
}

func TestParseFile_GrayImagePreview(t *testing.T) {
	data := dcmtest.Build(dcmtest.GrayImage(2, 2, []byte{0, 64, 128, 255})...)
	path := dcmtest.Write(t, "image.dcm", data)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	res, perr := parse(t, New(nil, WithMetrics(metrics)), path)
	require.Nil(t, perr)

	info := res.Output.DebugInfo
	assert.True(t, info.HasPixelData)
	require.NotNil(t, info.ImageDimensions)
	assert.Equal(t, 2, info.ImageDimensions.Rows)
	assert.Equal(t, 2, info.ImageDimensions.Columns)
	assert.Nil(t, info.PixelDecodeError)
	assert.Nil(t, info.PixelConvertError)
	assert.Nil(t, info.PixelEncodeError)

	require.Len(t, res.Output.PreviewImages, 1)
	raw, err := base64.StdEncoding.DecodeString(res.Output.PreviewImages[0])
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	var pixel string
	for _, a := range res.Output.Attributes {
		if a.Tag == "(7FE0,0010)" {
			pixel = a.Value.String()
		}
	}
	assert.Equal(t, "[PixelData]", pixel)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ParsesTotal.WithLabelValues(observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PreviewFramesTotal))
}

func TestParseFile_MultiFramePreview(t *testing.T) {
	elems := dcmtest.With(
		dcmtest.GrayImage(2, 2, []byte{0, 1, 2, 3, 3, 2, 1, 0}),
		dcmtest.Str(0x0028, 0x0008, "IS", "2"),
	)
	path := dcmtest.Write(t, "multi.dcm", dcmtest.Build(elems...))

	res, perr := parse(t, New(nil), path)
	require.Nil(t, perr)
	assert.Nil(t, res.Output.DebugInfo.PixelDecodeError)
	assert.Len(t, res.Output.PreviewImages, 2)
}

// Broken pixel payloads must not cost the caller the attribute listing.
func TestParseFile_PixelProblemsKeepDocument(t *testing.T) {
	cases := []struct {
		name  string
		elems []dcmtest.Element
		want  string
	}{
		{
			name:  "length mismatch",
			elems: dcmtest.GrayImage(2, 2, []byte{1, 2, 3, 4, 5, 6}),
			want:  "does not match image geometry",
		},
		{
			name: "malformed number of frames",
			elems: dcmtest.With(
				dcmtest.GrayImage(2, 2, []byte{1, 2, 3, 4}),
				dcmtest.Str(0x0028, 0x0008, "IS", "abc"),
			),
			want: "number of frames",
		},
		{
			name: "unsupported bits allocated",
			elems: dcmtest.With(
				dcmtest.GrayImage(2, 2, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
				dcmtest.US(0x0028, 0x0100, 12),
			),
			want: "unsupported bits allocated: 12",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := dcmtest.Write(t, "broken.dcm", dcmtest.Build(tc.elems...))

			res, perr := parse(t, New(nil), path)
			require.Nil(t, perr)
			require.NotNil(t, res)

			out := res.Output
			assert.Len(t, out.Attributes, dcmtest.MetaElementCount+len(tc.elems))
			var pixel bool
			for _, a := range out.Attributes {
				if a.Tag == "(7FE0,0010)" {
					pixel = true
					assert.Equal(t, "[PixelData]", a.Value.String())
				}
			}
			assert.True(t, pixel, "pixel data attribute missing")

			info := out.DebugInfo
			assert.True(t, info.HasPixelData)
			require.NotNil(t, info.PixelDecodeError)
			assert.True(t, strings.HasPrefix(*info.PixelDecodeError, "Pixel data decode error: "))
			assert.Contains(t, *info.PixelDecodeError, tc.want)
			assert.Nil(t, info.PixelConvertError)
			assert.Nil(t, info.PixelEncodeError)
			assert.Nil(t, out.PreviewImages)
		})
	}
}

func TestParseFile_PreviewsDisabled(t *testing.T) {
	data := dcmtest.Build(dcmtest.GrayImage(2, 2, []byte{0, 64, 128, 255})...)
	path := dcmtest.Write(t, "image.dcm", data)
	cfg := config.DefaultConfig()
	cfg.Preview.Enabled = false

	res, perr := parse(t, New(cfg), path)
	require.Nil(t, perr)
	assert.Nil(t, res.Output.PreviewImages)
	assert.Nil(t, res.Output.DebugInfo.PixelDecodeError)
}

func TestParseFile_ZeroByteFile(t *testing.T) {
	path := dcmtest.Write(t, "empty.dcm", nil)

	res, perr := parse(t, New(nil), path)
	assert.Nil(t, res)
	require.NotNil(t, perr)
	assert.Equal(t, KindDecode, perr.Kind)
	assert.True(t, strings.HasPrefix(perr.Message, "Failed to parse DICOM file: "+path+".\nError details: "))
	assert.Contains(t, perr.Message, "File Analysis:\nFile size: 0 bytes\n")
	assert.True(t, strings.HasSuffix(perr.Message, "4. There are insufficient read permissions"))
	assert.Contains(t, perr.Message, "1. The file is not a valid DICOM file\n")
}

func TestParseFile_InputErrors(t *testing.T) {
	p := New(nil)

	_, perr := parse(t, p, "")
	require.NotNil(t, perr)
	assert.Equal(t, KindInput, perr.Kind)
	assert.ErrorIs(t, perr, validation.ErrInvalidPath)

	missing := filepath.Join(t.TempDir(), "missing.dcm")
	_, perr = parse(t, p, missing)
	require.NotNil(t, perr)
	assert.Equal(t, KindInput, perr.Kind)
	assert.Equal(t, "File does not exist: "+missing, perr.Message)
	assert.ErrorIs(t, perr, validation.ErrPathNotExists)
}

func TestParseFile_InvalidUTF8Path(t *testing.T) {
	_, perr := parse(t, New(nil), "scan\xff.dcm")
	require.NotNil(t, perr)
	assert.Equal(t, KindInput, perr.Kind)
	assert.Equal(t, "Invalid UTF-8 in path: invalid utf-8 sequence from index 4", perr.Message)
}

func TestParseFile_InaccessibleDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(dir, 0o700))
	path := filepath.Join(dir, "meta.dcm")
	require.NoError(t, os.WriteFile(path, dcmtest.Build(), 0o600))
	require.NoError(t, os.Chmod(dir, 0))
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	_, perr := parse(t, New(nil), path)
	require.NotNil(t, perr)
	assert.Equal(t, KindInput, perr.Kind)
	assert.True(t, strings.HasPrefix(perr.Message, "Cannot open file: "+path+". Error: "), perr.Message)
	assert.ErrorIs(t, perr, validation.ErrPathInaccessible)
}

func TestParseFile_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	path := dcmtest.Write(t, "locked.dcm", dcmtest.Build())
	require.NoError(t, os.Chmod(path, 0))

	_, perr := parse(t, New(nil), path)
	require.NotNil(t, perr)
	assert.Equal(t, KindInput, perr.Kind)
	assert.True(t, strings.HasPrefix(perr.Message, "Cannot open file: "+path+". Error: "))
}

type stubDecoder struct {
	ds  *dicom.Dataset
	err error
}

func (s stubDecoder) Decode(string) (*dicom.Dataset, error) { return s.ds, s.err }

func TestParseFile_DecoderErrorEmbedsHeaderAnalysis(t *testing.T) {
	path := dcmtest.Write(t, "meta.dcm", dcmtest.Build())

	_, perr := parse(t, New(nil, WithDecoder(stubDecoder{err: errors.New("bad tag")})), path)
	require.NotNil(t, perr)
	assert.Equal(t, KindDecode, perr.Kind)
	assert.Contains(t, perr.Message, "Error details: bad tag\n")
	assert.Contains(t, perr.Message, "DICM marker at 128: DICM\n")
	assert.Contains(t, perr.Message, "Possible UID found at offset")
}

func TestParseFile_SerializeFailure(t *testing.T) {
	path := dcmtest.Write(t, "meta.dcm", dcmtest.Build())
	p := New(nil, WithDecoder(stubDecoder{ds: &dicom.Dataset{}}))
	p.marshal = func(interface{}) ([]byte, error) { return nil, errors.New("unsupported value") }

	res, perr := parse(t, p, path)
	assert.Nil(t, res)
	require.NotNil(t, perr)
	assert.Equal(t, KindSerialize, perr.Kind)
	assert.Equal(t, "Failed to serialize to JSON: unsupported value", perr.Message)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "input", KindInput.String())
	assert.Equal(t, "decode", KindDecode.String())
	assert.Equal(t, "serialize", KindSerialize.String())
	assert.Equal(t, "ErrorKind(9)", ErrorKind(9).String())
}
