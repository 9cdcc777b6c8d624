package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quantarax/dicompreview/internal/dcmtest"
)

func TestRunPrintsJSONAndWritesPreviews(t *testing.T) {
	path := dcmtest.Write(t, "image.dcm", dcmtest.Build(dcmtest.GrayImage(2, 2, []byte{0, 64, 128, 255})...))
	previews := filepath.Join(t.TempDir(), "previews")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-env", filepath.Join(t.TempDir(), "none.env"), "-previews", previews, "-metrics", path}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v", err)
	}
	if _, err := os.Stat(filepath.Join(previews, "frame_000.jpg")); err != nil {
		t.Fatalf("preview not written: %v", err)
	}
	if !strings.Contains(stderr.String(), "dicompreview_parses_total") {
		t.Fatalf("metrics not dumped: %s", stderr.String())
	}
}

func TestRunPrettyToFile(t *testing.T) {
	path := dcmtest.Write(t, "meta.dcm", dcmtest.Build())
	out := filepath.Join(t.TempDir(), "out.json")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-env", filepath.Join(t.TempDir(), "none.env"), "-pretty", "-max-depth", "0", "-output", out, path}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("\n  \"attributes\"")) {
		t.Fatalf("output not indented: %s", data[:40])
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	env := filepath.Join(t.TempDir(), "none.env")
	var stdout, stderr bytes.Buffer

	if code := run(nil, &stdout, &stderr); code != exitUsage {
		t.Fatalf("no args: exit %d", code)
	}
	if code := run([]string{"-env", env, filepath.Join(t.TempDir(), "missing.dcm")}, &stdout, &stderr); code != exitInput {
		t.Fatalf("missing file: exit %d", code)
	}
	empty := dcmtest.Write(t, "empty.dcm", nil)
	if code := run([]string{"-env", env, empty}, &stdout, &stderr); code != exitDecode {
		t.Fatalf("empty file: exit %d", code)
	}
	if !strings.Contains(stderr.String(), "This could be because:") {
		t.Fatalf("decode failure message missing: %s", stderr.String())
	}
}
