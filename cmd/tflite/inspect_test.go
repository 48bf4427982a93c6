package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/tflite/internal/runner"
)

func TestPrintModelInfo(t *testing.T) {
	t.Parallel()

	info := runner.ModelInfo{
		Source:        "mobilenet.tflite",
		EngineVersion: "2.16.1",
		Delegate:      "xnnpack",
		Inputs: []runner.TensorInfo{
			{Index: 0, Name: "image", Type: "uint8", Shape: []int{1, 224, 224, 3}, ByteSize: 150528,
				Quantization: &runner.Quantization{Scale: 0.0078125, ZeroPoint: 128}},
		},
		Outputs: []runner.TensorInfo{
			{Index: 0, Name: "scores", Type: "float32", Shape: []int{1, 1001}, ByteSize: 4004},
		},
	}
	var buf bytes.Buffer
	printModelInfo(&buf, info)
	out := buf.String()
	for _, want := range []string{
		"mobilenet.tflite", "2.16.1", "xnnpack",
		"Inputs", "image", "[1 224 224 3]", "150528", "scale=0.0078125 zero_point=128",
		"Outputs", "scores", "[1 1001]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestReadRequest(t *testing.T) {
	t.Parallel()

	if req, err := readRequest("", nil); err != nil || req != nil {
		t.Fatalf("empty path: got %+v, %v", req, err)
	}

	req, err := readRequest("-", strings.NewReader(`{"inputs":[{"name":"image","data":[1,2]}],"dequantize":true}`))
	if err != nil {
		t.Fatalf("readRequest: %v", err)
	}
	if len(req.Inputs) != 1 || req.Inputs[0].Name != "image" || !req.Dequantize {
		t.Fatalf("unexpected request %+v", req)
	}

	path := filepath.Join(t.TempDir(), "req.json")
	if err := os.WriteFile(path, []byte(`{"inputs":[{"index":0,"data":[1]}]}`), 0o644); err != nil {
		t.Fatalf("write request: %v", err)
	}
	req, err = readRequest(path, nil)
	if err != nil {
		t.Fatalf("readRequest(file): %v", err)
	}
	if req.Inputs[0].Index == nil || *req.Inputs[0].Index != 0 {
		t.Fatalf("index not decoded: %+v", req.Inputs[0])
	}

	for _, body := range []string{`{"inputs":[]}`, `{"inputs":[{"data":[1]}],"extra":true}`, `{`} {
		if _, err := readRequest("-", strings.NewReader(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}
