package tflite

import (
	"io"
	"os"
)

// readModel is the copy-based fallback used when the file cannot be mapped.
func readModel(eng engine, f *os.File, path string, size int) (*Model, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, int64(size)), data); err != nil {
		return nil, &Error{Op: "read model " + path, Kind: ErrModelLoad, Err: err}
	}
	m, err := loadModelFromBytes(eng, data)
	if err != nil {
		return nil, err
	}
	m.source = path
	return m, nil
}
