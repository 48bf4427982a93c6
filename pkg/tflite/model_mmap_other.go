//go:build !unix

package tflite

import (
	"errors"
	"os"

	"github.com/samcharles93/tflite/internal/backend"
)

// MapModel reads the model file into memory; memory mapping is only used on
// unix platforms.
func MapModel(path string) (*Model, error) {
	return mapModel(backend.Default(), path)
}

func mapModel(eng engine, path string) (*Model, error) {
	op := "map model " + path
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrModelLoad, Err: err}
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrModelLoad, Err: err}
	}
	if stat.Size() <= 0 || stat.Size() > int64(int(^uint(0)>>1)) {
		return nil, &Error{Op: op, Kind: ErrModelLoad, Err: errors.New("model file size out of range")}
	}
	return readModel(eng, f, path, int(stat.Size()))
}
