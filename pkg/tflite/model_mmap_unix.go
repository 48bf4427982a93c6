//go:build unix

package tflite

import (
	"errors"
	"os"
	"unsafe"

	"github.com/samcharles93/tflite/internal/backend"
	"golang.org/x/sys/unix"
)

// MapModel memory-maps the model file read-only and hands the mapping to the
// engine without copying. The mapping is released after the native model is
// destroyed. If mmap fails the file is read into memory instead.
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
	size64 := stat.Size()
	if size64 <= 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, &Error{Op: op, Kind: ErrModelLoad, Err: errors.New("model file size out of range")}
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return readModel(eng, f, path, size)
	}

	h := eng.ModelFromBuffer(unsafe.Pointer(&data[0]), len(data))
	if h == nil {
		_ = unix.Munmap(data)
		return nil, &Error{Op: op, Kind: ErrModelLoad, Err: engineCause(eng)}
	}
	return newModel(eng, h, path, func() error { return unix.Munmap(data) }), nil
}
