package sstable

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ErrExists reports a save destination that is already present.
var ErrExists = errors.New("sstable: destination already exists")

// EnsureWritable checks that path can be written to. An existing file
// is refused with ErrExists unless force is set, in which case it is
// removed.
func EnsureWritable(path string, force bool) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		if !force {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return os.Remove(path)
	case os.IsNotExist(err):
		return nil
	default:
		return err
	}
}

// SaveMatrix serializes m to path in NumPy .npy format, the shape
// travelling with the data. Paths ending in ".gz" are gzip-compressed.
// The data goes through a scratch file renamed into place, so a failed
// save leaves no partial artifact behind.
func SaveMatrix(path string, m *mat.Dense, force bool) error {
	if err := EnsureWritable(path, force); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := writeMatrix(f, path, m); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func writeMatrix(w io.Writer, path string, m *mat.Dense) error {
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		if err := npyio.Write(gz, m); err != nil {
			return fmt.Errorf("sstable: write %s: %w", path, err)
		}
		return gz.Close()
	}
	if err := npyio.Write(w, m); err != nil {
		return fmt.Errorf("sstable: write %s: %w", path, err)
	}
	return nil
}

// LoadMatrix reads a matrix written by SaveMatrix.
func LoadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	var m mat.Dense
	if err := npyio.Read(r, &m); err != nil {
		return nil, fmt.Errorf("sstable: read %s: %w", path, err)
	}
	return &m, nil
}
