package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// CompressedExt marks files stored as LZ4 frames.
const CompressedExt = ".lz4"

// WriteFile renders rep into path, LZ4-compressed when path ends in ".lz4".
func WriteFile(path string, rep *Report, format Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if !strings.HasSuffix(path, CompressedExt) {
		return Render(f, rep, format)
	}

	zw := lz4.NewWriter(f)

	err = Render(zw, rep, format)

	return errors.Join(err, zw.Close())
}

type readCloser struct {
	io.Reader
	io.Closer
}

// OpenFile opens a report written by WriteFile, decompressing ".lz4" files.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if !strings.HasSuffix(path, CompressedExt) {
		return f, nil
	}

	return readCloser{Reader: lz4.NewReader(f), Closer: f}, nil
}
