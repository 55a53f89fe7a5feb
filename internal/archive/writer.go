package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
)

// bundleTime is stamped on every bundle entry so equal input gives equal bytes.
var bundleTime = time.Unix(0, 0).UTC()

// sink is a compressing writer over a created file.
type sink struct {
	io.Writer
	file       *os.File
	compressor io.Closer
}

func (s *sink) Close() error {
	var errs []error
	if s.compressor != nil {
		if err := s.compressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CreateSink creates p, and its parent directories, for writing. The data
// is compressed according to the suffix of p. Close must be called to
// flush the compressor.
func CreateSink(p string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	switch DetectCompression(p) {
	case XZ:
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		return &sink{Writer: xw, file: f, compressor: xw}, nil
	case Gzip:
		gw := gzip.NewWriter(f)
		return &sink{Writer: gw, file: f, compressor: gw}, nil
	default:
		return &sink{Writer: f, file: f}, nil
	}
}

// Entry is one file of a bundle.
type Entry struct {
	Name string
	Data []byte
}

// WriteBundle writes entries into a .tar.gz or .tar.xz bundle at dstPath.
func WriteBundle(dstPath string, entries []Entry) error {
	if !IsBundle(dstPath) {
		return fmt.Errorf("unsupported bundle format: %s", dstPath)
	}
	out, err := CreateSink(dstPath)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(out)
	for _, e := range entries {
		header := &tar.Header{
			Name:     e.Name,
			Mode:     0644,
			Size:     int64(len(e.Data)),
			ModTime:  bundleTime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			out.Close()
			return fmt.Errorf("failed to create bundle: %w", err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			out.Close()
			return fmt.Errorf("failed to create bundle: %w", err)
		}
	}
	if err := tw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	return out.Close()
}
