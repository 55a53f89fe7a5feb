// Package archive opens and creates GEDCOM files that may be compressed
// (.gz, .xz) or packed into a tar bundle (.tar.gz, .tar.xz) next to other
// export artifacts.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz"
)

// Compression names the stream compression of a file.
type Compression int

const (
	// None is an uncompressed file.
	None Compression = iota
	// Gzip is a gzip stream.
	Gzip
	// XZ is an xz stream.
	XZ
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case XZ:
		return "xz"
	default:
		return "none"
	}
}

// DetectCompression picks the compression from the file suffix.
func DetectCompression(p string) Compression {
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".xz"):
		return XZ
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip
	default:
		return None
	}
}

// IsBundle reports whether p names a compressed tar bundle.
func IsBundle(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tgz") ||
		strings.HasSuffix(lower, ".tar.xz")
}

// Stem returns the file name of p without directory or compression
// suffixes: "trees/smith.ged.xz" gives "smith.ged".
func Stem(p string) string {
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	lower := strings.ToLower(name)
	for _, suffix := range []string{".tar.gz", ".tar.xz", ".tgz", ".gz", ".xz"} {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// decompress wraps r according to c. The returned closer is nil when the
// decompressor holds nothing to release.
func decompress(r io.Reader, c Compression) (io.Reader, io.Closer, error) {
	switch c {
	case XZ:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xzr, nil, nil
	case Gzip:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gzr, gzr, nil
	default:
		return r, nil, nil
	}
}

// source is a decompressed stream over an open file.
type source struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
}

func (s *source) Close() error {
	var errs []error
	if s.decompressor != nil {
		if err := s.decompressor.Close(); err != nil {
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

// OpenSource opens a GEDCOM file for reading. Compressed files are
// decompressed on the fly; for a bundle the first .ged entry is returned.
func OpenSource(p string) (io.ReadCloser, error) {
	if IsBundle(p) {
		return openBundleEntry(p, func(name string) bool {
			return strings.EqualFold(path.Ext(name), ".ged")
		})
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	r, closer, err := decompress(f, DetectCompression(p))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &source{Reader: r, file: f, decompressor: closer}, nil
}

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	src *source
}

// NewReader opens a .tar.gz or .tar.xz bundle.
func NewReader(p string) (*Reader, error) {
	if !IsBundle(p) {
		return nil, fmt.Errorf("unsupported bundle format: %s", p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	r, closer, err := decompress(f, DetectCompression(p))
	if err != nil {
		f.Close()
		return nil, err
	}
	src := &source{Reader: r, file: f, decompressor: closer}
	return &Reader{Reader: tar.NewReader(src), src: src}, nil
}

// Close closes the bundle and any underlying decompressor.
func (r *Reader) Close() error {
	return r.src.Close()
}

// Visitor is called for each bundle entry.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the bundle, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// ReadFile reads one entry from the bundle by name.
func ReadFile(bundlePath, filename string) ([]byte, error) {
	rc, err := openBundleEntry(bundlePath, func(name string) bool {
		return name == filename || path.Base(name) == filename
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// entry streams one bundle entry and closes the bundle with it.
type entry struct {
	io.Reader
	bundle *Reader
}

func (e *entry) Close() error { return e.bundle.Close() }

func openBundleEntry(p string, match func(name string) bool) (io.ReadCloser, error) {
	r, err := NewReader(p)
	if err != nil {
		return nil, err
	}
	var found bool
	err = r.Iterate(func(header *tar.Header, _ io.Reader) (bool, error) {
		found = header.Typeflag == tar.TypeReg && match(header.Name)
		return found, nil
	})
	if err != nil {
		r.Close()
		return nil, err
	}
	if !found {
		r.Close()
		return nil, fmt.Errorf("no matching entry in %s", p)
	}
	return &entry{Reader: r.Reader, bundle: r}, nil
}
