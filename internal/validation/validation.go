// Package validation checks command-line inputs before they reach the
// importer: paths, bundle entry names and the type of a source file.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// Limits on user-supplied names.
const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// headerProbe is how much of a source is read to detect its type.
	headerProbe = 512
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrTypeMismatch     = errors.New("file content does not match its name")
	ErrNotGEDCOM        = errors.New("file does not start with a GEDCOM header")
)

// ValidatePath rejects empty or overlong paths and paths holding null
// bytes or control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks a single path element, such as a bundle entry.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// SanitizeFilename turns free text into a usable filename: separators
// become underscores, control characters and leading hyphens go.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	filename = strings.NewReplacer("/", "_", "\\", "_").Replace(filename)

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// FileType is a kind of source file the command line accepts.
type FileType string

const (
	FileTypeGEDCOM  FileType = "gedcom"
	FileTypeGzip    FileType = "gzip"
	FileTypeXZ      FileType = "xz"
	FileTypeTarGZ   FileType = "tar.gz"
	FileTypeTarXZ   FileType = "tar.xz"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeXML     FileType = "xml"
	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// gedcomHeader matches the first line of a GEDCOM file, after an optional
// byte order mark.
var gedcomHeader = regexp.MustCompile(`^\x{FEFF}?\s*0\s+HEAD\b`)

// DetectSourceType reads the head of r and checks it against the type the
// filename suggests. Compressed files are accepted on their compression
// magic; the content inside is checked when it is imported.
func DetectSourceType(r io.Reader, filename string) (FileType, error) {
	buf := make([]byte, headerProbe)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFromMagic(buf)
	expected := detectFromExtension(filename)

	switch {
	case expected == FileTypeTarGZ && detected == FileTypeGzip,
		expected == FileTypeTarXZ && detected == FileTypeXZ:
		return expected, nil
	case detected == expected:
		return detected, nil
	case detected == FileTypeGEDCOM && expected == FileTypeUnknown:
		return FileTypeGEDCOM, nil
	case expected == FileTypeGEDCOM && detected == FileTypeUnknown:
		return FileTypeUnknown, ErrNotGEDCOM
	case expected == FileTypeXML && detected == FileTypeUnknown && isLikelyText(buf):
		return FileTypeXML, nil
	case detected != FileTypeUnknown && expected != FileTypeUnknown:
		return FileTypeUnknown, fmt.Errorf("%w: %s named as %s", ErrTypeMismatch, detected, expected)
	case detected == FileTypeUnknown:
		return expected, nil
	}
	return detected, nil
}

func detectFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	if gedcomHeader.Match(buf) {
		return FileTypeGEDCOM
	}
	return FileTypeUnknown
}

func detectFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"):
		return FileTypeTarXZ
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FileTypeTarGZ
	case strings.HasSuffix(lower, ".xz"):
		return FileTypeXZ
	case strings.HasSuffix(lower, ".gz"):
		return FileTypeGzip
	case strings.HasSuffix(lower, ".ged"):
		return FileTypeGEDCOM
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return FileTypeSQLite
	case strings.HasSuffix(lower, ".xml"):
		return FileTypeXML
	}
	return FileTypeUnknown
}

// isLikelyText reports whether more than 95% of buf is printable ASCII or
// common whitespace. Bytes of multi-byte UTF-8 sequences count for neither.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 || bytes.IndexByte(buf, 0) != -1 {
		return false
	}
	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b >= 0x20 && b <= 0x7e, b == '\t', b == '\n', b == '\r':
			printable++
		case b < 0x20:
			control++
		}
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
