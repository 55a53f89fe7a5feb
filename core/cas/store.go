// Package cas provides content-addressed storage for original GEDCOM files.
// Blobs are keyed by the BLAKE3 hash of their bytes and kept xz-compressed,
// so an archived file can be verified and re-imported byte for byte.
package cas

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when a blob with the given hash does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a hash string is not a valid BLAKE3 hex string.
var ErrInvalidHash = errors.New("invalid hash format")

// ErrCorrupt is returned when a stored blob no longer matches its hash.
var ErrCorrupt = errors.New("blob does not match its hash")

// hashPattern matches a lowercase 256-bit hex digest (64 characters).
var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

const (
	blobSuffix = ".xz"
	indexName  = "index.json"
)

// Entry records one named blob in the store index.
type Entry struct {
	Hash     string    `json:"blake3"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// Store is a directory of BLAKE3-addressed blobs.
type Store struct {
	root string
	mu   sync.Mutex // guards the index file
}

// NewStore creates a new content-addressed store at the given root directory.
// The directory structure will be created if it doesn't exist.
func NewStore(root string) (*Store, error) {
	blobDir := filepath.Join(root, "blobs", "blake3")
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// Store stores the given data and returns its BLAKE3 hash.
// If the blob already exists (same hash), this is a no-op and returns the hash.
func (s *Store) Store(data []byte) (string, error) {
	hash := Blake3Hash(data)

	blobPath := s.pathForHash(hash)
	if _, err := os.Stat(blobPath); err == nil {
		return hash, nil
	}

	prefixDir := filepath.Dir(blobPath)
	if err := os.MkdirAll(prefixDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create prefix directory: %w", err)
	}

	var compressed bytes.Buffer
	xw, err := xz.NewWriter(&compressed)
	if err != nil {
		return "", fmt.Errorf("failed to compress blob: %w", err)
	}
	if _, err := xw.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress blob: %w", err)
	}
	if err := xw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress blob: %w", err)
	}

	if err := writeAtomic(prefixDir, blobPath, compressed.Bytes()); err != nil {
		return "", err
	}
	return hash, nil
}

// writeAtomic writes data to a temp file in dir and renames it to dst.
func writeAtomic(dir, dst string, data []byte) error {
	tempFile, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := osRename(tempPath, dst); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename blob: %w", err)
	}
	return nil
}

// StoreNamed stores data and records it in the index under name.
func (s *Store) StoreNamed(name string, data []byte) (Entry, error) {
	hash, err := s.Store(data)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Hash: hash, Name: name, Size: int64(len(data)), StoredAt: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readIndex()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Hash == hash && e.Name == name {
			return e, nil
		}
	}
	entries = append(entries, entry)
	encoded, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode index: %w", err)
	}
	if err := writeAtomic(s.root, filepath.Join(s.root, indexName), encoded); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Entries lists the named blobs, oldest first.
func (s *Store) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].StoredAt.Before(entries[j].StoredAt) })
	return entries, nil
}

func (s *Store) readIndex() ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.root, indexName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return entries, nil
}

// Retrieve retrieves the blob with the given BLAKE3 hash.
// Returns ErrBlobNotFound if the blob does not exist, ErrInvalidHash if the
// hash format is invalid and ErrCorrupt if the content no longer matches.
func (s *Store) Retrieve(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, ErrInvalidHash
	}

	f, err := os.Open(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	data, err := io.ReadAll(xr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if Blake3Hash(data) != hash {
		return nil, ErrCorrupt
	}
	return data, nil
}

// Exists checks if a blob with the given hash exists in the store.
func (s *Store) Exists(hash string) bool {
	if !isValidHash(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// pathForHash returns the file path for a blob with the given hash.
// Blobs are stored at: <root>/blobs/blake3/<first2>/<hash>.xz
func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "blake3", hash[:2], hash+blobSuffix)
}

// isValidHash checks if a hash string is a valid BLAKE3 hex string.
func isValidHash(hash string) bool {
	return hashPattern.MatchString(hash)
}

// Blake3Hash computes the BLAKE3 hash of the given data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
