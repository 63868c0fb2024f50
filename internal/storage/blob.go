// Package storage implements the blob store: document bytes under a
// configured root directory, one directory per document.
package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// BlobStore reads, writes and deletes document files under a root directory.
// There is no deduplication, hashing or integrity verification; a missing
// file on read must be treated as not-found by callers even when the
// document row still exists.
type BlobStore struct {
	root string
}

// NewBlobStore returns a BlobStore rooted at the given directory.
func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: root}
}

// Root returns the configured root directory.
func (s *BlobStore) Root() string {
	return s.root
}

// EnsureRoot creates the root directory if it does not exist.
func (s *BlobStore) EnsureRoot() error {
	return os.MkdirAll(s.root, 0o755)
}

// SanitizeFilename replaces path separators so a display filename cannot
// escape its document directory.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, "\\", "_")
}

// RelPath builds the stable relative path for a document's bytes:
// <document_id>/<sanitized_name>.
func RelPath(documentID, filename string) string {
	return documentID + "/" + SanitizeFilename(filename)
}

// Write stores the full payload at the given relative path, creating parent
// directories as needed.
func (s *BlobStore) Write(relPath string, data []byte) error {
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, data, 0o644)
}

// Read returns the full payload at the given relative path.
func (s *BlobStore) Read(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
}

// Remove deletes the file at the given relative path. Removing a missing
// file is not an error.
func (s *BlobStore) Remove(relPath string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
