package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// FileStore keeps image files under dir, named by the sha256 of their
// contents: files/ab/ab12...ef.jpg.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// StoredFile describes a file written by Put.
type StoredFile struct {
	RelPath  string
	Checksum string
	MimeType string
	Size     int
}

// Put writes data unless a file with the same contents already exists.
func (f *FileStore) Put(data []byte) (*StoredFile, error) {
	mime := artwork.DetectMimeType(data)
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	rel := filepath.Join("files", checksum[:2], checksum+artwork.GetExtensionForMime(mime))
	stored := &StoredFile{
		RelPath:  rel,
		Checksum: checksum,
		MimeType: mime,
		Size:     len(data),
	}

	abs := f.Path(rel)
	if _, err := os.Stat(abs); err == nil {
		return stored, nil
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("failed to create art directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".put-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create art file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write art file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write art file: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to move art file: %w", err)
	}
	return stored, nil
}

// Path returns the absolute path of a stored file.
func (f *FileStore) Path(rel string) string {
	return filepath.Join(f.dir, rel)
}

// Remove deletes a stored file. A missing file is not an error.
func (f *FileStore) Remove(rel string) error {
	if err := os.Remove(f.Path(rel)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
