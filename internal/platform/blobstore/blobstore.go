// Package blobstore provides file storage for the data platform. Raw uploads,
// normalized output, and export bundles live in separate tiers. It defines the
// Store interface, a filesystem implementation, and an in-memory
// implementation suitable for testing.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrMissingFileName = errors.New("file name is required")
)

// Tier names the storage areas files move through during processing.
type Tier string

const (
	TierUpload     Tier = "uploads"
	TierNormalized Tier = "normalized"
	TierExport     Tier = "exports"
)

// FileInfo describes a stored file.
type FileInfo struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Tier      Tier      `json:"tier"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the contract for file storage backends.
type Store interface {
	Save(ctx context.Context, tier Tier, fileName string, content io.Reader) (*FileInfo, error)
	Open(ctx context.Context, tier Tier, id string) (io.ReadCloser, *FileInfo, error)
	Delete(ctx context.Context, tier Tier, id string) error
	Stat(ctx context.Context, tier Tier, id string) (*FileInfo, error)
}

// ---------------------------------------------------------------------------
// Filesystem implementation
// ---------------------------------------------------------------------------

// FSStore stores files on the local filesystem under a base directory, one
// subdirectory per tier. File identity is a generated UUID; the original file
// name is preserved as a suffix for operator convenience.
type FSStore struct {
	base    string
	maxSize int64
}

// NewFSStore creates the tier directories under base and returns a ready
// store. maxSize caps individual file sizes in bytes.
func NewFSStore(base string, maxSize int64) (*FSStore, error) {
	for _, tier := range []Tier{TierUpload, TierNormalized, TierExport} {
		if err := os.MkdirAll(filepath.Join(base, string(tier)), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", tier, err)
		}
	}
	return &FSStore{base: base, maxSize: maxSize}, nil
}

func (s *FSStore) path(tier Tier, id, fileName string) string {
	name := id
	if fileName != "" {
		name = id + "_" + filepath.Base(fileName)
	}
	return filepath.Join(s.base, string(tier), name)
}

// Save writes content to the tier directory, enforcing the size cap and
// computing a SHA-256 content hash.
func (s *FSStore) Save(_ context.Context, tier Tier, fileName string, content io.Reader) (*FileInfo, error) {
	if fileName == "" {
		return nil, ErrMissingFileName
	}

	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	id := uuid.New().String()
	if err := os.WriteFile(s.path(tier, id, fileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	h := sha256.Sum256(data)
	return &FileInfo{
		ID:        id,
		FileName:  fileName,
		Tier:      tier,
		Size:      int64(len(data)),
		Hash:      fmt.Sprintf("%x", h),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// find locates the stored file for an id within a tier.
func (s *FSStore) find(tier Tier, id string) (string, os.FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.base, string(tier), id+"*"))
	if err != nil || len(matches) == 0 {
		return "", nil, ErrFileNotFound
	}
	st, err := os.Stat(matches[0])
	if err != nil {
		return "", nil, ErrFileNotFound
	}
	return matches[0], st, nil
}

// Open returns a reader over the file content and its metadata.
func (s *FSStore) Open(_ context.Context, tier Tier, id string) (io.ReadCloser, *FileInfo, error) {
	path, st, err := s.find(tier, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return f, fileInfoFromStat(tier, id, st), nil
}

// Delete removes a stored file.
func (s *FSStore) Delete(_ context.Context, tier Tier, id string) error {
	path, _, err := s.find(tier, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Stat returns metadata without opening the file.
func (s *FSStore) Stat(_ context.Context, tier Tier, id string) (*FileInfo, error) {
	_, st, err := s.find(tier, id)
	if err != nil {
		return nil, err
	}
	return fileInfoFromStat(tier, id, st), nil
}

func fileInfoFromStat(tier Tier, id string, st os.FileInfo) *FileInfo {
	name := st.Name()
	if len(name) > len(id)+1 {
		name = name[len(id)+1:]
	}
	return &FileInfo{
		ID:        id,
		FileName:  name,
		Tier:      tier,
		Size:      st.Size(),
		CreatedAt: st.ModTime().UTC(),
	}
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedFile struct {
	info    FileInfo
	content []byte
}

// InMemoryStore is a thread-safe, in-memory Store for testing.
type InMemoryStore struct {
	mu      sync.RWMutex
	files   map[string]*storedFile // keyed by tier/id
	maxSize int64
}

// NewInMemoryStore returns a ready-to-use InMemoryStore with the given size
// cap in bytes.
func NewInMemoryStore(maxSize int64) *InMemoryStore {
	return &InMemoryStore{
		files:   make(map[string]*storedFile),
		maxSize: maxSize,
	}
}

func memKey(tier Tier, id string) string {
	return string(tier) + "/" + id
}

func (s *InMemoryStore) Save(_ context.Context, tier Tier, fileName string, content io.Reader) (*FileInfo, error) {
	if fileName == "" {
		return nil, ErrMissingFileName
	}

	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	info := FileInfo{
		ID:        uuid.New().String(),
		FileName:  fileName,
		Tier:      tier,
		Size:      int64(len(data)),
		Hash:      fmt.Sprintf("%x", h),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.files[memKey(tier, info.ID)] = &storedFile{info: info, content: data}
	s.mu.Unlock()

	out := info // copy
	return &out, nil
}

func (s *InMemoryStore) Open(_ context.Context, tier Tier, id string) (io.ReadCloser, *FileInfo, error) {
	s.mu.RLock()
	f, ok := s.files[memKey(tier, id)]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrFileNotFound
	}
	info := f.info // copy
	return io.NopCloser(bytes.NewReader(f.content)), &info, nil
}

func (s *InMemoryStore) Delete(_ context.Context, tier Tier, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(tier, id)
	if _, ok := s.files[key]; !ok {
		return ErrFileNotFound
	}
	delete(s.files, key)
	return nil
}

func (s *InMemoryStore) Stat(_ context.Context, tier Tier, id string) (*FileInfo, error) {
	s.mu.RLock()
	f, ok := s.files[memKey(tier, id)]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrFileNotFound
	}
	info := f.info // copy
	return &info, nil
}
