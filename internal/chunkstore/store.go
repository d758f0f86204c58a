package chunkstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// ErrStorageFull is returned by Create when the underlying filesystem is out
// of space.
var ErrStorageFull = errors.New("chunk storage full")

// ErrPermissionDenied is returned by Create when the chunk directory is not
// writable.
var ErrPermissionDenied = errors.New("chunk storage permission denied")

// Ref is an opaque handle to a stored chunk artifact. The zero Ref is valid
// and releases as a no-op.
type Ref struct {
	path string
}

func (r Ref) String() string { return r.path }

// Store keeps transient per-chunk audio artifacts on disk, namespaced by
// session id and chunk index. Artifacts never outlive the processing of the
// chunk they belong to; every Create is paired with exactly one effective
// Release by the caller.
type Store struct {
	dir string

	mu   sync.Mutex
	live map[string]struct{}
}

// ~/.cache/meetscribe/chunks
func DefaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "meetscribe", "chunks"), nil
}

// New creates a store rooted at the default chunk directory.
func New() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("resolve chunk dir: %w", err)
	}
	return NewAt(dir)
}

// NewAt creates a store rooted at dir, creating it if needed.
func NewAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", mapCreateError(err))
	}
	return &Store{
		dir:  dir,
		live: make(map[string]struct{}),
	}, nil
}

// Create writes data as a new chunk artifact and returns its handle.
func (s *Store) Create(sessionID string, index uint64, data []byte) (Ref, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%06d.raw", sessionID, index))

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Ref{}, fmt.Errorf("write chunk %d: %w", index, mapCreateError(err))
	}

	s.mu.Lock()
	s.live[path] = struct{}{}
	s.mu.Unlock()

	return Ref{path: path}, nil
}

// Read returns the bytes of a previously created artifact.
func (s *Store) Read(ref Ref) ([]byte, error) {
	if ref.path == "" {
		return nil, fmt.Errorf("read chunk: empty ref")
	}
	data, err := os.ReadFile(ref.path)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", filepath.Base(ref.path), err)
	}
	return data, nil
}

// Release deletes the artifact behind ref. Releasing the zero Ref, or a ref
// that was already released, is a no-op. Both the success path and every
// failure path of chunk processing call Release, and their ordering is not
// guaranteed.
func (s *Store) Release(ref Ref) {
	if ref.path == "" {
		return
	}

	s.mu.Lock()
	delete(s.live, ref.path)
	s.mu.Unlock()

	if err := os.Remove(ref.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("chunkstore: release %s: %v", filepath.Base(ref.path), err)
	}
}

// Outstanding reports how many artifacts have been created but not released.
func (s *Store) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func mapCreateError(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %v", ErrStorageFull, err)
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}
