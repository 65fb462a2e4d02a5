package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/moby/sys/atomicwriter"
)

// FileStore keeps each document in <dir>/<name>.json. Writes for one
// document are serialized and land atomically through a temp file rename,
// so readers never observe a partial document.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[Document]*sync.RWMutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{dir: dir, locks: make(map[Document]*sync.RWMutex)}, nil
}

func (s *FileStore) Name() string { return "file" }

// Path returns the file backing doc.
func (s *FileStore) Path(doc Document) string {
	return filepath.Join(s.dir, string(doc)+".json")
}

func (s *FileStore) lock(doc Document) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[doc]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[doc] = l
	}
	return l
}

func (s *FileStore) Load(_ context.Context, doc Document) ([]byte, error) {
	l := s.lock(doc)
	l.RLock()
	defer l.RUnlock()

	body, err := os.ReadFile(s.Path(doc))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return body, err
}

func (s *FileStore) Save(_ context.Context, doc Document, body []byte) error {
	l := s.lock(doc)
	l.Lock()
	defer l.Unlock()
	return atomicwriter.WriteFile(s.Path(doc), body, 0o600)
}
