package seen

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const DefaultCapacity = 100

const defaultFileMode os.FileMode = 0644

// Store is an insertion-ordered set of submitted identities backed by a
// plain-text file with one identity per line, oldest first.
type Store struct {
	path     string
	capacity int

	mu    sync.RWMutex
	items []string
	index map[string]struct{}
}

func NewStore(path string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		path:     path,
		capacity: capacity,
		index:    make(map[string]struct{}),
	}
}

// Load reads the store at path. A missing file yields an empty store.
func Load(path string, capacity int) (*Store, error) {
	s := NewStore(path, capacity)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to open seen file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		if _, exists := s.index[id]; exists {
			continue
		}
		s.items = append(s.items, id)
		s.index[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seen file: %w", err)
	}

	s.trim()

	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.index[id]
	return exists
}

// MarkAndPersist records id as the newest identity and rewrites the file.
// The in-memory mark is kept even when the write fails.
func (s *Store) MarkAndPersist(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[id]; exists {
		s.items = slices.DeleteFunc(s.items, func(item string) bool { return item == id })
	}
	s.items = append(s.items, id)
	s.index[id] = struct{}{}
	s.trim()

	return s.write()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Items returns a copy of the identities, oldest first
func (s *Store) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.items)
}

func (s *Store) trim() {
	if len(s.items) <= s.capacity {
		return
	}

	evicted := len(s.items) - s.capacity
	for _, id := range s.items[:evicted] {
		delete(s.index, id)
	}
	s.items = slices.Clone(s.items[evicted:])
}

// fileMode keeps the permissions of an existing seen file across rewrites
func (s *Store) fileMode() os.FileMode {
	if info, err := os.Stat(s.path); err == nil {
		return info.Mode().Perm()
	}
	return defaultFileMode
}

func (s *Store) write() error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp seen file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(s.fileMode()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set seen file mode: %w", err)
	}

	w := bufio.NewWriter(tmp)
	for _, id := range s.items {
		w.WriteString(id)
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write seen file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync seen file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close seen file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace seen file: %w", err)
	}

	return nil
}
