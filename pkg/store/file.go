package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// FileStore keeps each version as a JSON file:
//
//	<dir>/<project>/<version>.json
//
// Project IDs are used as directory names and must be validated by the
// caller (see errors.ValidateProjectID).
type FileStore struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time
}

// NewFileStore creates a file store rooted at dir.
// If dir is empty, defaults to ~/.local/share/diagram/projects/.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "diagram", "projects")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Path returns the root directory of the store.
func (s *FileStore) Path() string { return s.dir }

func (s *FileStore) Put(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(projectID)
	if err != nil {
		return Version{}, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	rec := newRecord(projectID, next, doc, s.now())
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Version{}, fmt.Errorf("marshal record: %w", err)
	}
	if err := os.MkdirAll(s.projectDir(projectID), 0755); err != nil {
		return Version{}, fmt.Errorf("create project dir: %w", err)
	}

	// Write to a temp file first so readers never see a partial version.
	path := s.versionPath(projectID, next)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return Version{}, fmt.Errorf("write version file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Version{}, fmt.Errorf("commit version file: %w", err)
	}
	return rec.Version, nil
}

func (s *FileStore) Current(ctx context.Context, projectID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.versions(projectID)
	if err != nil {
		return Record{}, err
	}
	if len(versions) == 0 {
		return Record{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return s.read(projectID, versions[len(versions)-1])
}

func (s *FileStore) Get(ctx context.Context, projectID string, version int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(projectID, version)
}

func (s *FileStore) List(ctx context.Context, projectID string) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.versions(projectID)
	if err != nil {
		return nil, err
	}
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		rec, err := s.read(projectID, v)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.Version)
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) projectDir(projectID string) string {
	return filepath.Join(s.dir, projectID)
}

func (s *FileStore) versionPath(projectID string, version int) string {
	return filepath.Join(s.projectDir(projectID), strconv.Itoa(version)+".json")
}

func (s *FileStore) read(projectID string, version int) (Record, error) {
	data, err := os.ReadFile(s.versionPath(projectID, version))
	if os.IsNotExist(err) {
		return Record{}, fmt.Errorf("project %s version %d: %w", projectID, version, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read version file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse version %d: %w", version, err)
	}
	return rec, nil
}

// versions returns the saved version numbers of a project in ascending order.
func (s *FileStore) versions(projectID string) ([]int, error) {
	entries, err := os.ReadDir(s.projectDir(projectID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project dir: %w", err)
	}
	var out []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		if n, err := strconv.Atoi(name); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out, nil
}

var _ Store = (*FileStore)(nil)
