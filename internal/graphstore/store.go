// Package graphstore persists named workflow graphs. Each graph is one YAML
// document on disk:
//
//	name: align-and-sort
//	created_at: 2024-05-01T10:00:00Z
//	graph:
//	  nodes: [...]
//	  edges: [...]
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/workflow"
	"gopkg.in/yaml.v3"
)

const ext = ".yaml"

// ErrNotFound is returned when no graph is stored under a name.
var ErrNotFound = errors.New("workflow not found")

// Record is a stored graph.
type Record struct {
	Name      string         `yaml:"name" json:"name"`
	CreatedAt time.Time      `yaml:"created_at" json:"created_at"`
	Graph     workflow.Graph `yaml:"graph" json:"graph"`
}

// Store persists graphs by unique name.
type Store interface {
	// Save creates or replaces the graph stored under name and reports
	// whether it was newly created.
	Save(ctx context.Context, name string, g workflow.Graph) (created bool, err error)
	Load(ctx context.Context, name string) (*Record, error)
	// List returns every stored graph, newest first.
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, name string) error
}

// FileStore is a Store backed by a directory of YAML documents.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewFileStore creates the store directory if needed and checks that it is
// writeable.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create graph store directory: %w", err)
	}

	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return nil, fmt.Errorf("graph store directory is not writeable: %w", err)
	}
	os.Remove(testFile)

	return &FileStore{dir: dir, now: time.Now}, nil
}

// Save implements Store. Replacing a graph keeps its original creation time.
func (s *FileStore) Save(ctx context.Context, name string, g workflow.Graph) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{Name: name, CreatedAt: s.now().UTC(), Graph: g}
	created := true
	if prev, err := readRecord(path); err == nil {
		rec.CreatedAt = prev.CreatedAt
		created = false
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to encode workflow %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return false, fmt.Errorf("failed to save workflow %q: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return false, fmt.Errorf("failed to save workflow %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("failed to save workflow %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("failed to save workflow %q: %w", name, err)
	}

	ctxlog.FromContext(ctx).Debug("Saved workflow.", "name", name, "created", created)
	return created, nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, name string) (*Record, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return readRecord(path)
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	logger := ctxlog.FromContext(ctx)
	records := make([]*Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, e.Name()))
		if err != nil {
			logger.Warn("Skipping unreadable workflow document.", "file", e.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].Name < records[j].Name
	})
	return records, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete workflow %q: %w", name, err)
	}
	ctxlog.FromContext(ctx).Debug("Deleted workflow.", "name", name)
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if !workflow.ValidName(name) {
		return "", fmt.Errorf("invalid workflow name %q", name)
	}
	return filepath.Join(s.dir, url.PathEscape(name)+ext), nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ext))
		}
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
