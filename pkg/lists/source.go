package lists

import (
	"context"
	"os"
	"sync"
	"time"
)

// Source answers list-membership questions for the URL pipeline.
type Source interface {
	// MatchURL resolves the label of an exactly listed URL.
	MatchURL(ctx context.Context, u string) (Label, bool, error)
	// MatchHost resolves the label of the closest listed host match,
	// with the matched entry for the explanation.
	MatchHost(ctx context.Context, host string) (Label, string, bool, error)
}

// FileSource serves lists from CSV files, re-reading them when their
// modification time changes so edits are picked up without a restart.
type FileSource struct {
	phishPath string
	legitPath string
	hostPath  string
	urlCol    string

	mu       sync.RWMutex
	lists    *Lists
	phishMod time.Time
	legitMod time.Time
	hostMod  time.Time
	loadedAt time.Time
}

// NewFileSource builds a file-backed source over the known-phishing
// URL CSV, the known-legitimate URL CSV and the host,label CSV. Any
// path may be empty when that list kind is not configured.
func NewFileSource(phishPath, legitPath, hostPath, urlCol string) *FileSource {
	return &FileSource{
		phishPath: phishPath,
		legitPath: legitPath,
		hostPath:  hostPath,
		urlCol:    urlCol,
		lists:     NewLists(),
	}
}

// MatchURL implements Source.
func (s *FileSource) MatchURL(_ context.Context, u string) (Label, bool, error) {
	lists, err := s.current()
	if err != nil {
		return "", false, err
	}
	label, ok := lists.MatchURL(u)
	return label, ok, nil
}

// MatchHost implements Source.
func (s *FileSource) MatchHost(_ context.Context, host string) (Label, string, bool, error) {
	lists, err := s.current()
	if err != nil {
		return "", "", false, err
	}
	label, matched, ok := lists.MatchHost(host)
	return label, matched, ok, nil
}

func (s *FileSource) current() (*Lists, error) {
	phishMod := modTime(s.phishPath)
	legitMod := modTime(s.legitPath)
	hostMod := modTime(s.hostPath)

	s.mu.RLock()
	fresh := !s.loadedAt.IsZero() && phishMod.Equal(s.phishMod) &&
		legitMod.Equal(s.legitMod) && hostMod.Equal(s.hostMod)
	lists := s.lists
	s.mu.RUnlock()
	if fresh {
		return lists, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loadedAt.IsZero() && phishMod.Equal(s.phishMod) &&
		legitMod.Equal(s.legitMod) && hostMod.Equal(s.hostMod) {
		return s.lists, nil
	}

	loaded := NewLists()
	if s.phishPath != "" {
		if err := LoadURLCSV(s.phishPath, s.urlCol, Phish, loaded); err != nil {
			return nil, err
		}
	}
	if s.legitPath != "" {
		if err := LoadURLCSV(s.legitPath, s.urlCol, Legit, loaded); err != nil {
			return nil, err
		}
	}
	if s.hostPath != "" {
		if err := LoadHostCSV(s.hostPath, loaded); err != nil {
			return nil, err
		}
	}

	s.lists = loaded
	s.phishMod = phishMod
	s.legitMod = legitMod
	s.hostMod = hostMod
	s.loadedAt = time.Now()
	return s.lists, nil
}

func modTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// StaticSource serves a fixed in-memory list set. Used in tests and
// for lists supplied programmatically.
type StaticSource struct {
	Lists *Lists
}

// MatchURL implements Source.
func (s *StaticSource) MatchURL(_ context.Context, u string) (Label, bool, error) {
	label, ok := s.Lists.MatchURL(u)
	return label, ok, nil
}

// MatchHost implements Source.
func (s *StaticSource) MatchHost(_ context.Context, host string) (Label, string, bool, error) {
	label, matched, ok := s.Lists.MatchHost(host)
	return label, matched, ok, nil
}

var _ Source = (*FileSource)(nil)
var _ Source = (*StaticSource)(nil)
