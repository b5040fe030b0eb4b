// Package memory provides an in-process crawler.RunStore. It backs the HTTP
// surface; run bookkeeping does not need to survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediapulse/article-crawler/internal/crawler"
)

// RunStore keeps runs in a mutex-guarded map.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]crawler.Run
}

// NewRunStore creates an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]crawler.Run)}
}

// CreateRun registers a new run. The id must be unused.
func (s *RunStore) CreateRun(_ context.Context, run crawler.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateRun replaces an existing run record.
func (s *RunStore) UpdateRun(_ context.Context, run crawler.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		return fmt.Errorf("run %s not found", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// GetRun returns a copy of the run with the given id.
func (s *RunStore) GetRun(_ context.Context, id string) (crawler.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[id]
	if !exists {
		return crawler.Run{}, fmt.Errorf("run %s not found", id)
	}
	run.ArticleIDs = append([]int64(nil), run.ArticleIDs...)
	return run, nil
}
