// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results holds the in-memory responses of a run while workers
// write them concurrently.
//
// Every mutation is a read-modify-write of the current per-paper slice
// under the store lock. Readers receive deep copies, so a snapshot never
// aliases state that a worker may still append to.
package results

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

var (
	// ErrUnknownPaper is returned when appending to a paper the store was
	// not seeded with.
	ErrUnknownPaper = errors.New("unknown paper")

	// ErrDuplicateResponse is returned when an agent already answered the paper.
	ErrDuplicateResponse = errors.New("duplicate response")
)

type entry struct {
	paper  types.Paper
	agents map[string]struct{}
}

// Store maps paper identity to the responses collected for it.
type Store struct {
	mu     sync.RWMutex
	order  []int64
	papers map[int64]*entry
	models []string
	seen   map[string]struct{}
}

// New seeds a store with papers in the given order. Responses already
// present on the papers are kept; a paper listed twice is stored once.
func New(papers []types.Paper) *Store {
	s := &Store{
		papers: make(map[int64]*entry, len(papers)),
		seen:   make(map[string]struct{}),
	}
	for _, p := range papers {
		if _, ok := s.papers[p.ID]; ok {
			continue
		}
		e := &entry{agents: make(map[string]struct{})}
		e.paper = p.Clone()
		e.paper.Responses = e.paper.Responses[:0:0]
		for _, r := range p.Responses {
			if _, dup := e.agents[r.ModelName]; dup {
				continue
			}
			e.agents[r.ModelName] = struct{}{}
			e.paper.Responses = append(e.paper.Responses, r)
			s.noteModel(r.ModelName)
		}
		s.papers[p.ID] = e
		s.order = append(s.order, p.ID)
	}
	return s
}

// Append records r for the paper. It fails if the paper is unknown or the
// agent already has a response for it.
func (s *Store) Append(paperID int64, r types.ModelResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.papers[paperID]
	if !ok {
		return fmt.Errorf("paper %d: %w", paperID, ErrUnknownPaper)
	}
	if _, dup := e.agents[r.ModelName]; dup {
		return fmt.Errorf("paper %d, model %s: %w", paperID, r.ModelName, ErrDuplicateResponse)
	}
	e.agents[r.ModelName] = struct{}{}
	e.paper.Responses = append(e.paper.Responses, r)
	s.noteModel(r.ModelName)
	return nil
}

// noteModel tracks agent names in order of first arrival. Callers hold mu.
func (s *Store) noteModel(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.models = append(s.models, name)
}

// Get returns a copy of one paper.
func (s *Store) Get(paperID int64) (types.Paper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.papers[paperID]
	if !ok {
		return types.Paper{}, false
	}
	return e.paper.Clone(), true
}

// Snapshot returns a point-in-time copy of every paper in seed order.
func (s *Store) Snapshot() []types.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Paper, len(s.order))
	for i, id := range s.order {
		out[i] = s.papers[id].paper.Clone()
	}
	return out
}

// Models returns the distinct agents that have responded so far, in order
// of first response.
func (s *Store) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.models))
	copy(out, s.models)
	return out
}

// Len returns the number of papers in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Responses returns the total number of responses recorded.
func (s *Store) Responses() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.papers {
		n += len(e.paper.Responses)
	}
	return n
}
