package server

import (
	"sync"
	"time"
)

// Diagram is the latest state of one generated or edited chart.
type Diagram struct {
	ID              string    `json:"id"`
	Prompt          string    `json:"prompt,omitempty"`
	Code            string    `json:"code"`
	Explanation     string    `json:"explanation"`
	ExplanationHTML string    `json:"explanation_html"`
	SVG             string    `json:"svg"`
	RenderID        string    `json:"render_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// diagramStore keeps the most recent diagrams in memory. Once full, the
// oldest entry is dropped to make room.
type diagramStore struct {
	mu       sync.Mutex
	limit    int
	order    []string
	diagrams map[string]Diagram
}

func newStore(limit int) *diagramStore {
	if limit <= 0 {
		limit = DefaultStoreSize
	}
	return &diagramStore{limit: limit, diagrams: make(map[string]Diagram, limit)}
}

func (s *diagramStore) put(d Diagram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.diagrams[d.ID]; !ok {
		for len(s.order) >= s.limit {
			delete(s.diagrams, s.order[0])
			s.order = s.order[1:]
		}
		s.order = append(s.order, d.ID)
	}
	s.diagrams[d.ID] = d
}

func (s *diagramStore) get(id string) (Diagram, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.diagrams[id]
	return d, ok
}

func (s *diagramStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.diagrams)
}
