package service

import "sync"

// Sessions tracks the federation sessions this domain currently owns.
// A domain with live sessions must not unregister.
type Sessions struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSessions() *Sessions {
	return &Sessions{ids: make(map[string]struct{})}
}

func (s *Sessions) Add(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[serviceID] = struct{}{}
}

func (s *Sessions) Remove(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, serviceID)
}

func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// List returns the session ids in no particular order.
func (s *Sessions) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
