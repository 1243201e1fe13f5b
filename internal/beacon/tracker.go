package beacon

import "sync"

// ObservationState remembers the last sequence number seen per device address.
// It lives as long as the process and is never persisted.
type ObservationState struct {
	mu   sync.Mutex
	last map[string]uint8
}

func NewObservationState() *ObservationState {
	return &ObservationState{last: make(map[string]uint8)}
}

// IsNovel reports whether seq differs from the last value recorded for
// address, recording it if so. Only an exact repeat of the previous value is
// suppressed: a lower or wrapped seq is still novel.
func (s *ObservationState) IsNovel(address string, seq uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[address]; ok && last == seq {
		return false
	}
	s.last[address] = seq
	return true
}

// Last returns the recorded sequence for address.
func (s *ObservationState) Last(address string) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.last[address]
	return seq, ok
}

// Len is the number of devices seen so far.
func (s *ObservationState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}
