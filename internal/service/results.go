package service

import (
	"sync"

	"github.com/setforge/setforge/internal/domain"
)

type resultEntry struct {
	item domain.ProcessedItem
	gen  uint64
}

// ResultStore holds per-source detection outcomes keyed by queue id, in
// first-seen order. Each entry carries a generation counter so a late-arriving
// response cannot clobber an entry the user has since removed or retried:
// writers apply by id and generation, never by position.
type ResultStore struct {
	mu    sync.Mutex
	order []string
	items map[string]*resultEntry
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{items: make(map[string]*resultEntry)}
}

// MarkPending records a pending entry for the queue id, replacing any prior
// outcome, and returns the generation a subsequent Apply must present.
func (s *ResultStore) MarkPending(queueID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[queueID]
	if !ok {
		e = &resultEntry{}
		s.items[queueID] = e
		s.order = append(s.order, queueID)
	}
	e.gen++
	e.item = domain.ProcessedItem{QueueID: queueID, Status: domain.ProcessedPending}
	return e.gen
}

// Apply records the outcome for a queue id, but only if the entry still exists
// and its generation matches the one handed out by MarkPending. Returns
// whether the item was applied.
func (s *ResultStore) Apply(queueID string, gen uint64, item domain.ProcessedItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[queueID]
	if !ok || e.gen != gen {
		return false
	}
	item.QueueID = queueID
	e.item = item
	return true
}

// Replace discards the entire contents of the store and installs the given
// items in order.
func (s *ResultStore) Replace(items []domain.ProcessedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.items = make(map[string]*resultEntry, len(items))
	for _, item := range items {
		if _, ok := s.items[item.QueueID]; ok {
			continue
		}
		s.items[item.QueueID] = &resultEntry{item: item, gen: 1}
		s.order = append(s.order, item.QueueID)
	}
}

// Remove deletes one entry. Unknown ids are a no-op.
func (s *ResultStore) Remove(queueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[queueID]; !ok {
		return
	}
	delete(s.items, queueID)
	for i, id := range s.order {
		if id == queueID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// RemoveIf deletes an entry only when its generation still matches, so
// cleaning up after a failed attempt cannot discard a newer outcome.
func (s *ResultStore) RemoveIf(queueID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[queueID]
	if !ok || e.gen != gen {
		return
	}
	delete(s.items, queueID)
	for i, id := range s.order {
		if id == queueID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns the outcome for a queue id.
func (s *ResultStore) Get(queueID string) (domain.ProcessedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[queueID]
	if !ok {
		return domain.ProcessedItem{}, false
	}
	return e.item, true
}

// Items returns all outcomes in first-seen order.
func (s *ResultStore) Items() []domain.ProcessedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProcessedItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].item)
	}
	return out
}
