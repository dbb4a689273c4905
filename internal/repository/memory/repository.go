// Package memoryrepository is an in-process store used by tests and by
// deployments that run without Postgres.
package memoryrepository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tradedesk/internal/models"
)

type Store struct {
	mu           sync.RWMutex
	hidden       map[string]time.Time
	publications []models.Publication
	nextPubID    uint64
}

func New() *Store {
	return &Store{hidden: map[string]time.Time{}, nextPubID: 1}
}

func (s *Store) ListHiddenIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.hidden))
	for id := range s.hidden {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.hidden[ids[i]].Before(s.hidden[ids[j]]) })
	return ids, nil
}

func (s *Store) AddHiddenID(_ context.Context, id string, at time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hidden[id]; !ok {
		s.hidden[id] = at
	}
	return nil
}

func (s *Store) InsertPublication(_ context.Context, item *models.Publication) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextPubID
	s.nextPubID++
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.publications = append(s.publications, *item)
	return nil
}

func (s *Store) ListPublications(_ context.Context, limit int) ([]models.Publication, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Publication, 0, limit)
	for i := len(s.publications) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.publications[i])
	}
	return out, nil
}
