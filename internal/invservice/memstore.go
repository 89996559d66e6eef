package invservice

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gravitas-games/farmsync/pkg/models"
)

// MemStore is an in-memory RecordStore used by tests and by the
// server's --memory mode. Same semantics as the Redis store.
type MemStore struct {
	mu      sync.Mutex
	records map[string]models.Record
	nextID  int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]models.Record)}
}

// ListByOwner returns every record owned by the user.
func (s *MemStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Record
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one record by id.
func (s *MemStore) Get(ctx context.Context, id string) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	return rec, nil
}

// Insert stores a new record.
func (s *MemStore) Insert(ctx context.Context, rec models.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotTaken(s.all(), rec, "") {
		return "", ErrSlotOccupied
	}
	s.nextID++
	rec.ID = fmt.Sprintf("r%06d", s.nextID)
	s.records[rec.ID] = rec
	return rec.ID, nil
}

// Update rewrites an existing record.
func (s *MemStore) Update(ctx context.Context, id string, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	if slotTaken(s.all(), rec, id) {
		return ErrSlotOccupied
	}
	rec.ID = id
	s.records[id] = rec
	return nil
}

// Delete removes a record.
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// all returns the records as a slice. Caller must hold s.mu.
func (s *MemStore) all() []models.Record {
	out := make([]models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}
