// Package memory provides an in-memory record store used in tests and for
// local runs without an external backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/grupovip/gatekeeper/pkg/records"
)

// Store is an in-memory implementation of records.StoreInterface
type Store struct {
	mutex   sync.RWMutex
	clients map[int64]*records.Record
}

// NewStore creates a new in-memory record store
func NewStore() *Store {
	return &Store{
		clients: make(map[int64]*records.Record),
	}
}

// Put inserts or replaces a record
func (s *Store) Put(rec *records.Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.clients[rec.ID] = clone(rec)
}

// Get fetches a record by id
func (s *Store) Get(ctx context.Context, id int64) (*records.Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rec, exists := s.clients[id]
	if !exists {
		return nil, records.ErrNotFound
	}
	return clone(rec), nil
}

// ListExpiredConnected returns every connected record whose subscription has
// ended on or before asOf
func (s *Store) ListExpiredConnected(ctx context.Context, asOf records.Date) ([]*records.Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*records.Record
	for _, rec := range s.clients {
		if rec.Connected && rec.Expired(asOf) {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// Update applies a partial field patch to the record with the given id
func (s *Store) Update(ctx context.Context, id int64, patch records.Patch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, exists := s.clients[id]
	if !exists {
		return records.ErrNotFound
	}

	for field, value := range patch {
		switch field {
		case records.FieldEntitlements:
			if v, ok := value.([]string); ok {
				rec.Entitlements = append([]string(nil), v...)
			}
		case records.FieldTelegramUserID:
			if v, ok := value.(int64); ok {
				rec.TelegramUserID = &v
			}
		case records.FieldTelegramUsername:
			if v, ok := value.(string); ok {
				rec.TelegramUsername = v
			}
		case records.FieldTelegramFirstName:
			if v, ok := value.(string); ok {
				rec.TelegramFirstName = v
			}
		case records.FieldConnected:
			if v, ok := value.(bool); ok {
				rec.Connected = v
			}
		case records.FieldLastSync:
			if v, ok := value.(time.Time); ok {
				rec.LastSync = &v
			}
		case records.FieldRemovedAt:
			if v, ok := value.(time.Time); ok {
				rec.RemovedAt = &v
			}
		}
	}

	return nil
}

// clone copies a record so callers never share references with the store
func clone(rec *records.Record) *records.Record {
	out := *rec
	out.Entitlements = append([]string(nil), rec.Entitlements...)
	if rec.TelegramUserID != nil {
		id := *rec.TelegramUserID
		out.TelegramUserID = &id
	}
	if rec.LastSync != nil {
		t := *rec.LastSync
		out.LastSync = &t
	}
	if rec.RemovedAt != nil {
		t := *rec.RemovedAt
		out.RemovedAt = &t
	}
	return &out
}
