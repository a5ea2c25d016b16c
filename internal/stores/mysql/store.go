// Package mysql implements the record store on a self-hosted MySQL database
// for deployments that do not use the hosted Supabase backend.
package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/grupovip/gatekeeper/pkg/records"
)

// Store implements records.StoreInterface using MySQL
type Store struct {
	db *gorm.DB
}

// NewStore creates a new record store with a MySQL connection
func NewStore(databaseURL string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	// Auto-migrate tables
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// migrate creates or updates the required database tables
func (s *Store) migrate() error {
	return s.db.AutoMigrate(&ClientModel{})
}

// Get fetches a record by id
func (s *Store) Get(ctx context.Context, id int64) (*records.Record, error) {
	var model ClientModel
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, records.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch client %d: %w", id, result.Error)
	}

	return toRecord(&model)
}

// ListExpiredConnected returns every connected record whose subscription has
// ended on or before asOf
func (s *Store) ListExpiredConnected(ctx context.Context, asOf records.Date) ([]*records.Record, error) {
	var models []ClientModel
	result := s.db.WithContext(ctx).
		Where("conectado = ? AND data_expiracao <= ?", true, asOf.Time()).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list expired clients: %w", result.Error)
	}

	out := make([]*records.Record, 0, len(models))
	for i := range models {
		rec, err := toRecord(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Update applies a partial column patch to the record with the given id
func (s *Store) Update(ctx context.Context, id int64, patch records.Patch) error {
	if len(patch) == 0 {
		return nil
	}

	values := make(map[string]any, len(patch))
	maps.Copy(values, patch)

	// The entitlement list is stored JSON-encoded
	if entitlements, ok := values[records.FieldEntitlements].([]string); ok {
		encoded, err := json.Marshal(entitlements)
		if err != nil {
			return fmt.Errorf("failed to encode entitlements: %w", err)
		}
		values[records.FieldEntitlements] = string(encoded)
	}

	result := s.db.WithContext(ctx).
		Model(&ClientModel{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update client %d: %w", id, result.Error)
	}

	return nil
}

// toRecord converts a database model into the domain record
func toRecord(model *ClientModel) (*records.Record, error) {
	var entitlements []string
	if model.Entitlements != "" {
		if err := json.Unmarshal([]byte(model.Entitlements), &entitlements); err != nil {
			return nil, fmt.Errorf("client %d has malformed entitlements: %w", model.ID, err)
		}
	}

	return &records.Record{
		ID:                model.ID,
		Name:              model.Name,
		Entitlements:      entitlements,
		SubscriptionEnd:   records.DateOf(model.SubscriptionEnd),
		TelegramUserID:    model.TelegramUserID,
		TelegramUsername:  model.TelegramUsername,
		TelegramFirstName: model.TelegramFirstName,
		Connected:         model.Connected,
		LastSync:          model.LastSync,
		RemovedAt:         model.RemovedAt,
	}, nil
}
