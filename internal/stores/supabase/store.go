// Package supabase implements the record store against a Supabase project's
// PostgREST endpoint. Records live in the clientes table; reads use eq/lte
// column filters and updates are merge PATCHes of the changed columns only.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/grupovip/gatekeeper/pkg/records"
)

const tableName = "clientes"

// Store implements records.StoreInterface over the Supabase REST API
type Store struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewStore creates a store for the given Supabase project URL and service key
func NewStore(baseURL, apiKey string) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("supabase URL cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("supabase key cannot be empty")
	}

	return &Store{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Get fetches a record by id
func (s *Store) Get(ctx context.Context, id int64) (*records.Record, error) {
	query := url.Values{}
	query.Set("id", "eq."+strconv.FormatInt(id, 10))
	query.Set("limit", "1")

	var results []records.Record
	if err := s.do(ctx, http.MethodGet, query, nil, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, records.ErrNotFound
	}

	return &results[0], nil
}

// ListExpiredConnected returns every connected record whose subscription has
// ended on or before asOf
func (s *Store) ListExpiredConnected(ctx context.Context, asOf records.Date) ([]*records.Record, error) {
	query := url.Values{}
	query.Set("conectado", "eq.true")
	query.Set("data_expiracao", "lte."+asOf.String())

	var results []records.Record
	if err := s.do(ctx, http.MethodGet, query, nil, &results); err != nil {
		return nil, err
	}

	out := make([]*records.Record, 0, len(results))
	for i := range results {
		out = append(out, &results[i])
	}
	return out, nil
}

// Update applies a partial column patch to the record with the given id
func (s *Store) Update(ctx context.Context, id int64, patch records.Patch) error {
	if len(patch) == 0 {
		return nil
	}

	query := url.Values{}
	query.Set("id", "eq."+strconv.FormatInt(id, 10))

	return s.do(ctx, http.MethodPatch, query, patch, nil)
}

// do performs one PostgREST request against the clientes table
func (s *Store) do(ctx context.Context, method string, query url.Values, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, tableName, query.Encode())
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase '%s %s' request failed: %w", method, tableName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase '%s %s' failed: %d: %s", method, tableName, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
