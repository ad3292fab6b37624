// Package memory provides reference DatabaseBackend and CacheBackend
// implementations backed by plain in-process maps. They exist for
// tests and local demos, not production use: nothing here persists or
// scales past one process.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

// Database is a trivial substring-matching DatabaseBackend over a
// fixed in-memory record set.
type Database struct {
	mu        sync.RWMutex
	records   []backend.SearchResult
	connected bool
	failNext  error // test hook: when set, the next Search returns this error once
}

// NewDatabase builds a Database seeded with records.
func NewDatabase(records []backend.SearchResult) *Database {
	return &Database{records: records, connected: true}
}

// FailNext arms the database to return err on its next Search call
// only, then resume normal behavior. Used by tests to exercise breaker
// and fallback paths without a real flaky backend.
func (d *Database) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = err
}

// SetConnected controls what HealthProbe reports.
func (d *Database) SetConnected(connected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = connected
}

func (d *Database) Search(ctx context.Context, query string, options backend.SearchOptions) ([]backend.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.failNext != nil {
		err := d.failNext
		d.failNext = nil
		d.mu.Unlock()
		return nil, err
	}
	records := append([]backend.SearchResult(nil), d.records...)
	d.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var matched []backend.SearchResult
	for _, r := range records {
		if q == "" || strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Description), q) {
			if matchesFilters(r, options.Filters) {
				matched = append(matched, r)
			}
		}
	}

	if options.Limit > 0 && len(matched) > options.Limit {
		matched = matched[:options.Limit]
	}
	return matched, nil
}

func matchesFilters(r backend.SearchResult, filters map[string]backend.Filter) bool {
	for field, f := range filters {
		var value string
		switch field {
		case "category":
			value = r.Category
		case "language":
			value = r.Language
		case "visibility":
			value = r.Visibility
		case "type":
			value = r.Type
		default:
			continue
		}
		if len(f.Values) > 0 && !containsFold(f.Values, value) {
			return false
		}
		if f.Range != nil && r.CreatedAt != nil {
			if f.Range.From != nil && r.CreatedAt.Before(*f.Range.From) {
				return false
			}
			if f.Range.To != nil && r.CreatedAt.After(*f.Range.To) {
				return false
			}
		}
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func (d *Database) HealthProbe(ctx context.Context) (backend.HealthSnapshot, error) {
	d.mu.RLock()
	connected := d.connected
	d.mu.RUnlock()

	return backend.HealthSnapshot{
		IsConnected:       connected,
		IsSearchAvailable: connected,
		Errors:            nil,
		CapturedAt:        time.Now(),
	}, nil
}

func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

// RecordCount reports how many records are seeded, mostly useful in
// tests building scenario fixtures.
func (d *Database) RecordCount() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strconv.Itoa(len(d.records))
}
