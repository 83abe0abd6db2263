// Package storage persists canonical product records and the key-value
// documents behind the weekly snapshot index.
package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/IshaanNene/trendscout/internal/types"
)

// ProductStore is the record collection the orchestrator writes to.
// Backends return *types.StorageError for infrastructure failures and
// types.ErrNotFound (wrapped) when an update targets a missing key.
type ProductStore interface {
	// FindMany returns records matching f, sorted by order, at most limit
	// of them (0 means no limit).
	FindMany(ctx context.Context, f Filter, order OrderBy, limit int) ([]*types.ProductRecord, error)

	// Create inserts a new record.
	Create(ctx context.Context, rec *types.ProductRecord) error

	// Update replaces the mutable fields of the record stored under key.
	// ID and CreatedAt of the stored record are kept.
	Update(ctx context.Context, key types.RecordKey, rec *types.ProductRecord) error

	// Upsert creates rec or updates the record sharing its natural key.
	Upsert(ctx context.Context, rec *types.ProductRecord) (created bool, err error)

	// DeleteMany removes every record matching f and returns how many.
	DeleteMany(ctx context.Context, f Filter) (int64, error)

	// Count returns the number of records matching f.
	Count(ctx context.Context, f Filter) (int64, error)

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	SourceBrands []string // any of, case-insensitive
	MarketZone   types.MarketZone
	Segment      types.Segment
	Category     string
	SourceURL    string
}

// Match reports whether r satisfies f.
func (f Filter) Match(r *types.ProductRecord) bool {
	if len(f.SourceBrands) > 0 {
		ok := false
		for _, b := range f.SourceBrands {
			if strings.EqualFold(b, r.SourceBrand) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.MarketZone != "" && f.MarketZone != r.MarketZone {
		return false
	}
	if f.Segment != "" && f.Segment != r.Segment {
		return false
	}
	if f.Category != "" && f.Category != r.Category {
		return false
	}
	if f.SourceURL != "" && f.SourceURL != r.SourceURL {
		return false
	}
	return true
}

// Sortable fields.
const (
	OrderTrendScore   = "trendScore"
	OrderSaturability = "saturability"
	OrderCreatedAt    = "createdAt"
	OrderUpdatedAt    = "updatedAt"
	OrderName         = "name"
)

// OrderBy names a sort field. An empty Field keeps backend order.
type OrderBy struct {
	Field string
	Desc  bool
}

// validOrder reports whether field is one of the sortable fields.
func validOrder(field string) bool {
	switch field {
	case "", OrderTrendScore, OrderSaturability, OrderCreatedAt, OrderUpdatedAt, OrderName:
		return true
	}
	return false
}

// sortRecords orders recs in place. Ties keep their relative order.
func sortRecords(recs []*types.ProductRecord, order OrderBy) {
	if order.Field == "" {
		return
	}
	less := func(a, b *types.ProductRecord) bool {
		switch order.Field {
		case OrderTrendScore:
			return a.TrendScore < b.TrendScore
		case OrderSaturability:
			return a.Saturability < b.Saturability
		case OrderCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		case OrderUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.Name < b.Name
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if order.Desc {
			return less(recs[j], recs[i])
		}
		return less(recs[i], recs[j])
	})
}
