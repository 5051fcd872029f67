package storage

import (
	"context"
	"strings"
	"time"
)

// SortKey selects the ordering of a filtered listing.
type SortKey int

const (
	SortNone SortKey = iota
	SortGDPAsc
	SortGDPDesc
)

// ParseSortKey maps the query-string sort values to a SortKey. Unrecognized
// values mean "no sort", not an error.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(s) {
	case "gdp_asc":
		return SortGDPAsc
	case "gdp_desc":
		return SortGDPDesc
	default:
		return SortNone
	}
}

// Filter narrows a country listing. Zero-value fields are ignored; region and
// currency combine with AND.
type Filter struct {
	Region   string
	Currency string
	Sort     SortKey
}

// Storage abstracts persistence of the country snapshot.
type Storage interface {
	// ListCountries returns all rows matching the filter, in store order
	// unless the filter requests a sort.
	ListCountries(ctx context.Context, f Filter) ([]Country, error)

	// GetCountry returns the row for the given name, or (nil, nil) when no
	// such row exists.
	GetCountry(ctx context.Context, name string) (*Country, error)

	// DeleteCountry removes the row for the given name. It reports whether a
	// row was actually deleted.
	DeleteCountry(ctx context.Context, name string) (bool, error)

	// SaveCountries persists the batch in a single transaction, inserting new
	// names and overwriting every field of existing ones. On error nothing
	// from the batch is visible.
	SaveCountries(ctx context.Context, batch []Country) error

	// CountCountries returns the total row count.
	CountCountries(ctx context.Context) (int64, error)

	// LastRefreshedAt returns the latest refresh timestamp across all rows,
	// or nil when the store is empty.
	LastRefreshedAt(ctx context.Context) (*time.Time, error)

	// TopCountriesByGDP returns up to n rows ordered by estimated GDP
	// descending, rows without an estimate last.
	TopCountriesByGDP(ctx context.Context, n int) ([]Country, error)

	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
