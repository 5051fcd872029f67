package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu        sync.RWMutex
	countries map[string]Country
	nextID    uint
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		countries: make(map[string]Country),
		nextID:    1,
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) ListCountries(ctx context.Context, f Filter) ([]Country, error) {
	m.mu.RLock()
	out := make([]Country, 0, len(m.countries))
	for _, c := range m.countries {
		if f.Region != "" && c.Region != f.Region {
			continue
		}
		if f.Currency != "" && (c.CurrencyCode == nil || *c.CurrencyCode != f.Currency) {
			continue
		}
		out = append(out, c)
	}
	m.mu.RUnlock()

	switch f.Sort {
	case SortGDPAsc:
		sort.SliceStable(out, func(i, j int) bool { return gdpLess(out[i], out[j]) })
	case SortGDPDesc:
		sort.SliceStable(out, func(i, j int) bool { return gdpGreater(out[i], out[j]) })
	}
	return out, nil
}

// gdpLess orders ascending by estimated GDP with missing estimates last.
func gdpLess(a, b Country) bool {
	if a.EstimatedGDP == nil {
		return false
	}
	if b.EstimatedGDP == nil {
		return true
	}
	return *a.EstimatedGDP < *b.EstimatedGDP
}

// gdpGreater orders descending by estimated GDP with missing estimates last.
func gdpGreater(a, b Country) bool {
	if a.EstimatedGDP == nil {
		return false
	}
	if b.EstimatedGDP == nil {
		return true
	}
	return *a.EstimatedGDP > *b.EstimatedGDP
}

func (m *MemoryStorage) GetCountry(ctx context.Context, name string) (*Country, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.countries[name]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

func (m *MemoryStorage) DeleteCountry(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.countries[name]; !ok {
		return false, nil
	}
	delete(m.countries, name)
	return true, nil
}

func (m *MemoryStorage) SaveCountries(ctx context.Context, batch []Country) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range batch {
		if existing, ok := m.countries[c.Name]; ok {
			c.ID = existing.ID
		} else if c.ID == 0 {
			c.ID = m.nextID
			m.nextID++
		}
		m.countries[c.Name] = c
	}
	return nil
}

func (m *MemoryStorage) CountCountries(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.countries)), nil
}

func (m *MemoryStorage) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *time.Time
	for _, c := range m.countries {
		t := c.LastRefreshedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

func (m *MemoryStorage) TopCountriesByGDP(ctx context.Context, n int) ([]Country, error) {
	all, err := m.ListCountries(ctx, Filter{Sort: SortGDPDesc})
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}
