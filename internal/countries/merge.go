package countries

import (
	"time"

	"countrypulse/internal/gateway"
	"countrypulse/internal/storage"
)

// buildCountry derives a snapshot row from a raw upstream record and the rate
// table. The primary currency is the first entry of the record's currency
// list. Rates that are absent or non-positive count as unpublished.
func buildCountry(raw gateway.RawCountry, rates map[string]float64, est Estimator, now time.Time) storage.Country {
	c := storage.Country{
		Name:            raw.Name,
		Capital:         raw.Capital,
		Region:          raw.Region,
		Population:      raw.Population,
		FlagURL:         raw.Flag,
		LastRefreshedAt: now,
	}

	if len(raw.Currencies) == 0 {
		zero := 0.0
		c.EstimatedGDP = &zero
		return c
	}

	code := raw.Currencies[0].Code
	c.CurrencyCode = &code

	rate, ok := rates[code]
	if !ok || rate <= 0 {
		return c
	}

	c.ExchangeRate = &rate
	gdp := est(raw.Population, rate)
	c.EstimatedGDP = &gdp
	return c
}

// validateCountry enforces the entity invariants before persistence.
func validateCountry(c storage.Country) error {
	if c.Name == "" {
		return &ValidationError{Name: c.Name, Reason: "name must not be empty"}
	}
	if c.Population < 0 {
		return &ValidationError{Name: c.Name, Reason: "population must not be negative"}
	}
	if c.ExchangeRate != nil && *c.ExchangeRate < 0 {
		return &ValidationError{Name: c.Name, Reason: "exchange rate must not be negative"}
	}
	if c.EstimatedGDP != nil && *c.EstimatedGDP < 0 {
		return &ValidationError{Name: c.Name, Reason: "estimated gdp must not be negative"}
	}
	return nil
}

// mergeSnapshot reconciles the incoming batch against the current snapshot,
// indexed by name. Matched rows keep their surrogate ID and have every other
// field overwritten; unmatched incoming rows become inserts. Persisted rows
// absent from the batch are left untouched.
func mergeSnapshot(existing []storage.Country, incoming []storage.Country) []storage.Country {
	byName := make(map[string]storage.Country, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	out := make([]storage.Country, 0, len(incoming))
	for _, c := range incoming {
		if prev, ok := byName[c.Name]; ok {
			c.ID = prev.ID
		}
		out = append(out, c)
	}
	return out
}
