package storage

import "time"

// Country is a denormalized snapshot row for a single country, refreshed from
// the country-directory and exchange-rate upstreams. Name is the natural key;
// the surrogate ID is assigned on first insert and never changes afterwards.
type Country struct {
	ID              uint      `json:"id" gorm:"primaryKey;column:id"`
	Name            string    `json:"name" gorm:"uniqueIndex;not null;column:name"`
	Capital         string    `json:"capital,omitempty" gorm:"column:capital"`
	Region          string    `json:"region,omitempty" gorm:"column:region"`
	Population      int64     `json:"population" gorm:"not null;column:population"`
	CurrencyCode    *string   `json:"currency_code" gorm:"column:currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate" gorm:"column:exchange_rate"`
	EstimatedGDP    *float64  `json:"estimated_gdp" gorm:"column:estimated_gdp"`
	FlagURL         string    `json:"flag_url" gorm:"column:flag_url"`
	LastRefreshedAt time.Time `json:"last_refreshed_at" gorm:"not null;column:last_refreshed_at"`
}
