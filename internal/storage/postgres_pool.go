package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"countrypulse/internal/metrics"
)

// PostgresPoolStorage is a Storage backed directly by a pgx connection pool,
// for deployments that want pool-level tuning and metrics instead of GORM.
type PostgresPoolStorage struct {
	pool *pgxpool.Pool
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/countrypulse?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresPoolStorage{pool: pool}, nil
}

func (s *PostgresPoolStorage) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresPoolStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresPoolStorage) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS countries (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        capital TEXT,
        region TEXT,
        population BIGINT NOT NULL,
        currency_code TEXT,
        exchange_rate DOUBLE PRECISION,
        estimated_gdp DOUBLE PRECISION,
        flag_url TEXT,
        last_refreshed_at TIMESTAMPTZ NOT NULL
    );`)
	return err
}

// PublishPoolMetrics pushes current pool statistics to prometheus.
func (s *PostgresPoolStorage) PublishPoolMetrics() {
	st := s.pool.Stat()
	metrics.UpdateDBPoolMetrics("postgrespool",
		float64(st.TotalConns()), float64(st.IdleConns()), float64(st.AcquiredConns()))
}

const countryColumns = `id, name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at`

func scanCountry(row pgx.Row) (*Country, error) {
	var c Country
	err := row.Scan(&c.ID, &c.Name, &c.Capital, &c.Region, &c.Population,
		&c.CurrencyCode, &c.ExchangeRate, &c.EstimatedGDP, &c.FlagURL, &c.LastRefreshedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresPoolStorage) ListCountries(ctx context.Context, f Filter) ([]Country, error) {
	q := `SELECT ` + countryColumns + ` FROM countries`
	var args []any
	if f.Region != "" {
		args = append(args, f.Region)
		q += ` WHERE region = $1`
	}
	if f.Currency != "" {
		args = append(args, f.Currency)
		if len(args) == 1 {
			q += ` WHERE currency_code = $1`
		} else {
			q += ` AND currency_code = $2`
		}
	}
	switch f.Sort {
	case SortGDPAsc:
		q += ` ORDER BY estimated_gdp ASC NULLS LAST`
	case SortGDPDesc:
		q += ` ORDER BY estimated_gdp DESC NULLS LAST`
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresPoolStorage) GetCountry(ctx context.Context, name string) (*Country, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+countryColumns+` FROM countries WHERE name = $1`, name)
	c, err := scanCountry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresPoolStorage) DeleteCountry(ctx context.Context, name string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM countries WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresPoolStorage) SaveCountries(ctx context.Context, batch []Country) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range batch {
		_, err := tx.Exec(ctx, `
            INSERT INTO countries (name, capital, region, population, currency_code, exchange_rate, estimated_gdp, flag_url, last_refreshed_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
            ON CONFLICT (name) DO UPDATE SET
                capital=EXCLUDED.capital,
                region=EXCLUDED.region,
                population=EXCLUDED.population,
                currency_code=EXCLUDED.currency_code,
                exchange_rate=EXCLUDED.exchange_rate,
                estimated_gdp=EXCLUDED.estimated_gdp,
                flag_url=EXCLUDED.flag_url,
                last_refreshed_at=EXCLUDED.last_refreshed_at
        `, c.Name, c.Capital, c.Region, c.Population, c.CurrencyCode, c.ExchangeRate, c.EstimatedGDP, c.FlagURL, c.LastRefreshedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresPoolStorage) CountCountries(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n)
	return n, err
}

func (s *PostgresPoolStorage) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(last_refreshed_at) FROM countries`).Scan(&ts)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *PostgresPoolStorage) TopCountriesByGDP(ctx context.Context, n int) ([]Country, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+countryColumns+` FROM countries ORDER BY estimated_gdp DESC NULLS LAST LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
