package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Country{})
}

func (s *GormStorage) ListCountries(ctx context.Context, f Filter) ([]Country, error) {
	q := s.db.WithContext(ctx).Model(&Country{})
	if f.Region != "" {
		q = q.Where("region = ?", f.Region)
	}
	if f.Currency != "" {
		q = q.Where("currency_code = ?", f.Currency)
	}
	switch f.Sort {
	case SortGDPAsc:
		q = q.Order("estimated_gdp ASC NULLS LAST")
	case SortGDPDesc:
		q = q.Order("estimated_gdp DESC NULLS LAST")
	}
	var out []Country
	result := q.Find(&out)
	return out, result.Error
}

func (s *GormStorage) GetCountry(ctx context.Context, name string) (*Country, error) {
	var c Country
	result := s.db.WithContext(ctx).First(&c, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &c, nil
}

func (s *GormStorage) DeleteCountry(ctx context.Context, name string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&Country{}, "name = ?", name)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStorage) SaveCountries(ctx context.Context, batch []Country) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			c := batch[i]
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				UpdateAll: true,
			}).Create(&c).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStorage) CountCountries(ctx context.Context) (int64, error) {
	var n int64
	result := s.db.WithContext(ctx).Model(&Country{}).Count(&n)
	return n, result.Error
}

func (s *GormStorage) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var c Country
	result := s.db.WithContext(ctx).Order("last_refreshed_at DESC").First(&c)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	t := c.LastRefreshedAt
	return &t, nil
}

func (s *GormStorage) TopCountriesByGDP(ctx context.Context, n int) ([]Country, error) {
	var out []Country
	result := s.db.WithContext(ctx).
		Order("estimated_gdp DESC NULLS LAST").
		Limit(n).
		Find(&out)
	return out, result.Error
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
