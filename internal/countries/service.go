package countries

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"countrypulse/internal/gateway"
	"countrypulse/internal/metrics"
	"countrypulse/internal/storage"
)

// Fetcher is the slice of the gateway the service needs.
type Fetcher interface {
	FetchCountriesWithRates(ctx context.Context) ([]gateway.RawCountry, map[string]float64, error)
}

// Reporter regenerates the summary artifact after a successful refresh.
type Reporter interface {
	Generate(ctx context.Context) (string, error)
}

// Alerter is notified about failed refreshes. Implementations must be
// best-effort; the service never waits on delivery results.
type Alerter interface {
	RefreshFailed(ctx context.Context, runID string, err error)
}

// Status is the service-level snapshot summary.
type Status struct {
	TotalCountries  int64      `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

// Service owns the refresh-and-merge routine and the read operations over the
// country snapshot.
type Service struct {
	store     storage.Storage
	fetcher   Fetcher
	estimator Estimator
	reporter  Reporter
	alerter   Alerter
	logger    *zap.Logger

	// refreshMu serializes refreshes; concurrent refresh calls would race on
	// the read-merge-write of the snapshot.
	refreshMu sync.Mutex
}

// NewService wires the merge engine to its collaborators. reporter and
// alerter may be nil.
func NewService(store storage.Storage, fetcher Fetcher, est Estimator, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		fetcher:   fetcher,
		estimator: est,
		logger:    logger.Named("countries"),
	}
}

// WithReporter attaches a summary reporter regenerated after each refresh.
func (s *Service) WithReporter(r Reporter) *Service {
	s.reporter = r
	return s
}

// WithAlerter attaches a refresh-failure alerter.
func (s *Service) WithAlerter(a Alerter) *Service {
	s.alerter = a
	return s
}

// Refresh fetches both upstreams, reconciles the result against the persisted
// snapshot and commits all changes in one transaction. It returns the number
// of rows written. Rows not named in the batch are never deleted.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	log.Info("refresh started")

	written, err := s.refresh(ctx, log)
	now := time.Now()
	switch {
	case err == nil:
		metrics.ObserveRefresh(written, now, nil, "")
		log.Info("refresh finished", zap.Int("countries", written))
	default:
		metrics.ObserveRefresh(0, now, err, failureReason(err))
		log.Error("refresh failed", zap.Error(err))
		if s.alerter != nil {
			s.alerter.RefreshFailed(ctx, runID, err)
		}
	}
	return written, err
}

func (s *Service) refresh(ctx context.Context, log *zap.Logger) (int, error) {
	raw, rates, err := s.fetcher.FetchCountriesWithRates(ctx)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, ErrNoData
	}

	now := time.Now().UTC()
	batch := make([]storage.Country, 0, len(raw))
	for _, rc := range raw {
		c := buildCountry(rc, rates, s.estimator, now)
		if err := validateCountry(c); err != nil {
			return 0, err
		}
		batch = append(batch, c)
	}

	existing, err := s.store.ListCountries(ctx, storage.Filter{})
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	batch = mergeSnapshot(existing, batch)

	if err := s.store.SaveCountries(ctx, batch); err != nil {
		return 0, fmt.Errorf("persist snapshot: %w", err)
	}

	// The summary image is best-effort: a render failure must not undo an
	// otherwise successful refresh.
	if s.reporter != nil {
		if path, err := s.reporter.Generate(ctx); err != nil {
			log.Warn("summary image generation failed", zap.Error(err))
		} else {
			log.Info("summary image written", zap.String("path", path))
		}
	}

	return len(batch), nil
}

func failureReason(err error) string {
	var ue *gateway.UpstreamError
	var ve *ValidationError
	switch {
	case errors.As(err, &ue):
		return "upstream"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.As(err, &ve):
		return "validation"
	default:
		return "storage"
	}
}

// List returns snapshot rows matching the optional region/currency filters,
// sorted when sort is gdp_asc or gdp_desc. Unknown sort values mean no sort.
func (s *Service) List(ctx context.Context, region, currency, sort string) ([]storage.Country, error) {
	return s.store.ListCountries(ctx, storage.Filter{
		Region:   region,
		Currency: currency,
		Sort:     storage.ParseSortKey(sort),
	})
}

// GetByName returns the row for name or ErrNotFound.
func (s *Service) GetByName(ctx context.Context, name string) (*storage.Country, error) {
	c, err := s.store.GetCountry(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// DeleteByName removes the row for name or returns ErrNotFound.
func (s *Service) DeleteByName(ctx context.Context, name string) error {
	deleted, err := s.store.DeleteCountry(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Status reports the total row count and the newest refresh timestamp; both
// are well-defined on an empty store.
func (s *Service) Status(ctx context.Context) (Status, error) {
	total, err := s.store.CountCountries(ctx)
	if err != nil {
		return Status{}, err
	}
	last, err := s.store.LastRefreshedAt(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{TotalCountries: total, LastRefreshedAt: last}, nil
}
