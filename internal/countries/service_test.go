package countries

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"countrypulse/internal/gateway"
	"countrypulse/internal/storage"
)

// stubFetcher returns canned upstream data or a canned error.
type stubFetcher struct {
	countries []gateway.RawCountry
	rates     map[string]float64
	err       error
}

func (f *stubFetcher) FetchCountriesWithRates(ctx context.Context) ([]gateway.RawCountry, map[string]float64, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.countries, f.rates, nil
}

func newTestService(f Fetcher) (*Service, storage.Storage) {
	st := storage.NewMemory()
	svc := NewService(st, f, FixedFactorEstimator(1500), zap.NewNop())
	return svc, st
}

func TestRefresh_InsertsAndDerives(t *testing.T) {
	fetcher := &stubFetcher{
		countries: []gateway.RawCountry{
			{Name: "Wakanda", Capital: "Birnin Zana", Region: "Africa", Population: 1000,
				Currencies: []gateway.Currency{{Code: "WAK"}}, Flag: "url1"},
			{Name: "Elbonia", Region: "Europe", Population: 50, Flag: "url2"},
		},
		rates: map[string]float64{"WAK": 10},
	}
	svc, st := newTestService(fetcher)
	ctx := context.Background()

	written, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 rows written, got %d", written)
	}

	wakanda, err := svc.GetByName(ctx, "Wakanda")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if wakanda.EstimatedGDP == nil || *wakanda.EstimatedGDP != 150000 {
		t.Errorf("unexpected gdp: %v", wakanda.EstimatedGDP)
	}
	if wakanda.ExchangeRate == nil || *wakanda.ExchangeRate != 10 {
		t.Errorf("unexpected rate: %v", wakanda.ExchangeRate)
	}

	elbonia, err := svc.GetByName(ctx, "Elbonia")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if elbonia.CurrencyCode != nil || elbonia.EstimatedGDP == nil || *elbonia.EstimatedGDP != 0 {
		t.Errorf("no-currency derivation wrong: code=%v gdp=%v", elbonia.CurrencyCode, elbonia.EstimatedGDP)
	}

	if n, _ := st.CountCountries(ctx); n != 2 {
		t.Errorf("expected 2 persisted rows, got %d", n)
	}
}

func TestRefresh_RowCountIsUnionOfNames(t *testing.T) {
	fetcher := &stubFetcher{
		countries: []gateway.RawCountry{
			{Name: "Kenya", Region: "Africa", Population: 100, Flag: "u"},
			{Name: "Ghana", Region: "Africa", Population: 200, Flag: "u"},
		},
		rates: map[string]float64{},
	}
	svc, st := newTestService(fetcher)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	// Second batch overlaps on Kenya and adds Wakanda; Ghana is not named and
	// must survive untouched.
	fetcher.countries = []gateway.RawCountry{
		{Name: "Kenya", Region: "Africa", Population: 150, Flag: "u"},
		{Name: "Wakanda", Region: "Africa", Population: 1000, Flag: "u"},
	}
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}

	n, _ := st.CountCountries(ctx)
	if n != 3 {
		t.Fatalf("expected 3 distinct names, got %d", n)
	}

	ghana, err := svc.GetByName(ctx, "Ghana")
	if err != nil {
		t.Fatalf("Ghana should not be deleted by omission: %v", err)
	}
	if ghana.Population != 200 {
		t.Errorf("untouched row was modified: %+v", ghana)
	}

	kenya, _ := svc.GetByName(ctx, "Kenya")
	if kenya.Population != 150 {
		t.Errorf("matched row not overwritten: %+v", kenya)
	}
}

func TestRefresh_IdempotentModuloDerivation(t *testing.T) {
	fetcher := &stubFetcher{
		countries: []gateway.RawCountry{
			{Name: "Wakanda", Capital: "Birnin Zana", Region: "Africa", Population: 1000,
				Currencies: []gateway.Currency{{Code: "WAK"}}, Flag: "url1"},
		},
		rates: map[string]float64{"WAK": 10},
	}
	svc, _ := newTestService(fetcher)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	first, _ := svc.GetByName(ctx, "Wakanda")

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	second, _ := svc.GetByName(ctx, "Wakanda")

	if first.ID != second.ID {
		t.Errorf("surrogate id changed: %d -> %d", first.ID, second.ID)
	}
	if *first.EstimatedGDP != *second.EstimatedGDP || *first.ExchangeRate != *second.ExchangeRate {
		t.Errorf("derived fields changed under a fixed factor")
	}
	if second.LastRefreshedAt.Before(first.LastRefreshedAt) {
		t.Errorf("last_refreshed_at went backwards")
	}
}

func TestRefresh_EmptyBatchIsNoData(t *testing.T) {
	fetcher := &stubFetcher{countries: nil, rates: map[string]float64{}}
	svc, st := newTestService(fetcher)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if n, _ := st.CountCountries(ctx); n != 0 {
		t.Errorf("no writes expected on empty batch, got %d rows", n)
	}
}

func TestRefresh_UpstreamErrorPropagates(t *testing.T) {
	wantErr := &gateway.UpstreamError{Upstream: "countries", URL: "http://example", Err: errors.New("timeout")}
	svc, st := newTestService(&stubFetcher{err: wantErr})
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	var ue *gateway.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if n, _ := st.CountCountries(ctx); n != 0 {
		t.Errorf("no writes expected on upstream failure")
	}
}

func TestRefresh_ValidationRejectsBeforePersistence(t *testing.T) {
	fetcher := &stubFetcher{
		countries: []gateway.RawCountry{
			{Name: "Badland", Population: -5, Flag: "u"},
		},
		rates: map[string]float64{},
	}
	svc, st := newTestService(fetcher)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if n, _ := st.CountCountries(ctx); n != 0 {
		t.Errorf("invalid record must not be persisted")
	}
}

func TestDeleteByName(t *testing.T) {
	fetcher := &stubFetcher{
		countries: []gateway.RawCountry{{Name: "Wakanda", Population: 1, Flag: "u"}},
		rates:     map[string]float64{},
	}
	svc, st := newTestService(fetcher)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if err := svc.DeleteByName(ctx, "Atlantis"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent name, got %v", err)
	}
	if n, _ := st.CountCountries(ctx); n != 1 {
		t.Errorf("row count changed by failed delete")
	}

	if err := svc.DeleteByName(ctx, "Wakanda"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.GetByName(ctx, "Wakanda"); !errors.Is(err, ErrNotFound) {
		t.Errorf("row should be gone, got %v", err)
	}
}

func TestStatus_EmptyStore(t *testing.T) {
	svc, _ := newTestService(&stubFetcher{})
	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.TotalCountries != 0 {
		t.Errorf("expected zero countries, got %d", status.TotalCountries)
	}
	if status.LastRefreshedAt != nil {
		t.Errorf("expected nil last refresh, got %v", status.LastRefreshedAt)
	}
}

// failingReporter proves a render failure never fails the refresh.
type failingReporter struct{ called bool }

func (r *failingReporter) Generate(ctx context.Context) (string, error) {
	r.called = true
	return "", errors.New("render exploded")
}

func TestRefresh_RenderFailureDoesNotFailRefresh(t *testing.T) {
	fetcher := &stubFetcher{
		countries: []gateway.RawCountry{{Name: "Wakanda", Population: 1, Flag: "u"}},
		rates:     map[string]float64{},
	}
	svc, st := newTestService(fetcher)
	reporter := &failingReporter{}
	svc.WithReporter(reporter)

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh must not fail on render error: %v", err)
	}
	if !reporter.called {
		t.Errorf("reporter was not invoked")
	}
	if n, _ := st.CountCountries(context.Background()); n != 1 {
		t.Errorf("persisted refresh expected")
	}
}
