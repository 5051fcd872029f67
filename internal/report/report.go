package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"countrypulse/internal/storage"
)

// Summary is the payload handed to the rendering collaborator.
type Summary struct {
	TotalCountries  int64             `json:"total_countries"`
	LastRefreshedAt *time.Time        `json:"last_refreshed_at"`
	TopByGDP        []storage.Country `json:"top_5_by_gdp"`
}

// Renderer persists a summary as an artifact and returns its path.
type Renderer interface {
	Render(s Summary) (string, error)
	// Path is the fixed cache location of the artifact, whether or not it
	// has been rendered yet.
	Path() string
}

// Reporter assembles the snapshot summary and asks the renderer to persist
// it.
type Reporter struct {
	store    storage.Storage
	renderer Renderer
	logger   *zap.Logger
}

func NewReporter(store storage.Storage, renderer Renderer, logger *zap.Logger) *Reporter {
	return &Reporter{
		store:    store,
		renderer: renderer,
		logger:   logger.Named("report"),
	}
}

// Build queries the store for the summary figures. An empty store yields a
// zero-count summary with a nil timestamp.
func (r *Reporter) Build(ctx context.Context) (Summary, error) {
	total, err := r.store.CountCountries(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count countries: %w", err)
	}
	last, err := r.store.LastRefreshedAt(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("last refresh: %w", err)
	}
	top, err := r.store.TopCountriesByGDP(ctx, 5)
	if err != nil {
		return Summary{}, fmt.Errorf("top by gdp: %w", err)
	}
	return Summary{TotalCountries: total, LastRefreshedAt: last, TopByGDP: top}, nil
}

// Generate builds the summary and renders the cached artifact, overwriting
// any previous one.
func (r *Reporter) Generate(ctx context.Context) (string, error) {
	s, err := r.Build(ctx)
	if err != nil {
		return "", err
	}
	path, err := r.renderer.Render(s)
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	r.logger.Debug("summary rendered", zap.String("path", path))
	return path, nil
}

// ArtifactPath exposes the renderer's cache location for read-back.
func (r *Reporter) ArtifactPath() string {
	return r.renderer.Path()
}
