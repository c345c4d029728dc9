// Package dataset loads the coordinate table and the two spatial layers into
// an immutable snapshot and holds the current snapshot for readers.
package dataset

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/tribe-origin-map/internal/adapter/source"
	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/couchcryptid/tribe-origin-map/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Sources names the three remote datasets and the attributes that tie the
// spatial layers to a village.
type Sources struct {
	TribesURL   string
	PolygonsURL string
	LinesURL    string
	PolygonKey  string
	LineKey     string
}

// Loader fetches and parses all datasets concurrently.
type Loader struct {
	fetcher domain.Fetcher
	sources Sources
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader reading through the given fetcher.
func NewLoader(f domain.Fetcher, sources Sources, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{fetcher: f, sources: sources, logger: logger, metrics: metrics}
}

// Load builds a snapshot. A coordinate table failure is returned as a
// *domain.LoadError. Spatial failures are logged and recorded as warnings on
// the snapshot with the affected layer left empty.
func (l *Loader) Load(ctx context.Context) (*domain.Snapshot, error) {
	var (
		records  []domain.VillageRecord
		polygons []domain.SpatialFeature
		lines    []domain.SpatialFeature
		polyErr  error
		lineErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = l.loadTribes(gctx)
		return err
	})
	g.Go(func() error {
		polygons, polyErr = l.loadPolygons(gctx)
		return nil
	})
	g.Go(func() error {
		lines, lineErr = l.loadLines(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var warnings []domain.LayerWarning
	if polyErr != nil {
		warnings = append(warnings, l.warn(domain.DatasetPolygons, polyErr))
		polygons = nil
	}
	if lineErr != nil {
		warnings = append(warnings, l.warn(domain.DatasetLines, lineErr))
		lines = nil
	}

	snap := domain.NewSnapshot(
		records,
		domain.FeatureSet{MatchKey: l.sources.PolygonKey, Features: polygons},
		domain.FeatureSet{MatchKey: l.sources.LineKey, Features: lines},
		warnings,
	)
	l.logger.Info("datasets loaded",
		"records", len(records),
		"polygons", len(polygons),
		"lines", len(lines),
		"warnings", len(warnings),
	)
	return snap, nil
}

func (l *Loader) loadTribes(ctx context.Context) ([]domain.VillageRecord, error) {
	return track(l, domain.DatasetTribes, func() ([]domain.VillageRecord, error) {
		data, err := l.fetcher.Fetch(ctx, l.sources.TribesURL)
		if err != nil {
			return nil, err
		}
		return source.ParseVillageCSV(data)
	})
}

func (l *Loader) loadPolygons(ctx context.Context) ([]domain.SpatialFeature, error) {
	return track(l, domain.DatasetPolygons, func() ([]domain.SpatialFeature, error) {
		if l.sources.PolygonsURL == "" {
			return nil, errors.New("no location configured")
		}
		sf, err := source.FetchShapefile(ctx, l.fetcher, l.sources.PolygonsURL)
		if err != nil {
			return nil, err
		}
		return source.ParseShapefile(sf, domain.DatasetPolygons, l.sources.PolygonKey, l.logger)
	})
}

func (l *Loader) loadLines(ctx context.Context) ([]domain.SpatialFeature, error) {
	return track(l, domain.DatasetLines, func() ([]domain.SpatialFeature, error) {
		if l.sources.LinesURL == "" {
			return nil, errors.New("no location configured")
		}
		data, err := l.fetcher.Fetch(ctx, l.sources.LinesURL)
		if err != nil {
			return nil, err
		}
		return source.ParseFeatureCollection(data, domain.DatasetLines, l.sources.LineKey)
	})
}

// track times one dataset load, records its outcome and wraps failures in a
// LoadError naming the dataset.
func track[T any](l *Loader, dataset string, load func() ([]T, error)) ([]T, error) {
	start := time.Now()
	items, err := load()
	l.metrics.LoadDuration.WithLabelValues(dataset).Observe(time.Since(start).Seconds())
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues(dataset, "error").Inc()
		l.metrics.DatasetFeatures.WithLabelValues(dataset).Set(0)
		return nil, &domain.LoadError{Dataset: dataset, Err: err}
	}
	l.metrics.DatasetLoads.WithLabelValues(dataset, "success").Inc()
	l.metrics.DatasetFeatures.WithLabelValues(dataset).Set(float64(len(items)))
	l.logger.Debug("dataset parsed", "dataset", dataset, "items", len(items), "duration", time.Since(start))
	return items, nil
}

func (l *Loader) warn(dataset string, err error) domain.LayerWarning {
	l.logger.Warn("spatial layer unavailable", "dataset", dataset, "error", err)
	return domain.LayerWarning{Dataset: dataset, Message: err.Error()}
}
