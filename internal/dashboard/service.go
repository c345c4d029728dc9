// Package dashboard answers selection requests against the loaded snapshot.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/couchcryptid/tribe-origin-map/internal/observability"
)

const publishTimeout = 2 * time.Second

// SnapshotSource returns the current snapshot or the error that prevented
// loading it.
type SnapshotSource interface {
	Snapshot() (*domain.Snapshot, error)
}

// SelectionPublisher emits an event for every rendered selection.
type SelectionPublisher interface {
	Publish(ctx context.Context, event domain.SelectionEvent) error
}

// Service builds renders for the presentation layer.
type Service struct {
	source    SnapshotSource
	opts      domain.RenderOptions
	publisher SelectionPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a Service. publisher may be nil.
func NewService(src SnapshotSource, opts domain.RenderOptions, publisher SelectionPublisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:    src,
		opts:      opts,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Tribes lists the selectable village identifiers in ascending order.
func (s *Service) Tribes() ([]string, error) {
	snap, err := s.source.Snapshot()
	if err != nil {
		return nil, err
	}
	return domain.TribeNames(snap.Records), nil
}

// Render builds the map for one village. An empty tribe selects the first
// identifier. A name with no matching rows is not an error; the render
// reports Found=false with the default view.
func (s *Service) Render(ctx context.Context, tribe string) (domain.Render, error) {
	snap, err := s.source.Snapshot()
	if err != nil {
		return domain.Render{}, err
	}

	start := time.Now()
	if tribe == "" {
		if names := domain.TribeNames(snap.Records); len(names) > 0 {
			tribe = names[0]
		}
	}
	r := domain.BuildRender(domain.Select(snap, tribe), s.opts)
	s.metrics.RenderDuration.Observe(time.Since(start).Seconds())

	outcome := "found"
	if !r.Found {
		outcome = "missing"
	}
	s.metrics.Selections.WithLabelValues(outcome).Inc()
	s.logger.Debug("selection rendered",
		"tribe", r.Tribe,
		"found", r.Found,
		"secondary", len(r.Secondary),
		"overlays", len(r.Overlays),
	)

	s.publish(ctx, r)
	return r, nil
}

// Warnings returns the layers that failed to load, or nil when the snapshot
// itself is unavailable.
func (s *Service) Warnings() []domain.LayerWarning {
	snap, err := s.source.Snapshot()
	if err != nil {
		return nil
	}
	return snap.Warnings
}

// publish emits the selection event. Failures are logged and never reach
// the caller.
func (s *Service) publish(ctx context.Context, r domain.Render) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, domain.NewSelectionEvent(r)); err != nil {
		s.metrics.SelectionEvents.WithLabelValues("error").Inc()
		s.logger.Warn("publish selection event failed", "tribe", r.Tribe, "error", err)
		return
	}
	s.metrics.SelectionEvents.WithLabelValues("success").Inc()
}
