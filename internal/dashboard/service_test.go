package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/couchcryptid/tribe-origin-map/internal/observability"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snap *domain.Snapshot
	err  error
}

func (s staticSource) Snapshot() (*domain.Snapshot, error) { return s.snap, s.err }

type recordingPublisher struct {
	events []domain.SelectionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.SelectionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func f64(v float64) *float64 { return &v }
func str(s string) *string    { return &s }

func testSnapshot() *domain.Snapshot {
	records := []domain.VillageRecord{
		{Tribe: "Tayal-A", Lat: f64(24.1), Lon: f64(121.2), OriginName: str("Origin-2"), OriginLat: f64(24.5), OriginLon: f64(121.6)},
		{Tribe: "Tayal-A", Lat: f64(24.1), Lon: f64(121.2), OriginName: str("Origin-1"), OriginLat: f64(24.3), OriginLon: f64(121.4)},
		{Tribe: "Bunun-B", Lat: f64(23.5), Lon: f64(121.0), Attributes: []domain.Attribute{{Name: "n_tribe", Value: "Bunun-B"}}},
	}
	lines := domain.FeatureSet{MatchKey: "goal_tribe", Features: []domain.SpatialFeature{
		{Geometry: orb.LineString{{121.4, 24.3}, {121.2, 24.1}}, Properties: map[string]any{"goal_tribe": "Tayal-A"}},
	}}
	warnings := []domain.LayerWarning{{Dataset: domain.DatasetPolygons, Message: "load polygons: unexpected status 404"}}
	return domain.NewSnapshot(records, domain.FeatureSet{MatchKey: "tribe name"}, lines, warnings)
}

func newTestService(src SnapshotSource, pub SelectionPublisher) (*Service, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(src, domain.DefaultRenderOptions(), pub, logger, metrics), metrics
}

func TestService_Tribes(t *testing.T) {
	svc, _ := newTestService(staticSource{snap: testSnapshot()}, nil)

	names, err := svc.Tribes()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bunun-B", "Tayal-A"}, names)
}

func TestService_Tribes_NotLoaded(t *testing.T) {
	loadErr := &domain.LoadError{Dataset: domain.DatasetTribes, Err: errors.New("timeout")}
	svc, _ := newTestService(staticSource{err: loadErr}, nil)

	_, err := svc.Tribes()
	assert.ErrorAs(t, err, &loadErr)
}

func TestService_Render(t *testing.T) {
	pub := &recordingPublisher{}
	svc, metrics := newTestService(staticSource{snap: testSnapshot()}, pub)

	r, err := svc.Render(context.Background(), "Tayal-A")
	require.NoError(t, err)

	assert.True(t, r.Found)
	require.NotNil(t, r.Primary)
	assert.Len(t, r.Secondary, 2)
	assert.Equal(t, []string{"Origin-1", "Origin-2"}, r.Origins)
	assert.False(t, r.ShowFallback())
	require.Len(t, r.Overlays, 1)
	assert.Equal(t, domain.FlowLayerName, r.Overlays[0].Name)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "Tayal-A", pub.events[0].Tribe)
	assert.Equal(t, 2, pub.events[0].SecondaryMarkers)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Selections.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SelectionEvents.WithLabelValues("success")))
}

func TestService_Render_DefaultsToFirstName(t *testing.T) {
	svc, _ := newTestService(staticSource{snap: testSnapshot()}, nil)

	r, err := svc.Render(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bunun-B", r.Tribe)
	assert.True(t, r.ShowFallback())
}

func TestService_Render_UnknownName(t *testing.T) {
	svc, metrics := newTestService(staticSource{snap: testSnapshot()}, nil)

	r, err := svc.Render(context.Background(), "tayal-a")
	require.NoError(t, err)
	assert.False(t, r.Found)
	assert.Nil(t, r.Primary)
	assert.Equal(t, domain.DefaultRenderOptions().DefaultView, r.View)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Selections.WithLabelValues("missing")))
}

func TestService_Render_PublishFailureIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, metrics := newTestService(staticSource{snap: testSnapshot()}, pub)

	r, err := svc.Render(context.Background(), "Tayal-A")
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SelectionEvents.WithLabelValues("error")))
}

func TestService_Render_NotLoaded(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(staticSource{err: errors.New("datasets not loaded yet")}, pub)

	_, err := svc.Render(context.Background(), "Tayal-A")
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestService_Warnings(t *testing.T) {
	svc, _ := newTestService(staticSource{snap: testSnapshot()}, nil)
	require.Len(t, svc.Warnings(), 1)
	assert.Equal(t, domain.DatasetPolygons, svc.Warnings()[0].Dataset)

	failed, _ := newTestService(staticSource{err: errors.New("down")}, nil)
	assert.Nil(t, failed.Warnings())
}
