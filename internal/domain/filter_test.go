package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTribe      = "Tayal-A"
	testOtherTribe = "Bunun-B"
	testPolygonKey = "tribe name"
	testLineKey    = "goal_tribe"
)

func f64(v float64) *float64 { return &v }

func str(s string) *string { return &s }

func record(tribe string, lat, lon float64) VillageRecord {
	return VillageRecord{Tribe: tribe, Lat: f64(lat), Lon: f64(lon)}
}

func withOrigin(r VillageRecord, name string, lat, lon float64) VillageRecord {
	r.OriginName = str(name)
	r.OriginLat = f64(lat)
	r.OriginLon = f64(lon)
	return r
}

func polygonFeature(tribe string) SpatialFeature {
	return SpatialFeature{
		Geometry:   orb.Polygon{{{121, 24}, {121.1, 24}, {121.1, 24.1}, {121, 24}}},
		Properties: map[string]any{testPolygonKey: tribe},
	}
}

func lineFeature(goal string) SpatialFeature {
	return SpatialFeature{
		Geometry:   orb.LineString{{121.3, 24.2}, {121.2, 24.1}},
		Properties: map[string]any{testLineKey: goal},
	}
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Records: []VillageRecord{
			withOrigin(record(testTribe, 24.1, 121.2), "Village X", 24.2, 121.3),
			record(testOtherTribe, 23.5, 121.0),
			withOrigin(record(testTribe, 24.1, 121.2), "Village Y", 24.3, 121.4),
			{Tribe: ""},
		},
		Polygons: FeatureSet{
			MatchKey: testPolygonKey,
			Features: []SpatialFeature{polygonFeature(testTribe), polygonFeature(testOtherTribe)},
		},
		Lines: FeatureSet{
			MatchKey: testLineKey,
			Features: []SpatialFeature{lineFeature(testTribe), lineFeature(testTribe), lineFeature("Elsewhere")},
		},
	}
}

func TestTribeNames(t *testing.T) {
	names := TribeNames(testSnapshot().Records)
	assert.Equal(t, []string{testOtherTribe, testTribe}, names)
}

func TestTribeNames_Empty(t *testing.T) {
	assert.Empty(t, TribeNames(nil))
}

func TestSelect(t *testing.T) {
	view := Select(testSnapshot(), testTribe)

	assert.Equal(t, testTribe, view.Tribe)
	assert.True(t, view.Found())
	require.Len(t, view.Records, 2)
	for _, r := range view.Records {
		assert.Equal(t, testTribe, r.Tribe)
	}
	assert.Len(t, view.Polygons, 1)
	assert.Len(t, view.Lines, 2)
}

func TestSelect_EveryNameHasRecordsWithItsCoordinates(t *testing.T) {
	snap := testSnapshot()
	for _, name := range TribeNames(snap.Records) {
		view := Select(snap, name)
		require.NotEmpty(t, view.Records, name)

		render := BuildRender(view, DefaultRenderOptions())
		require.NotNil(t, render.Primary, name)
		assert.Equal(t, *view.Records[0].Lat, render.Primary.Lat)
		assert.Equal(t, *view.Records[0].Lon, render.Primary.Lon)
	}
}

func TestSelect_ExactMatchOnly(t *testing.T) {
	snap := testSnapshot()

	for _, name := range []string{"tayal-a", "Tayal-A ", " Tayal-A", "Tayal"} {
		view := Select(snap, name)
		assert.False(t, view.Found(), name)
		assert.Empty(t, view.Polygons, name)
		assert.Empty(t, view.Lines, name)
	}
}

func TestSelect_NoSpatialMatches(t *testing.T) {
	view := Select(testSnapshot(), testOtherTribe)

	assert.True(t, view.Found())
	assert.Len(t, view.Polygons, 1)
	assert.Empty(t, view.Lines)
}

func TestSelect_NilSnapshot(t *testing.T) {
	view := Select(nil, testTribe)
	assert.False(t, view.Found())
}

func TestSelect_NonStringAttributeNeverMatches(t *testing.T) {
	snap := &Snapshot{
		Lines: FeatureSet{
			MatchKey: testLineKey,
			Features: []SpatialFeature{{
				Geometry:   orb.LineString{{0, 0}, {1, 1}},
				Properties: map[string]any{testLineKey: 42.0},
			}},
		},
	}

	assert.Empty(t, Select(snap, "42").Lines)
}
