package domain

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// Coordinate table column names.
const (
	ColTribe     = "n_tribe"
	ColLat       = "NT_lat"
	ColLon       = "NT_lon"
	ColOrigin    = "o_tribe"
	ColOriginLat = "OT_lat"
	ColOriginLon = "OT_lon"
)

// Dataset names used in errors, logs and metric labels.
const (
	DatasetTribes   = "tribes"
	DatasetPolygons = "polygons"
	DatasetLines    = "lines"
)

// Fetcher retrieves a remote payload by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Attribute is one named cell of a coordinate table row. An empty Value
// means the cell was missing.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VillageRecord is one row of the coordinate table.
type VillageRecord struct {
	Tribe      string
	Lat        *float64
	Lon        *float64
	OriginName *string
	OriginLat  *float64
	OriginLon  *float64

	// Attributes holds every column of the row in header order.
	Attributes []Attribute
	Line       int
}

// HasPrimary reports whether both primary coordinates are present.
func (r VillageRecord) HasPrimary() bool {
	return r.Lat != nil && r.Lon != nil
}

// IsSubVillage reports whether the row names an origin village and carries
// both of its coordinates.
func (r VillageRecord) IsSubVillage() bool {
	return r.OriginName != nil && *r.OriginName != "" && r.OriginLat != nil && r.OriginLon != nil
}

// SpatialFeature is a polygon or line geometry with its attribute table row.
type SpatialFeature struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// Attr returns the string value of a property. Non-string values never match
// a village identifier and are reported as absent.
func (f SpatialFeature) Attr(key string) (string, bool) {
	v, ok := f.Properties[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FeatureSet is a loaded spatial dataset together with the attribute that
// names the village each feature belongs to.
type FeatureSet struct {
	MatchKey string
	Features []SpatialFeature
}

// LayerWarning describes a spatial dataset that failed to load and was left
// out of the map.
type LayerWarning struct {
	Dataset string `json:"dataset"`
	Message string `json:"message"`
}

// Snapshot is the immutable result of loading all three datasets.
type Snapshot struct {
	Records  []VillageRecord
	Polygons FeatureSet
	Lines    FeatureSet
	Warnings []LayerWarning
	LoadedAt time.Time
}

// NewSnapshot stamps a snapshot with the current load time.
func NewSnapshot(records []VillageRecord, polygons, lines FeatureSet, warnings []LayerWarning) *Snapshot {
	return &Snapshot{
		Records:  records,
		Polygons: polygons,
		Lines:    lines,
		Warnings: warnings,
		LoadedAt: clock.Now(),
	}
}

// DerivedView is the per-selection working set: the records, polygons and
// lines that match one village identifier.
type DerivedView struct {
	Tribe    string
	Records  []VillageRecord
	Polygons []SpatialFeature
	Lines    []SpatialFeature
}

// Found reports whether any coordinate table row matched the selection.
func (v DerivedView) Found() bool {
	return len(v.Records) > 0
}
