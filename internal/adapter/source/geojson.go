package source

import (
	"fmt"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// ParseFeatureCollection decodes a GeoJSON FeatureCollection. A non-empty
// collection in which no feature carries matchKey is a schema error.
func ParseFeatureCollection(data []byte, dataset, matchKey string) ([]domain.SpatialFeature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	features := make([]domain.SpatialFeature, 0, len(fc.Features))
	keyFound := false
	for _, f := range fc.Features {
		if _, ok := f.Properties[matchKey]; ok {
			keyFound = true
		}
		if f.Geometry == nil {
			continue
		}
		features = append(features, domain.SpatialFeature{
			Geometry:   f.Geometry,
			Properties: map[string]any(f.Properties),
		})
	}
	if len(fc.Features) > 0 && !keyFound {
		return nil, &domain.SchemaError{Dataset: dataset, Key: matchKey}
	}
	return features, nil
}
