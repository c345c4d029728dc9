package domain

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"
)

const (
	// DefaultCoincidenceTolerance is the absolute per-axis distance, in
	// degrees, under which an origin is considered the primary village itself.
	DefaultCoincidenceTolerance = 0.0001

	// Placeholder replaces missing values in the attribute table.
	Placeholder = "-"

	// OriginSeparator joins origin names in the side panel summary.
	OriginSeparator = "、"

	// FlowLayerName labels the flow line overlay.
	FlowLayerName = "Flow lines (Filtered)"
)

// Overlay kinds.
const (
	OverlayPolygon = "polygon"
	OverlayLine    = "line"
)

// MarkerStyle is a Font Awesome marker icon specification.
type MarkerStyle struct {
	Color  string `json:"color"`
	Icon   string `json:"icon"`
	Prefix string `json:"prefix"`
}

var (
	PrimaryStyle   = MarkerStyle{Color: "blue", Icon: "star", Prefix: "fa"}
	SecondaryStyle = MarkerStyle{Color: "purple", Icon: "map-pin", Prefix: "fa"}
)

// Marker is a point to draw on the map.
type Marker struct {
	Lat     float64     `json:"lat"`
	Lon     float64     `json:"lon"`
	Tooltip string      `json:"tooltip"`
	Popup   string      `json:"popup,omitempty"` // HTML
	Style   MarkerStyle `json:"style"`
}

// Overlay is a named GeoJSON layer for the layer control.
type Overlay struct {
	Name     string                     `json:"name"`
	Kind     string                     `json:"kind"`
	Features *geojson.FeatureCollection `json:"features"`
}

// MapView is a map center and zoom level.
type MapView struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// RenderOptions tune BuildRender.
type RenderOptions struct {
	Tolerance    float64
	DefaultView  MapView
	SelectedZoom int
}

// DefaultRenderOptions centers on Taiwan and uses the standard tolerance.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Tolerance:    DefaultCoincidenceTolerance,
		DefaultView:  MapView{Lat: 23.97565, Lon: 120.9738819, Zoom: 7},
		SelectedZoom: 15,
	}
}

// Render holds the drawing instructions for one selection.
type Render struct {
	Tribe     string    `json:"tribe"`
	Found     bool      `json:"found"`
	View      MapView   `json:"view"`
	Primary   *Marker   `json:"primary,omitempty"`
	Secondary []Marker  `json:"secondary"`
	Origins   []string  `json:"origins"`
	Overlays  []Overlay `json:"overlays"`

	// Fallback is the attribute table shown when the village has no
	// sub-village records. Nil when the origin list is shown instead.
	Fallback []Attribute `json:"fallback,omitempty"`
}

// ShowFallback reports whether the side panel shows the attribute table.
func (r Render) ShowFallback() bool {
	return r.Fallback != nil
}

// OriginSummary joins the rendered origin names for display.
func (r Render) OriginSummary() string {
	return strings.Join(r.Origins, OriginSeparator)
}

// BuildRender turns a DerivedView into markers, overlays and the side panel.
//
// The primary marker comes from the first matching row. Every sub-village row
// yields a secondary marker unless its origin coincides with the primary
// coordinates. When no row is a sub-village record the first row's full
// attribute set is returned as the fallback table instead.
func BuildRender(view DerivedView, opts RenderOptions) Render {
	r := Render{
		Tribe:     view.Tribe,
		Found:     view.Found(),
		View:      opts.DefaultView,
		Secondary: []Marker{},
		Origins:   []string{},
		Overlays:  []Overlay{},
	}

	if view.Found() && view.Records[0].HasPrimary() {
		first := view.Records[0]
		lat, lon := *first.Lat, *first.Lon
		r.Primary = &Marker{
			Lat:     lat,
			Lon:     lon,
			Tooltip: view.Tribe,
			Popup:   primaryPopup(view.Tribe, lat, lon),
			Style:   PrimaryStyle,
		}
		r.View = MapView{Lat: lat, Lon: lon, Zoom: opts.SelectedZoom}
	}

	subVillages := 0
	seen := make(map[string]struct{})
	for _, rec := range view.Records {
		if !rec.IsSubVillage() {
			continue
		}
		subVillages++

		name, olat, olon := *rec.OriginName, *rec.OriginLat, *rec.OriginLon
		if r.Primary != nil && Coincident(olat, olon, r.Primary.Lat, r.Primary.Lon, opts.Tolerance) {
			continue
		}
		r.Secondary = append(r.Secondary, Marker{
			Lat:     olat,
			Lon:     olon,
			Tooltip: name,
			Style:   SecondaryStyle,
		})
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			r.Origins = append(r.Origins, name)
		}
	}
	sort.Strings(r.Origins)

	if subVillages == 0 {
		r.Fallback = fallbackTable(view.Records)
	}

	if len(view.Polygons) > 0 {
		r.Overlays = append(r.Overlays, Overlay{
			Name:     PolygonLayerName(view.Tribe),
			Kind:     OverlayPolygon,
			Features: toFeatureCollection(view.Polygons),
		})
	}
	if len(view.Lines) > 0 {
		r.Overlays = append(r.Overlays, Overlay{
			Name:     FlowLayerName,
			Kind:     OverlayLine,
			Features: toFeatureCollection(view.Lines),
		})
	}

	return r
}

// Coincident reports whether two points lie strictly within tol degrees of
// each other on both axes.
func Coincident(aLat, aLon, bLat, bLon, tol float64) bool {
	return math.Abs(aLat-bLat) < tol && math.Abs(aLon-bLon) < tol
}

// PolygonLayerName labels the village area overlay.
func PolygonLayerName(tribe string) string {
	return tribe + " 區域"
}

func primaryPopup(tribe string, lat, lon float64) string {
	return fmt.Sprintf("%s<br>經度: %.4f<br>緯度: %.4f", html.EscapeString(tribe), lon, lat)
}

// fallbackTable returns the first record's attributes with missing values
// replaced by Placeholder. It never returns nil.
func fallbackTable(records []VillageRecord) []Attribute {
	if len(records) == 0 {
		return []Attribute{}
	}
	attrs := make([]Attribute, len(records[0].Attributes))
	for i, a := range records[0].Attributes {
		v := a.Value
		if v == "" {
			v = Placeholder
		}
		attrs[i] = Attribute{Name: a.Name, Value: v}
	}
	return attrs
}

func toFeatureCollection(features []SpatialFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := geojson.NewFeature(f.Geometry)
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}
