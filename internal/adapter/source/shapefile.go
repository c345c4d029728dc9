package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Shapefile holds the files of one shapefile dataset. PRJ and CPG are
// optional and nil when the sidecar was not published.
type Shapefile struct {
	SHP []byte
	DBF []byte
	PRJ []byte
	CPG []byte
}

// FetchShapefile downloads a .shp and the sidecars that live next to it
// under the same base name. The .dbf attribute table is required; the .prj
// projection and .cpg code page are fetched when available.
func FetchShapefile(ctx context.Context, f domain.Fetcher, shpURL string) (Shapefile, error) {
	var sf Shapefile
	dbfURL, err := sidecarURL(shpURL, ".dbf")
	if err != nil {
		return sf, err
	}
	if sf.SHP, err = f.Fetch(ctx, shpURL); err != nil {
		return sf, err
	}
	if sf.DBF, err = f.Fetch(ctx, dbfURL); err != nil {
		return sf, fmt.Errorf("attribute table: %w", err)
	}
	sf.PRJ = fetchOptional(ctx, f, shpURL, ".prj")
	sf.CPG = fetchOptional(ctx, f, shpURL, ".cpg")
	return sf, nil
}

func fetchOptional(ctx context.Context, f domain.Fetcher, shpURL, ext string) []byte {
	u, err := sidecarURL(shpURL, ext)
	if err != nil {
		return nil
	}
	data, err := f.Fetch(ctx, u)
	if err != nil {
		return nil
	}
	return data
}

// ParseShapefile decodes polygon or polyline shapes with their attribute rows.
// matchKey must be a field of the attribute table. Coordinates must be
// geographic longitude/latitude; a projected .prj or out-of-range vertices
// are an error.
func ParseShapefile(sf Shapefile, dataset, matchKey string, logger *slog.Logger) ([]domain.SpatialFeature, error) {
	if err := checkProjection(sf.PRJ); err != nil {
		return nil, err
	}
	dec, err := codePage(sf.CPG)
	if err != nil {
		return nil, err
	}

	r := shp.SequentialReaderFromExt(
		io.NopCloser(bytes.NewReader(sf.SHP)),
		io.NopCloser(bytes.NewReader(sf.DBF)),
	)
	defer r.Close()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}

	fields := r.Fields()
	names := make([]string, len(fields))
	keyFound := false
	for i, field := range fields {
		names[i] = decodeText(dec, field.String())
		if names[i] == matchKey {
			keyFound = true
		}
	}
	if !keyFound {
		return nil, &domain.SchemaError{Dataset: dataset, Key: matchKey}
	}

	var (
		features []domain.SpatialFeature
		skipped  int
	)
	for r.Next() {
		n, shape := r.Shape()
		geom, ok := shapeGeometry(shape)
		if !ok {
			skipped++
			continue
		}
		if !geographic(geom.Bound()) {
			return nil, fmt.Errorf("shape %d: coordinates outside longitude/latitude range, layer is not EPSG:4326", n)
		}
		props := make(map[string]any, len(names))
		for i, name := range names {
			props[name] = decodeText(dec, r.Attribute(i))
		}
		features = append(features, domain.SpatialFeature{Geometry: geom, Properties: props})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapes: %w", err)
	}
	if skipped > 0 {
		logger.Debug("shapes skipped", "dataset", dataset, "skipped", skipped)
	}
	return features, nil
}

func sidecarURL(shpURL, ext string) (string, error) {
	u, err := url.Parse(shpURL)
	if err != nil {
		return "", fmt.Errorf("parse shapefile url: %w", err)
	}
	cur := path.Ext(u.Path)
	if !strings.EqualFold(cur, ".shp") {
		return "", fmt.Errorf("shapefile url %q does not end in .shp", shpURL)
	}
	if cur == ".SHP" {
		ext = strings.ToUpper(ext)
	}
	u.Path = strings.TrimSuffix(u.Path, cur) + ext
	u.RawPath = ""
	return u.String(), nil
}

// geographicDatums are datums whose axes coincide with WGS84 to well under a
// metre, so their degrees can be drawn unchanged.
var geographicDatums = []string{"WGS_1984", "WGS 84", "WGS84", "TWD_1997", "TAIWAN_DATUM_1997", "TWD97", "GRS_1980"}

// checkProjection accepts a missing .prj or a geographic WGS84-compatible
// coordinate system and rejects everything else.
func checkProjection(prj []byte) error {
	wkt := strings.TrimSpace(string(prj))
	if wkt == "" {
		return nil
	}
	upper := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(upper, "PROJCS[") || strings.HasPrefix(upper, "PROJCRS["):
		return fmt.Errorf("projected coordinate system %s not supported, layer must be EPSG:4326", wktName(wkt))
	case strings.HasPrefix(upper, "GEOGCS[") || strings.HasPrefix(upper, "GEOGCRS["):
		for _, d := range geographicDatums {
			if strings.Contains(upper, d) {
				return nil
			}
		}
		return fmt.Errorf("geographic coordinate system %s not supported, layer must be EPSG:4326", wktName(wkt))
	default:
		return errors.New("unrecognized projection file")
	}
}

// wktName returns the quoted name of the outermost WKT node.
func wktName(wkt string) string {
	start := strings.IndexByte(wkt, '"')
	if start < 0 {
		return "(unnamed)"
	}
	end := strings.IndexByte(wkt[start+1:], '"')
	if end < 0 {
		return "(unnamed)"
	}
	return fmt.Sprintf("%q", wkt[start+1:start+1+end])
}

// codePage resolves the .cpg sidecar to a decoder. A nil decoder means the
// attribute table is already UTF-8.
func codePage(cpg []byte) (*encoding.Decoder, error) {
	name := strings.ToUpper(strings.TrimSpace(string(cpg)))
	var enc encoding.Encoding
	switch name {
	case "", "UTF-8", "UTF8", "65001":
		return nil, nil
	case "950", "CP950", "BIG5":
		enc = traditionalchinese.Big5
	case "936", "CP936", "GBK":
		enc = simplifiedchinese.GBK
	case "1252", "CP1252":
		enc = charmap.Windows1252
	default:
		var err error
		enc, err = ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unsupported attribute code page %q", strings.TrimSpace(string(cpg)))
		}
	}
	return enc.NewDecoder(), nil
}

func decodeText(dec *encoding.Decoder, s string) string {
	if dec == nil {
		return s
	}
	out, err := dec.String(s)
	if err != nil {
		return s
	}
	return out
}

func geographic(b orb.Bound) bool {
	return b.Min[0] >= -180 && b.Max[0] <= 180 && b.Min[1] >= -90 && b.Max[1] <= 90
}

// shapeGeometry converts a shape to an orb geometry. Null, point and
// multipatch shapes are not part of any overlay and report false.
func shapeGeometry(s shp.Shape) (orb.Geometry, bool) {
	switch v := s.(type) {
	case *shp.Polygon:
		return polygonGeometry(splitParts(v.Parts, v.Points)), true
	case *shp.PolygonZ:
		return polygonGeometry(splitParts(v.Parts, v.Points)), true
	case *shp.PolygonM:
		return polygonGeometry(splitParts(v.Parts, v.Points)), true
	case *shp.PolyLine:
		return lineGeometry(splitParts(v.Parts, v.Points)), true
	case *shp.PolyLineZ:
		return lineGeometry(splitParts(v.Parts, v.Points)), true
	case *shp.PolyLineM:
		return lineGeometry(splitParts(v.Parts, v.Points)), true
	default:
		return nil, false
	}
}

func splitParts(parts []int32, points []shp.Point) []orb.LineString {
	out := make([]orb.LineString, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			continue
		}
		ls := make(orb.LineString, 0, end-start)
		for _, p := range points[start:end] {
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		out = append(out, ls)
	}
	return out
}

// polygonGeometry groups rings into polygons. Shapefile outer rings run
// clockwise; a counter-clockwise ring is a hole of the preceding outer ring.
func polygonGeometry(rings []orb.LineString) orb.Geometry {
	var polys orb.MultiPolygon
	for _, ls := range rings {
		ring := orb.Ring(ls)
		if ring.Orientation() == orb.CCW && len(polys) > 0 {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, orb.Polygon{ring})
	}
	if len(polys) == 1 {
		return polys[0]
	}
	return polys
}

func lineGeometry(parts []orb.LineString) orb.Geometry {
	if len(parts) == 1 {
		return parts[0]
	}
	return orb.MultiLineString(parts)
}
