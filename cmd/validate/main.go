// Command validate checks the integrity of the village datasets before they
// are published: the coordinate table schema, primary coordinate consistency
// per village, origin row completeness, and spatial layer coverage.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/T_Result1.csv \
//	  -shp data/tribe.shp \
//	  -geojson data/flow_line_4326.geojson
//
// Each flag accepts a local path or an http(s) URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/tribe-origin-map/internal/adapter/source"
	"github.com/couchcryptid/tribe-origin-map/internal/domain"
)

// phase tracks pass/fail for a validation phase. Notes are informational.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	csv        string
	shp        string
	geojson    string
	polygonKey string
	lineKey    string
	tolerance  float64
	timeout    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.csv, "csv", "", "coordinate table CSV (path or URL)")
	flag.StringVar(&opts.shp, "shp", "", "village polygon shapefile .shp (path or URL, optional)")
	flag.StringVar(&opts.geojson, "geojson", "", "flow line GeoJSON (path or URL, optional)")
	flag.StringVar(&opts.polygonKey, "polygon-key", "tribe name", "polygon attribute naming the village")
	flag.StringVar(&opts.lineKey, "line-key", "goal_tribe", "line property naming the village")
	flag.Float64Var(&opts.tolerance, "tolerance", domain.DefaultCoincidenceTolerance, "coincidence tolerance in degrees")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout for URLs")
	flag.Parse()

	if opts.csv == "" || opts.tolerance <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(context.Background(), os.Stdout, opts); code != 0 {
		os.Exit(code)
	}
}

// localFetcher reads http(s) locations through the source client and
// everything else from disk.
type localFetcher struct {
	client *source.Client
}

func (f localFetcher) Fetch(ctx context.Context, loc string) ([]byte, error) {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return f.client.Fetch(ctx, loc)
	}
	return os.ReadFile(loc)
}

func run(ctx context.Context, out io.Writer, opts options) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := localFetcher{client: source.NewClient(opts.timeout, logger)}

	fmt.Fprintln(out, "=== Tribe Dataset Integrity Validation ===")
	fmt.Fprintln(out)

	data, err := fetcher.Fetch(ctx, opts.csv)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load coordinate table: %v\n", err)
		return 1
	}
	records, err := source.ParseVillageCSV(data)
	if err != nil {
		fmt.Fprintf(out, "FATAL: parse coordinate table: %v\n", err)
		return 1
	}

	var polygons, lines []domain.SpatialFeature
	if opts.shp != "" {
		sf, err := source.FetchShapefile(ctx, fetcher, opts.shp)
		if err == nil {
			polygons, err = source.ParseShapefile(sf, domain.DatasetPolygons, opts.polygonKey, logger)
		}
		if err != nil {
			fmt.Fprintf(out, "FATAL: load polygons: %v\n", err)
			return 1
		}
	}
	if opts.geojson != "" {
		data, err := fetcher.Fetch(ctx, opts.geojson)
		if err == nil {
			lines, err = source.ParseFeatureCollection(data, domain.DatasetLines, opts.lineKey)
		}
		if err != nil {
			fmt.Fprintf(out, "FATAL: load lines: %v\n", err)
			return 1
		}
	}

	names := domain.TribeNames(records)
	phases := []*phase{
		validatePrimaryCoordinates(records),
		validateOriginRows(records, opts.tolerance),
	}
	if opts.shp != "" {
		phases = append(phases, validateLayerCoverage("Polygon layer coverage", names, polygons, opts.polygonKey))
	}
	if opts.geojson != "" {
		phases = append(phases, validateLayerCoverage("Flow line coverage", names, lines, opts.lineKey))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d rows, %d villages, %d polygons, %d flow lines\n",
		len(records), len(names), len(polygons), len(lines))

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.notes) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		for _, n := range p.notes {
			fmt.Fprintf(out, "  Note: %s\n", n)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validatePrimaryCoordinates checks that every village row carries both
// primary coordinates and that all rows of one village agree on them. The
// map places the primary marker from the first row, so disagreement means
// later rows are silently ignored.
func validatePrimaryCoordinates(records []domain.VillageRecord) *phase {
	p := &phase{name: "Primary coordinates per village"}

	first := make(map[string]domain.VillageRecord)
	for _, rec := range records {
		if rec.Tribe == "" {
			p.errorf("line %d: empty %s", rec.Line, domain.ColTribe)
			continue
		}
		if !rec.HasPrimary() {
			p.errorf("line %d: %s missing %s/%s", rec.Line, rec.Tribe, domain.ColLat, domain.ColLon)
			continue
		}
		if *rec.Lat < -90 || *rec.Lat > 90 || *rec.Lon < -180 || *rec.Lon > 180 {
			p.errorf("line %d: %s coordinates (%.4f, %.4f) out of range", rec.Line, rec.Tribe, *rec.Lat, *rec.Lon)
			continue
		}
		ref, ok := first[rec.Tribe]
		if !ok {
			first[rec.Tribe] = rec
			continue
		}
		if *ref.Lat != *rec.Lat || *ref.Lon != *rec.Lon {
			p.errorf("line %d: %s primary (%.6f, %.6f) differs from line %d (%.6f, %.6f)",
				rec.Line, rec.Tribe, *rec.Lat, *rec.Lon, ref.Line, *ref.Lat, *ref.Lon)
		}
	}
	return p
}

// validateOriginRows flags rows whose origin is half filled in. Such rows are
// neither drawn nor listed. Origins that coincide with their village are
// not drawn either and are reported as notes.
func validateOriginRows(records []domain.VillageRecord, tolerance float64) *phase {
	p := &phase{name: "Origin records"}

	for _, rec := range records {
		hasName := rec.OriginName != nil && *rec.OriginName != ""
		hasCoords := rec.OriginLat != nil && rec.OriginLon != nil
		partialCoords := (rec.OriginLat == nil) != (rec.OriginLon == nil)

		switch {
		case hasName && !hasCoords:
			p.errorf("line %d: %s origin %q has no coordinates", rec.Line, rec.Tribe, *rec.OriginName)
		case !hasName && (hasCoords || partialCoords):
			p.errorf("line %d: %s origin coordinates without %s", rec.Line, rec.Tribe, domain.ColOrigin)
		case rec.IsSubVillage() && rec.HasPrimary() &&
			domain.Coincident(*rec.OriginLat, *rec.OriginLon, *rec.Lat, *rec.Lon, tolerance):
			p.notef("line %d: %s origin %q coincides with the village", rec.Line, rec.Tribe, *rec.OriginName)
		}
	}
	return p
}

// validateLayerCoverage reports features naming no known village as errors
// and villages without any feature as notes.
func validateLayerCoverage(name string, villages []string, features []domain.SpatialFeature, key string) *phase {
	p := &phase{name: name}

	known := make(map[string]bool, len(villages))
	for _, v := range villages {
		known[v] = false
	}

	unknown := make(map[string]int)
	for _, f := range features {
		v, ok := f.Attr(key)
		if !ok {
			continue
		}
		if _, isKnown := known[v]; isKnown {
			known[v] = true
			continue
		}
		unknown[v]++
	}

	unknownNames := make([]string, 0, len(unknown))
	for v := range unknown {
		unknownNames = append(unknownNames, v)
	}
	sort.Strings(unknownNames)
	for _, v := range unknownNames {
		p.errorf("%d feature(s) name unknown village %q", unknown[v], v)
	}

	for _, v := range villages {
		if !known[v] {
			p.notef("%s has no feature", v)
		}
	}
	return p
}
