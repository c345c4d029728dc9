package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
)

// naValues are the cell values treated as missing, matching common
// spreadsheet and dataframe export conventions.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseVillageCSV parses the coordinate table. The identifier and primary
// coordinate columns are required; origin columns are optional and treated
// as all-missing when absent.
func ParseVillageCSV(data []byte) ([]domain.VillageRecord, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty coordinate table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, required := range []string{domain.ColTribe, domain.ColLat, domain.ColLon} {
		if _, ok := cols[required]; !ok {
			return nil, &domain.SchemaError{Dataset: domain.DatasetTribes, Key: required}
		}
	}

	var records []domain.VillageRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse coordinate table: %w", err)
		}
		line, _ := r.FieldPos(0)
		if len(row) > len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(row))
		}

		rec, err := parseRow(header, cols, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec.Line = line
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(header []string, cols map[string]int, row []string) (domain.VillageRecord, error) {
	cell := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) || isNA(row[i]) {
			return "", false
		}
		return row[i], true
	}
	number := func(name string) (*float64, error) {
		s, ok := cell(name)
		if !ok {
			return nil, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("column %s: invalid number %q", name, s)
		}
		return &v, nil
	}

	var (
		rec domain.VillageRecord
		err error
	)
	rec.Tribe, _ = cell(domain.ColTribe)
	if name, ok := cell(domain.ColOrigin); ok {
		rec.OriginName = &name
	}
	if rec.Lat, err = number(domain.ColLat); err != nil {
		return rec, err
	}
	if rec.Lon, err = number(domain.ColLon); err != nil {
		return rec, err
	}
	if rec.OriginLat, err = number(domain.ColOriginLat); err != nil {
		return rec, err
	}
	if rec.OriginLon, err = number(domain.ColOriginLon); err != nil {
		return rec, err
	}

	rec.Attributes = make([]domain.Attribute, len(header))
	for i, h := range header {
		var v string
		if i < len(row) && !isNA(row[i]) {
			v = row[i]
		}
		rec.Attributes[i] = domain.Attribute{Name: h, Value: v}
	}
	return rec, nil
}

func isNA(s string) bool {
	_, ok := naValues[s]
	return ok
}
