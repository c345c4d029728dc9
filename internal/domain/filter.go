package domain

import "sort"

// TribeNames returns the distinct, non-empty primary village identifiers of
// the coordinate table in ascending order. It populates the selector.
func TribeNames(records []VillageRecord) []string {
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0, len(records))
	for _, r := range records {
		if r.Tribe == "" {
			continue
		}
		if _, ok := seen[r.Tribe]; ok {
			continue
		}
		seen[r.Tribe] = struct{}{}
		names = append(names, r.Tribe)
	}
	sort.Strings(names)
	return names
}

// Select filters the snapshot down to the rows and features of one village.
// Matching is exact string equality. Empty subsets are valid results.
func Select(s *Snapshot, tribe string) DerivedView {
	view := DerivedView{Tribe: tribe}
	if s == nil {
		return view
	}

	for _, r := range s.Records {
		if r.Tribe == tribe {
			view.Records = append(view.Records, r)
		}
	}
	view.Polygons = matchFeatures(s.Polygons, tribe)
	view.Lines = matchFeatures(s.Lines, tribe)
	return view
}

func matchFeatures(set FeatureSet, tribe string) []SpatialFeature {
	var out []SpatialFeature
	for _, f := range set.Features {
		if v, ok := f.Attr(set.MatchKey); ok && v == tribe {
			out = append(out, f)
		}
	}
	return out
}
