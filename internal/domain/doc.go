// Package domain models the tribe origin datasets and the per-selection view
// logic of the dashboard.
//
// # Data Sources
//
// Three remote files describe the settlements:
//
//   - A coordinate table (CSV). One row per relationship between a primary
//     village ("n_tribe") and one of the villages its residents came from
//     ("o_tribe"). A primary village without recorded origins appears in a
//     single row whose origin columns are empty.
//   - A polygon shapefile of village areas. The DBF attribute "tribe name"
//     holds the primary village identifier.
//   - A GeoJSON FeatureCollection of flow lines in EPSG:4326. The property
//     "goal_tribe" names the village a relocation path terminates at.
//
// # Coordinate Table Conventions
//
// Columns:
//
//	n_tribe          primary village identifier (required)
//	NT_lat, NT_lon   primary coordinates in WGS-84 degrees (required columns)
//	o_tribe          origin village name (optional, may be empty)
//	OT_lat, OT_lon   origin coordinates (optional, may be empty)
//
// Any other column is kept verbatim so the attribute table can show it.
//
// Missing values follow the usual spreadsheet export sentinels: an empty cell,
// "NA", "N/A", "NaN", "null", "None" and friends are all treated as absent.
// Rows sharing one n_tribe are expected to repeat identical primary
// coordinates. The service does not enforce this; cmd/validate reports it.
//
// # Matching
//
// Selection is exact string equality on the identifier. There is no case
// folding and no whitespace trimming, so "Tayal-A" and "tayal-a" are
// different villages.
//
// # Coincidence
//
// Some rows record the primary village itself as an origin. An origin whose
// coordinates lie strictly within [DefaultCoincidenceTolerance] degrees of the
// primary coordinates on both axes is treated as the primary village and never
// drawn as a secondary marker, whatever its name. 0.0001 degrees is roughly
// eleven metres at Taiwan's latitude.
package domain
