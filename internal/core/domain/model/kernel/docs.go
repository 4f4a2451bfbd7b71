// Package kernel provides the shared value objects of the dispatch domain and the geo
// utilities built on them.
//
// The package includes:
//   - UUID: identifier value object for orders, partners, customers and issues
//   - Location: validated latitude/longitude point
//   - DistanceKm, BoundingBoxAround, ETA: haversine distance, bounding-box pre-filter and
//     ETA arithmetic with a minimum-speed clamp
//
// All functions are pure; the values are immutable and safe for concurrent use.
package kernel
