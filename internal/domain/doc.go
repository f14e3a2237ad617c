// Package domain models near-earth-object (NEO) close-approach records.
//
// # Data Source
//
// Records originate from the NASA NeoWs feed API
// (https://api.nasa.gov/neo/rest/v1/feed). The upstream ingest service polls
// the feed hourly, stores new objects (deduplicated by NASA's neo_id) and
// republishes each stored row as one JSON object on the live feed. The same
// rows are served in bulk by the snapshot endpoint (GET /neos).
//
// # Wire Shape
//
//	{
//	  "id": 17,                        // storage row id (integer or string)
//	  "neo_id": "3542519",             // NASA identifier
//	  "name": "(2010 PK9)",
//	  "close_approach_date": "2024-04-26",
//	  "diameter_km": 0.27,             // estimated_diameter_max in kilometres
//	  "velocity_km_s": 12.3,
//	  "miss_distance_au": 0.041,
//	  "hazardous": false               // is_potentially_hazardous_asteroid
//	}
//
// close_approach_date is a calendar date with no time-of-day component. ISO
// 8601 dates sort lexicographically in calendar order, so the raw string is
// used directly as the aggregation key.
//
// # Display Geometry
//
// The danger field draws each object as a circle:
//
//	radius = clamp(diameter_km * 10, 2, 20)
//	colour = red when hazardous, green otherwise
//
// Negative, NaN or absurd diameters clamp to the bounds instead of failing.
// See [RadiusFor] and [HazardColor].
//
// # Today
//
// "Today" is the current UTC calendar date from the package clock. Tests
// freeze it with [SetClock].
package domain
