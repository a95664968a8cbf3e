// Package domain models UFO sighting reports published by the National UFO
// Reporting Center (NUFORC).
//
// # Data Source
//
// NUFORC publishes an event index at http://www.nuforc.org/webreports/ndxevent.html
// linking one HTML page per month ("06/2015"). Each monthly page holds a table
// with one report per row:
//
//	Date / Time | City | State | Shape | Duration | Summary | Posted
//
// The scraper keeps the first five columns as raw text ([RawSighting]).
//
// # Report Conventions
//
// Date format on the report pages:
//
//	"M/D/YY" or "M/D/YY HH:MM", e.g. "6/30/15 23:50".
//	Normalized to "2006-01-02 15:04:05" in the sightings table ([StandardizeReportDate]).
//
// Duration is free text typed by the witness:
//
//	"45 minutes", "30s", "10+ min", "2 hours", "5 segundos", "a few seconds".
//	[ParseDuration] extracts the first "<number> <unit>" it recognizes using a
//	fixed unit precedence (seconds before minutes before hours). Text without a
//	recognized unit is absent, not zero.
//
// Location is split into a City and a State/Province column. The geocoding key
// is "<state> <city>" ([LocationKey]) and is looked up through a persistent cache
// so repeated runs never re-query a place.
//
// Shape is a free label ("Light", "Circle", "Fireball"). Empty shapes become
// "unknown" and all shapes are lowercased ([NormalizeShape]).
//
// # ID Generation
//
// Sighting IDs are truncated SHA-256 hashes of the raw row, so reprocessing the
// same table produces the same IDs. See [generateID].
package domain
