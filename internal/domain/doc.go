// Package domain models biodiversity occurrence records and the heuristics
// that classify them.
//
// # Data Source
//
// Occurrence records come from aggregated exports in the Darwin Core flavor
// used by GBIF (https://www.gbif.org) and community platforms such as
// iNaturalist. Two shapes arrive in practice: one delimited or NDJSON file per
// species (GBIF occurrence downloads), or a single hand-curated workbook that
// combines every species and whose column names drift between curators.
//
// # Darwin Core Conventions
//
// Event dates:
//
//	eventDate is free text and wildly inconsistent: ISO timestamps
//	("2015-06-12T09:30:00Z"), bare years ("2015"), ISO 8601 intervals
//	("2007-03-01/2008-05-11"), and, after a round trip through a
//	spreadsheet, raw serial day numbers ("42370" = 2016-01-01 under the
//	1899-12-30 epoch). Discrete year/month/day columns may be present with
//	or without a usable eventDate. See [InferEventDate] for the fallback
//	chain that recovers a usable timestamp.
//
// Geography:
//
//	countryCode carries ISO codes ("US") while country carries names
//	("United States"); either or both may be blank. decimalLatitude and
//	decimalLongitude are strings that sometimes hold "NA" or garbage.
//	US membership falls back to a bounding box covering the lower 48 plus
//	Alaska (lat 18–72, lon -179.5–-66). The box is approximate: it misses
//	the far western Aleutians and clips border regions of Canada and
//	Mexico. Kept as-is; see [IsUSRecord].
//
// Quality issues:
//
//	The issues column packs GBIF validation flags into one delimited string,
//	e.g. "ZERO_COORDINATE;COUNTRY_MISMATCH". Matching is case-insensitive
//	substring containment against a fixed denylist, not token equality.
//
// Captive or managed origin:
//
//	establishmentMeans is the authoritative signal ("captive", "managed",
//	"captive/managed"). Many records instead leak captivity through free
//	text: "seen at the zoo", "pet store escapee", "museum display". A word
//	boundary regex over occurrenceRemarks, locality, and habitat catches
//	these; it is heuristic and will flag e.g. "insect collection" localities.
//
// Basis of record:
//
//	Five canonical Darwin Core values pass through exactly: HumanObservation,
//	Observation, MachineObservation, PreservedSpecimen, FossilSpecimen.
//	Everything else is uppercased, space/hyphen normalized to underscores,
//	and bucketed by keyword stem in a fixed priority order
//	(HUMAN, MACHINE, FOSSIL, PRESERVED/SPECIMEN, OBSERVATION), defaulting
//	to Other.
//
// Unknown values:
//
//	"NA" and "NaN" are spreadsheet sentinels for missing data and are
//	normalized to empty strings during ingestion. Empty fields never fail a
//	record; every flag depending on a missing field is simply false.
package domain
