// Command genmock generates synthetic occurrence data fixtures exercising
// both ingestion paths: per-species delimited/NDJSON files (plain and
// gzip-compressed) and a pair of combined workbooks where the "cleaned"
// variant has lost its date columns. Useful for manual runs and for
// regenerating test data.
//
// Usage:
//
//	go run ./cmd/genmock -out data/occurrence
package main

import (
	"compress/gzip"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

var streamingHeader = []string{
	"countryCode", "country", "decimalLatitude", "decimalLongitude",
	"eventDate", "year", "month", "day", "basisOfRecord",
	"establishmentMeans", "issues", "mediaType", "associatedMedia",
	"occurrenceRemarks", "locality", "habitat", "coordinateUncertaintyInMeters",
}

// speciesFixture is one per-species file and its rows.
type speciesFixture struct {
	file string
	rows [][]string
}

var speciesFixtures = []speciesFixture{
	{
		file: "Ambystoma_maculatum.csv",
		rows: [][]string{
			{"US", "", "40.1", "-75.2", "2015-06-12", "2015", "6", "12", "HumanObservation", "", "", "StillImage", "", "", "Ridley Creek State Park", "deciduous forest", "150"},
			{"US", "", "40.2", "-75.3", "2015/06", "2015", "", "", "HUMAN_OBSERVATION", "", "", "", "", "", "", "", "3000"},
			{"", "United States", "41.0", "-74.0", "42370", "", "", "", "PreservedSpecimen", "", "ZERO_COORDINATE;COUNTRY_MISMATCH", "", "", "", "", "", ""},
			{"MX", "Mexico", "19.4", "-99.1", "2012-03-04", "2012", "3", "4", "HumanObservation", "", "", "", "", "", "", "", "50"},
		},
	},
	{
		file: "Plethodon_cinereus.tsv",
		rows: [][]string{
			{"US", "", "39.9", "-76.0", "", "2008", "4", "19", "Observation", "", "", "", "", "", "", "", "500"},
			{"US", "", "39.8", "-76.1", "", "2019", "", "", "MachineObservation", "captive", "", "", "", "", "", "", ""},
			{"", "", "38.5", "-78.5", "2003-07-22", "2003", "7", "22", "FossilSpecimen", "", "RECORDED_DATE_INVALID", "", "", "found near the zoo enclosure", "", "", "1999"},
		},
	},
}

var ndjsonFixture = []string{
	`{"countryCode":"US","decimalLatitude":"44.0","decimalLongitude":"-110.5","eventDate":"2021-08-30T14:00:00Z","year":2021,"month":8,"day":30,"basisOfRecord":"HumanObservation","coordinateUncertaintyInMeters":25}`,
	`{"countryCode":"US","decimalLatitude":"44.1","decimalLongitude":"-110.6","eventDate":"","basisOfRecord":"iNaturalist observation","mediaType":"StillImage"}`,
	`not valid json, exercises the skip path`,
	`{"country":"Canada","decimalLatitude":"54.0","decimalLongitude":"-100.0","eventDate":"2018-05-01","basisOfRecord":"HumanObservation"}`,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "directory to write fixture files into")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	for _, fx := range speciesFixtures {
		if err := writeDelimited(filepath.Join(*outDir, fx.file), fx.rows); err != nil {
			return err
		}
		log.Printf("%s: %d records", fx.file, len(fx.rows))
	}

	// Gzip variant of the first fixture under a different species name.
	gzPath := filepath.Join(*outDir, "Notophthalmus_viridescens.csv.gz")
	if err := writeDelimitedGz(gzPath, speciesFixtures[0].rows); err != nil {
		return err
	}
	log.Printf("%s: %d records", filepath.Base(gzPath), len(speciesFixtures[0].rows))

	ndPath := filepath.Join(*outDir, "Lithobates_sylvaticus.ndjson")
	if err := os.WriteFile(ndPath, []byte(joinLines(ndjsonFixture)), 0o644); err != nil {
		return err
	}
	log.Printf("%s: %d lines", filepath.Base(ndPath), len(ndjsonFixture))

	// Combined workbooks go to a sibling directory so the streaming files do
	// not shadow them during discovery.
	bookDir := filepath.Join(*outDir, "..", "combined")
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		return err
	}
	if err := writeWorkbooks(bookDir); err != nil {
		return err
	}
	log.Printf("combined workbooks written to %s", bookDir)
	return nil
}

func writeDelimited(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // error captured via writer flush
	w := csv.NewWriter(f)
	if filepath.Ext(path) == ".tsv" {
		w.Comma = '\t'
	}
	if err := w.Write(streamingHeader); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeDelimitedGz(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // error captured via explicit closes
	gz := gzip.NewWriter(f)
	w := csv.NewWriter(gz)
	if err := w.Write(streamingHeader); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

func writeWorkbooks(dir string) error {
	full := [][]any{
		{"final_species", "country", "latitude", "longitude", "observed_on", "year", "month", "day", "source", "establishmentMeans", "issues", "locality", "voucher", "accuracy_m"},
		{"Ambystoma maculatum", "US", 40.1, -75.2, "2016-04-01", 2016, 4, 1, "iNaturalist human observation", "", "", "vernal pool", "", 80},
		{"Ambystoma maculatum", "", 40.3, -75.1, "", "", "", "", "museum specimen", "", "", "", "collected 2004, voucher #118", ""},
		{"Plethodon cinereus", "United States", 39.9, -76.0, 42736, "", "", "", "HumanObservation", "captive", "", "terrarium display", "", 10},
	}
	clean := [][]any{
		{"final_species", "country", "latitude", "longitude", "source"},
		{"Ambystoma maculatum", "US", 40.1, -75.2, "iNaturalist human observation"},
	}

	if err := writeWorkbook(filepath.Join(dir, "combined_records_v2.xlsx"), full); err != nil {
		return err
	}
	return writeWorkbook(filepath.Join(dir, "combined_records_v2_clean.xlsx"), clean)
}

func writeWorkbook(path string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
