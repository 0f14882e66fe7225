// Command validate checks emitted scan artifacts against the engine's
// structural invariants: per-species basis bucket sums, percentage bounds,
// and cross-artifact total consistency. Run it after a scan to verify the
// outputs a dashboard is about to consume.
//
// Usage:
//
//	go run ./cmd/validate -dir web/data
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/occurrence-metrics/internal/aggregate"
	"github.com/couchcryptid/occurrence-metrics/internal/report"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "directory containing scan result artifacts")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	rows, header, err := readSpeciesCSV(filepath.Join(dir, report.SpeciesCSVName))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	overall, err := readOverallJSON(filepath.Join(dir, report.OverallJSONName))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	phases := []*phase{
		checkBucketSums(rows, header),
		checkPercentBounds(rows, header),
		checkTotals(rows, header, overall),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// checkBucketSums verifies sum(basis buckets) == usa_records per species.
func checkBucketSums(rows [][]string, header map[string]int) *phase {
	p := &phase{name: "basis bucket sums"}
	buckets := []string{
		"basis_HumanObservation", "basis_Observation", "basis_MachineObservation",
		"basis_PreservedSpecimen", "basis_FossilSpecimen", "basis_Other",
	}
	for _, row := range rows {
		var sum int64
		for _, b := range buckets {
			sum += intField(row, header, b)
		}
		usa := intField(row, header, "usa_records")
		if sum != usa {
			p.errorf("%s: bucket sum %d != usa_records %d", row[header["species_id"]], sum, usa)
		}
	}
	return p
}

// checkPercentBounds verifies every percentage field lies in [0,1].
func checkPercentBounds(rows [][]string, header map[string]int) *phase {
	p := &phase{name: "percentage bounds"}
	pcts := []string{
		"pct_dated_any", "pct_dated_full", "pct_post_2010",
		"pct_uncertainty_le_2km", "pct_captive_flagged",
	}
	for _, row := range rows {
		for _, name := range pcts {
			v := floatField(row, header, name)
			if v < 0 || v > 1 {
				p.errorf("%s: %s = %g out of [0,1]", row[header["species_id"]], name, v)
			}
		}
	}
	return p
}

// checkTotals verifies the overall summary equals the species table sums.
func checkTotals(rows [][]string, header map[string]int, overall aggregate.Counts) *phase {
	p := &phase{name: "overall totals"}
	var total, usa int64
	for _, row := range rows {
		total += intField(row, header, "total_records")
		usa += intField(row, header, "usa_records")
	}
	if total != overall.TotalRecords {
		p.errorf("species total_records sum %d != overall %d", total, overall.TotalRecords)
	}
	if usa != overall.USARecords {
		p.errorf("species usa_records sum %d != overall %d", usa, overall.USARecords)
	}
	return p
}

func readSpeciesCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: missing header row", path)
	}
	header := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		header[name] = i
	}
	return all[1:], header, nil
}

func readOverallJSON(path string) (aggregate.Counts, error) {
	var overall aggregate.Counts
	data, err := os.ReadFile(path)
	if err != nil {
		return overall, fmt.Errorf("open %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &overall); err != nil {
		return overall, fmt.Errorf("parse %s: %w", path, err)
	}
	return overall, nil
}

func intField(row []string, header map[string]int, name string) int64 {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return 0
	}
	v, _ := strconv.ParseInt(row[i], 10, 64)
	return v
}

func floatField(row []string, header map[string]int, name string) float64 {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return 0
	}
	v, _ := strconv.ParseFloat(row[i], 64)
	return v
}
