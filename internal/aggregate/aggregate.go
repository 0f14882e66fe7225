// Package aggregate accumulates per-species and overall data-quality
// counters and computes the derived percentage fields.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/occurrence-metrics/internal/domain"
)

// Counts holds the raw counters for one species or for the whole run.
// TotalRecords counts every record seen; every other counter is scoped to
// US-located records, so for any Counts the basis bucket sum equals
// USARecords.
type Counts struct {
	TotalRecords     int64            `json:"total_records"`
	USARecords       int64            `json:"usa_records"`
	DatedAny         int64            `json:"dated_any"`
	DatedFull        int64            `json:"dated_full"`
	Post2010         int64            `json:"post_2010"`
	BasisCounts      map[string]int64 `json:"basis_counts"`
	CaptiveFlagged   int64            `json:"captive_flagged"`
	ValidCoords      int64            `json:"valid_coords"`
	UncertaintyLE2km int64            `json:"uncertainty_le_2km"`
	IssueFlagged     int64            `json:"gbif_issue_flagged"`
	HasMedia         int64            `json:"has_media"`
}

// NewCounts returns zeroed counters with every basis bucket present.
func NewCounts() *Counts {
	buckets := make(map[string]int64, len(domain.BasisBuckets))
	for _, b := range domain.BasisBuckets {
		buckets[b] = 0
	}
	return &Counts{BasisCounts: buckets}
}

func (c *Counts) add(cl domain.Classified) {
	c.TotalRecords++
	if !cl.Flags.InUS {
		return
	}
	c.USARecords++
	if cl.Flags.HasAnyDate {
		c.DatedAny++
	}
	if cl.Flags.HasFullDate {
		c.DatedFull++
	}
	if cl.Flags.PostThreshold {
		c.Post2010++
	}
	if cl.Flags.ValidCoordinates {
		c.ValidCoords++
	}
	if cl.Flags.UncertaintyWithin2km {
		c.UncertaintyLE2km++
	}
	if cl.Flags.QualityIssue {
		c.IssueFlagged++
	}
	if cl.Flags.CaptiveOrigin {
		c.CaptiveFlagged++
	}
	if cl.Flags.HasMedia {
		c.HasMedia++
	}
	c.BasisCounts[cl.Flags.BasisBucket]++
}

func (c *Counts) merge(o *Counts) {
	c.TotalRecords += o.TotalRecords
	c.USARecords += o.USARecords
	c.DatedAny += o.DatedAny
	c.DatedFull += o.DatedFull
	c.Post2010 += o.Post2010
	c.ValidCoords += o.ValidCoords
	c.UncertaintyLE2km += o.UncertaintyLE2km
	c.IssueFlagged += o.IssueFlagged
	c.CaptiveFlagged += o.CaptiveFlagged
	c.HasMedia += o.HasMedia
	for k, v := range o.BasisCounts {
		c.BasisCounts[k] += v
	}
}

// SpeciesReport is one finalized species row: counters plus percentages over
// the US-located denominator.
type SpeciesReport struct {
	SpeciesID string `json:"species_id"`
	Counts
	PctDatedAny         float64 `json:"pct_dated_any"`
	PctDatedFull        float64 `json:"pct_dated_full"`
	PctPost2010         float64 `json:"pct_post_2010"`
	PctUncertaintyLE2km float64 `json:"pct_uncertainty_le_2km"`
	PctCaptiveFlagged   float64 `json:"pct_captive_flagged"`
}

// Results is one finished run: species rows sorted by identifier plus the
// overall totals.
type Results struct {
	Species     []SpeciesReport
	Overall     Counts
	GeneratedAt time.Time
}

// Aggregator folds classified records into per-species and overall counters.
// It is not safe for concurrent use; run one per worker and Merge afterwards.
type Aggregator struct {
	species map[string]*Counts
	overall *Counts
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		species: make(map[string]*Counts),
		overall: NewCounts(),
	}
}

// Add folds one classified record into both counter sets. Species state is
// created lazily on the first record for that species.
func (a *Aggregator) Add(cl domain.Classified) {
	sp, ok := a.species[cl.Record.SpeciesID]
	if !ok {
		sp = NewCounts()
		a.species[cl.Record.SpeciesID] = sp
	}
	sp.add(cl)
	a.overall.add(cl)
}

// AddBatch folds a whole batch.
func (a *Aggregator) AddBatch(batch []domain.Classified) {
	for _, cl := range batch {
		a.Add(cl)
	}
}

// Merge folds another aggregator's state into this one. Counter addition is
// commutative and associative, so merge order does not matter.
func (a *Aggregator) Merge(o *Aggregator) {
	for id, counts := range o.species {
		sp, ok := a.species[id]
		if !ok {
			sp = NewCounts()
			a.species[id] = sp
		}
		sp.merge(counts)
	}
	a.overall.merge(o.overall)
}

// Finalize computes percentages and returns species rows sorted by
// identifier. The denominator is floored at 1 so a species with no US
// records reports zero percentages instead of dividing by zero.
func (a *Aggregator) Finalize() *Results {
	res := &Results{
		Overall:     *a.overall,
		GeneratedAt: domain.Now().UTC(),
	}
	for id, counts := range a.species {
		denom := counts.USARecords
		if denom == 0 {
			denom = 1
		}
		res.Species = append(res.Species, SpeciesReport{
			SpeciesID:           id,
			Counts:              *counts,
			PctDatedAny:         round4(float64(counts.DatedAny) / float64(denom)),
			PctDatedFull:        round4(float64(counts.DatedFull) / float64(denom)),
			PctPost2010:         round4(float64(counts.Post2010) / float64(denom)),
			PctUncertaintyLE2km: round4(float64(counts.UncertaintyLE2km) / float64(denom)),
			PctCaptiveFlagged:   round4(float64(counts.CaptiveFlagged) / float64(denom)),
		})
	}
	sort.Slice(res.Species, func(i, j int) bool {
		return res.Species[i].SpeciesID < res.Species[j].SpeciesID
	})
	return res
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
