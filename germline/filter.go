package germline

import (
	"math"
	"sort"

	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/stat"
)

// Filter is a predicate over site evidence.
type Filter interface {
	Test(e *evidence.PositionEvidence) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(e *evidence.PositionEvidence) bool

// Test implements Filter.
func (f FilterFunc) Test(e *evidence.PositionEvidence) bool { return f(e) }

type andFilter []Filter

func (a andFilter) Test(e *evidence.PositionEvidence) bool {
	for _, f := range a {
		if !f.Test(e) {
			return false
		}
	}
	return true
}

// And returns a Filter accepting sites accepted by all of filters.
func And(filters ...Filter) Filter {
	return andFilter(filters)
}

// Apply returns a copy of the sites of set accepted by f.
func Apply(set *evidence.Set, f Filter) *evidence.Set {
	return set.Filter(f.Test)
}

// DepthFilter accepts sites whose read depth lies within a band around the
// median depth of a sample.
type DepthFilter struct {
	// MedianDepth is the median of the non-zero depths the filter was built
	// from.
	MedianDepth float64
	MinDepth    uint32
	MaxDepth    uint32
}

// NewDepthFilter computes the median non-zero read depth of set once and
// derives the band [round(median*minPct), round(median*maxPct)].  For an even
// number of sites the lower of the two middle depths is used.
func NewDepthFilter(minPct, maxPct float64, set *evidence.Set) *DepthFilter {
	depths := make([]float64, 0, set.Len())
	set.Each(func(e *evidence.PositionEvidence) {
		if e.ReadDepth > 0 {
			depths = append(depths, float64(e.ReadDepth))
		}
	})
	f := &DepthFilter{}
	if len(depths) == 0 {
		log.Printf("germline: no site has coverage, depth filter disabled")
		return f
	}
	sort.Float64s(depths)
	f.MedianDepth = stat.Quantile(0.5, stat.Empirical, depths, nil)
	f.MinDepth = uint32(math.Round(f.MedianDepth * minPct))
	f.MaxDepth = uint32(math.Round(f.MedianDepth * maxPct))
	log.Printf("germline: median depth %v, accepting depth in [%d, %d]", f.MedianDepth, f.MinDepth, f.MaxDepth)
	return f
}

// Disabled reports whether the band is degenerate, in which case every site
// passes.
func (f *DepthFilter) Disabled() bool {
	return f.MinDepth == 0 && f.MaxDepth == 0
}

// Test implements Filter.
func (f *DepthFilter) Test(e *evidence.PositionEvidence) bool {
	if f.Disabled() {
		return true
	}
	return e.ReadDepth > 0 && e.ReadDepth >= f.MinDepth && e.ReadDepth <= f.MaxDepth
}

// HomozygousFilter accepts covered sites without alt support or indels.
type HomozygousFilter struct{}

// Test implements Filter.
func (HomozygousFilter) Test(e *evidence.PositionEvidence) bool {
	return e.IndelCount == 0 && e.AltSupport == 0 && e.ReadDepth > 0
}

// HeterozygousFilter accepts sites where both alleles lie within an allele
// fraction band, measured against the read depth.
type HeterozygousFilter struct {
	MinAF, MaxAF float64
}

func roundDepth(depth uint32, frac float64) uint32 {
	return uint32(math.Round(float64(depth) * frac))
}

// Test implements Filter.
func (f HeterozygousFilter) Test(e *evidence.PositionEvidence) bool {
	if e.IndelCount != 0 || e.ReadDepth == 0 {
		return false
	}
	d := e.ReadDepth
	minRef, maxRef := roundDepth(d, 1-f.MaxAF), roundDepth(d, 1-f.MinAF)
	minAlt, maxAlt := roundDepth(d, f.MinAF), roundDepth(d, f.MaxAF)
	return e.RefSupport >= minRef && e.RefSupport <= maxRef &&
		e.AltSupport >= minAlt && e.AltSupport <= maxAlt
}

// CatalogMembershipFilter accepts sites present in a locus set, typically the
// SNP-check panel.
type CatalogMembershipFilter struct {
	loci catalog.LocusSet
}

// NewCatalogMembershipFilter creates a filter over loci.  A nil set accepts
// nothing.
func NewCatalogMembershipFilter(loci catalog.LocusSet) CatalogMembershipFilter {
	return CatalogMembershipFilter{loci}
}

// Test implements Filter.
func (f CatalogMembershipFilter) Test(e *evidence.PositionEvidence) bool {
	return f.loci.Contains(e.Chrom, e.Pos)
}
