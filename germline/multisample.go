package germline

import (
	"fmt"

	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/willf/bitset"
)

// MultiSampleHetEvidence collects the heterozygous sites of several reference
// samples, along with the set of catalog indices heterozygous in all of them.
// The intersection only ever shrinks as samples are added.
type MultiSampleHetEvidence struct {
	names   []string
	samples map[string]*evidence.Set
	// intersection holds catalog indices; nil until the first Add.
	intersection *bitset.BitSet
	nCatalog     uint
}

// NewMultiSampleHetEvidence creates an empty collection for a catalog of
// nCatalog entries.
func NewMultiSampleHetEvidence(nCatalog int) *MultiSampleHetEvidence {
	return &MultiSampleHetEvidence{
		samples:  make(map[string]*evidence.Set),
		nCatalog: uint(nCatalog),
	}
}

// Add records the heterozygous sites of a sample and narrows the
// intersection to them.
func (m *MultiSampleHetEvidence) Add(sample string, het *evidence.Set) error {
	if _, ok := m.samples[sample]; ok {
		return fmt.Errorf("germline.MultiSampleHetEvidence: sample %s added twice", sample)
	}
	m.names = append(m.names, sample)
	m.samples[sample] = het
	keys := bitset.New(m.nCatalog)
	het.Each(func(e *evidence.PositionEvidence) { keys.Set(uint(e.CatalogIdx)) })
	if m.intersection == nil {
		m.intersection = keys
	} else {
		m.intersection.InPlaceIntersection(keys)
	}
	return nil
}

// Samples returns the sample names in the order they were added.
func (m *MultiSampleHetEvidence) Samples() []string {
	return m.names
}

// Sample returns the heterozygous sites of the named sample, or nil.
func (m *MultiSampleHetEvidence) Sample(name string) *evidence.Set {
	return m.samples[name]
}

// Intersection returns a copy of the catalog indices heterozygous in every
// sample so far.  Before the first Add it is empty.
func (m *MultiSampleHetEvidence) Intersection() *bitset.BitSet {
	if m.intersection == nil {
		return bitset.New(m.nCatalog)
	}
	return m.intersection.Clone()
}

// IntersectionCount returns the size of the intersection.
func (m *MultiSampleHetEvidence) IntersectionCount() int {
	if m.intersection == nil {
		return 0
	}
	return int(m.intersection.Count())
}

// IntersectionFilter returns a Filter that tracks the collection: it accepts
// everything while no sample has been added, and afterwards only sites in the
// current intersection.
func (m *MultiSampleHetEvidence) IntersectionFilter() Filter {
	return FilterFunc(func(e *evidence.PositionEvidence) bool {
		if m.intersection == nil {
			return true
		}
		return m.intersection.Test(uint(e.CatalogIdx))
	})
}
