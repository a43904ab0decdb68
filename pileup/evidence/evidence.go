// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package evidence accumulates per-site allelic read support.
package evidence

import (
	"fmt"

	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/pileup"
	"github.com/grailbio/hts/sam"
	"github.com/willf/bitset"
)

// PositionEvidence is the read support observed at one catalog site.
//
// ReadDepth >= RefSupport + AltSupport always holds: bases that pass the
// quality threshold but match neither allele, or sit inside a deletion, count
// toward depth only.
type PositionEvidence struct {
	Chrom string
	// Pos is 1-based.
	Pos      int
	Ref, Alt byte
	// CatalogIdx is the site's catalog.Entry.Idx.
	CatalogIdx int

	ReadDepth     uint32
	IndelCount    uint32
	RefSupport    uint32
	AltSupport    uint32
	AltQualitySum uint32
}

// BAF returns the alt fraction of the informative support, or 0 when there is
// none.
func (e *PositionEvidence) BAF() float64 {
	total := e.RefSupport + e.AltSupport
	if total == 0 {
		return 0
	}
	return float64(e.AltSupport) / float64(total)
}

// AvgAltQuality returns the mean base quality of alt-supporting bases.
func (e *PositionEvidence) AvgAltQuality() float64 {
	if e.AltSupport == 0 {
		return 0
	}
	return float64(e.AltQualitySum) / float64(e.AltSupport)
}

func (e *PositionEvidence) String() string {
	return fmt.Sprintf("%s:%d %c>%c depth=%d ref=%d alt=%d indel=%d",
		e.Chrom, e.Pos, e.Ref, e.Alt, e.ReadDepth, e.RefSupport, e.AltSupport, e.IndelCount)
}

// AddEvidence updates e with one alignment record.  rec must already have
// passed the record-level filters; records that do not overlap e, and bases
// below minBaseQual, are ignored.
func AddEvidence(e *PositionEvidence, rec *sam.Record, minBaseQual byte) {
	pos := pileup.PosType(e.Pos - 1)
	if pos < pileup.PosType(rec.Pos) || pos >= pileup.PosType(rec.End()) {
		return
	}
	readPos, refPos := pileup.NextAligned(rec, pos)
	var qual byte
	if readPos >= 0 {
		qual = rec.Qual[readPos]
	}
	if qual < minBaseQual {
		return
	}
	e.ReadDepth++
	if refPos != pos {
		// No read base at pos: inside a deletion or skip.
		e.IndelCount++
		return
	}
	if pos+1 < pileup.PosType(rec.End()) && pileup.RefToRead(rec, pos+1) != readPos+1 {
		e.IndelCount++
		return
	}
	base := pileup.SeqAt(rec.Seq, readPos)
	switch base {
	case e.Ref:
		e.RefSupport++
	case e.Alt:
		e.AltSupport++
		e.AltQualitySum += uint32(qual)
	}
}

// Chromosome is the evidence of one chromosome, in catalog order.
type Chromosome struct {
	Name  string
	Sites []PositionEvidence
}

// Set holds one PositionEvidence per site, stored contiguously per
// chromosome.  Region tasks refer to index ranges of a chromosome's Sites, so
// each site has exactly one owner while a scan runs.
type Set struct {
	Chromosomes []Chromosome
}

// NewSet creates empty evidence for every entry of cat.
func NewSet(cat *catalog.Catalog) *Set {
	return NewSubset(cat, nil)
}

// NewSubset creates empty evidence for the entries of cat whose Idx is in
// keep.  A nil keep selects every entry.  Chromosomes without selected
// entries are omitted.
func NewSubset(cat *catalog.Catalog, keep *bitset.BitSet) *Set {
	s := &Set{}
	for _, chrom := range cat.Chromosomes() {
		var sites []PositionEvidence
		for _, entry := range chrom.Entries {
			if keep != nil && !keep.Test(uint(entry.Idx)) {
				continue
			}
			sites = append(sites, PositionEvidence{
				Chrom:      entry.Chrom,
				Pos:        entry.Pos,
				Ref:        entry.Ref,
				Alt:        entry.Alt,
				CatalogIdx: entry.Idx,
			})
		}
		if len(sites) > 0 {
			s.Chromosomes = append(s.Chromosomes, Chromosome{Name: chrom.Name, Sites: sites})
		}
	}
	return s
}

// Len returns the total number of sites.
func (s *Set) Len() int {
	n := 0
	for _, chrom := range s.Chromosomes {
		n += len(chrom.Sites)
	}
	return n
}

// Each calls fn on every site, in catalog order.
func (s *Set) Each(fn func(e *PositionEvidence)) {
	for ci := range s.Chromosomes {
		sites := s.Chromosomes[ci].Sites
		for i := range sites {
			fn(&sites[i])
		}
	}
}

// Filter returns a new Set holding copies of the sites for which keep returns
// true.  Chromosomes left empty are dropped.
func (s *Set) Filter(keep func(e *PositionEvidence) bool) *Set {
	out := &Set{}
	for ci := range s.Chromosomes {
		chrom := &s.Chromosomes[ci]
		var sites []PositionEvidence
		for i := range chrom.Sites {
			if keep(&chrom.Sites[i]) {
				sites = append(sites, chrom.Sites[i])
			}
		}
		if len(sites) > 0 {
			out.Chromosomes = append(out.Chromosomes, Chromosome{Name: chrom.Name, Sites: sites})
		}
	}
	return out
}

// Indices returns the set of catalog indices present in s.
func (s *Set) Indices() *bitset.BitSet {
	b := bitset.New(uint(s.Len()))
	s.Each(func(e *PositionEvidence) { b.Set(uint(e.CatalogIdx)) })
	return b
}

// Chromosome returns the evidence of the named chromosome, or nil.
func (s *Set) Chromosome(name string) *Chromosome {
	for ci := range s.Chromosomes {
		if s.Chromosomes[ci].Name == name {
			return &s.Chromosomes[ci]
		}
	}
	return nil
}
