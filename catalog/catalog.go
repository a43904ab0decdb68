package catalog

import (
	"fmt"
)

// Entry is one curated site of the catalog.
type Entry struct {
	Chrom string
	// Pos is 1-based.
	Pos int
	// Ref and Alt are uppercase bases in {A,C,G,T,N}.
	Ref, Alt byte
	// Panel marks sites that belong to the targeted panel.
	Panel bool
	// Idx is the entry's rank in catalog order, in [0, Catalog.Len()).
	Idx int
}

// Chromosome holds the entries of one chromosome, in increasing position
// order.
type Chromosome struct {
	Name    string
	Entries []Entry
}

// Catalog is an immutable, position-sorted list of sites grouped by
// chromosome.  Chromosomes appear in the order of the input.
type Catalog struct {
	chroms []Chromosome
	n      int
}

// New builds a Catalog from entries sorted by chromosome block, then by
// position.  Idx fields are (re)assigned.  It returns an error when a
// chromosome is split across non-adjacent blocks or positions do not strictly
// increase within a chromosome.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{}
	seen := make(map[string]bool)
	for i, e := range entries {
		if e.Pos <= 0 {
			return nil, fmt.Errorf("catalog.New: non-positive position %d at %s", e.Pos, e.Chrom)
		}
		nChrom := len(c.chroms)
		if nChrom == 0 || c.chroms[nChrom-1].Name != e.Chrom {
			if seen[e.Chrom] {
				return nil, fmt.Errorf("catalog.New: unsorted input (split chromosome %v)", e.Chrom)
			}
			seen[e.Chrom] = true
			c.chroms = append(c.chroms, Chromosome{Name: e.Chrom})
			nChrom++
		}
		chrom := &c.chroms[nChrom-1]
		if n := len(chrom.Entries); n > 0 && chrom.Entries[n-1].Pos >= e.Pos {
			return nil, fmt.Errorf("catalog.New: unsorted input on chromosome %v (position %d after %d)",
				e.Chrom, e.Pos, chrom.Entries[n-1].Pos)
		}
		e.Idx = i
		chrom.Entries = append(chrom.Entries, e)
	}
	c.n = len(entries)
	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return c.n
}

// Chromosomes returns the per-chromosome entry lists.  The caller must not
// modify them.
func (c *Catalog) Chromosomes() []Chromosome {
	return c.chroms
}

// Entries returns all entries in catalog order.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, c.n)
	for _, chrom := range c.chroms {
		entries = append(entries, chrom.Entries...)
	}
	return entries
}

// Filter returns a new Catalog containing the entries for which keep returns
// true.  Indices are reassigned.
func (c *Catalog) Filter(keep func(e Entry) bool) *Catalog {
	var entries []Entry
	for _, chrom := range c.chroms {
		for _, e := range chrom.Entries {
			if keep(e) {
				entries = append(entries, e)
			}
		}
	}
	sub, err := New(entries)
	if err != nil {
		// Cannot happen, the receiver is already sorted.
		panic(err)
	}
	return sub
}

// Merge returns the union of a and b.  Where both contain the same
// (chromosome, position), a's entry wins.  Chromosome order is a's, followed
// by chromosomes only present in b in b's order.
func Merge(a, b *Catalog) (*Catalog, error) {
	bChroms := make(map[string][]Entry, len(b.chroms))
	for _, chrom := range b.chroms {
		bChroms[chrom.Name] = chrom.Entries
	}
	var entries []Entry
	for _, chrom := range a.chroms {
		entries = mergeSorted(entries, chrom.Entries, bChroms[chrom.Name])
		delete(bChroms, chrom.Name)
	}
	for _, chrom := range b.chroms {
		if _, ok := bChroms[chrom.Name]; ok {
			entries = append(entries, chrom.Entries...)
		}
	}
	return New(entries)
}

func mergeSorted(dst, a, b []Entry) []Entry {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Pos < b[j].Pos:
			dst = append(dst, a[i])
			i++
		case a[i].Pos > b[j].Pos:
			dst = append(dst, b[j])
			j++
		default:
			dst = append(dst, a[i])
			i++
			j++
		}
	}
	dst = append(dst, a[i:]...)
	return append(dst, b[j:]...)
}

// Locus identifies a site by chromosome and 1-based position.
type Locus struct {
	Chrom string
	Pos   int
}

// LocusSet is a set of loci.
type LocusSet map[Locus]struct{}

// Contains reports whether (chrom, pos) is in the set.
func (s LocusSet) Contains(chrom string, pos int) bool {
	_, ok := s[Locus{chrom, pos}]
	return ok
}

// Loci returns the set of all catalog loci.
func (c *Catalog) Loci() LocusSet {
	s := make(LocusSet, c.n)
	for _, chrom := range c.chroms {
		for _, e := range chrom.Entries {
			s[Locus{e.Chrom, e.Pos}] = struct{}{}
		}
	}
	return s
}
