package roh

import (
	"fmt"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/allelic/circular"
	"github.com/grailbio/allelic/genome"
	"github.com/grailbio/allelic/interval"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/base/log"
)

// Opts controls region detection and reporting.
type Opts struct {
	// WindowSize is the number of trailing sites over which heterozygous
	// calls are counted while a run is open.
	WindowSize int
	// MaxHetInWindow is the largest heterozygous count the window may hold
	// before the run is closed.
	MaxHetInWindow int
	// MinSnpCount and MinLength must both be reached for a run to be
	// reported.
	MinSnpCount int
	MinLength   int
	// LongRegionLength is the length below which a reported region gets the
	// "minLength" soft filter.  Regions at least this long count toward the
	// consanguinity proportion.
	LongRegionLength int
	// MaxHetProportion is the heterozygous fraction above which a region gets
	// the "maxHetProportion" soft filter.
	MaxHetProportion float64
	// CentromereBuffer pads each centromere on both sides.
	CentromereBuffer int
}

// DefaultOpts holds the default detection settings.
var DefaultOpts = Opts{
	WindowSize:       50,
	MaxHetInWindow:   2,
	MinSnpCount:      50,
	MinLength:        500000,
	LongRegionLength: 3000000,
	MaxHetProportion: 0.05,
	CentromereBuffer: 1000000,
}

// Soft filter names.
const (
	FilterPass             = "PASS"
	FilterMinLength        = "minLength"
	FilterMaxHetProportion = "maxHetProportion"
)

// Region is a run of homozygosity.  Start and End are 1-based and inclusive;
// they are the first and last homozygous sites of the run.
type Region struct {
	Chrom      string
	Start, End int
	NumHom     int
	NumHet     int
	NumUnclear int
}

// SnpCount returns the number of sites in the region.
func (r Region) SnpCount() int {
	return r.NumHom + r.NumHet + r.NumUnclear
}

// Length returns the number of bases the region spans.
func (r Region) Length() int {
	return r.End - r.Start + 1
}

// Filter returns the soft-filter string of r under opts.
func (r Region) Filter(opts Opts) string {
	var filters []string
	if r.Length() < opts.LongRegionLength {
		filters = append(filters, FilterMinLength)
	}
	if float64(r.NumHet) > opts.MaxHetProportion*float64(r.SnpCount()) {
		filters = append(filters, FilterMaxHetProportion)
	}
	if len(filters) == 0 {
		return FilterPass
	}
	return strings.Join(filters, ";")
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d hom=%d het=%d unclear=%d", r.Chrom, r.Start, r.End, r.NumHom, r.NumHet, r.NumUnclear)
}

// regionKey orders regions by (chromosome rank, chromosome name, start, end).
type regionKey struct {
	Region
}

func (k regionKey) Compare(c llrb.Comparable) int {
	k2 := c.(regionKey)
	if k.Chrom != k2.Chrom {
		if genome.Less(k.Chrom, k2.Chrom) {
			return -1
		}
		return 1
	}
	if diff := k.Start - k2.Start; diff != 0 {
		return diff
	}
	return k.End - k2.End
}

// Finder detects runs of homozygosity.
type Finder struct {
	Opts Opts
	// Exclusions are the bases no run may contain or span, 0-based.
	Exclusions interval.BEDUnion
}

// exclusionEntries converts genome regions to 0-based entries, under both the
// bare and the "chr"-prefixed chromosome name.
func exclusionEntries(regions []genome.Region, pad int) []interval.Entry {
	var entries []interval.Entry
	for _, r := range regions {
		start := r.Start - 1 - pad
		if start < 0 {
			start = 0
		}
		end := r.End + pad
		for _, name := range []string{r.Chrom, "chr" + r.Chrom} {
			entries = append(entries, interval.Entry{ChrName: name, Start0: interval.PosType(start), End: interval.PosType(end)})
		}
	}
	return entries
}

// NewFinder creates a Finder whose exclusions are the padded centromeres,
// heterochromatin blocks and acrocentric short arms of the given build, plus
// extra when it is not nil.
func NewFinder(opts Opts, version genome.Version, extra *interval.BEDUnion) (*Finder, error) {
	if opts.WindowSize <= 0 {
		return nil, fmt.Errorf("roh.NewFinder: window size must be positive, got %d", opts.WindowSize)
	}
	entries := exclusionEntries(genome.Centromeres(version), opts.CentromereBuffer)
	entries = append(entries, exclusionEntries(genome.Heterochromatin(version), 0)...)
	entries = append(entries, exclusionEntries(genome.AcrocentricArms(version), 0)...)
	interval.SortEntries(entries)
	exclusions, err := interval.NewBEDUnionFromEntries(entries, interval.NewBEDOpts{})
	if err != nil {
		return nil, err
	}
	if extra != nil {
		if exclusions, err = interval.Union(&exclusions, extra); err != nil {
			return nil, err
		}
	}
	log.Debug.Printf("roh: %d excluded base(s) for %v", exclusions.NBases(), version)
	return &Finder{Opts: opts, Exclusions: exclusions}, nil
}

// run is the state of the region detector on one chromosome.
type run struct {
	f      *Finder
	chrom  string
	window *circular.Window
	// start and end are the first and last homozygous sites of the open run;
	// start is -1 when no run is open.
	start, end int
	// Counts up to and including end.
	nHom, nHet, nUnclear int
	// Counts of sites seen after end.
	pendingHet, pendingUnclear int
	emit                       func(Region)
}

func (r *run) open(pos int) {
	r.start, r.end = pos, pos
	r.nHom, r.nHet, r.nUnclear = 1, 0, 0
	r.pendingHet, r.pendingUnclear = 0, 0
	r.window.Reset()
	r.window.Push(false)
}

func (r *run) extend(pos int) {
	r.end = pos
	r.nHom++
	r.nHet += r.pendingHet
	r.nUnclear += r.pendingUnclear
	r.pendingHet, r.pendingUnclear = 0, 0
}

func (r *run) close() {
	if r.start < 0 {
		return
	}
	region := Region{
		Chrom:      r.chrom,
		Start:      r.start,
		End:        r.end,
		NumHom:     r.nHom,
		NumHet:     r.nHet,
		NumUnclear: r.nUnclear,
	}
	r.start, r.end = -1, -1
	if region.SnpCount() < r.f.Opts.MinSnpCount || region.Length() < r.f.Opts.MinLength {
		log.Debug.Printf("roh: discarding %v", region)
		return
	}
	r.emit(region)
}

func (r *run) add(e *evidence.PositionEvidence) {
	z := SiteZygosity(e)
	if r.start >= 0 {
		switch z {
		case Heterozygous:
			r.window.Push(true)
			r.pendingHet++
		case Unclear:
			r.pendingUnclear++
		default:
			r.window.Push(false)
		}
		// The span (end, pos] is tested as 0-based [end-1, pos).
		if r.window.NSet() > r.f.Opts.MaxHetInWindow ||
			r.f.Exclusions.IntersectsByName(r.chrom, interval.PosType(r.end-1), interval.PosType(e.Pos)) {
			r.close()
		}
	}
	if z != Homozygous || r.f.Exclusions.ContainsByName(r.chrom, interval.PosType(e.Pos-1)) {
		return
	}
	if r.start >= 0 {
		r.extend(e.Pos)
	} else {
		r.open(e.Pos)
	}
}

// Find returns the runs of homozygosity in sites, which should hold the
// depth-filtered evidence of one sample.  Only autosomes are searched.
// Regions are ordered by chromosome rank, then start, then end.
func (f *Finder) Find(sites *evidence.Set) []Region {
	tree := llrb.Tree{}
	window := circular.NewWindow(f.Opts.WindowSize)
	for _, chrom := range sites.Chromosomes {
		if !genome.IsAutosome(chrom.Name) {
			continue
		}
		r := &run{
			f:      f,
			chrom:  chrom.Name,
			window: window,
			start:  -1,
			end:    -1,
			emit:   func(region Region) { tree.Insert(regionKey{region}) },
		}
		for i := range chrom.Sites {
			r.add(&chrom.Sites[i])
		}
		r.close()
	}
	regions := make([]Region, 0, tree.Len())
	tree.Do(func(c llrb.Comparable) bool {
		regions = append(regions, c.(regionKey).Region)
		return false
	})
	log.Printf("roh: %d region(s) of homozygosity", len(regions))
	return regions
}
