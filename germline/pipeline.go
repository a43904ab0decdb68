package germline

import (
	"context"

	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/contamination"
	"github.com/grailbio/allelic/encoding/bamprovider"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/allelic/pileup/scan"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Opts defines the behavior of a Pipeline.
type Opts struct {
	Scan scan.Opts
	// MinDepthPercent and MaxDepthPercent scale the median depth into the
	// accepted depth band.
	MinDepthPercent float64
	MaxDepthPercent float64
	// MinHetAF and MaxHetAF bound the allele fractions of a heterozygous
	// site.
	MinHetAF float64
	MaxHetAF float64
	// Unfiltered makes the heterozygous output the raw primary evidence, and
	// skips the other reference samples.  For diagnostics.
	Unfiltered bool
	// MinNormalDepthForContamination is the normal depth a homozygous site
	// must exceed to take part in contamination estimation.
	MinNormalDepthForContamination int
}

// DefaultOpts holds the default pipeline settings.
var DefaultOpts = Opts{
	Scan:                           scan.DefaultOpts,
	MinDepthPercent:                0.5,
	MaxDepthPercent:                1.5,
	MinHetAF:                       0.4,
	MaxHetAF:                       0.65,
	MinNormalDepthForContamination: 10,
}

// Sample is a named alignment source.
type Sample struct {
	Name     string
	Provider bamprovider.Provider
}

// Result is the output of Pipeline.Run.
type Result struct {
	// Primary is the unfiltered evidence of the primary reference sample.
	Primary *evidence.Set
	// DepthFilter is the depth band of the primary sample.
	DepthFilter *DepthFilter
	// DepthPassed is the primary evidence accepted by DepthFilter.
	DepthPassed *evidence.Set
	// SnpChecked is the primary evidence at SNP-check loci.
	SnpChecked *evidence.Set
	// Homozygous is the depth-passing, homozygous primary evidence.
	Homozygous *evidence.Set
	// Heterozygous is the consensus heterozygous set: primary heterozygous
	// sites that are heterozygous in every reference sample.
	Heterozygous *evidence.Set
	MultiSample  *MultiSampleHetEvidence
}

// Pipeline turns reference-sample alignments into filtered genotype
// evidence.
type Pipeline struct {
	Opts     Opts
	Catalog  *catalog.Catalog
	SnpCheck catalog.LocusSet
}

// NewPipeline creates a Pipeline over cat.  snpCheck may be nil.
func NewPipeline(cat *catalog.Catalog, snpCheck catalog.LocusSet, opts Opts) *Pipeline {
	return &Pipeline{Opts: opts, Catalog: cat, SnpCheck: snpCheck}
}

func (p *Pipeline) hetFilter() HeterozygousFilter {
	return HeterozygousFilter{MinAF: p.Opts.MinHetAF, MaxAF: p.Opts.MaxHetAF}
}

func (p *Pipeline) scanSet(sample Sample, set *evidence.Set) error {
	log.Printf("germline: scanning %d site(s) of %s", set.Len(), sample.Name)
	if err := scan.Scan(sample.Provider, set, p.Opts.Scan); err != nil {
		return errors.E(err, "scan sample", sample.Name)
	}
	return nil
}

// Run processes the reference samples in order.  refs[0] is the primary
// sample and is scanned over the whole catalog.  Each later sample is only
// scanned at the sites still heterozygous in all samples before it.
func (p *Pipeline) Run(ctx context.Context, refs []Sample) (*Result, error) {
	if len(refs) == 0 {
		return nil, errors.E(errors.Invalid, "germline.Run: no reference sample")
	}
	primary := refs[0]
	res := &Result{
		Primary:     evidence.NewSet(p.Catalog),
		MultiSample: NewMultiSampleHetEvidence(p.Catalog.Len()),
	}
	if err := p.scanSet(primary, res.Primary); err != nil {
		return nil, err
	}
	res.DepthFilter = NewDepthFilter(p.Opts.MinDepthPercent, p.Opts.MaxDepthPercent, res.Primary)
	res.DepthPassed = Apply(res.Primary, res.DepthFilter)
	res.SnpChecked = Apply(res.Primary, NewCatalogMembershipFilter(p.SnpCheck))
	res.Homozygous = Apply(res.Primary, And(res.DepthFilter, HomozygousFilter{}))
	primaryHet := Apply(res.Primary, And(res.DepthFilter, p.hetFilter()))
	if err := res.MultiSample.Add(primary.Name, primaryHet); err != nil {
		return nil, err
	}
	log.Printf("germline: %s: %d homozygous, %d heterozygous, %d snpcheck site(s)",
		primary.Name, res.Homozygous.Len(), primaryHet.Len(), res.SnpChecked.Len())

	if p.Opts.Unfiltered {
		log.Printf("germline: unfiltered mode, emitting raw evidence of %s", primary.Name)
		res.Heterozygous = res.Primary
		return res, nil
	}

	for _, sample := range refs[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set := evidence.NewSubset(p.Catalog, res.MultiSample.Intersection())
		if err := p.scanSet(sample, set); err != nil {
			return nil, err
		}
		depth := NewDepthFilter(p.Opts.MinDepthPercent, p.Opts.MaxDepthPercent, set)
		het := Apply(set, And(depth, p.hetFilter()))
		if err := res.MultiSample.Add(sample.Name, het); err != nil {
			return nil, err
		}
		log.Printf("germline: %s: %d heterozygous site(s), %d in common", sample.Name, het.Len(),
			res.MultiSample.IntersectionCount())
	}
	res.Heterozygous = Apply(primaryHet, res.MultiSample.IntersectionFilter())
	return res, nil
}

// TumorBAF scans tumor at the given (typically consensus heterozygous) sites
// and returns the tumor evidence.
func (p *Pipeline) TumorBAF(tumor Sample, het *evidence.Set) (*evidence.Set, error) {
	set := evidence.NewSubset(p.Catalog, het.Indices())
	if err := p.scanSet(tumor, set); err != nil {
		return nil, err
	}
	return set, nil
}

// TumorSites scans tumor at the germline homozygous-reference sites and pairs
// the normal and tumor evidence of every site whose normal depth exceeds
// Opts.MinNormalDepthForContamination.  It also returns the tumor evidence.
func (p *Pipeline) TumorSites(tumor Sample, homozygous *evidence.Set) ([]contamination.Site, *evidence.Set, error) {
	tumorSet := evidence.NewSubset(p.Catalog, homozygous.Indices())
	if err := p.scanSet(tumor, tumorSet); err != nil {
		return nil, nil, err
	}
	normalDepth := make(map[int]uint32, homozygous.Len())
	homozygous.Each(func(e *evidence.PositionEvidence) {
		normalDepth[e.CatalogIdx] = e.ReadDepth
	})
	var sites []contamination.Site
	tumorSet.Each(func(e *evidence.PositionEvidence) {
		nd := normalDepth[e.CatalogIdx]
		if int(nd) <= p.Opts.MinNormalDepthForContamination {
			return
		}
		sites = append(sites, contamination.Site{
			Chrom:           e.Chrom,
			Pos:             e.Pos,
			NormalDepth:     int(nd),
			TumorDepth:      int(e.ReadDepth),
			TumorAltSupport: int(e.AltSupport),
		})
	})
	log.Printf("germline: %d of %d homozygous site(s) usable for contamination", len(sites), homozygous.Len())
	return sites, tumorSet, nil
}
