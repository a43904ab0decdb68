package germline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/encoding/bamprovider"
	"github.com/grailbio/allelic/internal/readtest"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// columns gives, per 1-based chr1 position, the bases of the reads
// covering it.
type columns map[int]string

func newTestHeader(t *testing.T) *sam.Header {
	return readtest.NewHeader(t, readtest.Ref{Name: "chr1", Len: 100000})
}

// newProvider builds a fake provider with one 11-base read per base listed in
// cols, centered on the position.
func newProvider(t *testing.T, header *sam.Header, cols columns) bamprovider.Provider {
	var positions []int
	for pos := range cols {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	var recs []*sam.Record
	for _, pos := range positions {
		for i, b := range []byte(cols[pos]) {
			seq := []byte("CCCCCCCCCCC")
			seq[5] = b
			recs = append(recs, readtest.NewRecord(t, fmt.Sprintf("r%d_%d", pos, i), header.Refs()[0], pos-6, "11M", string(seq), readtest.DefaultOpts))
		}
	}
	return bamprovider.NewFakeProvider(header, recs)
}

func newCatalog(t *testing.T, positions ...int) *catalog.Catalog {
	var entries []catalog.Entry
	for _, pos := range positions {
		entries = append(entries, catalog.Entry{Chrom: "chr1", Pos: pos, Ref: 'A', Alt: 'G'})
	}
	cat, err := catalog.New(entries)
	assert.NoError(t, err)
	return cat
}

func positions(set *evidence.Set) []int {
	out := []int{}
	set.Each(func(e *evidence.PositionEvidence) { out = append(out, e.Pos) })
	return out
}

func testOpts() Opts {
	opts := DefaultOpts
	opts.Scan.Plan.MinGap = 1
	opts.Scan.Parallelism = 2
	return opts
}

func TestHetSiteAcrossSamples(t *testing.T) {
	header := newTestHeader(t)
	cat := newCatalog(t, 100)
	p := NewPipeline(cat, nil, testOpts())

	sample1 := newProvider(t, header, columns{100: strings.Repeat("A", 10) + strings.Repeat("G", 10)})
	res, err := p.Run(context.Background(), []Sample{{"s1", sample1}})
	assert.NoError(t, err)
	e := &res.Primary.Chromosomes[0].Sites[0]
	expect.EQ(t, e.ReadDepth, uint32(20))
	expect.EQ(t, e.RefSupport, uint32(10))
	expect.EQ(t, e.AltSupport, uint32(10))
	expect.True(t, HeterozygousFilter{0.4, 0.65}.Test(e))
	expect.False(t, HomozygousFilter{}.Test(e))
	expect.EQ(t, positions(res.Heterozygous), []int{100})

	// A second sample that agrees keeps the site.
	sample2 := newProvider(t, header, columns{100: strings.Repeat("AG", 10)})
	res, err = p.Run(context.Background(), []Sample{{"s1", sample1}, {"s2", sample2}})
	assert.NoError(t, err)
	expect.EQ(t, positions(res.Heterozygous), []int{100})
	expect.EQ(t, res.MultiSample.IntersectionCount(), 1)

	// A homozygous second sample removes it.
	sample3 := newProvider(t, header, columns{100: strings.Repeat("A", 20)})
	res, err = p.Run(context.Background(), []Sample{{"s1", sample1}, {"s3", sample3}})
	assert.NoError(t, err)
	expect.EQ(t, positions(res.Heterozygous), []int{})
	expect.EQ(t, res.MultiSample.IntersectionCount(), 0)

	// Had the homozygous sample been primary, the site would never have
	// entered the intersection.
	res, err = p.Run(context.Background(), []Sample{{"s3", sample3}, {"s1", sample1}})
	assert.NoError(t, err)
	expect.EQ(t, positions(res.Heterozygous), []int{})
	expect.EQ(t, positions(res.Homozygous), []int{100})
}

// recordingProvider remembers the regions it was asked for.
type recordingProvider struct {
	bamprovider.Provider
	mu      sync.Mutex
	regions map[int]bool
}

func (p *recordingProvider) NewIterator(region bamprovider.Region) bamprovider.Iterator {
	p.mu.Lock()
	p.regions[region.End] = true
	p.mu.Unlock()
	return p.Provider.NewIterator(region)
}

func TestPipeline(t *testing.T) {
	header := newTestHeader(t)
	cat := newCatalog(t, 100, 200, 300, 400, 500)
	het := strings.Repeat("AG", 10)
	hom := strings.Repeat("A", 20)
	sample1 := newProvider(t, header, columns{100: het, 200: hom, 300: het, 400: het, 500: strings.Repeat("A", 80)})
	sample2 := &recordingProvider{
		Provider: newProvider(t, header, columns{100: het, 200: het, 300: hom, 400: het}),
		regions:  map[int]bool{},
	}
	sample3 := newProvider(t, header, columns{100: het, 400: hom})
	snpCheck := newCatalog(t, 200, 300).Loci()

	p := NewPipeline(cat, snpCheck, testOpts())
	res, err := p.Run(context.Background(), []Sample{{"s1", sample1}, {"s2", sample2}, {"s3", sample3}})
	assert.NoError(t, err)

	expect.EQ(t, res.DepthFilter.MedianDepth, 20.0)
	expect.EQ(t, res.DepthFilter.MinDepth, uint32(10))
	expect.EQ(t, res.DepthFilter.MaxDepth, uint32(30))
	expect.EQ(t, positions(res.Primary), []int{100, 200, 300, 400, 500})
	expect.EQ(t, positions(res.DepthPassed), []int{100, 200, 300, 400})
	expect.EQ(t, positions(res.SnpChecked), []int{200, 300})
	expect.EQ(t, positions(res.Homozygous), []int{200})
	expect.EQ(t, positions(res.Heterozygous), []int{100})
	expect.EQ(t, res.MultiSample.Samples(), []string{"s1", "s2", "s3"})
	expect.EQ(t, positions(res.MultiSample.Sample("s2")), []int{100, 400})

	// s2 is only scanned at the sites heterozygous in s1.
	expect.EQ(t, sample2.regions, map[int]bool{100: true, 300: true, 400: true})

	p.Opts.Unfiltered = true
	res, err = p.Run(context.Background(), []Sample{{"s1", sample1}, {"s2", sample2}})
	assert.NoError(t, err)
	expect.EQ(t, positions(res.Heterozygous), []int{100, 200, 300, 400, 500})

	_, err = p.Run(context.Background(), nil)
	expect.NotNil(t, err)
}

func TestTumorSites(t *testing.T) {
	header := newTestHeader(t)
	cat := newCatalog(t, 100, 200, 300)
	normal := newProvider(t, header, columns{100: strings.Repeat("A", 20), 200: strings.Repeat("A", 5), 300: strings.Repeat("A", 20)})
	tumor := newProvider(t, header, columns{100: strings.Repeat("A", 27) + "GGG", 200: "AG", 300: strings.Repeat("AG", 15)})
	opts := testOpts()
	opts.MinDepthPercent = 0
	opts.MaxDepthPercent = 0
	p := NewPipeline(cat, nil, opts)
	res, err := p.Run(context.Background(), []Sample{{"normal", normal}})
	assert.NoError(t, err)
	expect.EQ(t, positions(res.Homozygous), []int{100, 200, 300})

	sites, tumorSet, err := p.TumorSites(Sample{"tumor", tumor}, res.Homozygous)
	assert.NoError(t, err)
	expect.EQ(t, tumorSet.Len(), 3)
	require.Len(t, sites, 2)
	expect.EQ(t, sites[0].Pos, 100)
	expect.EQ(t, sites[0].NormalDepth, 20)
	expect.EQ(t, sites[0].TumorDepth, 30)
	expect.EQ(t, sites[0].TumorAltSupport, 3)
	expect.EQ(t, sites[1].TumorAltSupport, 15)

	baf, err := p.TumorBAF(Sample{"tumor", tumor}, res.Homozygous)
	assert.NoError(t, err)
	expect.EQ(t, baf.Chromosomes[0].Sites[2].BAF(), 0.5)
}
