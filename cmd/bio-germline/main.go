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
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/contamination"
	"github.com/grailbio/allelic/encoding/bamprovider"
	"github.com/grailbio/allelic/genome"
	"github.com/grailbio/allelic/germline"
	"github.com/grailbio/allelic/interval"
	"github.com/grailbio/allelic/pileup/scan"
	"github.com/grailbio/allelic/roh"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

var (
	catalogPath    = flag.String("catalog", "", "Site catalog TSV (#CHROM POS REF ALT [PANEL]), optionally gzipped; required")
	snpCheckPath   = flag.String("snpcheck", "", "Optional catalog of sample-identity check sites; merged into -catalog")
	referencePaths = flag.String("reference", "", "Comma-separated reference (germline) BAM paths; the first is the primary sample; required")
	referenceNames = flag.String("reference-names", "", "Comma-separated sample names for -reference.  Defaults to the BAM basenames")
	tumorPath      = flag.String("tumor", "", "Optional tumor BAM path")
	outPrefix      = flag.String("out", "bio-germline", "Output path prefix")
	parallelism    = flag.Int("parallelism", scan.DefaultOpts.Parallelism, "Number of concurrent region scans per BAM")
	minBaseQual    = flag.Int("min-base-qual", scan.DefaultOpts.MinBaseQuality, "Lower bound on base quality")
	mapq           = flag.Int("mapq", scan.DefaultOpts.MinMappingQuality, "Reads with MAPQ below this level are skipped")
	minDepthPct    = flag.Float64("min-depth-pct", germline.DefaultOpts.MinDepthPercent, "Lower depth bound, as a fraction of the primary sample's median depth")
	maxDepthPct    = flag.Float64("max-depth-pct", germline.DefaultOpts.MaxDepthPercent, "Upper depth bound, as a fraction of the primary sample's median depth")
	minHetAF       = flag.Float64("min-het-af", germline.DefaultOpts.MinHetAF, "Lower allele fraction bound of a heterozygous site")
	maxHetAF       = flag.Float64("max-het-af", germline.DefaultOpts.MaxHetAF, "Upper allele fraction bound of a heterozygous site")
	refGenome      = flag.String("ref-genome", "37", "Reference genome version of the catalog coordinates; 37 or 38")
	excludeBED     = flag.String("exclude-bed", "", "Optional BED of extra regions no run of homozygosity may span")
	positionGap    = flag.Int("position-gap", 0, "Fixed distance between sites from which a new scan task starts; 0 = pick from the BAM location")
	unfiltered     = flag.Bool("unfiltered", false, "Report the raw primary evidence as heterozygous sites, and ignore the other reference samples")
	region         = flag.String("region", "", "Restrict the catalog to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
)

// runOpts is the validated command line.
type runOpts struct {
	catalogPath  string
	snpCheckPath string
	refPaths     []string
	refNames     []string
	tumorPath    string
	outPrefix    string
	region       string
	excludeBED   string
	version      genome.Version
	germline     germline.Opts
	roh          roh.Opts
	model        contamination.Model
}

func bioGermlineUsage() {
	fmt.Printf("Usage: %s [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// sampleName derives a sample name from a BAM path.
func sampleName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".bam")
}

func parseFlags() (runOpts, error) {
	o := runOpts{
		catalogPath:  *catalogPath,
		snpCheckPath: *snpCheckPath,
		refPaths:     splitList(*referencePaths),
		refNames:     splitList(*referenceNames),
		tumorPath:    *tumorPath,
		outPrefix:    *outPrefix,
		region:       *region,
		excludeBED:   *excludeBED,
		germline:     germline.DefaultOpts,
		roh:          roh.DefaultOpts,
		model:        contamination.DefaultModel,
	}
	if o.catalogPath == "" {
		return o, errors.E(errors.Invalid, "-catalog is required")
	}
	if len(o.refPaths) == 0 {
		return o, errors.E(errors.Invalid, "-reference is required")
	}
	if len(o.refNames) == 0 {
		for _, path := range o.refPaths {
			o.refNames = append(o.refNames, sampleName(path))
		}
	}
	if len(o.refNames) != len(o.refPaths) {
		return o, errors.E(errors.Invalid, fmt.Sprintf("%d -reference-names for %d -reference paths", len(o.refNames), len(o.refPaths)))
	}
	var err error
	if o.version, err = genome.ParseVersion(*refGenome); err != nil {
		return o, errors.E(errors.Invalid, err)
	}

	g := &o.germline
	g.Scan.Parallelism = *parallelism
	g.Scan.MinBaseQuality = *minBaseQual
	g.Scan.MinMappingQuality = *mapq
	if *positionGap > 0 {
		g.Scan.Plan.MinGap = *positionGap
		g.Scan.Plan.FixedGap = true
	} else {
		g.Scan.Plan.MinGap = scan.DefaultMinGap(bamprovider.IsHighLatency(o.refPaths[0]))
	}
	g.MinDepthPercent = *minDepthPct
	g.MaxDepthPercent = *maxDepthPct
	g.MinHetAF = *minHetAF
	g.MaxHetAF = *maxHetAF
	g.Unfiltered = *unfiltered
	return o, nil
}

// loadCatalog reads the catalog and the SNP-check sites, merges them, and
// applies the region restriction.
func loadCatalog(ctx context.Context, o runOpts) (cat *catalog.Catalog, snpCheck catalog.LocusSet, err error) {
	if cat, err = catalog.ReadFile(ctx, o.catalogPath); err != nil {
		return nil, nil, err
	}
	if o.snpCheckPath != "" {
		var snp *catalog.Catalog
		if snp, err = catalog.ReadFile(ctx, o.snpCheckPath); err != nil {
			return nil, nil, err
		}
		snpCheck = snp.Loci()
		if cat, err = catalog.Merge(cat, snp); err != nil {
			return nil, nil, err
		}
	}
	if o.region != "" {
		r, err := interval.ParseRegionString(o.region)
		if err != nil {
			return nil, nil, errors.E(errors.Invalid, err, "-region", o.region)
		}
		cat = cat.Filter(func(e catalog.Entry) bool {
			pos := interval.PosType(e.Pos - 1)
			return e.Chrom == r.ChrName && pos >= r.Start0 && pos < r.End
		})
		log.Printf("restricted catalog to %s: %d site(s)", o.region, cat.Len())
	}
	return cat, snpCheck, nil
}

func closeProvider(name string, p bamprovider.Provider) {
	if err := p.Close(); err != nil {
		log.Error.Printf("close %s: %v", name, err)
	}
}

func run(ctx context.Context, o runOpts) error {
	cat, snpCheck, err := loadCatalog(ctx, o)
	if err != nil {
		return err
	}
	if err := writeCatalog(ctx, o.outPrefix+".sites.tsv", cat); err != nil {
		return err
	}
	refs := make([]germline.Sample, len(o.refPaths))
	for i, path := range o.refPaths {
		refs[i] = germline.Sample{Name: o.refNames[i], Provider: bamprovider.NewProvider(path)}
		defer closeProvider(path, refs[i].Provider)
	}
	pipeline := germline.NewPipeline(cat, snpCheck, o.germline)
	res, err := pipeline.Run(ctx, refs)
	if err != nil {
		return err
	}

	var extra *interval.BEDUnion
	if o.excludeBED != "" {
		u, err := interval.NewBEDUnionFromPath(o.excludeBED, interval.NewBEDOpts{})
		if err != nil {
			return errors.E(err, "read -exclude-bed", o.excludeBED)
		}
		extra = &u
	}
	finder, err := roh.NewFinder(o.roh, o.version, extra)
	if err != nil {
		return err
	}
	regions := finder.Find(res.DepthPassed)
	qc := qcValues{
		medianDepth:   res.DepthFilter.MedianDepth,
		nHomozygous:   res.Homozygous.Len(),
		nHeterozygous: res.Heterozygous.Len(),
		consanguinity: roh.ConsanguinityProportion(regions, o.roh),
	}
	qc.upd, qc.hasUPD = roh.FindUniparentalDisomy(regions, o.roh)

	parallelism := o.germline.Scan.Parallelism
	if err := writeEvidence(ctx, o.outPrefix+".snpcheck.tsv", parallelism, res.SnpChecked); err != nil {
		return err
	}
	if err := writeEvidence(ctx, o.outPrefix+".homozygous.tsv", parallelism, res.Homozygous); err != nil {
		return err
	}
	if err := writeRegions(ctx, o.outPrefix+".roh.tsv", regions, o.roh); err != nil {
		return err
	}

	bafPath := o.outPrefix + ".baf.tsv.gz"
	if o.tumorPath == "" {
		if err := writeBAF(ctx, bafPath, parallelism, res.Heterozygous, nil); err != nil {
			return err
		}
		return writeQC(ctx, o.outPrefix+".qc.tsv", qc)
	}

	tumor := germline.Sample{Name: sampleName(o.tumorPath), Provider: bamprovider.NewProvider(o.tumorPath)}
	defer closeProvider(o.tumorPath, tumor.Provider)
	tumorBAF, err := pipeline.TumorBAF(tumor, res.Heterozygous)
	if err != nil {
		return err
	}
	if err := writeBAF(ctx, bafPath, parallelism, res.Heterozygous, tumorBAF); err != nil {
		return err
	}
	sites, _, err := pipeline.TumorSites(tumor, res.Homozygous)
	if err != nil {
		return err
	}
	if err := writeContaminationSites(ctx, o.outPrefix+".contamination.tsv", sites); err != nil {
		return err
	}
	qc.hasTumor = true
	qc.contamination = o.model.Estimate(sites)
	log.Printf("tumor contamination: %v", qc.contamination)
	return writeQC(ctx, o.outPrefix+".qc.tsv", qc)
}

func main() {
	flag.Usage = bioGermlineUsage
	shutdown := grail.Init()
	defer shutdown()
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})

	if flag.NArg() != 0 {
		log.Fatalf("unexpected positional arguments: '%s'", strings.Join(flag.Args(), " "))
	}
	opts, err := parseFlags()
	if err != nil {
		flag.Usage()
		log.Fatalf("%v", err)
	}
	ctx := vcontext.Background()
	if err := run(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
