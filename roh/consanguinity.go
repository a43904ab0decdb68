package roh

import "github.com/grailbio/allelic/genome"

// UniparentalDisomyMinLength is the summed length of long regions a single
// chromosome needs to be reported as a uniparental disomy candidate.
const UniparentalDisomyMinLength = 20000000

// ConsanguinityProportion returns the fraction of the autosomal genome
// covered by regions at least opts.LongRegionLength long.
func ConsanguinityProportion(regions []Region, opts Opts) float64 {
	total := 0
	for _, r := range regions {
		if r.Length() >= opts.LongRegionLength {
			total += r.Length()
		}
	}
	return float64(total) / genome.AutosomeLength
}

// FindUniparentalDisomy returns the chromosome carrying every long region
// (at least opts.LongRegionLength), provided there is exactly one such
// chromosome and its long regions sum to UniparentalDisomyMinLength or more.
func FindUniparentalDisomy(regions []Region, opts Opts) (string, bool) {
	chrom, total := "", 0
	for _, r := range regions {
		if r.Length() < opts.LongRegionLength {
			continue
		}
		if chrom != "" && r.Chrom != chrom {
			return "", false
		}
		chrom = r.Chrom
		total += r.Length()
	}
	if chrom == "" || total < UniparentalDisomyMinLength {
		return "", false
	}
	return chrom, true
}
