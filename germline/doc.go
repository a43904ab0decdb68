// Package germline derives genotype evidence from reference-sample
// alignments at catalog sites.
//
// The primary reference sample is scanned over the whole catalog.  Its depth
// distribution defines a depth band (around the median non-zero depth), and
// sites within the band are split into homozygous-reference and heterozygous
// sets.  Every further reference sample is then scanned only at the sites
// still heterozygous in all samples before it, so the consensus heterozygous
// set shrinks monotonically.
//
// The homozygous set feeds tumor contamination estimation (see
// package contamination), and the consensus heterozygous set is the site list
// for tumor B-allele frequencies and runs of homozygosity (package roh).
package germline
