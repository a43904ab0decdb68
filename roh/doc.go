// Package roh finds runs of homozygosity in germline evidence and summarizes
// them as a consanguinity proportion and a uniparental disomy candidate.
//
// A site is homozygous when one allele carries nearly all of its informative
// reads (see IsAlleleHomozygous).  Finder scans each autosome left to right;
// a run opens at a homozygous site, extends over later homozygous sites, and
// closes once a trailing window of sites holds too many heterozygous calls or
// the run would cross an excluded region (centromeres, heterochromatin,
// acrocentric short arms).
package roh
