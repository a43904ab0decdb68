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

/*
bio-germline measures allelic read support at the sites of a SNP catalog in
one or more reference (germline) samples, and derives from it:

  - homozygous-reference and consensus heterozygous site sets,
  - tumor B-allele frequencies at the heterozygous sites,
  - runs of homozygosity, the consanguinity proportion and a uniparental
    disomy candidate,
  - the contamination level of an optional tumor sample.

The first reference BAM is the primary sample; the depth filter and the
homozygous set come from it.  Each further reference BAM is scanned only at
the sites still heterozygous in all the samples before it.

Sample usage:
bio-germline \
    --catalog sites.tsv.gz \
    --reference normal.bam,parent.bam \
    --tumor tumor.bam \
    --ref-genome 38 \
    --out output-prefix

Output files:
  <out>.sites.tsv        the scanned catalog (after -snpcheck and -region)
  <out>.snpcheck.tsv     primary evidence at the -snpcheck sites
  <out>.homozygous.tsv   primary homozygous-reference sites
  <out>.baf.tsv.gz       consensus heterozygous sites, with tumor support
  <out>.roh.tsv          runs of homozygosity
  <out>.contamination.tsv  tumor support at homozygous sites (with -tumor)
  <out>.qc.tsv           summary values
*/
package main
