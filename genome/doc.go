// Package genome holds human reference-genome facts needed by the germline
// analyses: chromosome ordering, sex-chromosome detection, and the
// centromere / heterochromatin resources of the supported builds.
package genome
