package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// overlaps reports whether rec is mapped to ref and covers at least one base
// of [start, end).
func overlaps(rec *sam.Record, refName string, start, end int) bool {
	if rec.Ref == nil || rec.Ref.Name() != refName {
		return false
	}
	return rec.Pos < end && rec.End() > start
}
