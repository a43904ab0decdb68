package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// errorIterator stands in for a region that cannot be read at all.
type errorIterator struct {
	err error
}

func (i *errorIterator) Scan() bool          { return false }
func (i *errorIterator) Record() *sam.Record { panic("errorIterator.Record: no records") }
func (i *errorIterator) Err() error          { return i.err }
func (i *errorIterator) Close() error        { return i.err }

// NewErrorIterator returns an Iterator over no records whose Err and Close
// both report err.  Providers return it for requests they reject up front,
// such as an empty region.
func NewErrorIterator(err error) Iterator {
	return &errorIterator{err: err}
}
