// Package bamprovider provides utilities for reading regions of a BAM file
// from many goroutines at once.
//
// The Provider is an interface for opening region iterators.  The BAM
// implementation gives every concurrently active iterator its own file handle
// and index, so iterators never share seek state.
package bamprovider
