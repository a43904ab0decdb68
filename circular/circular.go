package circular

import (
	"math/bits"

	"github.com/grailbio/base/log"
)

// NextExp2 returns the next power of 2 strictly greater than x.  (Useful when
// setting circular buffer size.)
func NextExp2(x int) int {
	log2 := 63 - bits.LeadingZeros64(uint64(x))
	return 2 << uint32(log2)
}

// Window is a fixed-width trailing window of flags, backed by a circular
// buffer.  It tracks how many of the most recent Width() pushed flags are set.
type Window struct {
	flags []bool
	// mask is len(flags) - 1; len(flags) is a power of two.
	mask  int
	width int
	// next is the total number of pushes since the last Reset.
	next int
	nSet int
}

// NewWindow creates an empty Window covering the last width pushes.
func NewWindow(width int) *Window {
	if width <= 0 {
		log.Panicf("circular.NewWindow: width must be positive, got %d", width)
	}
	nCirc := NextExp2(width)
	return &Window{
		flags: make([]bool, nCirc),
		mask:  nCirc - 1,
		width: width,
	}
}

// Width returns the window width.
func (w *Window) Width() int {
	return w.width
}

// Len returns the number of flags currently in the window; it never exceeds
// Width().
func (w *Window) Len() int {
	if w.next < w.width {
		return w.next
	}
	return w.width
}

// Push appends a flag, evicting the oldest one when the window is full.
func (w *Window) Push(flag bool) {
	if w.next >= w.width {
		if w.flags[(w.next-w.width)&w.mask] {
			w.nSet--
		}
	}
	w.flags[w.next&w.mask] = flag
	if flag {
		w.nSet++
	}
	w.next++
}

// NSet returns the number of set flags in the window.
func (w *Window) NSet() int {
	return w.nSet
}

// Reset empties the window.
func (w *Window) Reset() {
	w.next = 0
	w.nSet = 0
}
