// Package bkcount implements the leader/pair sliding-window enumerator and
// the per-barcode aggregation and filtering pass: in single mode one
// sliding window emits every fully accumulated leader, in pair mode two
// windows separated by a gap emit (leader, follower) pairs gated on both
// windows being simultaneously full, and aggregation sorts, run-length
// collapses, and filters the emissions into counted records.
package bkcount

import "github.com/refresh-bio/bkc/bkreads"

// Window is a fixed-width sliding accumulator over 2-bit symbols. An
// ambiguous base resets it so only consecutive valid bases contribute.
type Window struct {
	width int
	value uint64
	valid int
	mask  uint64
}

// NewWindow creates an empty window of the given width (in bases).
func NewWindow(width int) *Window {
	mask := uint64(1)<<(2*uint(width)) - 1
	if width == 32 {
		mask = ^uint64(0)
	}
	return &Window{width: width, mask: mask}
}

// Insert shifts in one 2-bit symbol (0-3); ambiguous bases must be passed
// through Reset instead.
func (w *Window) Insert(symbol uint8) {
	w.value = ((w.value << 2) | uint64(symbol)) & w.mask
	if w.valid < w.width {
		w.valid++
	}
}

// Reset clears the window's validity count after an ambiguous base.
func (w *Window) Reset() {
	w.valid = 0
	w.value = 0
}

// Full reports whether the window holds width consecutive valid bases.
func (w *Window) Full() bool { return w.valid >= w.width }

// Value returns the window's current packed content.
func (w *Window) Value() uint64 { return w.value }

// EnumerateLeaders slides one window over a packed read: every position
// where a leaderLen window is full emits that leader.
func EnumerateLeaders(packed []byte, readLen, leaderLen int, canonical bool, emit func(leader uint64)) {
	if readLen < leaderLen {
		return
	}
	w := NewWindow(leaderLen)
	for i := 0; i < leaderLen-1; i++ {
		insertOrReset(w, bkreads.Symbol(packed, i))
	}
	for i := leaderLen - 1; i < readLen; i++ {
		insertOrReset(w, bkreads.Symbol(packed, i))
		if w.Full() {
			v := w.Value()
			if canonical {
				v = canonicalWord(v, leaderLen)
			}
			emit(v)
		}
	}
}

// EnumeratePairs slides two windows (leaderLen, followerLen) separated by
// gapLen bases over a packed read; a pair is emitted only once both windows
// are simultaneously full, which first happens at read offset
// leaderLen+gapLen+followerLen-1.
func EnumeratePairs(packed []byte, readLen, leaderLen, gapLen, followerLen int, emit func(leader, follower uint64)) {
	followerStart := leaderLen + gapLen
	if leaderLen+gapLen+followerLen > readLen {
		return
	}

	leader := NewWindow(leaderLen)
	follower := NewWindow(followerLen)

	for i := 0; i < leaderLen-1; i++ {
		insertOrReset(leader, bkreads.Symbol(packed, i))
	}
	for i := followerStart; i < followerStart+followerLen-1; i++ {
		insertOrReset(follower, bkreads.Symbol(packed, i))
	}

	for i := followerStart + followerLen - 1; i < readLen; i++ {
		insertOrReset(follower, bkreads.Symbol(packed, i))
		insertOrReset(leader, bkreads.Symbol(packed, i-followerLen-gapLen))

		if leader.Full() && follower.Full() {
			emit(leader.Value(), follower.Value())
		}
	}
}

func insertOrReset(w *Window, symbol uint8) {
	if symbol < 4 {
		w.Insert(symbol)
	} else {
		w.Reset()
	}
}

// canonicalWord returns the lexicographically smaller of v and its reverse
// complement over n bases, matching bkseq.Canonical without importing
// bkseq's Word type into this hot loop.
func canonicalWord(v uint64, n int) uint64 {
	var rc uint64
	x := v
	for i := 0; i < n; i++ {
		rc = (rc << 2) | (3 - (x & 3))
		x >>= 2
	}
	if rc < v {
		return rc
	}
	return v
}
