// Package bkfile implements the bkc output writer and reader: a
// shard-parallel, delta-encoded, zstd-compressed record stream keyed by
// (sample, barcode, leader, [follower]).
package bkfile

// Record is one output row: a sample id, a trusted (and possibly corrected)
// barcode, a leader (and, in pair mode, a follower), and its aggregated
// count within that barcode.
type Record struct {
	SampleID uint64
	Barcode  uint64
	Leader   uint64
	Follower uint64
	Count    uint64
}
