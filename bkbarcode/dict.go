package bkbarcode

import "github.com/refresh-bio/bkc/bkseq"

// maxLoadFactor caps the accumulator map's fill. Go's built-in map does
// not expose a load-factor knob, but reserving headroom up front keeps
// growth-triggered rehashing rare.
const maxLoadFactor = 0.8

// ThreadDict is one counting thread's barcode -> UMI/read-id list
// accumulator.
type ThreadDict struct {
	m map[bkseq.Word][]UMIRead
}

// NewThreadDict creates a dict sized for an expected number of distinct
// barcodes.
func NewThreadDict(expectedBarcodes int) *ThreadDict {
	return &ThreadDict{m: make(map[bkseq.Word][]UMIRead, int(float64(expectedBarcodes)/maxLoadFactor)+1)}
}

// Add appends (umi, read) under barcode.
func (d *ThreadDict) Add(barcode bkseq.Word, umi bkseq.Word, read ReadID) {
	d.m[barcode] = append(d.m[barcode], UMIRead{UMI: umi, Read: read})
}

// Entries exposes the underlying map for iteration by the trust-selection
// and dedup stages.
func (d *ThreadDict) Entries() map[bkseq.Word][]UMIRead { return d.m }

// GatherStats sums list lengths for each barcode across all thread
// dicts.
func GatherStats(dicts []*ThreadDict) map[bkseq.Word]uint64 {
	stats := make(map[bkseq.Word]uint64)
	for _, d := range dicts {
		for b, list := range d.m {
			stats[b] += uint64(len(list))
		}
	}
	return stats
}
