package bkdedup

import (
	"sort"

	"github.com/refresh-bio/bkc/bkbarcode"
	"github.com/refresh-bio/bkc/bkseq"
)

// BarcodeSurvivors is one trusted barcode's post-dedup result: the global
// read ids that survived UMI deduplication, emitted in UMI order, and the
// survivor count used for the final cbc_filtering_thr cut.
type BarcodeSurvivors struct {
	Barcode bkseq.Word
	Reads   []bkbarcode.ReadID
}

// Dedup deduplicates a single trusted barcode: merge every thread's
// UMI/read-id list (already grouped by barcode in lists), group consecutive
// entries sharing a UMI, and keep exactly one survivor per group, chosen by
// a Mersenne-Twister-64 seeded with the barcode's own 2-bit value.
//
// A k-way merge of per-thread lists each sorted by (umi, read_id) visits
// entries in exactly the order produced by sorting the flattened list by
// (umi, read_id), so the flatten-then-sort below is equivalent and the
// group-internal order the survivor index selects from is deterministic.
func Dedup(barcode bkseq.Word, lists [][]bkbarcode.UMIRead) BarcodeSurvivors {
	var flat []bkbarcode.UMIRead
	for _, l := range lists {
		flat = append(flat, l...)
	}
	sort.Slice(flat, func(i, j int) bool {
		if flat[i].UMI != flat[j].UMI {
			return flat[i].UMI < flat[j].UMI
		}
		return flat[i].Read < flat[j].Read
	})

	mt := NewMT19937_64(uint64(barcode))

	out := BarcodeSurvivors{Barcode: barcode}
	i := 0
	for i < len(flat) {
		j := i + 1
		for j < len(flat) && flat[j].UMI == flat[i].UMI {
			j++
		}
		groupSize := j - i
		keep := 0
		if groupSize > 1 {
			keep = int(mt.Next() % uint64(groupSize))
		}
		out.Reads = append(out.Reads, flat[i+keep].Read)
		i = j
	}
	return out
}

// RerankAndFilter sorts survivors by count descending, breaking ties by
// barcode value so the final barcode order (and with it the written record
// stream) is identical across runs, and, if thr > 0, drops trailing
// barcodes whose survivor count falls below it.
func RerankAndFilter(survivors []BarcodeSurvivors, thr uint64) []BarcodeSurvivors {
	sort.Slice(survivors, func(i, j int) bool {
		if len(survivors[i].Reads) != len(survivors[j].Reads) {
			return len(survivors[i].Reads) > len(survivors[j].Reads)
		}
		return survivors[i].Barcode < survivors[j].Barcode
	})
	if thr == 0 {
		return survivors
	}
	cut := len(survivors)
	for i := len(survivors) - 1; i >= 0; i-- {
		if uint64(len(survivors[i].Reads)) < thr {
			cut = i
		} else {
			break
		}
	}
	return survivors[:cut]
}
