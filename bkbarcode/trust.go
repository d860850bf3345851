package bkbarcode

import (
	"math"
	"sort"

	"github.com/refresh-bio/bkc/bkseq"
)

// RankedBarcode is one (count, barcode) entry in the ranked list produced
// by trust selection.
type RankedBarcode struct {
	Count   uint64
	Barcode bkseq.Word
}

// rankStats sorts stats descending by count, breaking ties by barcode
// value so the ranking is identical across runs.
func rankStats(stats map[bkseq.Word]uint64) []RankedBarcode {
	ranked := make([]RankedBarcode, 0, len(stats))
	for b, c := range stats {
		ranked = append(ranked, RankedBarcode{Count: c, Barcode: b})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Barcode < ranked[j].Barcode
	})
	return ranked
}

// SelectPredefined intersects stats with an explicit allowlist, keeping
// the count-descending ranking for reporting.
func SelectPredefined(stats map[bkseq.Word]uint64, allowlist map[bkseq.Word]struct{}) []RankedBarcode {
	filtered := make(map[bkseq.Word]uint64, len(allowlist))
	for b, c := range stats {
		if _, ok := allowlist[b]; ok {
			filtered[b] = c
		}
	}
	return rankStats(filtered)
}

// SelectTrusted runs the elbow heuristic (or a hard count threshold, if
// thr > 0) over the ranked, cumulative-summed barcode counts.
func SelectTrusted(stats map[bkseq.Word]uint64, thr uint64) []RankedBarcode {
	ranked := rankStats(stats)

	if thr != 0 {
		split := len(ranked)
		for i, r := range ranked {
			if r.Count < thr {
				split = i
				break
			}
		}
		if split <= 0 {
			split = 1
		}
		if split > len(ranked) {
			split = len(ranked)
		}
		return ranked[:split]
	}

	cum := make([]uint64, len(ranked))
	var tot uint64
	for i, r := range ranked {
		tot += r.Count
		cum[i] = tot
	}

	bestSplit := 0
	const maxIters = 100
	for iter := 0; iter < maxIters; iter++ {
		curr := findSplit(cum)
		if curr == bestSplit {
			break
		}
		bestSplit = curr
		if bestSplit*3 < len(cum) {
			cum = cum[:bestSplit*3]
		}
	}

	// findSplit returns the rank index of the farthest-from-chord point
	// (0-based). The elbow point itself is still on the cell side of the
	// curve, so it is included: the trusted set is ranks [0, bestSplit].
	trustedCount := bestSplit + 1
	if trustedCount > len(ranked) {
		trustedCount = len(ranked)
	}
	return ranked[:trustedCount]
}

// findSplit finds the index farthest from the chord between the first and
// last points of the (rank, cumulative-count) curve, by maximizing the
// area of the triangle they form.
func findSplit(cum []uint64) int {
	size := len(cum)
	if size < 3 {
		return 0
	}

	distAC := dist(0, cum[0], size-1, cum[size-1])

	bestArea := 0.0
	bestSplit := 0
	for i := 1; i < size-1; i++ {
		distAB := dist(0, cum[0], i, cum[i])
		distBC := dist(i, cum[i], size-1, cum[size-1])

		s := (distAB + distAC + distBC) / 2
		area := math.Sqrt(s * (s - distAB) * (s - distAC) * (s - distBC))
		if area > bestArea {
			bestArea = area
			bestSplit = i
		}
	}
	return bestSplit
}

func dist(px int, py uint64, qx int, qy uint64) float64 {
	dx := float64(qx - px)
	dy := float64(py) - float64(qy)
	return math.Sqrt(dx*dx + dy*dy)
}
