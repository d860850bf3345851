package bkbarcode

import "github.com/refresh-bio/bkc/bkseq"

// BuildCorrectionMap enumerates, for every trusted barcode, its 4*len
// 1-substitution neighbours (including itself) and records which trusted
// barcodes each neighbour could have come from. An untrusted candidate is
// corrected only when exactly one trusted barcode reaches it; ambiguous or
// missed candidates stay uncorrected.
func BuildCorrectionMap(trusted []RankedBarcode, barcodeLen int, untrusted []RankedBarcode) map[bkseq.Word]bkseq.Word {
	candidates := make(map[bkseq.Word][]bkseq.Word)
	for _, t := range trusted {
		bkseq.HammingDistance1Neighbours(t.Barcode, barcodeLen, func(n bkseq.Word) {
			candidates[n] = append(candidates[n], t.Barcode)
		})
	}

	correction := make(map[bkseq.Word]bkseq.Word)
	for _, u := range untrusted {
		matches, ok := candidates[u.Barcode]
		if !ok || len(matches) != 1 {
			continue
		}
		correction[u.Barcode] = matches[0]
	}
	return correction
}
