package bkbarcode

import (
	"bufio"
	"fmt"
	"os"

	"github.com/refresh-bio/bkc/bkseq"
)

// WriteTrustLog dumps a ranked barcode list with cumulative counts to
// path, one "<bases> <count>   cum: <cumsum>" line per barcode followed by
// a grand total.
func WriteTrustLog(path string, ranked []RankedBarcode, barcodeLen int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "No. CBCs: %d\n", len(ranked))

	var cumSum uint64
	for _, r := range ranked {
		fmt.Fprintf(w, "%s %d   cum: %d\n", bkseq.Decode(r.Barcode, barcodeLen), r.Count, cumSum)
		cumSum += r.Count
	}
	fmt.Fprintf(w, "Total no. of reads: %d\n", cumSum)

	return w.Flush()
}
