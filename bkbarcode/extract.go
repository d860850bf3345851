package bkbarcode

import (
	"fmt"

	"github.com/refresh-bio/bkc/bkseq"
)

// UMIRead pairs a UMI (2-bit packed) with the global read id it came
// from.
type UMIRead struct {
	UMI  bkseq.Word
	Read ReadID
}

// ErrStrangeRead is returned by Extract when a record's base count falls
// outside [barcodeLen+umiLen, barcodeLen+umiLen+softLimit] and
// AllowStrange is false.
type ErrStrangeRead struct {
	Header string
	Length int
}

func (e *ErrStrangeRead) Error() string {
	return fmt.Sprintf("bkbarcode: strange read %q: length %d", e.Header, e.Length)
}

// Extractor measures each first-mate record's length, slices out its
// barcode/UMI fields, and encodes them.
type Extractor struct {
	BarcodeLen   int
	UMILen       int
	SoftLimit    int
	AllowStrange bool
}

// Extract attempts to pull (barcode, umi) out of bases. ok is false when the
// record should be skipped without contributing to the dictionary: either
// because it was a tolerated out-of-range length (AllowStrange) or because
// it contained an ambiguous base in the barcode/UMI region. err is non-nil
// only for the abort case (length out of range and !AllowStrange).
func (x *Extractor) Extract(header, bases []byte) (barcode, umi bkseq.Word, ok bool, err error) {
	l := len(bases)
	lo := x.BarcodeLen + x.UMILen
	hi := lo + x.SoftLimit
	if l < lo || l > hi {
		if !x.AllowStrange {
			// The header is copied here, off the hot path: the slice is a
			// view into a reused block buffer.
			return 0, 0, false, &ErrStrangeRead{Header: string(header), Length: l}
		}
		return 0, 0, false, nil
	}

	barcode, okB := bkseq.Encode(bases[:x.BarcodeLen], x.BarcodeLen)
	umi, okU := bkseq.Encode(bases[x.BarcodeLen:x.BarcodeLen+x.UMILen], x.UMILen)
	if !okB || !okU {
		return 0, 0, false, nil
	}
	return barcode, umi, true, nil
}
