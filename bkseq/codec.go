// Package bkseq implements the fixed-width 2-bit sequence codec shared by
// barcodes, UMIs, leaders and followers: A=0, C=1, G=2, T=3,
// most-significant base first, one codec for the several independently
// configured field widths BKC carries.
package bkseq

const (
	// MaxSymbols is the largest sequence length that fits a 64-bit word
	// (2 bits/base).
	MaxSymbols = 32

	invalidBase = uint8(255)
)

// Word holds a 2-bit packed sequence, most-significant base first within the
// occupied bits.
type Word uint64

var asciiToBase [256]uint8

func init() {
	for i := range asciiToBase {
		asciiToBase[i] = invalidBase
	}
	asciiToBase['A'] = 0
	asciiToBase['a'] = 0
	asciiToBase['C'] = 1
	asciiToBase['c'] = 1
	asciiToBase['G'] = 2
	asciiToBase['g'] = 2
	asciiToBase['T'] = 3
	asciiToBase['t'] = 3
}

// BaseCode returns the 2-bit code for an ASCII base, or a value >= 4 if ch is
// not one of A/C/G/T (upper or lower case).
func BaseCode(ch byte) uint8 {
	return asciiToBase[ch]
}

// IsAmbiguous reports whether ch is not one of A/C/G/T.
func IsAmbiguous(ch byte) bool {
	return asciiToBase[ch] == invalidBase
}

var baseToASCII = [4]byte{'A', 'C', 'G', 'T'}
var complementCode = [4]uint8{3, 2, 1, 0} // A<->T, C<->G

// Encode packs the first n bytes of seq into a Word. It returns ok=false
// if n is out of [0, MaxSymbols] or seq contains a non-ACGT base, so
// malformed fields are rejected rather than silently mis-encoded.
func Encode(seq []byte, n int) (w Word, ok bool) {
	if n < 0 || n > MaxSymbols || len(seq) < n {
		return 0, false
	}
	for i := 0; i < n; i++ {
		b := BaseCode(seq[i])
		if b >= 4 {
			return 0, false
		}
		w = (w << 2) | Word(b)
	}
	return w, true
}

// Decode unpacks a Word of n symbols into their ASCII representation.
func Decode(w Word, n int) string {
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = baseToASCII[w&3]
		w >>= 2
	}
	return string(buf)
}

// ReverseComplement returns the reverse complement of a Word of n symbols.
func ReverseComplement(w Word, n int) Word {
	var rc Word
	for i := 0; i < n; i++ {
		rc = (rc << 2) | Word(complementCode[w&3])
		w >>= 2
	}
	return rc
}

// Canonical returns the lexicographically smaller of w and its reverse
// complement under the 2-bit encoding.
func Canonical(w Word, n int) Word {
	rc := ReverseComplement(w, n)
	if rc < w {
		return rc
	}
	return w
}

// HammingDistance1Neighbours calls fn once for each of the 4*n sequences
// (including w itself) obtained by substituting a single symbol of w, used
// by the barcode-correction candidate table.
func HammingDistance1Neighbours(w Word, n int, fn func(Word)) {
	for i := 0; i < n; i++ {
		shift := uint(2 * i)
		mask := Word(3) << shift
		base := w &^ mask
		for j := Word(0); j < 4; j++ {
			fn(base | (j << shift))
		}
	}
}

// BitWidth returns the minimum number of bytes needed to store values up
// to and including max, used to size output record fields.
func BitWidth(max uint64) uint8 {
	n := uint8(1)
	for n < 8 {
		limit := (uint64(1) << (8 * n)) - 1
		if max <= limit {
			return n
		}
		n++
	}
	return 8
}
