// Package bkreads implements the read loader: a second pass over
// second-mate files that, guided by the valid-read bitmap, packs each
// surviving read's bases into a compact 3-bases-per-byte format inside a
// per-file monotonically growing arena.
//
// The packing scheme stores each base as one of five symbols (A=0, C=1,
// G=2, T=3, ambiguous=4) so sliding-window enumeration can still tell an
// ambiguous base apart from a real one after loading; three symbols fit in
// one byte since 5^3 = 125 <= 255. A plain 2-bit packing cannot represent
// the ambiguous symbol the window-reset logic needs to see.
package bkreads

const (
	// AmbiguousSymbol is the packed-symbol value for any non-ACGT base.
	AmbiguousSymbol = 4
	symbolBase      = 5
)

var asciiToSymbol [256]uint8

func init() {
	for i := range asciiToSymbol {
		asciiToSymbol[i] = AmbiguousSymbol
	}
	asciiToSymbol['A'], asciiToSymbol['a'] = 0, 0
	asciiToSymbol['C'], asciiToSymbol['c'] = 1, 1
	asciiToSymbol['G'], asciiToSymbol['g'] = 2, 2
	asciiToSymbol['T'], asciiToSymbol['t'] = 3, 3
}

var symbolToASCII = [5]byte{'A', 'C', 'G', 'T', 'N'}

// PackedLen returns the number of bytes needed to store n bases.
func PackedLen(n int) int {
	return (n + 2) / 3
}

// Pack encodes bases (ASCII) into dst using 3 symbols per byte, most
// significant symbol first within each byte. dst must have length
// PackedLen(len(bases)); the final, possibly partial, triple is padded with
// AmbiguousSymbol, which callers must not interpret as part of the read
// (Unpack takes an explicit length).
func Pack(bases []byte, dst []byte) {
	n := len(bases)
	for i := 0; i < len(dst); i++ {
		var b uint16
		for k := 0; k < 3; k++ {
			pos := i*3 + k
			var sym uint16 = AmbiguousSymbol
			if pos < n {
				sym = uint16(asciiToSymbol[bases[pos]])
			}
			b = b*symbolBase + sym
		}
		dst[i] = byte(b)
	}
}

// Unpack decodes n symbols starting at packed, returning their ASCII
// representation (ambiguous bases become 'N').
func Unpack(packed []byte, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		byteIdx := i / 3
		within := i % 3
		b := uint16(packed[byteIdx])
		// Undo the big-endian base-5 triple: the symbol at position
		// `within` (0 = most significant) is ((b / 5^(2-within)) % 5).
		shift := 2 - within
		div := uint16(1)
		for s := 0; s < shift; s++ {
			div *= symbolBase
		}
		sym := (b / div) % symbolBase
		out[i] = symbolToASCII[sym]
	}
	return out
}

// Symbol returns the packed symbol (0-4) at position i without decoding the
// whole read, used by the sliding-window enumerator to test ambiguity.
func Symbol(packed []byte, i int) uint8 {
	byteIdx := i / 3
	within := i % 3
	b := uint16(packed[byteIdx])
	shift := 2 - within
	div := uint16(1)
	for s := 0; s < shift; s++ {
		div *= symbolBase
	}
	return uint8((b / div) % symbolBase)
}

var isNotCapitalACGT [256]bool

func init() {
	for i := range isNotCapitalACGT {
		isNotCapitalACGT[i] = true
	}
	isNotCapitalACGT['A'], isNotCapitalACGT['C'] = false, false
	isNotCapitalACGT['G'], isNotCapitalACGT['T'] = false, false
}

// IsNonACGTPresent reports whether ascii8 contains any non-capital-ACGT
// byte.
func IsNonACGTPresent(ascii8 []byte) bool {
	for _, b := range ascii8 {
		if isNotCapitalACGT[b] {
			return true
		}
	}
	return false
}
