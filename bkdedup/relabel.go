package bkdedup

import (
	"github.com/grailbio/base/bitset"

	"github.com/refresh-bio/bkc/bkbarcode"
)

// wordBits matches bitset.BitsPerWord; kept local so callers never need to
// import bitset themselves just to size a FileBitmap.
const wordBits = bitset.BitsPerWord

// FileBitmap is a flat per-file valid-read bitmap: the selector Relabel
// builds and the second-pass read loader consults. bitset exposes a bit
// Test helper but expects callers to set bits directly against the backing
// []uintptr, so Set is a manual word/shift.
type FileBitmap struct {
	words []uintptr
	n     int
}

// NewFileBitmap allocates a bitmap covering n read indices, all initially
// clear.
func NewFileBitmap(n int) *FileBitmap {
	return &FileBitmap{words: make([]uintptr, (n+wordBits-1)/wordBits), n: n}
}

// Set marks read index i as valid.
func (b *FileBitmap) Set(i int) {
	b.words[i/wordBits] |= uintptr(1) << uint(i%wordBits)
}

// Test reports whether read index i was marked valid.
func (b *FileBitmap) Test(i int) bool {
	return bitset.Test(b.words[i/wordBits:i/wordBits+1], i%wordBits)
}

// Len returns the number of read indices the bitmap covers.
func (b *FileBitmap) Len() int { return b.n }

// RelabelResult holds per-file valid-read bitmaps and the dense index each
// original read index maps to (only meaningful where the bitmap is set).
type RelabelResult struct {
	Valid            []*FileBitmap
	DenseIndex       [][]uint32
	SurvivorsPerFile []int
}

// Relabel marks every (file, read_index) referenced by a surviving global
// read id, assigns each survivor a dense per-file index in file order, and
// rewrites survivors' read ids in place to use it.
func Relabel(survivors []BarcodeSurvivors, fileReadCounts []int) RelabelResult {
	res := RelabelResult{
		Valid:            make([]*FileBitmap, len(fileReadCounts)),
		DenseIndex:       make([][]uint32, len(fileReadCounts)),
		SurvivorsPerFile: make([]int, len(fileReadCounts)),
	}
	for f, n := range fileReadCounts {
		res.Valid[f] = NewFileBitmap(n)
		res.DenseIndex[f] = make([]uint32, n)
	}

	for _, s := range survivors {
		for _, r := range s.Reads {
			f, idx := int(r.FileIndex()), int(r.ReadIndex())
			res.Valid[f].Set(idx)
		}
	}

	for f, n := range fileReadCounts {
		var cnt uint32
		for i := 0; i < n; i++ {
			if res.Valid[f].Test(i) {
				res.DenseIndex[f][i] = cnt
				cnt++
			}
		}
		res.SurvivorsPerFile[f] = int(cnt)
	}

	for i := range survivors {
		for j, r := range survivors[i].Reads {
			f, idx := int(r.FileIndex()), int(r.ReadIndex())
			survivors[i].Reads[j] = bkbarcode.EncodeReadID(uint32(f), res.DenseIndex[f][idx])
		}
	}

	return res
}
