package bkreads

// arenaBlock is one fixed-size slab of a per-file bump arena.
const arenaBlock = 16 << 20

// Arena is a per-file monotonic bump allocator for packed reads: it never
// frees individual reads, only grows, and is dropped whole at the end of
// the counting phase.
type Arena struct {
	blocks [][]byte
	cur    []byte
}

// NewArena creates an empty arena.
func NewArena() *Arena { return &Arena{} }

// Alloc returns a slice of n bytes carved out of the arena, growing it with
// a fresh block if the current one lacks room.
func (a *Arena) Alloc(n int) []byte {
	if len(a.cur) < n {
		size := arenaBlock
		if n > size {
			size = n
		}
		a.cur = make([]byte, size)
		a.blocks = append(a.blocks, a.cur)
	}
	out := a.cur[:n:n]
	a.cur = a.cur[n:]
	return out
}

// Loader packs, for one file, each bitmap-selected read's bases into the
// file's arena and records the packed slice at its dense index.
type Loader struct {
	Valid interface {
		Test(i int) bool
	}
	DenseIndex []uint32
	Arena      *Arena

	// SampleReads is indexed by dense index; SampleReads[i] is nil until
	// LoadRecord has been called for the read at that slot.
	SampleReads [][]byte

	// ReadLens is indexed the same way as SampleReads: the unpacked base
	// count of the read stored at that dense index, needed by the
	// enumerator since the packed representation alone doesn't carry it.
	ReadLens []int

	// position advances on every record, selected or not, keeping it
	// aligned with the relabelling pass's numbering.
	position int

	// NonACGTReads counts records containing at least one byte other than
	// capital A/C/G/T (lower-case bases count too), an ambient statistic
	// exercised via IsNonACGTPresent.
	NonACGTReads int
}

// NewLoader creates a Loader for one file's relabelling outputs.
func NewLoader(valid interface {
	Test(i int) bool
}, denseIndex []uint32, survivorCount int, arena *Arena) *Loader {
	return &Loader{
		Valid:       valid,
		DenseIndex:  denseIndex,
		Arena:       arena,
		SampleReads: make([][]byte, survivorCount),
		ReadLens:    make([]int, survivorCount),
	}
}

// LoadRecord consumes one second-mate record's bases. It packs and stores
// the read only if its position was selected by the relabelling pass; the
// position counter always advances.
func (l *Loader) LoadRecord(bases []byte) {
	pos := l.position
	l.position++

	if IsNonACGTPresent(bases) {
		l.NonACGTReads++
	}

	if !l.Valid.Test(pos) {
		return
	}
	dense := l.DenseIndex[pos]
	packed := l.Arena.Alloc(PackedLen(len(bases)))
	Pack(bases, packed)
	l.SampleReads[dense] = packed
	l.ReadLens[dense] = len(bases)
}
