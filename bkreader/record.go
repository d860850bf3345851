package bkreader

// Record is a null-terminated view into a block: Header/Bases/Plus/Qual
// are slices of the block with their trailing line-separator byte rewritten
// to 0. Plus and Qual are nil for fasta records.
type Record struct {
	Header []byte
	Bases  []byte
	Plus   []byte
	Qual   []byte
}

// RecordParser splits a block (as returned by BlockReader.Next) into
// records, rewriting '\n' into 0 in place so each field becomes a
// null-terminated slice rather than requiring a copy.
type RecordParser struct {
	block []byte
	pos   int
	lines LinesPerRecord
}

// NewRecordParser creates a parser over block, which the parser mutates in
// place (newline bytes become 0).
func NewRecordParser(block []byte, lines LinesPerRecord) *RecordParser {
	return &RecordParser{block: block, lines: lines}
}

// Next scans the next record out of the block. It returns false once fewer
// than a full record remains; the caller should treat rec as invalid in
// that case and may retrieve the unconsumed tail via Remainder.
func (p *RecordParser) Next(rec *Record) bool {
	start := p.pos

	header, ok := p.nextLine()
	if !ok {
		p.pos = start
		return false
	}
	bases, ok := p.nextLine()
	if !ok {
		p.pos = start
		return false
	}
	if p.lines == FastaLines {
		rec.Header = header
		rec.Bases = bases
		rec.Plus = nil
		rec.Qual = nil
		return true
	}
	plus, ok := p.nextLine()
	if !ok {
		p.pos = start
		return false
	}
	qual, ok := p.nextLine()
	if !ok {
		p.pos = start
		return false
	}
	rec.Header = header
	rec.Bases = bases
	rec.Plus = plus
	rec.Qual = qual
	return true
}

// Remainder returns the unconsumed suffix of the block, for callers that
// compact the tail and continue with freshly read bytes appended.
func (p *RecordParser) Remainder() []byte {
	return p.block[p.pos:]
}

// nextLine returns the slice up to (but not including) the next '\n',
// rewriting that '\n' to 0, and advances past it. A '\r' immediately before
// the '\n' is rewritten and excluded too, so DOS line endings parse the
// same as Unix ones. ok is false if no '\n' remains in the block from the
// current position.
func (p *RecordParser) nextLine() (line []byte, ok bool) {
	rest := p.block[p.pos:]
	idx := indexByte(rest, '\n')
	if idx < 0 {
		return nil, false
	}
	rest[idx] = 0
	end := idx
	if end > 0 && rest[end-1] == '\r' {
		rest[end-1] = 0
		end--
	}
	line = rest[:end]
	p.pos += idx + 1
	return line, true
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
