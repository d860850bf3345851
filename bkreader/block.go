// Package bkreader implements the block reader and record parser: opening
// a sequencing file, transparently decompressing it, and handing back
// record-aligned byte blocks a caller can split into individual fasta or
// fastq reads.
package bkreader

import (
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// DefaultBlockSize is the default capacity of a read block.
const DefaultBlockSize = 64 << 20

// ErrShort is returned when a block fills without containing a single
// complete record and the underlying file is not yet at EOF: a dataset that
// never triggers this in practice, since a real record is always much
// smaller than a block.
var ErrShort = errors.New("bkreader: block filled without a complete record")

// Eof is returned once both the carry-over tail and the underlying file are
// exhausted.
var Eof = errors.New("bkreader: end of file")

// LinesPerRecord is 4 for fastq (header/bases/plus/quality) and 2 for fasta
// (header/bases).
type LinesPerRecord int

const (
	FastqLines LinesPerRecord = 4
	FastaLines LinesPerRecord = 2
)

// BlockReader opens one input file and yields record-aligned []byte blocks.
// It is not safe for concurrent use; each reader thread owns one.
type BlockReader struct {
	f       file.File
	r       io.Reader
	lines   LinesPerRecord
	blkSize int

	buf   []byte // buf[:n] is unconsumed carry-over + newly read bytes
	n     int
	atEOF bool
}

// Open opens path (transparently gunzipping based on its name) and returns
// a BlockReader that yields blocks of at most blockSize bytes, each
// truncated to the last complete record boundary for the given line shape.
func Open(ctx context.Context, path string, lines LinesPerRecord, blockSize int) (*BlockReader, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "bkreader: open %v", path)
	}
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	return &BlockReader{
		f:       f,
		r:       r,
		lines:   lines,
		blkSize: blockSize,
		buf:     make([]byte, blockSize),
	}, nil
}

// Close releases the underlying file.
func (b *BlockReader) Close(ctx context.Context) error {
	return b.f.Close(ctx)
}

// Next copies the record-aligned prefix of the next block into dst
// (growing it if needed) and returns it; the bytes after that prefix are
// retained internally as carry-over for the following call. It returns Eof
// when the stream and carry-over are both exhausted, and ErrShort if a
// block fills without ever completing one record.
func (b *BlockReader) Next(dst []byte) ([]byte, error) {
	if b.atEOF && b.n == 0 {
		return nil, Eof
	}
	if !b.atEOF && b.n < b.blkSize {
		m, err := io.ReadFull(b.r, b.buf[b.n:b.blkSize])
		b.n += m
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, errors.Wrap(err, "bkreader: read")
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			b.atEOF = true
		}
	}

	cut := lastRecordBoundary(b.buf[:b.n], int(b.lines))
	if cut == 0 {
		if !b.atEOF {
			return nil, ErrShort
		}
		if b.n == 0 {
			return nil, Eof
		}
		// Final partial tail with no trailing newline: treat the remainder
		// as a complete final block.
		cut = b.n
	}

	out := append(dst[:0], b.buf[:cut]...)

	rem := b.n - cut
	copy(b.buf, b.buf[cut:b.n])
	b.n = rem

	return out, nil
}

// lastRecordBoundary returns the offset one past the newline that ends the
// last complete group of linesPerRecord lines within buf, or 0 if buf
// contains no complete record.
func lastRecordBoundary(buf []byte, linesPerRecord int) int {
	nl := 0
	last := -1
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			nl++
			if nl%linesPerRecord == 0 {
				last = i
			}
		}
	}
	if last < 0 {
		return 0
	}
	return last + 1
}

// CountLines returns the number of '\n' bytes in buf, exposed for tests that
// need to check block alignment.
func CountLines(buf []byte) int {
	return bytes.Count(buf, []byte{'\n'})
}
