package bkfile

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Reader decodes one shard file written by Writer.
type Reader struct {
	f      *os.File
	zr     *zstd.Decoder
	header Header
	prev   []byte
}

// Open opens path, validates its bkc header, and returns a Reader
// positioned at the first record.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "bkfile: open %v", path)
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "bkfile: new zstd reader")
	}
	h, err := readHeader(zr)
	if err != nil {
		zr.Close()
		f.Close()
		return nil, err
	}
	// prev starts empty to match the writer's initial (empty) rec_prev; the
	// first record always carries a shared-prefix byte of 0, so this is
	// never actually indexed before the first Next call populates it.
	return &Reader{f: f, zr: zr, header: h, prev: nil}, nil
}

// Header returns the shard's field-width/symbol-length header.
func (r *Reader) Header() Header { return r.header }

// Close releases the reader's resources.
func (r *Reader) Close() error {
	r.zr.Close()
	return r.f.Close()
}

// Next decodes the next record, applying the shared-prefix delta against
// the previous one. It returns io.EOF once the shard is exhausted.
func (r *Reader) Next() (Record, error) {
	var pByte [1]byte
	if _, err := io.ReadFull(r.zr, pByte[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, errors.Wrap(err, "bkfile: read shared-prefix byte")
	}
	p := int(pByte[0])
	recLen := r.header.RecordLen()
	if p > recLen {
		return Record{}, errors.Errorf("bkfile: shared-prefix %d exceeds record length %d", p, recLen)
	}

	curr := make([]byte, recLen)
	copy(curr, r.prev[:p])
	if _, err := io.ReadFull(r.zr, curr[p:]); err != nil {
		return Record{}, errors.Wrap(err, "bkfile: read record suffix")
	}

	rec := unpackRecord(curr, r.header)
	r.prev = curr
	return rec, nil
}

func unpackRecord(buf []byte, h Header) Record {
	off := 0
	readMSB := func(width uint8) uint64 {
		var v uint64
		for i := 0; i < int(width); i++ {
			v = (v << 8) | uint64(buf[off])
			off++
		}
		return v
	}
	return Record{
		SampleID: readMSB(h.SampleIDBytes),
		Barcode:  readMSB(h.BarcodeBytes),
		Leader:   readMSB(h.LeaderBytes),
		Follower: readMSB(h.FollowerBytes),
		Count:    readMSB(h.CounterBytes),
	}
}

// MultiReader reads every shard written by one Writer in shard order,
// concatenating their record streams -- convenient for the dump tool and
// for tests that don't care about per-shard layout.
type MultiReader struct {
	readers []*Reader
	i       int
}

// OpenAll opens nShards shard files under dir/stem in shard order.
func OpenAll(dir, stem string, nShards int) (*MultiReader, error) {
	mr := &MultiReader{}
	for i := 0; i < nShards; i++ {
		r, err := Open(ShardPath(dir, stem, i))
		if err != nil {
			mr.Close()
			return nil, err
		}
		mr.readers = append(mr.readers, r)
	}
	return mr, nil
}

// Next returns the next record across all shards, in shard order.
func (mr *MultiReader) Next() (Record, error) {
	for mr.i < len(mr.readers) {
		rec, err := mr.readers[mr.i].Next()
		if err == io.EOF {
			mr.i++
			continue
		}
		return rec, err
	}
	return Record{}, io.EOF
}

// Close releases every shard reader.
func (mr *MultiReader) Close() error {
	var first error
	for _, r := range mr.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
