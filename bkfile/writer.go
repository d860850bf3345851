package bkfile

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	farm "github.com/dgryski/go-farm"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// DefaultShardFlushRecords is the record cadence at which batching callers
// typically cut over or log progress. This writer appends each record
// straight through its shard's streaming zstd encoder rather than batching
// into an explicit record buffer first; the encoder performs its own
// internal buffering, so the visible record stream and its delta encoding
// are identical either way.
const DefaultShardFlushRecords = 128 << 10

// Writer is the shard-parallel output writer: nShards files, each guarded
// by its own mutex so concurrent Add callers serialize only on the append
// itself.
type Writer struct {
	header  Header
	nShards int
	shards  []*shardWriter
}

type shardWriter struct {
	mu   sync.Mutex
	f    *os.File
	zw   *zstd.Encoder
	prev []byte
}

// ShardPath returns the on-disk path for shard i of a writer rooted at
// dir/stem.
func ShardPath(dir, stem string, shard int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.shard-%03d.bkc", stem, shard))
}

// Create opens nShards shard files under dir/stem all at once, before any
// record is written, writes each one's header, and returns a Writer ready
// for concurrent Add calls. zstdLevel is the compression level in zstd's
// own 1-22 scale; 0 picks the encoder's default.
func Create(dir, stem string, nShards, zstdLevel int, format OutputFormat, header Header) (*Writer, error) {
	var opts []zstd.EOption
	if zstdLevel > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel)))
	}
	w := &Writer{header: header, nShards: nShards}
	for i := 0; i < nShards; i++ {
		path := ShardPath(dir, stem, i)
		f, err := os.Create(path)
		if err != nil {
			w.closeOpened()
			return nil, errors.Wrapf(err, "bkfile: create shard %v", path)
		}
		zw, err := zstd.NewWriter(f, opts...)
		if err != nil {
			f.Close()
			w.closeOpened()
			return nil, errors.Wrap(err, "bkfile: new zstd writer")
		}
		if err := writeHeader(zw, format, header); err != nil {
			zw.Close()
			f.Close()
			w.closeOpened()
			return nil, err
		}
		// prev starts empty, not zero-filled: the first record's shared
		// prefix byte must always be 0, never a spurious match against
		// leading zero-valued fields.
		w.shards = append(w.shards, &shardWriter{f: f, zw: zw, prev: nil})
	}
	return w, nil
}

func (w *Writer) closeOpened() {
	for _, s := range w.shards {
		s.zw.Close()
		s.f.Close()
	}
}

// Add packs rec and delta-encodes it against its shard's previous record,
// then appends it to the shard selected by hashing the leader, so a given
// leader always lands in exactly one shard.
func (w *Writer) Add(rec Record) error {
	shard := farm.Hash64WithSeed(nil, rec.Leader) % uint64(w.nShards)
	s := w.shards[shard]

	s.mu.Lock()
	defer s.mu.Unlock()

	curr := packRecord(rec, w.header)
	delta := deltaEncode(s.prev, curr)
	if _, err := s.zw.Write(delta); err != nil {
		return errors.Wrap(err, "bkfile: shard append")
	}
	s.prev = curr
	return nil
}

// Close flushes and closes every shard file.
func (w *Writer) Close() error {
	var first error
	for _, s := range w.shards {
		s.mu.Lock()
		if err := s.zw.Close(); err != nil && first == nil {
			first = err
		}
		if err := s.f.Close(); err != nil && first == nil {
			first = err
		}
		s.mu.Unlock()
	}
	return first
}

// packRecord appends each field of rec, most-significant-byte first, at its
// header-configured width, in sample_id/barcode/leader/follower/count
// order.
func packRecord(rec Record, h Header) []byte {
	out := make([]byte, 0, h.RecordLen())
	out = appendMSB(out, rec.SampleID, h.SampleIDBytes)
	out = appendMSB(out, rec.Barcode, h.BarcodeBytes)
	out = appendMSB(out, rec.Leader, h.LeaderBytes)
	out = appendMSB(out, rec.Follower, h.FollowerBytes)
	out = appendMSB(out, rec.Count, h.CounterBytes)
	return out
}

func appendMSB(dst []byte, v uint64, width uint8) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[8-int(width):]...)
}

// deltaEncode returns the shared-prefix-length byte followed by the suffix
// of curr that differs from prev. The delta chain is continuous across a
// shard file's whole lifetime; resetting it mid-file without a wire-visible
// boundary marker would desynchronize the decoder.
func deltaEncode(prev, curr []byte) []byte {
	p := 0
	for p < len(prev) && p < len(curr) && p < 255 && prev[p] == curr[p] {
		p++
	}
	out := make([]byte, 0, 1+len(curr)-p)
	out = append(out, byte(p))
	out = append(out, curr[p:]...)
	return out
}
