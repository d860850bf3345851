package bkfile

import (
	"io"

	"github.com/pkg/errors"

	"github.com/refresh-bio/bkc/bkseq"
)

// OutputFormat selects the on-disk container shape. FormatBKC carries the
// full magic+version+ordering+widths+lens header; FormatSplash omits the
// magic/version bytes and the ordering byte, keeping only the widths and
// lens, for a downstream tool that already knows the layout. readHeader
// (and so Open) accepts only FormatBKC shards.
type OutputFormat uint8

const (
	FormatBKC OutputFormat = iota
	FormatSplash
)

// defaultOrdering is the only ordering value this package ever writes or
// accepts.
const defaultOrdering uint8 = 0

var magic = [6]byte{'B', 'K', 'C', 1, 1, 0}

// Header describes one shard file's fixed on-disk field widths (in bytes)
// and the symbol lengths those fields encode.
type Header struct {
	SampleIDBytes uint8
	BarcodeBytes  uint8
	LeaderBytes   uint8
	FollowerBytes uint8
	CounterBytes  uint8

	BarcodeLenSymbols  uint8
	LeaderLenSymbols   uint8
	FollowerLenSymbols uint8
	GapLenSymbols      uint8
}

// RecordLen is the fixed number of bytes one undelta'd record occupies: the
// sum of the five field widths, in sample_id/barcode/leader/follower/count
// order.
func (h Header) RecordLen() int {
	return int(h.SampleIDBytes) + int(h.BarcodeBytes) + int(h.LeaderBytes) + int(h.FollowerBytes) + int(h.CounterBytes)
}

// NewHeader builds a Header from symbol lengths and the maximum value
// observed for each numeric field, computing every byte width as the
// minimum necessary to hold that maximum. followerLen and maxFollower are 0
// in single mode.
func NewHeader(barcodeLen, leaderLen, followerLen, gapLen int, maxSampleID, maxBarcode, maxLeader, maxFollower, maxCount uint64) Header {
	return Header{
		SampleIDBytes: bkseq.BitWidth(maxSampleID),
		BarcodeBytes:  bkseq.BitWidth(maxBarcode),
		LeaderBytes:   bkseq.BitWidth(maxLeader),
		FollowerBytes: bkseq.BitWidth(maxFollower),
		CounterBytes:  bkseq.BitWidth(maxCount),

		BarcodeLenSymbols:  uint8(barcodeLen),
		LeaderLenSymbols:   uint8(leaderLen),
		FollowerLenSymbols: uint8(followerLen),
		GapLenSymbols:      uint8(gapLen),
	}
}

func (h Header) fieldBytes() [9]byte {
	return [9]byte{
		h.SampleIDBytes, h.BarcodeBytes, h.LeaderBytes, h.FollowerBytes, h.CounterBytes,
		h.BarcodeLenSymbols, h.LeaderLenSymbols, h.FollowerLenSymbols, h.GapLenSymbols,
	}
}

func writeHeader(w io.Writer, format OutputFormat, h Header) error {
	if format == FormatBKC {
		if _, err := w.Write(magic[:]); err != nil {
			return errors.Wrap(err, "bkfile: write magic")
		}
		if _, err := w.Write([]byte{defaultOrdering}); err != nil {
			return errors.Wrap(err, "bkfile: write ordering")
		}
	}
	fields := h.fieldBytes()
	_, err := w.Write(fields[:])
	return errors.Wrap(err, "bkfile: write header fields")
}

func readHeader(r io.Reader) (Header, error) {
	var got [6]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return Header{}, errors.Wrap(err, "bkfile: read magic")
	}
	if got != magic {
		return Header{}, errors.New("bkfile: bad magic")
	}
	var ordering [1]byte
	if _, err := io.ReadFull(r, ordering[:]); err != nil {
		return Header{}, errors.Wrap(err, "bkfile: read ordering")
	}
	if ordering[0] != defaultOrdering {
		return Header{}, errors.Errorf("bkfile: unsupported ordering %d", ordering[0])
	}

	buf := make([]byte, 9)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, errors.Wrap(err, "bkfile: read header fields")
	}
	return Header{
		SampleIDBytes:      buf[0],
		BarcodeBytes:       buf[1],
		LeaderBytes:        buf[2],
		FollowerBytes:      buf[3],
		CounterBytes:       buf[4],
		BarcodeLenSymbols:  buf[5],
		LeaderLenSymbols:   buf[6],
		FollowerLenSymbols: buf[7],
		GapLenSymbols:      buf[8],
	}, nil
}
