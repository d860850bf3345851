package bkbarcode

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/refresh-bio/bkc/bkseq"
)

// ParsePredefinedTenX reads one barcode per line (the 10x variant of the
// predefined barcode file), returning the set of valid encodings.
func ParsePredefinedTenX(r io.Reader, barcodeLen int) (map[bkseq.Word]struct{}, error) {
	out := make(map[bkseq.Word]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		w, ok := bkseq.Encode([]byte(line), barcodeLen)
		if !ok {
			continue
		}
		out[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "bkbarcode: reading 10x predefined barcode file")
	}
	return out, nil
}

// ParsePredefinedVisium reads the visium variant: CSV rows of
// "<ACGT-barcode>-<suffix>,<int in_tissue>,...". Only rows with
// in_tissue == 1 contribute their barcode, with the "-<suffix>" stripped
// before encoding.
func ParsePredefinedVisium(r io.Reader, barcodeLen int) (map[bkseq.Word]struct{}, error) {
	out := make(map[bkseq.Word]struct{})
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "bkbarcode: reading visium predefined barcode file")
		}
		if len(rec) < 2 {
			continue
		}
		inTissue, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || inTissue != 1 {
			continue
		}
		barcode := rec[0]
		if i := strings.LastIndexByte(barcode, '-'); i >= 0 {
			barcode = barcode[:i]
		}
		w, ok := bkseq.Encode([]byte(barcode), barcodeLen)
		if !ok {
			continue
		}
		out[w] = struct{}{}
	}
	return out, nil
}
