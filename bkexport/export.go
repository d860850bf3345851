// Package bkexport implements the optional filtered-reads exporter:
// re-emitting every record whose validity bitmap flag is set into a
// gzip-compressed fasta/fastq file.
package bkexport

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Format selects the record shape written for each export record.
type Format int

const (
	Fastq Format = iota
	Fasta
)

func (f Format) ext() string {
	if f == Fasta {
		return "fasta"
	}
	return "fastq"
}

// Record is one input record as re-emitted by the exporter: the original
// header line, its bases, and (fastq only) its quality string. Neither
// carries the trailing newline.
type Record struct {
	Header []byte
	Bases  []byte
	Qual   []byte // nil for fasta
}

// Writer appends Records to a single gzip-compressed file named
// "<stem>.dedup.<ext>.gz" under dir.
type Writer struct {
	format Format
	f      *os.File
	gz     *gzip.Writer
	bw     *bufio.Writer
}

// Create opens the exporter's output file for stem under dir.
func Create(dir, stem string, format Format) (*Writer, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s.dedup.%s.gz", stem, format.ext()))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "bkexport: create %v", path)
	}
	gz := gzip.NewWriter(f)
	return &Writer{format: format, f: f, gz: gz, bw: bufio.NewWriter(gz)}, nil
}

// Write re-emits one record: a fastq record as header/bases/"+"/qual, or a
// fasta record as header/bases, each line newline-terminated.
func (w *Writer) Write(rec Record) error {
	if _, err := w.bw.Write(rec.Header); err != nil {
		return errors.Wrap(err, "bkexport: write header")
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.bw.Write(rec.Bases); err != nil {
		return errors.Wrap(err, "bkexport: write bases")
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	if w.format == Fastq {
		if _, err := w.bw.WriteString("+\n"); err != nil {
			return err
		}
		if _, err := w.bw.Write(rec.Qual); err != nil {
			return errors.Wrap(err, "bkexport: write quality")
		}
		if err := w.bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying gzip stream and file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return errors.Wrap(err, "bkexport: flush")
	}
	if err := w.gz.Close(); err != nil {
		return errors.Wrap(err, "bkexport: gzip close")
	}
	return w.f.Close()
}
