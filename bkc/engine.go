package bkc

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"

	"github.com/refresh-bio/bkc/bkbarcode"
	"github.com/refresh-bio/bkc/bkcount"
	"github.com/refresh-bio/bkc/bkdedup"
	"github.com/refresh-bio/bkc/bkexport"
	"github.com/refresh-bio/bkc/bkfile"
	"github.com/refresh-bio/bkc/bkqueue"
	"github.com/refresh-bio/bkc/bkreader"
	"github.com/refresh-bio/bkc/bkreads"
	"github.com/refresh-bio/bkc/bkseq"
)

// logPhase emits a phase-boundary progress line at verbosity >= 1.
func (e *Engine) logPhase(msg string) {
	if e.cfg.Verbosity >= 1 {
		log.Printf("bkc: %s", msg)
	}
}

// Engine runs the phase state machine Idle -> BarcodePass -> Trust ->
// Correct? -> Dedup -> Relabel -> ReadPass -> Enumerate -> Write -> Done
// described in this package's doc comment. Run holds every phase buffer as
// a local value; worker goroutines only ever borrow views of them.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine for cfg, which must already satisfy
// Config.Validate.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Result summarizes one Run.
type Result struct {
	TrustedBarcodes int
	RecordsWritten  int
}

// Run executes every phase in order and returns once Write has joined (or,
// in filter mode, once Relabel/export have).
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, wrap(KindConfiguration, err)
	}

	e.logPhase("reading and counting")
	dicts, fileReadCounts, err := e.barcodePass(ctx)
	if err != nil {
		return nil, err
	}

	e.logPhase("gathering CBC statistics")
	trusted, correction, err := e.selectTrusted(dicts)
	if err != nil {
		return nil, err
	}

	e.logPhase("removing non-trusted CBCs")
	groups := groupByTrustedBarcode(dicts, trusted, correction)
	survivors := bkdedup.RerankAndFilter(e.dedupBarcodes(groups), e.cfg.CBCFilteringThr)
	if e.cfg.Verbosity >= 2 {
		log.Printf("bkc: %d trusted barcodes after filtering", len(survivors))
	}

	e.logPhase("removing duplicated UMIs and creating valid reads list")
	relabel := bkdedup.Relabel(survivors, fileReadCounts)

	if err := e.exportFirstMate(ctx, relabel); err != nil {
		return nil, err
	}

	exportSecond := e.cfg.ExportFilteredInput == ExportSecond || e.cfg.ExportFilteredInput == ExportBoth

	result := &Result{TrustedBarcodes: len(survivors)}

	if e.cfg.Mode == ModeFilter && !exportSecond {
		return result, nil
	}

	e.logPhase("reads loading")
	loaders, err := e.readPass(ctx, relabel, exportSecond)
	if err != nil {
		return nil, err
	}
	if e.cfg.Mode == ModeFilter {
		return result, nil
	}

	if e.cfg.Mode == ModePair {
		e.logPhase("enumerating and counting leader-follower pairs")
	} else {
		e.logPhase("enumerating and counting k-mers")
	}
	n, err := e.enumerateAndWrite(survivors, loaders)
	if err != nil {
		return nil, err
	}
	result.RecordsWritten = n
	return result, nil
}

// inputLines maps the configured sequencing-file shape to the line count
// the block reader and record parser need.
func inputLines(format InputFormat) bkreader.LinesPerRecord {
	if format == InputFASTA {
		return bkreader.FastaLines
	}
	return bkreader.FastqLines
}

// readBlocks drives one read pipeline over path: a reader goroutine
// feeding record-aligned blocks through a ChunkPool/Queue pair, and this
// goroutine acting as the paired worker, parsing each block and invoking
// handle once per record. It returns the number of records seen and the
// first error encountered (from reading or from handle); on a handle error
// it keeps draining the queue so the reader goroutine is never left
// blocked on a full queue, instead of leaking it.
func readBlocks(ctx context.Context, path string, lines bkreader.LinesPerRecord, handle func(rec *bkreader.Record, idx int) error) (int, error) {
	br, err := bkreader.Open(ctx, path, lines, bkreader.DefaultBlockSize)
	if err != nil {
		return 0, wrap(KindIOOpen, err)
	}
	defer br.Close(ctx)

	const queueDepth = 3
	pool := bkqueue.NewChunkPool(queueDepth, bkreader.DefaultBlockSize)
	q := bkqueue.NewQueue(queueDepth)

	var readErr error
	go func() {
		defer q.Complete()
		for {
			buf := pool.Get()
			block, err := br.Next(buf)
			if err == bkreader.Eof {
				pool.Put(buf)
				return
			}
			if err != nil {
				pool.Put(buf)
				readErr = err
				return
			}
			q.Push(block)
		}
	}()

	idx := 0
	var handleErr error
	for {
		block, ok := q.Pop()
		if !ok {
			break
		}
		if handleErr == nil {
			parser := bkreader.NewRecordParser(block, lines)
			var rec bkreader.Record
			for parser.Next(&rec) {
				if err := handle(&rec, idx); err != nil {
					handleErr = err
					break
				}
				idx++
			}
		}
		pool.Put(block)
	}

	if handleErr != nil {
		return idx, handleErr
	}
	if readErr != nil {
		return idx, wrap(KindIORead, readErr)
	}
	return idx, nil
}

// readerSlots bounds how many files are processed at once during the two
// I/O passes: each in-flight file occupies a reader goroutine plus its
// paired parsing worker, so half the thread budget, capped by the file
// count.
func (e *Engine) readerSlots() int {
	slots := e.cfg.NThreads / 2
	if slots > len(e.cfg.Files) {
		slots = len(e.cfg.Files)
	}
	if slots < 1 {
		slots = 1
	}
	return slots
}

// barcodePass extracts and accumulates barcodes/UMIs across every file
// pair's first mate, partitioned one goroutine per input file.
func (e *Engine) barcodePass(ctx context.Context) ([]*bkbarcode.ThreadDict, []int, error) {
	n := len(e.cfg.Files)
	dicts := make([]*bkbarcode.ThreadDict, n)
	counts := make([]int, n)
	errs := make([]error, n)

	lines := inputLines(e.cfg.InputFormat)
	extractor := bkbarcode.Extractor{
		BarcodeLen:   e.cfg.CBCLen,
		UMILen:       e.cfg.UMILen,
		SoftLimit:    e.cfg.SoftCBCUMILenLimit,
		AllowStrange: e.cfg.AllowStrangeCBCUMIReads,
	}

	sem := make(chan struct{}, e.readerSlots())
	var wg sync.WaitGroup
	for i, pair := range e.cfg.Files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			dict := bkbarcode.NewThreadDict(1024)
			count, err := readBlocks(ctx, path, lines, func(rec *bkreader.Record, idx int) error {
				barcode, umi, ok, err := extractor.Extract(rec.Header, rec.Bases)
				if err != nil {
					return wrap(KindRecordShape, err)
				}
				if ok {
					dict.Add(barcode, umi, bkbarcode.EncodeReadID(uint32(i), uint32(idx)))
				}
				return nil
			})
			dicts[i] = dict
			counts[i] = count
			errs[i] = err
		}(i, pair.CBCUMIFile)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return dicts, counts, nil
}

// selectTrusted picks the trusted barcode set, either from a predefined
// allowlist or by the elbow heuristic, and builds the 1-substitution
// correction map when enabled.
func (e *Engine) selectTrusted(dicts []*bkbarcode.ThreadDict) ([]bkbarcode.RankedBarcode, map[bkseq.Word]bkseq.Word, error) {
	stats := bkbarcode.GatherStats(dicts)

	var trusted []bkbarcode.RankedBarcode
	if e.cfg.PredefinedCBCPath != "" {
		allow, err := e.loadPredefined()
		if err != nil {
			return nil, nil, err
		}
		trusted = bkbarcode.SelectPredefined(stats, allow)
	} else {
		// CBCFilteringThr does double duty: a non-zero value replaces the
		// elbow cut with a hard "count >= threshold" cut here, and
		// RerankAndFilter reuses the same field again post-dedup.
		trusted = bkbarcode.SelectTrusted(stats, e.cfg.CBCFilteringThr)
	}

	if e.cfg.CBCLogPath != "" {
		if err := bkbarcode.WriteTrustLog(e.cfg.CBCLogPath, trusted, e.cfg.CBCLen); err != nil {
			return nil, nil, wrap(KindIOOpen, err)
		}
	}

	// Correction only applies to a count-derived trusted set (elbow or hard
	// threshold); an explicit allowlist is taken as-is.
	if !e.cfg.ApplyCBCCorrection || e.cfg.PredefinedCBCPath != "" {
		return trusted, nil, nil
	}

	trustedSet := make(map[bkseq.Word]struct{}, len(trusted))
	for _, t := range trusted {
		trustedSet[t.Barcode] = struct{}{}
	}
	var untrusted []bkbarcode.RankedBarcode
	for b, c := range stats {
		if _, ok := trustedSet[b]; !ok {
			untrusted = append(untrusted, bkbarcode.RankedBarcode{Barcode: b, Count: c})
		}
	}
	correction := bkbarcode.BuildCorrectionMap(trusted, e.cfg.CBCLen, untrusted)
	return trusted, correction, nil
}

func (e *Engine) loadPredefined() (map[bkseq.Word]struct{}, error) {
	f, err := os.Open(e.cfg.PredefinedCBCPath)
	if err != nil {
		return nil, wrap(KindIOOpen, err)
	}
	defer f.Close()

	if e.cfg.Technology == Visium {
		return bkbarcode.ParsePredefinedVisium(f, e.cfg.CBCLen)
	}
	return bkbarcode.ParsePredefinedTenX(f, e.cfg.CBCLen)
}

// groupByTrustedBarcode folds every thread dict's entries into the list
// each trusted barcode's dedup pass needs: entries that are already
// trusted keep their own barcode, entries reachable by exactly one
// correction target are folded into it, and everything else is dropped.
func groupByTrustedBarcode(dicts []*bkbarcode.ThreadDict, trusted []bkbarcode.RankedBarcode, correction map[bkseq.Word]bkseq.Word) map[bkseq.Word][][]bkbarcode.UMIRead {
	trustedSet := make(map[bkseq.Word]struct{}, len(trusted))
	for _, t := range trusted {
		trustedSet[t.Barcode] = struct{}{}
	}

	groups := make(map[bkseq.Word][][]bkbarcode.UMIRead, len(trusted))
	for _, d := range dicts {
		for b, list := range d.Entries() {
			target := b
			if _, ok := trustedSet[b]; !ok {
				corrected, ok := correction[b]
				if !ok {
					continue
				}
				target = corrected
			}
			groups[target] = append(groups[target], list)
		}
	}
	return groups
}

// dedupBarcodes runs UMI deduplication over every trusted barcode's grouped
// lists. The per-barcode work is independent, so worker goroutines claim
// barcodes off an atomic counter; results land at the barcode's own slot,
// keeping the output independent of claim order.
func (e *Engine) dedupBarcodes(groups map[bkseq.Word][][]bkbarcode.UMIRead) []bkdedup.BarcodeSurvivors {
	barcodes := make([]bkseq.Word, 0, len(groups))
	for b := range groups {
		barcodes = append(barcodes, b)
	}

	out := make([]bkdedup.BarcodeSurvivors, len(barcodes))
	var next uint64
	var wg sync.WaitGroup
	for w := 0; w < maxInt(1, e.cfg.NThreads); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddUint64(&next, 1)) - 1
				if i >= len(barcodes) {
					return
				}
				out[i] = bkdedup.Dedup(barcodes[i], groups[barcodes[i]])
			}
		}()
	}
	wg.Wait()
	return out
}

// exportFirstMate re-emits flagged first-mate records: a separate pass
// over every file pair's cbc/umi file, now that Relabel's bitmaps are
// known.
func (e *Engine) exportFirstMate(ctx context.Context, relabel bkdedup.RelabelResult) error {
	if e.cfg.ExportFilteredInput != ExportFirst && e.cfg.ExportFilteredInput != ExportBoth {
		return nil
	}

	lines := inputLines(e.cfg.InputFormat)
	sem := make(chan struct{}, e.readerSlots())
	var wg sync.WaitGroup
	errs := make([]error, len(e.cfg.Files))

	for i, pair := range e.cfg.Files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			exp, err := bkexport.Create(e.exportDir(), fileStem(path), e.exportFormat())
			if err != nil {
				errs[i] = wrap(KindIOOpen, err)
				return
			}
			_, runErr := readBlocks(ctx, path, lines, func(rec *bkreader.Record, idx int) error {
				if !relabel.Valid[i].Test(idx) {
					return nil
				}
				return exp.Write(bkexport.Record{Header: rec.Header, Bases: rec.Bases, Qual: rec.Qual})
			})
			if cerr := exp.Close(); cerr != nil && runErr == nil {
				runErr = cerr
			}
			errs[i] = runErr
		}(i, pair.CBCUMIFile)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// readPass loads surviving reads from every file pair's second mate,
// optionally interleaving the second-mate filtered export.
func (e *Engine) readPass(ctx context.Context, relabel bkdedup.RelabelResult, exportSecond bool) ([]*bkreads.Loader, error) {
	n := len(e.cfg.Files)
	loaders := make([]*bkreads.Loader, n)
	errs := make([]error, n)
	lines := inputLines(e.cfg.InputFormat)

	sem := make(chan struct{}, e.readerSlots())
	var wg sync.WaitGroup
	for i, pair := range e.cfg.Files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			arena := bkreads.NewArena()
			loader := bkreads.NewLoader(relabel.Valid[i], relabel.DenseIndex[i], relabel.SurvivorsPerFile[i], arena)

			var exp *bkexport.Writer
			if exportSecond {
				w, err := bkexport.Create(e.exportDir(), fileStem(path), e.exportFormat())
				if err != nil {
					errs[i] = wrap(KindIOOpen, err)
					return
				}
				exp = w
			}

			_, runErr := readBlocks(ctx, path, lines, func(rec *bkreader.Record, idx int) error {
				if exp != nil && relabel.Valid[i].Test(idx) {
					if err := exp.Write(bkexport.Record{Header: rec.Header, Bases: rec.Bases, Qual: rec.Qual}); err != nil {
						return err
					}
				}
				loader.LoadRecord(rec.Bases)
				return nil
			})
			if exp != nil {
				if cerr := exp.Close(); cerr != nil && runErr == nil {
					runErr = cerr
				}
			}
			loaders[i] = loader
			errs[i] = runErr
		}(i, pair.ReadFile)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return loaders, nil
}

// enumerateAndWrite slides the configured window(s) over every surviving
// barcode's loaded reads, aggregates, and hands the resulting records to
// the sharded writer.
func (e *Engine) enumerateAndWrite(survivors []bkdedup.BarcodeSurvivors, loaders []*bkreads.Loader) (int, error) {
	poly := bkcount.PolyACGTFilter{PolyLen: e.cfg.PolyACGTLen}
	artifacts, err := e.buildArtifactsFilter()
	if err != nil {
		return 0, err
	}

	// Per-barcode counting is independent; workers claim barcodes off an
	// atomic counter and deposit each barcode's aggregated records at its
	// own slot, so the flattened stream below keeps the reranked barcode
	// order and the written shards stay byte-identical across runs.
	perBarcode := make([][]bkfile.Record, len(survivors))
	var nextIdx uint64
	var wg sync.WaitGroup
	for w := 0; w < maxInt(1, e.cfg.NThreads); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddUint64(&nextIdx, 1)) - 1
				if i >= len(survivors) {
					return
				}
				perBarcode[i] = e.countBarcode(survivors[i], loaders, poly, artifacts)
			}
		}()
	}
	wg.Wait()

	var records []bkfile.Record
	for _, rs := range perBarcode {
		records = append(records, rs...)
	}

	n := len(records)
	return n, e.writeRecords(records)
}

// countBarcode enumerates and aggregates one surviving barcode's reads into
// its output records.
func (e *Engine) countBarcode(s bkdedup.BarcodeSurvivors, loaders []*bkreads.Loader, poly bkcount.PolyACGTFilter, artifacts bkcount.ArtifactsFilter) []bkfile.Record {
	var records []bkfile.Record
	switch e.cfg.Mode {
	case ModePair:
		var pairs []bkcount.PairCount
		e.forEachLoadedRead(s, loaders, func(packed []byte, readLen int) {
			bkcount.EnumeratePairs(packed, readLen, e.cfg.LeaderLen, e.cfg.GapLen, e.cfg.FollowerLen, func(l, f uint64) {
				pairs = append(pairs, bkcount.PairCount{Leader: l, Follower: f, Count: 1})
			})
		})
		for _, c := range bkcount.AggregatePairs(pairs, e.cfg.LeaderLen, poly, artifacts, e.cfg.RareLeaderThr) {
			records = append(records, bkfile.Record{
				SampleID: e.cfg.SampleID, Barcode: uint64(s.Barcode),
				Leader: c.Leader, Follower: c.Follower, Count: clampCount(c.Count, e.cfg.MaxCount),
			})
		}
	default: // ModeSingle
		var leaders []uint64
		e.forEachLoadedRead(s, loaders, func(packed []byte, readLen int) {
			bkcount.EnumerateLeaders(packed, readLen, e.cfg.LeaderLen, e.cfg.Canonical, func(l uint64) {
				leaders = append(leaders, l)
			})
		})
		for _, c := range bkcount.AggregateLeaders(leaders, e.cfg.LeaderLen, poly, artifacts, e.cfg.RareLeaderThr) {
			records = append(records, bkfile.Record{
				SampleID: e.cfg.SampleID, Barcode: uint64(s.Barcode),
				Leader: c.Leader, Count: clampCount(c.Count, e.cfg.MaxCount),
			})
		}
	}
	return records
}

func (e *Engine) forEachLoadedRead(s bkdedup.BarcodeSurvivors, loaders []*bkreads.Loader, fn func(packed []byte, readLen int)) {
	for _, r := range s.Reads {
		loader := loaders[r.FileIndex()]
		dense := int(r.ReadIndex())
		packed := loader.SampleReads[dense]
		if packed == nil {
			continue
		}
		fn(packed, loader.ReadLens[dense])
	}
}

func (e *Engine) buildArtifactsFilter() (bkcount.ArtifactsFilter, error) {
	sets := make(map[int]map[uint64]struct{})
	if e.cfg.ApplyFilterIlluminaAdapters {
		for k, set := range bkcount.NewIlluminaAdapterFilter().KmerSets {
			sets[k] = set
		}
	}
	if e.cfg.ArtifactsPath == "" {
		return bkcount.ArtifactsFilter{KmerSets: sets}, nil
	}

	f, err := os.Open(e.cfg.ArtifactsPath)
	if err != nil {
		return bkcount.ArtifactsFilter{}, wrap(KindIOOpen, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		w, ok := bkseq.Encode([]byte(line), len(line))
		if !ok {
			continue
		}
		if sets[len(line)] == nil {
			sets[len(line)] = make(map[uint64]struct{})
		}
		sets[len(line)][uint64(w)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return bkcount.ArtifactsFilter{}, wrap(KindIOOpen, err)
	}
	return bkcount.ArtifactsFilter{KmerSets: sets}, nil
}

func (e *Engine) writeRecords(records []bkfile.Record) error {
	var maxBarcode, maxLeader, maxFollower, maxCount uint64
	for _, r := range records {
		maxBarcode = maxUint64(maxBarcode, r.Barcode)
		maxLeader = maxUint64(maxLeader, r.Leader)
		maxFollower = maxUint64(maxFollower, r.Follower)
		maxCount = maxUint64(maxCount, r.Count)
	}

	header := bkfile.NewHeader(e.cfg.CBCLen, e.cfg.LeaderLen, e.cfg.FollowerLen, e.cfg.GapLen,
		e.cfg.SampleID, maxBarcode, maxLeader, maxFollower, maxCount)

	format := bkfile.FormatBKC
	if e.cfg.OutputFormat == FormatSplash {
		format = bkfile.FormatSplash
	}

	dir := filepath.Dir(e.cfg.OutputPath)
	stem := strings.TrimSuffix(filepath.Base(e.cfg.OutputPath), filepath.Ext(e.cfg.OutputPath))

	w, err := bkfile.Create(dir, stem, maxInt(1, e.cfg.NSplits), e.cfg.ZstdLevel, format, header)
	if err != nil {
		return wrap(KindShardOpen, err)
	}
	for _, r := range records {
		if err := w.Add(r); err != nil {
			return wrap(KindShardOpen, err)
		}
	}
	return w.Close()
}

func (e *Engine) exportDir() string {
	if e.cfg.FilteredInputDir != "" {
		return e.cfg.FilteredInputDir
	}
	return filepath.Dir(e.cfg.OutputPath)
}

func (e *Engine) exportFormat() bkexport.Format {
	if e.cfg.InputFormat == InputFASTA {
		return bkexport.Fasta
	}
	return bkexport.Fastq
}

// fileStem strips a path down to its library name for export-file naming:
// directory, a trailing ".gz", and the remaining extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// clampCount caps a count at max when max is configured (non-zero), the
// ceiling on the counter field's stored value.
func clampCount(count, max uint64) uint64 {
	if max != 0 && count > max {
		return max
	}
	return count
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
