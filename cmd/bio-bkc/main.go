// bio-bkc is the driver for the barcoded counting engine: it parses
// command-line flags into a bkc.Config and hands off to bkc.Engine.Run.
package main

import (
	"bufio"
	"flag"
	"fmt"
	golog "log"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/refresh-bio/bkc/bkc"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: bio-bkc --input=<list> --output=<path> [flags]\n")
	flag.PrintDefaults()
}

// readFileList parses an input list of "<cbc_umi_file>,<read_file>" lines,
// skipping blank lines.
func readFileList(path string) ([]bkc.FilePair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pairs []bkc.FilePair
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed input-list line: %q", line)
		}
		pairs = append(pairs, bkc.FilePair{
			CBCUMIFile: strings.TrimSpace(parts[0]),
			ReadFile:   strings.TrimSpace(parts[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func main() {
	flag.Usage = usage

	cfg := bkc.DefaultConfig

	inputList := flag.String("input", "", "Path to the <cbc_umi_file>,<read_file> input list.")
	flag.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Path (and stem) of the output bkc/splash file.")
	technology := flag.String("technology", string(cfg.Technology), "Barcoding chemistry: ten_x or visium.")
	inputFormat := flag.String("input-format", string(cfg.InputFormat), "Sequencing file shape: fastq or fasta.")
	outputFormat := flag.String("output-format", string(cfg.OutputFormat), "Output shape: bkc or splash.")
	mode := flag.String("mode", string(cfg.Mode), "Counting mode: single, pair, or filter.")
	exportMode := flag.String("export-filtered-input", string(cfg.ExportFilteredInput), "Filtered-reads export: none, first, second, or both.")

	flag.IntVar(&cfg.CBCLen, "cbc-len", cfg.CBCLen, "Cell-barcode length, in bases.")
	flag.IntVar(&cfg.UMILen, "umi-len", cfg.UMILen, "UMI length, in bases.")
	flag.IntVar(&cfg.LeaderLen, "leader-len", cfg.LeaderLen, "Leader subsequence length, in bases.")
	flag.IntVar(&cfg.FollowerLen, "follower-len", cfg.FollowerLen, "Follower subsequence length, in bases (pair mode only).")
	flag.IntVar(&cfg.GapLen, "gap-len", cfg.GapLen, "Gap between leader and follower, in bases (pair mode only).")
	flag.IntVar(&cfg.SoftCBCUMILenLimit, "soft-cbc-umi-len-limit", cfg.SoftCBCUMILenLimit, "Extra bases tolerated past cbc-len+umi-len before a read is flagged strange.")
	flag.IntVar(&cfg.PolyACGTLen, "poly-acgt-len", cfg.PolyACGTLen, "Homopolymer run length that marks a leader as an artifact (0 disables).")

	rareLeaderThr := flag.Uint64("rare-leader-thr", cfg.RareLeaderThr, "Leaders whose total per-barcode count is at or below this are dropped by the rare-leader filter.")
	maxCount := flag.Uint64("max-count", cfg.MaxCount, "Ceiling applied to every stored counter value.")
	flag.IntVar(&cfg.NSplits, "no-splits", cfg.NSplits, "Number of output shards.")
	flag.IntVar(&cfg.ZstdLevel, "zstd-level", cfg.ZstdLevel, "zstd compression level for output shards.")
	cbcFilteringThr := flag.Uint64("cbc-filtering-thr", cfg.CBCFilteringThr, "Non-zero replaces the elbow heuristic with a hard trust cut at this count, and separately drops barcodes with fewer surviving reads after dedup.")
	sampleID := flag.Uint64("sample-id", cfg.SampleID, "Sample identifier stored in every output record.")

	flag.BoolVar(&cfg.Canonical, "canonical", cfg.Canonical, "Canonicalize each leader against its reverse complement.")
	flag.BoolVar(&cfg.ApplyFilterIlluminaAdapters, "filter-illumina-adapters", cfg.ApplyFilterIlluminaAdapters, "Drop leaders containing an Illumina adapter k-mer.")
	flag.BoolVar(&cfg.ApplyCBCCorrection, "cbc-correction", cfg.ApplyCBCCorrection, "Apply 1-substitution barcode correction.")
	flag.BoolVar(&cfg.AllowStrangeCBCUMIReads, "allow-strange-cbc-umi-reads", cfg.AllowStrangeCBCUMIReads, "Tolerate cbc/umi reads outside the expected length instead of aborting.")

	flag.StringVar(&cfg.PredefinedCBCPath, "predefined-cbc", cfg.PredefinedCBCPath, "Path to a predefined barcode allowlist (bypasses the elbow heuristic).")
	flag.StringVar(&cfg.ArtifactsPath, "artifacts", cfg.ArtifactsPath, "Path to a newline-delimited list of additional artifact subsequences.")
	flag.StringVar(&cfg.FilteredInputDir, "filtered-input-dir", cfg.FilteredInputDir, "Output directory for the filtered-reads exporter.")
	flag.StringVar(&cfg.LogPath, "log", cfg.LogPath, "Path to a log file (stderr if empty).")
	flag.StringVar(&cfg.CBCLogPath, "cbc-log", cfg.CBCLogPath, "Path to dump the ranked trusted-barcode list with cumulative counts (disabled if empty).")

	flag.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "Log verbosity, 0-2.")
	flag.IntVar(&cfg.NThreads, "threads", cfg.NThreads, "Number of worker threads.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	cfg.Technology = bkc.Technology(*technology)
	cfg.InputFormat = bkc.InputFormat(*inputFormat)
	cfg.OutputFormat = bkc.OutputFormat(*outputFormat)
	cfg.Mode = bkc.CountingMode(*mode)
	cfg.ExportFilteredInput = bkc.ExportFilteredInput(*exportMode)
	cfg.RareLeaderThr = *rareLeaderThr
	cfg.MaxCount = *maxCount
	cfg.CBCFilteringThr = *cbcFilteringThr
	cfg.SampleID = *sampleID

	if cfg.LogPath != "" {
		// The default outputter writes through the standard library
		// logger, so redirecting it sends every progress line to the file.
		f, err := os.Create(cfg.LogPath)
		if err != nil {
			log.Fatalf("bio-bkc: opening log %s: %v", cfg.LogPath, err)
		}
		defer f.Close()
		golog.SetOutput(f)
	}

	if *inputList != "" {
		pairs, err := readFileList(*inputList)
		if err != nil {
			log.Fatalf("bio-bkc: reading %s: %v", *inputList, err)
		}
		cfg.Files = pairs
	}

	result, err := bkc.NewEngine(cfg).Run(ctx)
	if err != nil {
		log.Fatalf("bio-bkc: %v", err)
	}
	log.Printf("bio-bkc: %d trusted barcodes, %d records written to %s",
		result.TrustedBarcodes, result.RecordsWritten, cfg.OutputPath)
}
