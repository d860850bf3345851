// Package bkc orchestrates the barcoded counting engine: the phase state
// machine Idle -> BarcodePass -> Trust -> Correct? -> Dedup -> Relabel ->
// ReadPass -> Enumerate -> Write -> Done. Configuration loading (flag
// parsing, env/config files) stays outside this package, in cmd/bio-bkc;
// callers hand Engine a fully populated Config.
package bkc

import "fmt"

// Technology names the barcoding chemistry, used only to select the
// predefined-barcode file parser (bkbarcode.ParsePredefinedVisium for
// Visium, bkbarcode.ParsePredefinedTenX otherwise).
type Technology string

const (
	TenX    Technology = "ten_x"
	Visium  Technology = "visium"
	Unknown Technology = "unknown"
)

// CountingMode selects what the leader/pair enumerator emits.
type CountingMode string

const (
	// ModeSingle counts individual leaders.
	ModeSingle CountingMode = "single"
	// ModePair counts (leader, follower) pairs separated by a gap.
	ModePair CountingMode = "pair"
	// ModeFilter stops after relabelling/export and writes no counts.
	ModeFilter CountingMode = "filter"
)

// OutputFormat selects the on-disk record stream shape.
type OutputFormat string

const (
	FormatBKC    OutputFormat = "bkc"
	FormatSplash OutputFormat = "splash"
)

// ExportFilteredInput controls which mate file(s) the filtered-reads
// exporter rewrites.
type ExportFilteredInput string

const (
	ExportNone   ExportFilteredInput = "none"
	ExportFirst  ExportFilteredInput = "first"
	ExportSecond ExportFilteredInput = "second"
	ExportBoth   ExportFilteredInput = "both"
)

// InputFormat names the sequencing file shape (two-line fasta or four-line
// fastq); gzip is detected separately from the .gz suffix.
type InputFormat string

const (
	InputFASTQ InputFormat = "fastq"
	InputFASTA InputFormat = "fasta"
)

// FilePair is one <cbc_umi_file>,<read_file> line of the input list.
type FilePair struct {
	CBCUMIFile string
	ReadFile   string
}

// Config is everything a driver must populate before calling Engine.Run.
type Config struct {
	Technology   Technology
	InputFormat  InputFormat
	OutputFormat OutputFormat
	Mode         CountingMode

	CBCLen             int
	UMILen             int
	LeaderLen          int
	FollowerLen        int
	GapLen             int
	SoftCBCUMILenLimit int
	PolyACGTLen        int

	RareLeaderThr   uint64
	MaxCount        uint64
	NSplits         int
	ZstdLevel       int
	CBCFilteringThr uint64
	SampleID        uint64

	Canonical                   bool
	ApplyFilterIlluminaAdapters bool
	ApplyCBCCorrection          bool
	AllowStrangeCBCUMIReads     bool

	PredefinedCBCPath string
	ArtifactsPath     string
	FilteredInputDir  string
	LogPath           string
	CBCLogPath        string

	ExportFilteredInput ExportFilteredInput

	Verbosity int
	NThreads  int

	Files      []FilePair
	OutputPath string
}

// DefaultConfig holds the field defaults a driver starts from.
var DefaultConfig = Config{
	Technology:   TenX,
	InputFormat:  InputFASTQ,
	OutputFormat: FormatBKC,
	Mode:         ModeSingle,

	CBCLen:             16,
	UMILen:             12,
	LeaderLen:          27,
	FollowerLen:        0,
	GapLen:             0,
	SoftCBCUMILenLimit: 0,
	PolyACGTLen:        0,

	RareLeaderThr:   5,
	MaxCount:        65535,
	NSplits:         1,
	ZstdLevel:       6,
	CBCFilteringThr: 0,
	SampleID:        0,

	Canonical:                   false,
	ApplyFilterIlluminaAdapters: false,
	ApplyCBCCorrection:          false,
	AllowStrangeCBCUMIReads:     false,

	ExportFilteredInput: ExportNone,

	Verbosity: 0,
	NThreads:  8,

	OutputPath: "./results.bkc",
}

// Validate checks every numeric parameter against its allowed range,
// returning a configuration error on the first violation found.
func (c *Config) Validate() error {
	type rng struct {
		name        string
		val, lo, hi int
	}
	ranges := []rng{
		{"cbc_len", c.CBCLen, 10, 16},
		{"umi_len", c.UMILen, 8, 16},
		{"leader_len", c.LeaderLen, 1, 31},
		{"follower_len", c.FollowerLen, 0, 31},
		{"no_splits", c.NSplits, 1, 256},
		{"no_threads", c.NThreads, 0, 256},
		{"zstd_level", c.ZstdLevel, 0, 19},
		{"poly_ACGT_len", c.PolyACGTLen, 0, 31},
		{"verbosity_level", c.Verbosity, 0, 2},
	}
	for _, r := range ranges {
		if r.val < r.lo || r.val > r.hi {
			return fmt.Errorf("bkc: configuration: %s=%d out of range [%d,%d]", r.name, r.val, r.lo, r.hi)
		}
	}
	switch c.Technology {
	case TenX, Visium, Unknown:
	default:
		return fmt.Errorf("bkc: configuration: unknown technology %q", c.Technology)
	}
	switch c.Mode {
	case ModeSingle, ModePair, ModeFilter:
	default:
		return fmt.Errorf("bkc: configuration: unknown counting mode %q", c.Mode)
	}
	switch c.InputFormat {
	case InputFASTQ, InputFASTA:
	default:
		return fmt.Errorf("bkc: configuration: unknown input format %q", c.InputFormat)
	}
	switch c.OutputFormat {
	case FormatBKC, FormatSplash:
	default:
		return fmt.Errorf("bkc: configuration: unknown output format %q", c.OutputFormat)
	}
	switch c.ExportFilteredInput {
	case ExportNone, ExportFirst, ExportSecond, ExportBoth:
	default:
		return fmt.Errorf("bkc: configuration: unknown export mode %q", c.ExportFilteredInput)
	}
	if c.Mode == ModePair && c.FollowerLen < 1 {
		return fmt.Errorf("bkc: configuration: pair mode needs follower_len >= 1")
	}
	if c.CBCLen+c.UMILen > 32 {
		return fmt.Errorf("bkc: configuration: cbc_len+umi_len=%d exceeds the 32-symbol word width", c.CBCLen+c.UMILen)
	}
	if c.LeaderLen+c.GapLen+c.FollowerLen > 32 && c.Mode == ModePair {
		return fmt.Errorf("bkc: configuration: leader_len+gap_len+follower_len exceeds the 32-symbol word width")
	}
	if len(c.Files) == 0 && c.Mode != ModeFilter {
		return fmt.Errorf("bkc: configuration: no input files given")
	}
	return nil
}
