package bkc

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refresh-bio/bkc/bkfile"
)

// writeFile creates name under dir with contents, failing the test on error.
func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0o644))
	return path
}

func readAllRecords(t *testing.T, dir, stem string, nSplits int) []bkfile.Record {
	t.Helper()
	mr, err := bkfile.OpenAll(dir, stem, nSplits)
	require.NoError(t, err)
	defer mr.Close()

	var out []bkfile.Record
	for {
		rec, err := mr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

// baseConfig returns a Config with the smallest barcode and UMI lengths the
// validator allows and a 6-base leader, suitable as a starting point for
// every test below.
func baseConfig(dir string) Config {
	cfg := DefaultConfig
	cfg.CBCLen = 10
	cfg.UMILen = 8
	cfg.LeaderLen = 6
	cfg.FollowerLen = 0
	cfg.GapLen = 0
	cfg.SoftCBCUMILenLimit = 0
	cfg.RareLeaderThr = 0
	cfg.NThreads = 2
	cfg.NSplits = 1
	cfg.SampleID = 7
	cfg.OutputPath = filepath.Join(dir, "out.bkc")
	return cfg
}

// TestEngineSingleModeSmoke runs the full single-mode pipeline end to end:
// a predefined single-barcode allowlist, two reads with distinct UMIs (so
// both survive dedup) and an identical second-mate leader, checking the
// single written record's fields.
func TestEngineSingleModeSmoke(t *testing.T) {
	dir, err := ioutil.TempDir("", "bkc-engine-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	barcode := "AAAAAAAAAA" // 10 bases
	r1 := writeFile(t, dir, "r1.fastq",
		"@read1\n"+barcode+"CCCCCCCC\n+\nIIIIIIIIIIIIIIIIII\n"+
			"@read2\n"+barcode+"GGGGGGGG\n+\nIIIIIIIIIIIIIIIIII\n")
	r2 := writeFile(t, dir, "r2.fastq",
		"@read1\nACGTAC\n+\nIIIIII\n"+
			"@read2\nACGTAC\n+\nIIIIII\n")
	allowlist := writeFile(t, dir, "allowlist.txt", barcode+"\n")

	cfg := baseConfig(dir)
	cfg.Mode = ModeSingle
	cfg.PredefinedCBCPath = allowlist
	cfg.Files = []FilePair{{CBCUMIFile: r1, ReadFile: r2}}

	result, err := NewEngine(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TrustedBarcodes)
	assert.Equal(t, 1, result.RecordsWritten)

	records := readAllRecords(t, dir, "out", 1)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(7), records[0].SampleID)
	assert.Equal(t, uint64(2), records[0].Count)
}

// TestEngineUMIDedupCollapsesDuplicates: two reads sharing both barcode
// and UMI must collapse into a single survivor, so the written leader
// count is 1 rather than 2.
func TestEngineUMIDedupCollapsesDuplicates(t *testing.T) {
	dir, err := ioutil.TempDir("", "bkc-engine-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	barcode := "AAAAAAAAAA"
	umi := "CCCCCCCC"
	r1 := writeFile(t, dir, "r1.fastq",
		"@read1\n"+barcode+umi+"\n+\nIIIIIIIIIIIIIIIIII\n"+
			"@read2\n"+barcode+umi+"\n+\nIIIIIIIIIIIIIIIIII\n")
	r2 := writeFile(t, dir, "r2.fastq",
		"@read1\nACGTAC\n+\nIIIIII\n"+
			"@read2\nACGTAC\n+\nIIIIII\n")
	allowlist := writeFile(t, dir, "allowlist.txt", barcode+"\n")

	cfg := baseConfig(dir)
	cfg.Mode = ModeSingle
	cfg.PredefinedCBCPath = allowlist
	cfg.Files = []FilePair{{CBCUMIFile: r1, ReadFile: r2}}

	_, err = NewEngine(cfg).Run(context.Background())
	require.NoError(t, err)

	records := readAllRecords(t, dir, "out", 1)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(1), records[0].Count)
}

// TestEnginePairModeWithGap runs pair mode with a nonzero gap, checking
// that both a leader and a follower field are written.
func TestEnginePairModeWithGap(t *testing.T) {
	dir, err := ioutil.TempDir("", "bkc-engine-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	barcode := "AAAAAAAAAA"
	r1 := writeFile(t, dir, "r1.fastq",
		"@read1\n"+barcode+"CCCCCCCC\n+\nIIIIIIIIIIIIIIIIII\n"+
			"@read2\n"+barcode+"GGGGGGGG\n+\nIIIIIIIIIIIIIIIIII\n")
	// leader(6) + gap(2) + follower(4) = 12 bases.
	read := "ACGTACTTGGCC"
	r2 := writeFile(t, dir, "r2.fastq",
		"@read1\n"+read+"\n+\nIIIIIIIIIIII\n"+
			"@read2\n"+read+"\n+\nIIIIIIIIIIII\n")
	allowlist := writeFile(t, dir, "allowlist.txt", barcode+"\n")

	cfg := baseConfig(dir)
	cfg.Mode = ModePair
	cfg.GapLen = 2
	cfg.FollowerLen = 4
	cfg.PredefinedCBCPath = allowlist
	cfg.Files = []FilePair{{CBCUMIFile: r1, ReadFile: r2}}

	result, err := NewEngine(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecordsWritten)

	records := readAllRecords(t, dir, "out", 1)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].Count)
	assert.NotZero(t, records[0].Leader)
	assert.NotZero(t, records[0].Follower)
}

// TestEngineFilterModeStopsAfterRelabel: filter mode writes no output
// file and reports zero records written.
func TestEngineFilterModeStopsAfterRelabel(t *testing.T) {
	dir, err := ioutil.TempDir("", "bkc-engine-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	barcode := "AAAAAAAAAA"
	r1 := writeFile(t, dir, "r1.fastq", "@read1\n"+barcode+"CCCCCCCC\n+\nIIIIIIIIIIIIIIIIII\n")
	r2 := writeFile(t, dir, "r2.fastq", "@read1\nACGTAC\n+\nIIIIII\n")
	allowlist := writeFile(t, dir, "allowlist.txt", barcode+"\n")

	cfg := baseConfig(dir)
	cfg.Mode = ModeFilter
	cfg.PredefinedCBCPath = allowlist
	cfg.Files = []FilePair{{CBCUMIFile: r1, ReadFile: r2}}

	result, err := NewEngine(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordsWritten)

	_, err = os.Stat(filepath.Join(dir, "out.shard-000.bkc"))
	assert.True(t, os.IsNotExist(err))
}

// TestEngineWritesCBCLog covers the --cbc-log supplemented feature: when
// CBCLogPath is set, the trusted-barcode ranking is dumped to that path.
func TestEngineWritesCBCLog(t *testing.T) {
	dir, err := ioutil.TempDir("", "bkc-engine-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	barcode := "AAAAAAAAAA"
	r1 := writeFile(t, dir, "r1.fastq", "@read1\n"+barcode+"CCCCCCCC\n+\nIIIIIIIIIIIIIIIIII\n")
	r2 := writeFile(t, dir, "r2.fastq", "@read1\nACGTAC\n+\nIIIIII\n")
	allowlist := writeFile(t, dir, "allowlist.txt", barcode+"\n")

	cfg := baseConfig(dir)
	cfg.Mode = ModeSingle
	cfg.PredefinedCBCPath = allowlist
	cfg.CBCLogPath = filepath.Join(dir, "cbc.log")
	cfg.Files = []FilePair{{CBCUMIFile: r1, ReadFile: r2}}

	_, err = NewEngine(cfg).Run(context.Background())
	require.NoError(t, err)

	contents, err := ioutil.ReadFile(cfg.CBCLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), barcode+" 1")
	assert.Contains(t, string(contents), "Total no. of reads: 1")
}
