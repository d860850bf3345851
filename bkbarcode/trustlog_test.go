package bkbarcode

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refresh-bio/bkc/bkseq"
)

func TestWriteTrustLog(t *testing.T) {
	dir, err := ioutil.TempDir("", "trustlog-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	aaaa, _ := bkseq.Encode([]byte("AAAA"), 4)
	cccc, _ := bkseq.Encode([]byte("CCCC"), 4)
	ranked := []RankedBarcode{
		{Barcode: aaaa, Count: 5},
		{Barcode: cccc, Count: 2},
	}

	path := filepath.Join(dir, "cbc.log")
	require.NoError(t, WriteTrustLog(path, ranked, 4))

	contents, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(contents), "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "No. CBCs: 2", lines[0])
	assert.Equal(t, "AAAA 5   cum: 0", lines[1])
	assert.Equal(t, "CCCC 2   cum: 5", lines[2])
	assert.Equal(t, "Total no. of reads: 7", lines[3])
}
