package bkreader

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "bkreader-*.fastq")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestBlockReaderSingleBlock(t *testing.T) {
	path := writeTemp(t, "@r1\nACGT\n+\nIIII\n@r2\nTTTT\n+\nIIII\n")
	ctx := context.Background()

	br, err := Open(ctx, path, FastqLines, DefaultBlockSize)
	require.NoError(t, err)
	defer br.Close(ctx)

	block, err := br.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, 8, CountLines(block))

	_, err = br.Next(nil)
	assert.Equal(t, Eof, err)
}

func TestBlockReaderSmallBlockSplitsAcrossCalls(t *testing.T) {
	path := writeTemp(t, "@r1\nACGT\n+\nIIII\n@r2\nTTTT\n+\nIIII\n@r3\nGGGG\n+\nIIII\n")
	ctx := context.Background()

	// Each record is 16 bytes; a 24-byte block holds one record but not
	// two, which forces a carry-over split.
	br, err := Open(ctx, path, FastqLines, 24)
	require.NoError(t, err)
	defer br.Close(ctx)

	var totalLines int
	for {
		block, err := br.Next(nil)
		if err == Eof {
			break
		}
		require.NoError(t, err)
		assert.True(t, CountLines(block)%4 == 0)
		totalLines += CountLines(block)
	}
	assert.Equal(t, 12, totalLines)
}

func TestBlockReaderShortRecordFails(t *testing.T) {
	// One record far larger than the block, never terminated within it.
	path := writeTemp(t, "@r1\nACGTACGTACGTACGTACGTACGTACGTACGT\n+\nIIIIIIIIIIIIIIIIIIIIIIIIIIIIIIII\n")
	ctx := context.Background()

	br, err := Open(ctx, path, FastqLines, 8)
	require.NoError(t, err)
	defer br.Close(ctx)

	_, err = br.Next(nil)
	assert.Equal(t, ErrShort, err)
}
