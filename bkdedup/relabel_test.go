package bkdedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refresh-bio/bkc/bkbarcode"
)

func TestFileBitmapSetTest(t *testing.T) {
	b := NewFileBitmap(100)
	assert.False(t, b.Test(0))
	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(99)
	assert.True(t, b.Test(0))
	assert.True(t, b.Test(63))
	assert.True(t, b.Test(64))
	assert.True(t, b.Test(99))
	assert.False(t, b.Test(1))
	assert.False(t, b.Test(50))
}

func TestRelabelDensifiesSurvivorsInFileOrder(t *testing.T) {
	survivors := []BarcodeSurvivors{
		{Barcode: 1, Reads: []bkbarcode.ReadID{
			bkbarcode.EncodeReadID(0, 5),
			bkbarcode.EncodeReadID(0, 2),
			bkbarcode.EncodeReadID(1, 0),
		}},
	}
	fileReadCounts := []int{10, 3}

	res := Relabel(survivors, fileReadCounts)

	require.Equal(t, 2, res.SurvivorsPerFile[0])
	require.Equal(t, 1, res.SurvivorsPerFile[1])

	assert.True(t, res.Valid[0].Test(2))
	assert.True(t, res.Valid[0].Test(5))
	assert.False(t, res.Valid[0].Test(3))

	// Dense indices assigned in file order: read 2 comes before read 5.
	assert.Equal(t, uint32(0), res.DenseIndex[0][2])
	assert.Equal(t, uint32(1), res.DenseIndex[0][5])

	// Survivors' read ids are rewritten to use the dense index.
	got := survivors[0].Reads
	assert.Equal(t, bkbarcode.EncodeReadID(0, 1), got[0]) // was (0,5) -> dense 1
	assert.Equal(t, bkbarcode.EncodeReadID(0, 0), got[1]) // was (0,2) -> dense 0
	assert.Equal(t, bkbarcode.EncodeReadID(1, 0), got[2]) // was (1,0) -> dense 0
}
