package bkdedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refresh-bio/bkc/bkbarcode"
	"github.com/refresh-bio/bkc/bkseq"
)

func TestDedupKeepsOneSurvivorPerUMIGroup(t *testing.T) {
	lists := [][]bkbarcode.UMIRead{
		{
			{UMI: 5, Read: bkbarcode.EncodeReadID(0, 0)},
			{UMI: 5, Read: bkbarcode.EncodeReadID(0, 1)},
			{UMI: 9, Read: bkbarcode.EncodeReadID(0, 2)},
		},
		{
			{UMI: 5, Read: bkbarcode.EncodeReadID(1, 0)},
		},
	}
	result := Dedup(7, lists)
	// Two UMI groups (5 with 3 members, 9 with 1 member) -> 2 survivors.
	assert.Len(t, result.Reads, 2)
}

func TestDedupIsDeterministic(t *testing.T) {
	lists := [][]bkbarcode.UMIRead{
		{
			{UMI: 1, Read: bkbarcode.EncodeReadID(0, 0)},
			{UMI: 1, Read: bkbarcode.EncodeReadID(0, 1)},
			{UMI: 1, Read: bkbarcode.EncodeReadID(0, 2)},
		},
	}
	r1 := Dedup(123, lists)
	r2 := Dedup(123, lists)
	assert.Equal(t, r1.Reads, r2.Reads)
}

func TestRerankAndFilterDropsBelowThreshold(t *testing.T) {
	survivors := []BarcodeSurvivors{
		{Barcode: 1, Reads: make([]bkbarcode.ReadID, 2)},
		{Barcode: 2, Reads: make([]bkbarcode.ReadID, 10)},
		{Barcode: 3, Reads: make([]bkbarcode.ReadID, 1)},
	}
	got := RerankAndFilter(survivors, 2)
	require.Len(t, got, 2)
	assert.Equal(t, bkseq.Word(2), got[0].Barcode)
	assert.Equal(t, bkseq.Word(1), got[1].Barcode)
}
