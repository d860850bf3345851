package bkreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordParserFastq(t *testing.T) {
	block := []byte("@r1\nACGT\n+\nIIII\n@r2\nTTTT\n+\nIIII\n")
	p := NewRecordParser(append([]byte(nil), block...), FastqLines)

	var r Record
	require.True(t, p.Next(&r))
	assert.Equal(t, "@r1", string(r.Header))
	assert.Equal(t, "ACGT", string(r.Bases))
	assert.Equal(t, "+", string(r.Plus))
	assert.Equal(t, "IIII", string(r.Qual))

	require.True(t, p.Next(&r))
	assert.Equal(t, "@r2", string(r.Header))
	assert.Equal(t, "TTTT", string(r.Bases))

	assert.False(t, p.Next(&r))
	assert.Empty(t, p.Remainder())
}

func TestRecordParserFasta(t *testing.T) {
	block := []byte(">r1\nACGT\n>r2\nGGGG\n")
	p := NewRecordParser(append([]byte(nil), block...), FastaLines)

	var r Record
	require.True(t, p.Next(&r))
	assert.Equal(t, ">r1", string(r.Header))
	assert.Equal(t, "ACGT", string(r.Bases))
	assert.Nil(t, r.Plus)
	assert.Nil(t, r.Qual)

	require.True(t, p.Next(&r))
	assert.Equal(t, ">r2", string(r.Header))

	assert.False(t, p.Next(&r))
}

func TestRecordParserToleratesCarriageReturns(t *testing.T) {
	block := []byte("@r1\r\nACGT\r\n+\r\nIIII\r\n")
	p := NewRecordParser(append([]byte(nil), block...), FastqLines)

	var r Record
	require.True(t, p.Next(&r))
	assert.Equal(t, "@r1", string(r.Header))
	assert.Equal(t, "ACGT", string(r.Bases))
	assert.Equal(t, "IIII", string(r.Qual))
	assert.False(t, p.Next(&r))
}

func TestRecordParserStopsOnPartialRecord(t *testing.T) {
	block := []byte("@r1\nACGT\n+\nIIII\n@r2\nTTTT\n") // missing +/qual for r2
	p := NewRecordParser(append([]byte(nil), block...), FastqLines)

	var r Record
	require.True(t, p.Next(&r))
	assert.False(t, p.Next(&r))
	assert.Equal(t, "@r2\x00TTTT\x00", string(p.Remainder()))
}
