package bkseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	seqs := []string{"A", "C", "G", "T", "ACGT", "TTTTTTTTTTTTTTTTTTTTTTTTTTTTTTTT", "ACGTACGTACGTACGT"}
	for _, s := range seqs {
		w, ok := Encode([]byte(s), len(s))
		require.True(t, ok, s)
		assert.Equal(t, s, Decode(w, len(s)))
	}
}

func TestEncodeRejectsAmbiguous(t *testing.T) {
	_, ok := Encode([]byte("ACGN"), 4)
	assert.False(t, ok)
}

func TestEncodeRejectsOverLength(t *testing.T) {
	_, ok := Encode([]byte("A"), 2)
	assert.False(t, ok)
	_, ok = Encode(make([]byte, 33), 33)
	assert.False(t, ok)
}

func TestCanonicalIdempotentAndSymmetric(t *testing.T) {
	cases := []string{"ACGT", "AAAA", "GATTACA", "TGCA"}
	for _, s := range cases {
		n := len(s)
		w, ok := Encode([]byte(s), n)
		require.True(t, ok)
		rc := ReverseComplement(w, n)

		c1 := Canonical(w, n)
		assert.Equal(t, c1, Canonical(c1, n), "idempotent: %s", s)
		assert.Equal(t, c1, Canonical(rc, n), "canonical(s) == canonical(revcomp(s)): %s", s)
	}
}

func TestHammingDistance1NeighboursCount(t *testing.T) {
	w, ok := Encode([]byte("ACGT"), 4)
	require.True(t, ok)

	var got []Word
	HammingDistance1Neighbours(w, 4, func(n Word) { got = append(got, n) })
	assert.Len(t, got, 4*4)

	found := false
	for _, n := range got {
		if n == w {
			found = true
		}
	}
	assert.True(t, found, "identity substitution must be included")
}

func TestBitWidth(t *testing.T) {
	assert.Equal(t, uint8(1), BitWidth(0))
	assert.Equal(t, uint8(1), BitWidth(255))
	assert.Equal(t, uint8(2), BitWidth(256))
	assert.Equal(t, uint8(2), BitWidth(65535))
	assert.Equal(t, uint8(3), BitWidth(65536))
	assert.Equal(t, uint8(8), BitWidth(1<<62))
}
