package bkreads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []string{"ACGT", "ACG", "A", "", "ACGTACGTACG", "ACGNTTNNGG"}
	for _, s := range cases {
		dst := make([]byte, PackedLen(len(s)))
		Pack([]byte(s), dst)
		got := Unpack(dst, len(s))

		want := make([]byte, len(s))
		for i := range want {
			c := s[i]
			if c != 'A' && c != 'C' && c != 'G' && c != 'T' {
				want[i] = 'N'
			} else {
				want[i] = c
			}
		}
		assert.Equal(t, string(want), string(got), s)
	}
}

func TestSymbolMatchesUnpack(t *testing.T) {
	s := "ACGTNACGT"
	dst := make([]byte, PackedLen(len(s)))
	Pack([]byte(s), dst)
	for i := range s {
		sym := Symbol(dst, i)
		assert.Equal(t, symbolToASCII[sym], Unpack(dst, len(s))[i])
	}
}

func TestPackedLen(t *testing.T) {
	assert.Equal(t, 0, PackedLen(0))
	assert.Equal(t, 1, PackedLen(1))
	assert.Equal(t, 1, PackedLen(3))
	assert.Equal(t, 2, PackedLen(4))
	assert.Equal(t, 9, PackedLen(27))
}

func TestIsNonACGTPresent(t *testing.T) {
	assert.False(t, IsNonACGTPresent([]byte("ACGTACGT")))
	assert.True(t, IsNonACGTPresent([]byte("ACGNACGT")))
	assert.True(t, IsNonACGTPresent([]byte("acgt")))
	assert.False(t, IsNonACGTPresent(nil))
}
