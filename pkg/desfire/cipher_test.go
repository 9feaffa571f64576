package desfire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherTypeProperties(t *testing.T) {
	cases := []struct {
		t              CipherType
		keyLen         int
		blockSize      int
		isLegacy       bool
		rb             byte
		challengeLen   int
	}{
		{CipherDES, 8, 8, true, 0x1B, 8},
		{CipherDES3_2K, 16, 8, true, 0x1B, 8},
		{CipherDES3_3K, 24, 8, false, 0x1B, 16},
		{CipherAES128, 16, 16, false, 0x87, 16},
	}
	for _, tc := range cases {
		t.Run(tc.t.String(), func(t *testing.T) {
			assert.Equal(t, tc.keyLen, tc.t.KeyLen())
			assert.Equal(t, tc.blockSize, tc.t.BlockSize())
			assert.Equal(t, tc.isLegacy, tc.t.IsLegacy())
			assert.Equal(t, tc.rb, tc.t.Rb())
			assert.Equal(t, tc.challengeLen, tc.t.ChallengeLen())
		})
	}
}

func TestNewCipherRejectsWrongKeyLength(t *testing.T) {
	_, err := NewCipher(CipherAES128, make([]byte, 8))
	assert.Error(t, err)
}

// RFC 4493 AES-CMAC test vectors (the standard's own, not a DESFire-specific
// fixture): empty message and the one-block "6bc1bee2..." message under the
// standard's example key.
func TestCMACRFC4493Vectors(t *testing.T) {
	key := hb(t, "2b7e151628aed2a6abf7158809cf4f3c")
	c, err := NewCipher(CipherAES128, key)
	require.NoError(t, err)

	full, err := cmac(c, nil)
	require.NoError(t, err)
	assert.Equal(t, hb(t, "bb1d6929e95937287fa37d129b756746"), full)

	full, err = cmac(c, hb(t, "6bc1bee22e409f96e93d7e117393172a"))
	require.NoError(t, err)
	assert.Equal(t, hb(t, "070a16b46b4d4144f79bdd9dd04a287c"), full)
}

func TestCMACSubkeyDerivationDoubling(t *testing.T) {
	// K2 must be K1 doubled under the same GF(2^128) reduction rule; verify
	// the invariant holds rather than hardcoding K1/K2 values.
	key := hb(t, "2b7e151628aed2a6abf7158809cf4f3c")
	c, err := NewCipher(CipherAES128, key)
	require.NoError(t, err)
	require.Len(t, c.cmacK1, 16)
	require.Len(t, c.cmacK2, 16)

	want := make([]byte, 16)
	leftShift1(want, c.cmacK1)
	if c.cmacK1[0]&0x80 != 0 {
		want[15] ^= c.Type.Rb()
	}
	assert.Equal(t, want, c.cmacK2)
}

func TestTruncateCMACOddBytes(t *testing.T) {
	full := make([]byte, 16)
	for i := range full {
		full[i] = byte(i)
	}
	got := truncateCMAC(full)
	require.Len(t, got, 8)
	for i, b := range got {
		assert.Equal(t, byte(1+i*2), b)
	}
}

func TestWithZeroIVScopeRestoresMode(t *testing.T) {
	c, err := NewCipher(CipherAES128, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, IVGlobal, c.mode)

	guard := c.WithZeroIV()
	assert.Equal(t, IVZero, c.mode)
	guard.Close()
	assert.Equal(t, IVGlobal, c.mode)
}

func TestRotateLeftRightInverse(t *testing.T) {
	in := hb(t, "0102030405060708")
	assert.Equal(t, in, rotateRight1(rotateLeft1(in)))
}
