package desfire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChangeKeyAESCurrentKeyPayload checks changing the
// currently-authenticated AES key (no XOR, no second CRC32): the exact
// on-wire ciphertext this packs and encrypts under a scoped zero IV.
func TestChangeKeyAESCurrentKeyPayload(t *testing.T) {
	sessionKey := hb(t, "F44B26F5C05DDD7110772281C4D066E8")
	newKey := hb(t, "00102030405060708090A0B0B0A09080")
	newVersion := byte(0x10)
	keyNo := byte(0)

	c, err := NewCipher(CipherAES128, sessionKey)
	require.NoError(t, err)

	payload := appendKeyVersion(append([]byte{}, newKey...), newVersion, CipherAES128)
	require.Len(t, payload, 17)

	crcFull := CRC32(append([]byte{CmdChangeKey, keyNo}, payload...))
	payload = append(payload, byte(crcFull), byte(crcFull>>8), byte(crcFull>>16), byte(crcFull>>24))
	require.Len(t, payload, 21)

	padded := zeroPad(payload, c.Type.BlockSize())
	require.Len(t, padded, 32)

	guard := c.WithZeroIV()
	enc, err := c.encryptCBC(padded)
	guard.Close()
	require.NoError(t, err)

	assert.Equal(t, hb(t, "E9F85E219496C2B58C1090DC3935FAE9E840CF61B383D9531946256B1F110C10"), enc)
}

func TestAppendKeyVersionAESTrailingByte(t *testing.T) {
	key := make([]byte, 16)
	out := appendKeyVersion(key, 0x42, CipherAES128)
	require.Len(t, out, 17)
	assert.Equal(t, byte(0x42), out[16])
}

func TestAppendKeyVersionLegacyParityBits(t *testing.T) {
	key := make([]byte, 8)
	out := appendKeyVersion(key, 0x01, CipherDES)
	require.Len(t, out, 8)
	// version bit i goes to byte i's parity (LSB) bit: only bit 0 is set,
	// so byte 0's parity bit is 1 and the other seven are 0.
	for i, b := range out {
		want := byte(0)
		if i == 0 {
			want = 1
		}
		assert.Equal(t, want, b&0x01)
	}
}

func TestAppSettingsEncodeKeyCountByteCipherBits(t *testing.T) {
	assert.Equal(t, byte(0x85), AppSettings{MaxKeys: 5, Cipher: CipherAES128}.encodeKeyCountByte())
	assert.Equal(t, byte(0x45), AppSettings{MaxKeys: 5, Cipher: CipherDES3_3K}.encodeKeyCountByte())
	assert.Equal(t, byte(0x05), AppSettings{MaxKeys: 5, Cipher: CipherDES3_2K}.encodeKeyCountByte())
}

func TestAppSettingsEncodeKeySettingsBits(t *testing.T) {
	s := AppSettings{
		MasterKeyChangeable:     true,
		DirAccessWithoutAuth:    true,
		CreateDeleteWithoutAuth: true,
		ConfigChangeable:        true,
	}
	assert.Equal(t, byte(0x0F), s.encodeKeySettings())
	assert.Equal(t, byte(0x00), AppSettings{}.encodeKeySettings())
}
