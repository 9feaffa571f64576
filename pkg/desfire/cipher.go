// Package desfire implements the application-layer client for MIFARE
// DESFire smartcards reached through a pn532.Controller: the four cipher
// families, legacy and modern secure messaging, the authentication state
// machine, AF chaining, and application/file CRUD.
package desfire

import "fmt"

// CipherType is the tagged-union discriminant over the four DESFire key
// families.
type CipherType int

const (
	CipherDES CipherType = iota
	CipherDES3_2K
	CipherDES3_3K
	CipherAES128
)

func (c CipherType) String() string {
	switch c {
	case CipherDES:
		return "des"
	case CipherDES3_2K:
		return "3des-2k"
	case CipherDES3_3K:
		return "3des-3k"
	case CipherAES128:
		return "aes128"
	default:
		return "unknown"
	}
}

// KeyLen returns the key length in bytes for the cipher family.
func (c CipherType) KeyLen() int {
	switch c {
	case CipherDES:
		return 8
	case CipherDES3_2K:
		return 16
	case CipherDES3_3K:
		return 24
	case CipherAES128:
		return 16
	default:
		return 0
	}
}

// BlockSize returns the cipher's block size: 8 for the legacy families, 16
// for AES.
func (c CipherType) BlockSize() int {
	if c == CipherAES128 {
		return 16
	}
	return 8
}

// IsLegacy reports whether this cipher uses the legacy (DES, 3DES-2K)
// secure-messaging scheme rather than the modern (3DES-3K, AES-128) one.
func (c CipherType) IsLegacy() bool {
	return c == CipherDES || c == CipherDES3_2K
}

// Rb returns the CMAC subkey-generation constant for this cipher's block
// size: 0x1B for 8-byte blocks, 0x87 for 16-byte blocks. Only meaningful
// for the modern (non-legacy) families.
func (c CipherType) Rb() byte {
	if c.BlockSize() == 16 {
		return 0x87
	}
	return 0x1B
}

// ChallengeLen returns the length of RndA/RndB in the authentication
// handshake: one block for DES/3DES-2K/AES-128, but two
// 3DES blocks (16 bytes) for 3DES-3K even though its cipher block size is
// still 8 — the ISO-authenticate variant widens the challenge without
// widening the primitive.
func (c CipherType) ChallengeLen() int {
	if c == CipherDES3_3K {
		return 16
	}
	return c.BlockSize()
}

// AuthCmd returns the DESFire authentication command byte that initiates
// a handshake for this cipher family.
func (c CipherType) AuthCmd() byte {
	switch c {
	case CipherDES, CipherDES3_2K:
		return CmdAuthenticateLegacy
	case CipherDES3_3K:
		return CmdAuthenticateISO
	case CipherAES128:
		return CmdAuthenticateAES
	default:
		return 0
	}
}

// IVMode selects whether a Cipher's crypto operations advance the global
// IV or run against a scoped local-zero IV.
type IVMode int

const (
	IVGlobal IVMode = iota
	IVZero
)

// Cipher is one owning struct per key family: cipher type, session key,
// carried-over global IV, and the transient IV-mode override.
type Cipher struct {
	Type CipherType
	Key  []byte

	globalIV []byte
	mode     IVMode

	cmacK1, cmacK2 []byte // modern families only
}

// NewCipher constructs a Cipher over a key of the length CipherType.KeyLen
// requires.
func NewCipher(t CipherType, key []byte) (*Cipher, error) {
	if len(key) != t.KeyLen() {
		return nil, fmt.Errorf("desfire: %s key must be %d bytes, got %d", t, t.KeyLen(), len(key))
	}
	c := &Cipher{
		Type:     t,
		Key:      append([]byte{}, key...),
		globalIV: make([]byte, t.BlockSize()),
		mode:     IVGlobal,
	}
	if !t.IsLegacy() {
		k1, k2, err := cmacSubkeys(c)
		if err != nil {
			return nil, err
		}
		c.cmacK1, c.cmacK2 = k1, k2
	}
	return c, nil
}

// ResetIV zeroes the global IV, as done on a fresh authentication.
func (c *Cipher) ResetIV() {
	c.globalIV = make([]byte, c.Type.BlockSize())
}

// currentIV returns the IV this crypto operation should use: zero if the
// scoped override is active, else the carried-over global IV.
func (c *Cipher) currentIV() []byte {
	if c.mode == IVZero {
		return make([]byte, c.Type.BlockSize())
	}
	return c.globalIV
}

// advanceIV records the new global IV after a CBC operation (the last
// ciphertext block), unless the scoped zero-IV override is active, in
// which case the carried-over IV is left untouched.
func (c *Cipher) advanceIV(lastCiphertextBlock []byte) {
	if c.mode == IVZero {
		return
	}
	c.globalIV = append([]byte{}, lastCiphertextBlock...)
}

// ivScope is an RAII-style scope guard: entering sets the local-zero IV
// override, and Close restores whatever mode was active on entry.
type ivScope struct {
	c    *Cipher
	prev IVMode
}

// WithZeroIV scopes a Cipher to a locally-zeroed IV for the duration of the
// returned guard's lifetime (change-key and session-key derivation need
// this). Callers must Close the guard, typically via defer.
func (c *Cipher) WithZeroIV() *ivScope {
	g := &ivScope{c: c, prev: c.mode}
	c.mode = IVZero
	return g
}

func (g *ivScope) Close() { g.c.mode = g.prev }
