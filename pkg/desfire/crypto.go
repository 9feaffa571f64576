package desfire

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
)

// newBlockCipher builds the cipher.Block for c.Type: one constructor per
// family, everything else shared.
func newBlockCipher(t CipherType, key []byte) (cipher.Block, error) {
	switch t {
	case CipherDES:
		return des.NewCipher(key)
	case CipherDES3_2K:
		return des.NewTripleDESCipher(append(append([]byte{}, key...), key[:8]...))
	case CipherDES3_3K:
		return des.NewTripleDESCipher(key)
	case CipherAES128:
		return aes.NewCipher(key)
	default:
		return nil, fmt.Errorf("desfire: unknown cipher type %v", t)
	}
}

// encryptCBC encrypts data (which must be a multiple of the cipher's block
// size) under iv, advancing the cipher's IV bookkeeping to the last
// ciphertext block.
func (c *Cipher) encryptCBC(data []byte) ([]byte, error) {
	bs := c.Type.BlockSize()
	if len(data)%bs != 0 {
		return nil, fmt.Errorf("desfire: CBC encrypt: data not block aligned (%d %% %d)", len(data), bs)
	}
	block, err := newBlockCipher(c.Type, c.Key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, c.currentIV()).CryptBlocks(out, data)
	c.advanceIV(out[len(out)-bs:])
	return out, nil
}

// decryptCBC decrypts data under iv, advancing the cipher's IV bookkeeping
// to the last input ciphertext block (CBC decrypt's chaining value is the
// ciphertext, not the plaintext).
func (c *Cipher) decryptCBC(data []byte) ([]byte, error) {
	bs := c.Type.BlockSize()
	if len(data)%bs != 0 {
		return nil, fmt.Errorf("desfire: CBC decrypt: data not block aligned (%d %% %d)", len(data), bs)
	}
	block, err := newBlockCipher(c.Type, c.Key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, c.currentIV()).CryptBlocks(out, data)
	c.advanceIV(data[len(data)-bs:])
	return out, nil
}

// legacyEncryptToSend implements the legacy scheme's "decrypt to send"
// quirk: in the legacy authentication and secure-messaging scheme, the
// host-to-card direction uses the block *decryption* primitive (not
// encryption) under the session key, each block additionally XORed with
// the previous ciphertext/IV before the primitive is applied — i.e. CBC
// chaining built manually around cipher.Block.Decrypt. This is a known
// property of MIFARE DESFire EV1 legacy mode (cf. the public hack.cert.pl
// cipher analysis).
func (c *Cipher) legacyEncryptToSend(data []byte) ([]byte, error) {
	bs := c.Type.BlockSize()
	if len(data)%bs != 0 {
		return nil, fmt.Errorf("desfire: legacy send: data not block aligned")
	}
	block, err := newBlockCipher(c.Type, c.Key)
	if err != nil {
		return nil, err
	}
	iv := c.currentIV()
	out := make([]byte, len(data))
	prev := iv
	for off := 0; off < len(data); off += bs {
		in := make([]byte, bs)
		xorInto(in, data[off:off+bs], prev)
		block.Decrypt(out[off:off+bs], in)
		prev = out[off : off+bs]
	}
	c.advanceIV(out[len(out)-bs:])
	return out, nil
}

// legacyDecryptReceive is the inverse of legacyEncryptToSend, used to
// decrypt the card's legacy-scheme replies: apply the block encryption
// primitive, then XOR with the previous ciphertext.
func (c *Cipher) legacyDecryptReceive(data []byte) ([]byte, error) {
	bs := c.Type.BlockSize()
	if len(data)%bs != 0 {
		return nil, fmt.Errorf("desfire: legacy receive: data not block aligned")
	}
	block, err := newBlockCipher(c.Type, c.Key)
	if err != nil {
		return nil, err
	}
	iv := c.currentIV()
	out := make([]byte, len(data))
	prev := iv
	for off := 0; off < len(data); off += bs {
		tmp := make([]byte, bs)
		block.Encrypt(tmp, data[off:off+bs])
		xorInto(out[off:off+bs], tmp, prev)
		prev = data[off : off+bs]
	}
	c.advanceIV(data[len(data)-bs:])
	return out, nil
}

func xorInto(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// rotateLeft1 returns in rotated left by one byte: RndA||rotate_left_1(RndB).
func rotateLeft1(in []byte) []byte {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in[1:])
	out[len(in)-1] = in[0]
	return out
}

// rotateRight1 is rotateLeft1's inverse. The handshake itself verifies the
// returned RndA by comparing it with rotateLeft1 of the original.
func rotateRight1(in []byte) []byte {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	out[0] = in[len(in)-1]
	copy(out[1:], in[:len(in)-1])
	return out
}

// legacyMAC computes the 4-byte MAC the legacy scheme defines: data is
// zero-padded and CBC-encrypted under the session key with IV=0, and the
// MAC is the first 4 bytes of the last ciphertext block.
func legacyMAC(c *Cipher, data []byte) ([]byte, error) {
	bs := c.Type.BlockSize()
	padded := zeroPad(data, bs)
	guard := c.WithZeroIV()
	defer guard.Close()
	enc, err := c.encryptCBC(padded)
	if err != nil {
		return nil, err
	}
	last := enc[len(enc)-bs:]
	return append([]byte{}, last[:4]...), nil
}

// zeroPad pads data with zero bytes up to the next multiple of bs. If
// data is already a multiple of bs, a full extra block of zeros is NOT
// added (the legacy scheme pads only up to block alignment).
func zeroPad(data []byte, bs int) []byte {
	rem := len(data) % bs
	if rem == 0 {
		return append([]byte{}, data...)
	}
	out := make([]byte, len(data)+(bs-rem))
	copy(out, data)
	return out
}

// unpadLegacy scans from the end of data for the last non-zero byte,
// undoing the legacy scheme's decrypt-side zero padding.
func unpadLegacy(data []byte) []byte {
	i := len(data)
	for i > 0 && data[i-1] == 0 {
		i--
	}
	return data[:i]
}

// cmac computes CMAC (RFC 4493) over msg using the cipher's session key
// and pre-derived subkeys, generalized over block size (8 or 16 bytes).
func cmac(c *Cipher, msg []byte) ([]byte, error) {
	block, err := newBlockCipher(c.Type, c.Key)
	if err != nil {
		return nil, err
	}
	bs := c.Type.BlockSize()
	k1, k2 := c.cmacK1, c.cmacK2

	n := (len(msg) + bs - 1) / bs
	if n == 0 {
		n = 1
	}
	lastComplete := len(msg) != 0 && len(msg)%bs == 0

	last := make([]byte, bs)
	if lastComplete {
		copy(last, msg[(n-1)*bs:])
		xorInto(last, last, k1)
	} else {
		remain := len(msg) - (n-1)*bs
		if remain > 0 {
			copy(last, msg[(n-1)*bs:])
		}
		last[remain] = 0x80
		xorInto(last, last, k2)
	}

	x := make([]byte, bs)
	y := make([]byte, bs)
	for i := 0; i < n-1; i++ {
		off := i * bs
		xorInto(y, x, msg[off:off+bs])
		block.Encrypt(x, y)
	}
	xorInto(y, x, last)
	block.Encrypt(x, y)
	return x, nil
}

// cmacSubkeys derives K1/K2 by encrypting a zero block under the cipher's
// key and left-shifting with conditional XOR against Rb.
func cmacSubkeys(c *Cipher) (k1, k2 []byte, err error) {
	block, err := newBlockCipher(c.Type, c.Key)
	if err != nil {
		return nil, nil, err
	}
	bs := c.Type.BlockSize()
	rb := c.Type.Rb()

	zero := make([]byte, bs)
	l := make([]byte, bs)
	block.Encrypt(l, zero)

	k1 = make([]byte, bs)
	leftShift1(k1, l)
	if l[0]&0x80 != 0 {
		k1[bs-1] ^= rb
	}

	k2 = make([]byte, bs)
	leftShift1(k2, k1)
	if k1[0]&0x80 != 0 {
		k2[bs-1] ^= rb
	}
	return k1, k2, nil
}

func leftShift1(dst, src []byte) {
	var carry byte
	for i := len(src) - 1; i >= 0; i-- {
		b := src[i]
		dst[i] = (b << 1) | carry
		carry = (b >> 7) & 1
	}
}

// truncateCMAC takes the odd-indexed bytes of a full CMAC to produce the
// 8-byte wire MAC DESFire uses.
func truncateCMAC(full []byte) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = full[1+i*2]
	}
	return out
}
