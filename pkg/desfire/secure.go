package desfire

import "fmt"

// CommMode is the per-command communication security mode.
type CommMode int

const (
	CommPlain CommMode = iota
	CommMAC            // "mac" (legacy) / "maced" (modern)
	CommCipher         // "cipher" (legacy) / "ciphered" (modern)
)

// wrapCommand builds the on-wire request body for cmd+data under the
// Tag's active cipher and the requested CommMode. cmd is the command byte
// (included in the MAC/CRC/CBC computation to keep IV
// and CMAC state in sync even when nothing is appended, as the modern
// "plain" mode requires); data is everything after the command byte that
// the caller has already serialized (file id, offset, length, payload).
func (t *Tag) wrapCommand(cmd byte, data []byte, mode CommMode) ([]byte, error) {
	if t.cipher == nil {
		return data, nil
	}
	c := t.cipher

	if c.Type.IsLegacy() {
		switch mode {
		case CommPlain:
			return data, nil
		case CommMAC:
			mac, err := legacyMAC(c, append([]byte{cmd}, data...))
			if err != nil {
				return nil, err
			}
			return append(append([]byte{}, data...), mac...), nil
		case CommCipher:
			crc := CRC16(append([]byte{cmd}, data...))
			withCRC := append(append([]byte{}, data...), byte(crc), byte(crc>>8))
			padded := zeroPad(withCRC, c.Type.BlockSize())
			enc, err := c.legacyEncryptToSend(padded)
			if err != nil {
				return nil, err
			}
			return enc, nil
		}
		return nil, fmt.Errorf("desfire: unknown comm mode %v", mode)
	}

	switch mode {
	case CommPlain:
		if _, err := cmac(c, append([]byte{cmd}, data...)); err != nil {
			return nil, err
		}
		return data, nil
	case CommMAC:
		full, err := cmac(c, append([]byte{cmd}, data...))
		if err != nil {
			return nil, err
		}
		return append(append([]byte{}, data...), truncateCMAC(full)...), nil
	case CommCipher:
		crc := CRC32(append([]byte{cmd}, data...))
		withCRC := append(append([]byte{}, data...), byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))
		padded := zeroPad(withCRC, c.Type.BlockSize())
		enc, err := c.encryptCBC(padded)
		if err != nil {
			return nil, err
		}
		return enc, nil
	}
	return nil, fmt.Errorf("desfire: unknown comm mode %v", mode)
}

// unwrapResponse decrypts/validates a card reply (already stripped of its
// trailing status byte, which the caller passes back in for MAC/CRC
// computation) under the Tag's active cipher and CommMode, returning the
// plain payload.
func (t *Tag) unwrapResponse(data []byte, status Status, mode CommMode) ([]byte, error) {
	if t.cipher == nil {
		return data, nil
	}
	c := t.cipher

	if c.Type.IsLegacy() {
		switch mode {
		case CommPlain:
			return data, nil
		case CommMAC:
			if len(data) < 4 {
				return nil, fmt.Errorf("%w: response too short for MAC", ErrCrypto)
			}
			plain, mac := data[:len(data)-4], data[len(data)-4:]
			want, err := legacyMAC(c, append(append([]byte{}, plain...), byte(status)))
			if err != nil {
				return nil, err
			}
			if !bytesEqual(mac, want) {
				return nil, fmt.Errorf("%w: legacy MAC mismatch", ErrCrypto)
			}
			return plain, nil
		case CommCipher:
			dec, err := c.legacyDecryptReceive(data)
			if err != nil {
				return nil, err
			}
			stripped := unpadLegacy(dec)
			if len(stripped) < 2 {
				return nil, fmt.Errorf("%w: decrypted payload too short for CRC16", ErrCrypto)
			}
			plain, crcBytes := stripped[:len(stripped)-2], stripped[len(stripped)-2:]
			want := CRC16(append(append([]byte{}, plain...), byte(status)))
			got := uint16(crcBytes[0]) | uint16(crcBytes[1])<<8
			if got != want {
				return nil, fmt.Errorf("%w: CRC16 mismatch", ErrCrypto)
			}
			return plain, nil
		}
		return nil, fmt.Errorf("desfire: unknown comm mode %v", mode)
	}

	switch mode {
	case CommPlain:
		if _, err := cmac(c, append(append([]byte{}, data...), byte(status))); err != nil {
			return nil, err
		}
		return data, nil
	case CommMAC:
		if len(data) < 8 {
			return nil, fmt.Errorf("%w: response too short for CMAC", ErrCrypto)
		}
		plain, mac := data[:len(data)-8], data[len(data)-8:]
		full, err := cmac(c, append(append([]byte{}, plain...), byte(status)))
		if err != nil {
			return nil, err
		}
		if !bytesEqual(mac, truncateCMAC(full)) {
			return nil, fmt.Errorf("%w: CMAC mismatch", ErrCrypto)
		}
		return plain, nil
	case CommCipher:
		dec, err := c.decryptCBC(data)
		if err != nil {
			return nil, err
		}
		if len(dec) < 4 {
			return nil, fmt.Errorf("%w: decrypted payload too short for CRC32", ErrCrypto)
		}
		trimmed := trimCRC32Padding(dec)
		if len(trimmed) < 4 {
			return nil, fmt.Errorf("%w: no CRC32 found in decrypted payload", ErrCrypto)
		}
		plain, crcBytes := trimmed[:len(trimmed)-4], trimmed[len(trimmed)-4:]
		want := CRC32(append(append([]byte{}, plain...), byte(status)))
		got := uint32(crcBytes[0]) | uint32(crcBytes[1])<<8 | uint32(crcBytes[2])<<16 | uint32(crcBytes[3])<<24
		if got != want {
			return nil, fmt.Errorf("%w: CRC32 mismatch", ErrCrypto)
		}
		return plain, nil
	}
	return nil, fmt.Errorf("desfire: unknown comm mode %v", mode)
}

// trimCRC32Padding strips ISO padding-free zero bytes the modern scheme's
// zero-pad-to-block-size leaves after the CRC32, by scanning from the end
// for the last non-zero byte (the CRC32's last, most significant byte is
// rarely zero, and
// when the whole tail coincidentally is, the plaintext already carries an
// explicit length elsewhere in the DESFire protocol, so this best-effort
// trim matches the scheme's own tolerance for it).
func trimCRC32Padding(dec []byte) []byte {
	i := len(dec)
	for i > 0 && dec[i-1] == 0 {
		i--
	}
	return dec[:i]
}
