package desfire

import "fmt"

// AppSettings holds the create-time and change-app-settings fields:
// change-keys actor, rights, key count ceiling, and crypto family.
type AppSettings struct {
	ChangeKeysActor  byte // 4-bit key number, or 0x0E for "same key"
	MasterKeyChangeable bool
	DirAccessWithoutAuth bool
	CreateDeleteWithoutAuth bool
	ConfigChangeable bool
	MaxKeys          byte // 1..14
	Cipher           CipherType
}

const sameKeyActor = 0x0E

func (s AppSettings) encodeKeySettings() byte {
	b := (s.ChangeKeysActor & 0x0F) << 4
	if s.MasterKeyChangeable {
		b |= 0x08
	}
	if s.DirAccessWithoutAuth {
		b |= 0x04
	}
	if s.CreateDeleteWithoutAuth {
		b |= 0x02
	}
	if s.ConfigChangeable {
		b |= 0x01
	}
	return b
}

func (s AppSettings) encodeKeyCountByte() byte {
	b := s.MaxKeys & 0x0F
	switch s.Cipher {
	case CipherDES3_3K:
		b |= 0x40
	case CipherAES128:
		b |= 0x80
	}
	return b
}

// CreateApplication creates a new application with AID aid and the given
// settings.
func (t *Tag) CreateApplication(aid [3]byte, settings AppSettings) error {
	data := []byte{aid[0], aid[1], aid[2], settings.encodeKeySettings(), settings.encodeKeyCountByte()}
	return t.simpleCommand(CmdCreateApplication, data, CommPlain)
}

// DeleteApplication removes an application by AID.
func (t *Tag) DeleteApplication(aid [3]byte) error {
	return t.simpleCommand(CmdDeleteApplication, aid[:], CommPlain)
}

// GetApplicationIDs lists every AID on the card, draining an AF chain if
// the card has enough apps to require one: each AID is 3 bytes, so the
// concatenated data length must be a multiple of 3.
func (t *Tag) GetApplicationIDs() ([][3]byte, error) {
	reply, err := t.chainedExchange([]byte{CmdGetApplicationIDs})
	if err != nil {
		return nil, err
	}
	data, status, err := splitStatus(reply)
	if err != nil {
		return nil, err
	}
	if err := status.AsError(); err != nil {
		return nil, err
	}
	if len(data)%3 != 0 {
		return nil, fmt.Errorf("%w: AID list length %d not a multiple of 3", ErrMalformed, len(data))
	}
	out := make([][3]byte, len(data)/3)
	for i := range out {
		copy(out[i][:], data[i*3:i*3+3])
	}
	return out, nil
}

// SelectApplication switches the card's working directory to aid.
// Selecting any application resets the authenticated session.
func (t *Tag) SelectApplication(aid [3]byte) error {
	reply, err := t.rawExchange(append([]byte{CmdSelectApplication}, aid[:]...))
	t.resetSession()
	if err != nil {
		return err
	}
	_, status, err := splitStatus(reply)
	if err != nil {
		return err
	}
	if err := status.AsError(); err != nil {
		return err
	}
	t.activeApp = aid
	return nil
}

// FormatPICC erases all applications and files on the card (except the
// PICC master key). This resets the authenticated session.
func (t *Tag) FormatPICC() error {
	err := t.simpleCommand(CmdFormatPICC, nil, CommPlain)
	t.resetSession()
	return err
}

// GetAppSettings reads back the current application's key settings.
func (t *Tag) GetAppSettings() (AppSettings, error) {
	reply, err := t.rawExchange([]byte{CmdGetAppSettings})
	if err != nil {
		return AppSettings{}, err
	}
	data, status, err := splitStatus(reply)
	if err != nil {
		return AppSettings{}, err
	}
	if err := status.AsError(); err != nil {
		return AppSettings{}, err
	}
	if len(data) < 2 {
		return AppSettings{}, fmt.Errorf("%w: short app settings reply", ErrMalformed)
	}
	ks, kc := data[0], data[1]
	s := AppSettings{
		ChangeKeysActor:         ks >> 4,
		MasterKeyChangeable:     ks&0x08 != 0,
		DirAccessWithoutAuth:    ks&0x04 != 0,
		CreateDeleteWithoutAuth: ks&0x02 != 0,
		ConfigChangeable:        ks&0x01 != 0,
		MaxKeys:                 kc & 0x0F,
	}
	switch kc & 0xC0 {
	case 0x80:
		s.Cipher = CipherAES128
	case 0x40:
		s.Cipher = CipherDES3_3K
	default:
		s.Cipher = CipherDES3_2K
	}
	return s, nil
}

// ChangeAppSettings rewrites the current application's key settings byte;
// requires config_changeable rights or master-key auth.
func (t *Tag) ChangeAppSettings(s AppSettings) error {
	return t.simpleCommand(CmdChangeAppSettings, []byte{s.encodeKeySettings()}, CommCipher)
}

// GetKeyVersion round-trips a key number to its stored version byte.
func (t *Tag) GetKeyVersion(keyNo byte) (byte, error) {
	reply, err := t.rawExchange([]byte{CmdGetKeyVersion, keyNo})
	if err != nil {
		return 0, err
	}
	data, status, err := splitStatus(reply)
	if err != nil {
		return 0, err
	}
	if err := status.AsError(); err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: empty key version reply", ErrMalformed)
	}
	return data[0], nil
}

// GetCardUID reads the PICC's 7-byte UID through the authenticated
// session (the command is only meaningful once authenticated, since the
// reply is always CMAC/CRC protected so a random card can't be
// fingerprinted without a key).
func (t *Tag) GetCardUID() ([]byte, error) {
	if err := t.requireAuth(); err != nil {
		return nil, err
	}
	reply, err := t.rawExchange([]byte{CmdGetCardUID})
	if err != nil {
		return nil, err
	}
	data, status, err := splitStatus(reply)
	if err != nil {
		return nil, err
	}
	if err := status.AsError(); err != nil {
		return nil, err
	}
	return t.unwrapResponse(data, status, CommCipher)
}

// GetFreeMemory reads the PICC's remaining EEPROM in bytes.
func (t *Tag) GetFreeMemory() (uint32, error) {
	reply, err := t.rawExchange([]byte{CmdGetFreeMem})
	if err != nil {
		return 0, err
	}
	data, status, err := splitStatus(reply)
	if err != nil {
		return 0, err
	}
	if err := status.AsError(); err != nil {
		return 0, err
	}
	if len(data) < 3 {
		return 0, fmt.Errorf("%w: short free-memory reply", ErrMalformed)
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16, nil
}

// simpleCommand is the common path for commands with no typed reply
// payload: send, wrap per mode if authenticated, check status.
func (t *Tag) simpleCommand(cmd byte, data []byte, mode CommMode) error {
	wrapped, err := t.wrapCommand(cmd, data, mode)
	if err != nil {
		return err
	}
	reply, err := t.rawExchange(append([]byte{cmd}, wrapped...))
	if err != nil {
		return err
	}
	_, status, err := splitStatus(reply)
	if err != nil {
		return err
	}
	return status.AsError()
}

// ChangeKey constructs and sends the change-key payload.
// When changing a key other than the currently authenticated one, the new
// key is XORed with the current key and two CRC32s are appended (of the
// full payload and of the new key alone); when changing the current key,
// no XOR or second CRC is used. The whole appended region is encrypted
// under a scoped zero IV. Changing the currently authenticated key
// invalidates the session.
func (t *Tag) ChangeKey(keyNo byte, newKey []byte, newKeyVersion byte, newCipher CipherType) error {
	if err := t.requireAuth(); err != nil {
		return err
	}
	c := t.cipher
	changingCurrent := keyNo == t.activeKeyNo

	payload := append([]byte{}, newKey...)
	if !changingCurrent {
		for i := range payload {
			payload[i] ^= t.cipher.Key[i%len(t.cipher.Key)]
		}
	}
	payload = appendKeyVersion(payload, newKeyVersion, newCipher)

	crcFull := CRC32(append([]byte{CmdChangeKey, keyNo}, payload...))
	payload = append(payload, byte(crcFull), byte(crcFull>>8), byte(crcFull>>16), byte(crcFull>>24))
	if !changingCurrent {
		crcKey := CRC32(newKey)
		payload = append(payload, byte(crcKey), byte(crcKey>>8), byte(crcKey>>16), byte(crcKey>>24))
	}

	padded := zeroPad(payload, c.Type.BlockSize())

	guard := c.WithZeroIV()
	var enc []byte
	var err error
	if c.Type.IsLegacy() {
		enc, err = c.legacyEncryptToSend(padded)
	} else {
		enc, err = c.encryptCBC(padded)
	}
	guard.Close()
	if err != nil {
		return err
	}

	reply, err := t.rawExchange(append([]byte{CmdChangeKey, keyNo}, enc...))
	if err != nil {
		return err
	}
	_, status, err := splitStatus(reply)
	if err != nil {
		return err
	}
	if err := status.AsError(); err != nil {
		return err
	}
	if changingCurrent {
		t.resetSession()
	}
	return nil
}

// appendKeyVersion encodes the key version byte: for DES/3DES keys the
// version is packed into the parity (least-significant) bit of each of
// the first 8 bytes; for AES it is a separate trailing byte.
func appendKeyVersion(key []byte, version byte, t CipherType) []byte {
	if t == CipherAES128 {
		return append(append([]byte{}, key...), version)
	}
	out := append([]byte{}, key...)
	for i := 0; i < 8 && i < len(out); i++ {
		out[i] = (out[i] &^ 0x01) | ((version >> uint(i)) & 0x01)
	}
	return out
}
