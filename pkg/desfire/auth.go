package desfire

import (
	"crypto/rand"
	"fmt"
	"io"
)

// DataExchangeFunc sends one DESFire command frame (already including its
// command byte) to the currently selected target over
// InitiatorDataExchange and returns the reply payload with status byte
// still attached as its last byte, or an error translated from the
// pn532/channel layer (ErrControllerError).
type DataExchangeFunc func(payload []byte) ([]byte, error)

// AuthenticateKey performs the full challenge-response handshake for
// cipher type t and key number keyNo, using exchange to talk to the
// card. It returns the Cipher ready for secure messaging, or
// an error; on error the caller's Tag must treat the session as
// unauthenticated.
func AuthenticateKey(exchange DataExchangeFunc, t CipherType, keyNo byte, key []byte) (*Cipher, error) {
	challengeLen := t.ChallengeLen()

	reply, err := exchange([]byte{t.AuthCmd(), keyNo})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrControllerError, err)
	}
	encRndB, status, err := splitStatus(reply)
	if err != nil {
		return nil, err
	}
	if status != Status(StatusAdditionalFrame) {
		return nil, status.AsError()
	}
	if len(encRndB) != challengeLen {
		return nil, fmt.Errorf("%w: E(RndB) length %d, want %d", ErrMalformed, len(encRndB), challengeLen)
	}

	c, err := NewCipher(t, key)
	if err != nil {
		return nil, err
	}

	var rndB []byte
	if t.IsLegacy() {
		rndB, err = c.legacyDecryptReceive(encRndB)
	} else {
		rndB, err = c.decryptCBC(encRndB)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt E(RndB): %v", ErrCrypto, err)
	}

	rndA := make([]byte, challengeLen)
	if _, err := io.ReadFull(rand.Reader, rndA); err != nil {
		return nil, fmt.Errorf("desfire: RndA generation: %w", err)
	}

	msg := append(append([]byte{}, rndA...), rotateLeft1(rndB)...)
	var encMsg []byte
	if t.IsLegacy() {
		encMsg, err = c.legacyEncryptToSend(msg)
	} else {
		encMsg, err = c.encryptCBC(msg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt RndA||rot(RndB): %v", ErrCrypto, err)
	}

	reply2, err := exchange(append([]byte{CmdAdditionalFrame}, encMsg...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrControllerError, err)
	}
	encRotRndA, status2, err := splitStatus(reply2)
	if err != nil {
		return nil, err
	}
	if err := status2.AsError(); err != nil {
		return nil, err
	}
	if len(encRotRndA) != challengeLen {
		return nil, fmt.Errorf("%w: E(rot(RndA)) length %d, want %d", ErrMalformed, len(encRotRndA), challengeLen)
	}

	var rotRndA []byte
	if t.IsLegacy() {
		rotRndA, err = c.legacyDecryptReceive(encRotRndA)
	} else {
		rotRndA, err = c.decryptCBC(encRotRndA)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt E(rot(RndA)): %v", ErrCrypto, err)
	}
	if !bytesEqual(rotRndA, rotateLeft1(rndA)) {
		return nil, fmt.Errorf("%w: RndA round-trip mismatch", ErrCrypto)
	}

	sessionKey, err := deriveSessionKey(t, rndA, rndB)
	if err != nil {
		return nil, err
	}

	session, err := NewCipher(t, sessionKey)
	if err != nil {
		return nil, err
	}
	session.ResetIV()
	return session, nil
}

// deriveSessionKey assembles the session key from slices of RndA/RndB per
// a per-cipher layout table.
func deriveSessionKey(t CipherType, rndA, rndB []byte) ([]byte, error) {
	switch t {
	case CipherDES:
		return concatBytes(rndA[0:4], rndB[0:4]), nil
	case CipherDES3_2K:
		return concatBytes(rndA[0:4], rndB[0:4], rndA[4:8], rndB[4:8]), nil
	case CipherDES3_3K:
		return concatBytes(rndA[0:4], rndB[0:4], rndA[6:10], rndB[6:10], rndA[12:16], rndB[12:16]), nil
	case CipherAES128:
		return concatBytes(rndA[0:4], rndB[0:4], rndA[12:16], rndB[12:16]), nil
	default:
		return nil, fmt.Errorf("desfire: unknown cipher type %v", t)
	}
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitStatus pulls the trailing status byte off a DESFire reply,
// returning the remaining data and the status.
func splitStatus(reply []byte) ([]byte, Status, error) {
	if len(reply) < 1 {
		return nil, 0, fmt.Errorf("%w: empty reply", ErrMalformed)
	}
	return reply[:len(reply)-1], Status(reply[len(reply)-1]), nil
}
