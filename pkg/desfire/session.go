package desfire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgenfc/pn532stack/internal/logger"
	"github.com/edgenfc/pn532stack/pkg/pn532"
)

// unauthenticatedKeyNo is the sentinel value for "no active key".
const unauthenticatedKeyNo = 0xFF

// rootApplication is the PICC-level root application AID.
var rootApplication = [3]byte{0x00, 0x00, 0x00}

// Tag is a DESFire session bound to one activated pn532.Target: active
// cipher (owning a key), active cipher type, active key number, and
// active application. It is reset on app-select, format-picc,
// authentication failure, and any error status the card returns.
type Tag struct {
	ctrl         *pn532.Controller
	logicalIndex byte
	timeout      time.Duration

	cipher      *Cipher
	cipherType  CipherType
	activeKeyNo byte
	activeApp   [3]byte

	log *slog.Logger
}

// NewTag binds a Tag to a selected target on ctrl.
func NewTag(ctrl *pn532.Controller, logicalIndex byte, timeout time.Duration) *Tag {
	return &Tag{
		ctrl:         ctrl,
		logicalIndex: logicalIndex,
		timeout:      timeout,
		activeKeyNo:  unauthenticatedKeyNo,
		activeApp:    rootApplication,
		log:          logger.Get(),
	}
}

// IsAuthenticated reports whether a session key is currently active.
func (t *Tag) IsAuthenticated() bool { return t.activeKeyNo != unauthenticatedKeyNo }

// resetSession clears the active key on any of the reset triggers (app
// select, format, auth failure, an error status from the card).
func (t *Tag) resetSession() {
	t.cipher = nil
	t.activeKeyNo = unauthenticatedKeyNo
}

// rawExchange wraps InitiatorDataExchange with a debug log line and
// translates any pn532/channel error into ErrControllerError.
func (t *Tag) rawExchange(payload []byte) ([]byte, error) {
	log := t.log
	log.Debug("desfire exchange", "payload_len", len(payload))

	data, status, err := t.ctrl.InitiatorDataExchange(context.Background(), t.logicalIndex, payload, t.timeout)
	if err != nil {
		log.Debug("desfire exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrControllerError, err)
	}
	if !status.IsSuccess() {
		return nil, fmt.Errorf("%w: pn532 status 0x%02x", ErrControllerError, byte(status))
	}
	if n := len(data); n > 0 && Status(data[n-1]).AsError() != nil {
		t.resetSession()
	}
	return data, nil
}

// chainedExchange implements DESFire's additional-frame chaining: it
// sends payload,
// and while the reply's trailing status is AdditionalFrame, re-issues the
// bare CmdAdditionalFrame, concatenating the data bytes of each response
// (dropping the repeated status byte) until status 00/0C or an error.
// The final status byte is returned attached as the last byte of the
// result, matching the shape every non-chained exchange also returns, so
// callers always call splitStatus once.
func (t *Tag) chainedExchange(payload []byte) ([]byte, error) {
	reply, err := t.rawExchange(payload)
	if err != nil {
		return nil, err
	}
	data, status, err := splitStatus(reply)
	if err != nil {
		return nil, err
	}
	result := append([]byte{}, data...)
	for status == StatusAdditionalFrame {
		reply, err := t.rawExchange([]byte{CmdAdditionalFrame})
		if err != nil {
			return nil, err
		}
		var chunk []byte
		chunk, status, err = splitStatus(reply)
		if err != nil {
			return nil, err
		}
		result = append(result, chunk...)
	}
	return append(result, byte(status)), nil
}

// Authenticate runs the cipher-appropriate handshake against key number
// keyNo with key bytes of the length t.KeyLen() requires. On success the
// Tag's cipher state becomes active; on failure the
// session is dropped.
func (t *Tag) Authenticate(cipherType CipherType, keyNo byte, key []byte) error {
	cipher, err := AuthenticateKey(t.rawExchange, cipherType, keyNo, key)
	if err != nil {
		t.resetSession()
		return err
	}
	t.cipher = cipher
	t.cipherType = cipherType
	t.activeKeyNo = keyNo
	return nil
}

// requireAuth returns ErrNotAuthenticated if no session key is active.
func (t *Tag) requireAuth() error {
	if !t.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}
