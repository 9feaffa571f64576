package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChannel is an in-memory Channel backed by byte queues, used to
// exercise the Base op-guard bookkeeping without real hardware.
type mockChannel struct {
	Base
	toSend []byte
	toRecv []byte
	mode   ReceiveMode
}

func (m *mockChannel) Wake(ctx context.Context) error { return nil }

func (m *mockChannel) RawSend(ctx context.Context, buf []byte, timeout time.Duration) error {
	m.toSend = append(m.toSend, buf...)
	return nil
}

func (m *mockChannel) RawReceive(ctx context.Context, buf []byte, timeout time.Duration) error {
	if len(m.toRecv) < len(buf) {
		return ErrTimeout
	}
	copy(buf, m.toRecv[:len(buf)])
	m.toRecv = m.toRecv[len(buf):]
	return nil
}

func (m *mockChannel) ReceiveMode() ReceiveMode { return m.mode }

func TestOpGuardEnforcesSingleOperation(t *testing.T) {
	m := &mockChannel{mode: Stream}
	guard := m.BeginSend()
	assert.Panics(t, func() { m.BeginSend() })
	guard.Close(nil)

	// Now free again.
	assert.NotPanics(t, func() { m.BeginSend().Close(nil) })
}

func TestOpGuardCloseIsIdempotent(t *testing.T) {
	m := &mockChannel{mode: Stream}
	guard := m.BeginReceive()
	guard.Close(nil)
	assert.NotPanics(t, func() { guard.Close(nil) })
}

type countingHooks struct {
	sendPrepare, sendComplete, recvPrepare, recvComplete int
}

func (h *countingHooks) OnSendPrepare()          { h.sendPrepare++ }
func (h *countingHooks) OnSendComplete(error)    { h.sendComplete++ }
func (h *countingHooks) OnReceivePrepare()       { h.recvPrepare++ }
func (h *countingHooks) OnReceiveComplete(error) { h.recvComplete++ }

func TestHooksFireAroundOperations(t *testing.T) {
	hooks := &countingHooks{}
	m := &mockChannel{mode: Stream}
	m.Hooks = hooks

	m.BeginSend().Close(nil)
	m.BeginReceive().Close(nil)

	assert.Equal(t, 1, hooks.sendPrepare)
	assert.Equal(t, 1, hooks.sendComplete)
	assert.Equal(t, 1, hooks.recvPrepare)
	assert.Equal(t, 1, hooks.recvComplete)
}

func TestMockChannelSendReceiveRoundTrip(t *testing.T) {
	m := &mockChannel{mode: Stream, toRecv: []byte{0xAA, 0xBB, 0xCC}}

	sendGuard := m.BeginSend()
	err := m.RawSend(context.Background(), []byte{0x01, 0x02}, time.Second)
	sendGuard.Close(err)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, m.toSend)

	recvGuard := m.BeginReceive()
	buf := make([]byte, 3)
	err = m.RawReceive(context.Background(), buf, time.Second)
	recvGuard.Close(err)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, buf)
}

func TestReceiveModeString(t *testing.T) {
	assert.Equal(t, "stream", Stream.String())
	assert.Equal(t, "buffered", Buffered.String())
}
