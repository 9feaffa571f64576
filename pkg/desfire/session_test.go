package desfire

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgenfc/pn532stack/pkg/channel"
	"github.com/edgenfc/pn532stack/pkg/pn532"
)

// queueChannel is a minimal in-memory channel.Channel: sends are recorded
// in order, reads are served from a queue of pre-staged byte slices sized
// exactly as pn532's stream codec will request them. This mirrors the
// pn532 package's own controller test double, duplicated here since it's
// unexported across the package boundary.
type queueChannel struct {
	channel.Base
	sent  [][]byte
	queue [][]byte
}

func (q *queueChannel) Wake(ctx context.Context) error { return nil }

func (q *queueChannel) RawSend(ctx context.Context, buf []byte, timeout time.Duration) error {
	q.sent = append(q.sent, append([]byte{}, buf...))
	return nil
}

func (q *queueChannel) RawReceive(ctx context.Context, buf []byte, timeout time.Duration) error {
	if len(q.queue) == 0 {
		return channel.ErrTimeout
	}
	next := q.queue[0]
	q.queue = q.queue[1:]
	if len(next) != len(buf) {
		return channel.ErrTimeout
	}
	copy(buf, next)
	return nil
}

func (q *queueChannel) ReceiveMode() channel.ReceiveMode { return channel.Stream }

var streamAck = []byte{0x00, 0xFF, 0x00, 0xFF, 0x00}

// streamQueueForFrame walks a fully-encoded on-wire frame byte-by-byte the
// way pn532's readStream/syncToSOP consume it: one byte at a time until
// the 00 FF start-of-packet pair, then the 2-byte length prefix, then the
// body+DCS in one read. Ack frames carry no body.
func streamQueueForFrame(frame []byte) [][]byte {
	q := [][]byte{}
	prev := byte(0xFF)
	i := 0
	for ; i < len(frame); i++ {
		b := frame[i]
		q = append(q, []byte{b})
		if prev == 0x00 && b == 0xFF {
			i++
			break
		}
		prev = b
	}
	rest := frame[i:]
	prefix := rest[:2]
	q = append(q, prefix)
	if prefix[0] == 0x00 && prefix[1] == 0xFF {
		return q
	}
	bodyLen := int(rest[0])
	q = append(q, rest[2:2+bodyLen+1])
	return q
}

func queueDataExchangeReply(q *queueChannel, pn532Status byte, data []byte) {
	payload := append([]byte{pn532Status}, data...)
	frame, _ := pn532.EncodeInfo(pn532.ReplyCode(pn532.CmdInDataExchange), payload)
	q.queue = append(q.queue, streamQueueForFrame(streamAck)...)
	q.queue = append(q.queue, streamQueueForFrame(frame)...)
}

func newTestTag(q *queueChannel) *Tag {
	ctrl := pn532.NewController(q)
	return NewTag(ctrl, 0, time.Second)
}

// TestTagChainedExchangeAssemblesAFChunks drives two full
// InDataExchange round trips (each itself a full PN532 command/ack/
// response/ack cycle) through a real *pn532.Controller: the first reply
// signals StatusAdditionalFrame, the second carries the final status, and
// chainedExchange must concatenate both chunks and return the final status
// as the trailing byte.
func TestTagChainedExchangeAssemblesAFChunks(t *testing.T) {
	q := &queueChannel{}
	queueDataExchangeReply(q, 0x00, []byte{0x01, 0x02, byte(StatusAdditionalFrame)})
	queueDataExchangeReply(q, 0x00, []byte{0x03, 0x04, byte(StatusSuccess)})

	tag := newTestTag(q)
	result, err := tag.chainedExchange([]byte{0xBD, 0x00, 0x00, 0x00})
	require.NoError(t, err)

	data, status, err := splitStatus(result)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)

	// Second exchange's request carries just the bare AF continuation.
	require.Len(t, q.sent, 4) // cmd1, ack1(final), cmd2, ack2(final)
	wantCmd2, _ := pn532.EncodeInfo(byte(pn532.CmdInDataExchange), []byte{0x00, byte(CmdAdditionalFrame)})
	assert.Equal(t, wantCmd2, q.sent[2])
}

// TestTagChainedExchangeSinglePassNoChaining confirms a non-AF status
// short-circuits after one round trip.
func TestTagChainedExchangeSinglePassNoChaining(t *testing.T) {
	q := &queueChannel{}
	queueDataExchangeReply(q, 0x00, []byte{0xAA, 0xBB, byte(StatusSuccess)})

	tag := newTestTag(q)
	result, err := tag.chainedExchange([]byte{0xBD})
	require.NoError(t, err)

	data, status, err := splitStatus(result)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
	require.Len(t, q.sent, 2)
}

// TestTagChainedExchangePropagatesControllerError confirms a pn532-level
// communication failure (not a DESFire status byte) surfaces as
// ErrControllerError rather than being silently swallowed.
func TestTagChainedExchangePropagatesControllerError(t *testing.T) {
	q := &queueChannel{}
	queueDataExchangeReply(q, 0x01, []byte{byte(StatusSuccess)}) // pn532 internal error bit set

	tag := newTestTag(q)
	_, err := tag.chainedExchange([]byte{0xBD})
	assert.ErrorIs(t, err, ErrControllerError)
}

func TestTagIsAuthenticatedAndResetSession(t *testing.T) {
	tag := &Tag{activeKeyNo: unauthenticatedKeyNo}
	assert.False(t, tag.IsAuthenticated())

	tag.activeKeyNo = 3
	tag.cipher = &Cipher{}
	assert.True(t, tag.IsAuthenticated())

	tag.resetSession()
	assert.False(t, tag.IsAuthenticated())
	assert.Nil(t, tag.cipher)
}

func TestTagRequireAuth(t *testing.T) {
	tag := &Tag{activeKeyNo: unauthenticatedKeyNo}
	assert.ErrorIs(t, tag.requireAuth(), ErrNotAuthenticated)

	tag.activeKeyNo = 0
	assert.NoError(t, tag.requireAuth())
}
