package pn532

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgenfc/pn532stack/pkg/channel"
)

// codec reads and writes PN532 frames over a channel.Channel, choosing its
// receive strategy from the channel's ReceiveMode.
type codec struct {
	ch channel.Channel
}

func newCodec(ch channel.Channel) *codec { return &codec{ch: ch} }

// writeInfo encodes and sends an info frame.
func (c *codec) writeInfo(ctx context.Context, cmd byte, payload []byte, timeout time.Duration) error {
	frame, truncated := EncodeInfo(cmd, payload)
	_ = truncated // caller logs truncation; codec has no logger dependency
	guard := c.ch.BeginSend()
	defer guard.Close(nil)
	err := c.ch.RawSend(ctx, frame, timeout)
	guard.Close(err)
	return translateChannelErr(err)
}

// writeAck sends the fixed ACK sequence, used to confirm receipt of an
// info frame.
func (c *codec) writeAck(ctx context.Context, timeout time.Duration) error {
	guard := c.ch.BeginSend()
	err := c.ch.RawSend(ctx, ackBytes, timeout)
	guard.Close(err)
	return translateChannelErr(err)
}

// writeNack sends the fixed NACK sequence to request retransmission of
// the last info frame.
func (c *codec) writeNack(ctx context.Context, timeout time.Duration) error {
	guard := c.ch.BeginSend()
	err := c.ch.RawSend(ctx, nackBytes, timeout)
	guard.Close(err)
	return translateChannelErr(err)
}

// readFrame reads and decodes one frame, dispatching to the stream or
// buffered strategy per the channel's ReceiveMode.
func (c *codec) readFrame(ctx context.Context, timeout time.Duration) (Frame, error) {
	guard := c.ch.BeginReceive()
	var frame Frame
	var err error
	if c.ch.ReceiveMode() == channel.Stream {
		frame, err = c.readStream(ctx, timeout)
	} else {
		frame, err = c.readBuffered(ctx, timeout)
	}
	guard.Close(err)
	return frame, err
}

// readStream implements the stream strategy: read five bytes of
// preamble/SOP, then the length field(s), then the body and checksum,
// incrementally.
func (c *codec) readStream(ctx context.Context, timeout time.Duration) (Frame, error) {
	if err := c.syncToSOP(ctx, timeout); err != nil {
		return Frame{}, err
	}

	prefix := make([]byte, 2)
	if err := c.ch.RawReceive(ctx, prefix, timeout); err != nil {
		return Frame{}, translateChannelErr(err)
	}
	if prefix[0] == 0xFF && prefix[1] == 0xFF {
		extra := make([]byte, 3)
		if err := c.ch.RawReceive(ctx, extra, timeout); err != nil {
			return Frame{}, translateChannelErr(err)
		}
		prefix = append(prefix, extra...)
	}
	ident, _, err := classifyPrefix(prefix)
	if err != nil {
		return Frame{}, err
	}
	switch ident.Kind {
	case KindAck:
		return Frame{Kind: KindAck}, nil
	case KindNack:
		return Frame{Kind: KindNack}, nil
	}

	body := make([]byte, ident.BodyLen+1)
	if err := c.ch.RawReceive(ctx, body, timeout); err != nil {
		return Frame{}, translateChannelErr(err)
	}
	return parseBody(body[:ident.BodyLen], body[ident.BodyLen])
}

// syncToSOP consumes bytes one at a time until it has seen the 0x00 0xFF
// start-of-packet marker, skipping any leading preamble/postamble 0x00s.
func (c *codec) syncToSOP(ctx context.Context, timeout time.Duration) error {
	var prev byte = 0xFF
	b := make([]byte, 1)
	for i := 0; i < 16; i++ {
		if err := c.ch.RawReceive(ctx, b, timeout); err != nil {
			return translateChannelErr(err)
		}
		if prev == 0x00 && b[0] == 0xFF {
			return nil
		}
		prev = b[0]
	}
	return fmt.Errorf("%w: no start-of-packet found", ErrMalformed)
}

// bufferedProbeSize is the fixed six-byte read a buffered channel's first
// probe uses: enough to parse any ack/nack/error frame, or the prefix of
// an info frame.
const bufferedProbeSize = 6

// readBuffered implements the buffered strategy: a fixed-size probe read
// first; if that identifies an info frame too large to have fit, send an
// application NACK and re-read a longer buffer.
func (c *codec) readBuffered(ctx context.Context, timeout time.Duration) (Frame, error) {
	probe := make([]byte, 0, 16)
	buf := make([]byte, bufferedProbeSize)
	if err := c.ch.RawReceive(ctx, buf, timeout); err != nil {
		return Frame{}, translateChannelErr(err)
	}
	probe = append(probe, buf...)

	start := indexSOP(probe)
	if start < 0 {
		return Frame{}, fmt.Errorf("%w: no start-of-packet found in buffered read", ErrMalformed)
	}
	rest := probe[start+2:]

	ident, consumed, err := classifyPrefix(rest)
	if err != nil {
		return Frame{}, err
	}
	switch ident.Kind {
	case KindAck:
		return Frame{Kind: KindAck}, nil
	case KindNack:
		return Frame{Kind: KindNack}, nil
	}

	need := start + 2 + consumed + ident.BodyLen + 1
	if need <= len(probe) {
		body := rest[consumed : consumed+ident.BodyLen]
		dcs := rest[consumed+ident.BodyLen]
		return parseBody(body, dcs)
	}

	// The first buffered read didn't capture the whole frame: ask the
	// device to retransmit into a buffer sized for the now-known length.
	if err := c.writeNack(ctx, timeout); err != nil {
		return Frame{}, err
	}
	full := make([]byte, need+8)
	if err := c.ch.RawReceive(ctx, full, timeout); err != nil {
		return Frame{}, translateChannelErr(err)
	}
	fStart := indexSOP(full)
	if fStart < 0 {
		return Frame{}, fmt.Errorf("%w: no start-of-packet found on reread", ErrMalformed)
	}
	fRest := full[fStart+2:]
	fIdent, fConsumed, err := classifyPrefix(fRest)
	if err != nil {
		return Frame{}, err
	}
	body := fRest[fConsumed : fConsumed+fIdent.BodyLen]
	dcs := fRest[fConsumed+fIdent.BodyLen]
	return parseBody(body, dcs)
}

// indexSOP finds the first 0x00 0xFF pair in buf, returning the index of
// the 0x00, or -1 if absent.
func indexSOP(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == 0x00 && buf[i+1] == 0xFF {
			return i
		}
	}
	return -1
}

// translateChannelErr maps a channel.Channel error onto the pn532 package's
// own sentinels.
func translateChannelErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, channel.ErrTimeout):
		return ErrTimeout
	case errors.Is(err, channel.ErrHardware):
		return ErrHardware
	default:
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
}
