package pn532

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgenfc/pn532stack/internal/logger"
	"github.com/edgenfc/pn532stack/pkg/channel"
)

// DefaultTimeout and LongTimeout are the default/long command budgets;
// callers may override per call.
const (
	DefaultTimeout = time.Second
	LongTimeout    = 3 * time.Second
)

// Controller owns one channel and implements the three layered dispatch
// primitives (Command, Response, CommandResponse), plus the typed
// operation wrappers built on top of them.
type Controller struct {
	codec *codec
	log   *slog.Logger
}

// NewController binds a Controller to a transport channel.
func NewController(ch channel.Channel) *Controller {
	return &Controller{codec: newCodec(ch), log: logger.Get()}
}

// Command sends an info frame and awaits an ack (or nack) within timeout.
func (c *Controller) Command(ctx context.Context, cmd Cmd, payload []byte, timeout time.Duration) error {
	log := c.log
	log.Debug("pn532 command", "cmd", byte(cmd), "payload_len", len(payload))

	if err := c.codec.writeInfo(ctx, byte(cmd), payload, timeout); err != nil {
		log.Debug("pn532 command write failed", "error", err)
		return err
	}
	frame, err := c.codec.readFrame(ctx, timeout)
	if err != nil {
		return err
	}
	switch frame.Kind {
	case KindAck:
		return nil
	case KindNack:
		return fmt.Errorf("%w: device nacked command 0x%02x", ErrMalformed, cmd)
	default:
		return fmt.Errorf("%w: expected ack, got %s", ErrMalformed, frame.Kind)
	}
}

// Response awaits an info frame with reply code cmd+1 within timeout. On a
// malformed or checksum-failed frame it sends a NACK to request
// retransmission once.
func (c *Controller) Response(ctx context.Context, cmd Cmd, timeout time.Duration) (Frame, error) {
	budget := newBudget(timeout)

	frame, err := c.codec.readFrame(ctx, budget.remaining())
	if err != nil {
		if isRetryable(err) {
			if nackErr := c.codec.writeNack(ctx, budget.remaining()); nackErr != nil {
				return Frame{}, nackErr
			}
			frame, err = c.codec.readFrame(ctx, budget.remaining())
		}
		if err != nil {
			return Frame{}, err
		}
	}

	if frame.Kind == KindError {
		return frame, ErrAppError
	}
	if frame.Kind != KindInfo {
		return Frame{}, fmt.Errorf("%w: expected info frame, got %s", ErrMalformed, frame.Kind)
	}
	if frame.Cmd != ReplyCode(cmd) {
		return Frame{}, fmt.Errorf("%w: expected reply 0x%02x, got 0x%02x", ErrMalformed, ReplyCode(cmd), frame.Cmd)
	}
	return frame, nil
}

// CommandResponse composes Command then Response, and on success also
// sends a final ACK.
func (c *Controller) CommandResponse(ctx context.Context, cmd Cmd, payload []byte, timeout time.Duration) ([]byte, error) {
	budget := newBudget(timeout)

	if err := c.Command(ctx, cmd, payload, budget.remaining()); err != nil {
		return nil, err
	}
	frame, err := c.Response(ctx, cmd, budget.remaining())
	if err != nil {
		return nil, err
	}
	if err := c.codec.writeAck(ctx, budget.remaining()); err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// budget tracks wall-clock progress across the sub-steps of one high-level
// call so it doesn't exceed its caller-supplied timeout.
type budget struct {
	deadline time.Time
}

func newBudget(timeout time.Duration) *budget {
	return &budget{deadline: time.Now().Add(timeout)}
}

func (b *budget) remaining() time.Duration {
	d := time.Until(b.deadline)
	if d < 0 {
		return 0
	}
	return d
}
