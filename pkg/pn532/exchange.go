package pn532

import (
	"context"
	"fmt"
	"time"
)

// moreInfoBit, set on the logical-index byte of a chained
// InDataExchange request/response, signals "more data follows".
const moreInfoBit = 0x40

// InitiatorDataExchange is the key primitive the DESFire layer rides on.
// When payload exceeds the firmware's single-frame chunk limit it is
// split into ≤262-byte chunks; each non-final chunk
// sets the more-info bit. The reply status is aggregated across chunks
// and the reply payload concatenated. Any non-success status terminates
// chaining immediately and is returned alongside whatever payload was
// collected so far.
func (c *Controller) InitiatorDataExchange(ctx context.Context, logicalIndex byte, payload []byte, timeout time.Duration) ([]byte, Status, error) {
	budget := newBudget(timeout)
	idx := clampLogicalIndex(logicalIndex)

	var result []byte
	var lastStatus Status

	for sent := 0; ; {
		end := sent + maxChunk
		last := end >= len(payload)
		if last {
			end = len(payload)
		}
		chunk := payload[sent:end]

		idxByte := idx
		if !last {
			idxByte |= moreInfoBit
		}
		req := append([]byte{idxByte}, chunk...)

		reply, err := c.CommandResponse(ctx, CmdInDataExchange, req, budget.remaining())
		if err != nil {
			return result, lastStatus, err
		}
		if len(reply) < 1 {
			return result, lastStatus, fmt.Errorf("%w: empty DataExchange reply", ErrMalformed)
		}
		lastStatus = Status(reply[0])
		result = append(result, reply[1:]...)

		if !lastStatus.IsSuccess() {
			return result, lastStatus, nil
		}

		sent = end
		if last {
			return result, lastStatus, nil
		}
	}
}

// InitiatorCommunicateThru behaves like InitiatorDataExchange but bypasses
// the PN532's protocol-specific framing (ISO14443-4 chaining, etc.),
// talking raw bytes to the RF layer. Used for custom/ non-standard card
// dialects; not exercised by the DESFire layer, which always uses
// InitiatorDataExchange.
func (c *Controller) InitiatorCommunicateThru(ctx context.Context, payload []byte, timeout time.Duration) ([]byte, Status, error) {
	reply, err := c.CommandResponse(ctx, CmdInCommunicateThru, payload, timeout)
	if err != nil {
		return nil, 0, err
	}
	if len(reply) < 1 {
		return nil, 0, fmt.Errorf("%w: empty CommunicateThru reply", ErrMalformed)
	}
	return reply[1:], Status(reply[0]), nil
}
