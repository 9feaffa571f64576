package pn532

import (
	"context"
	"fmt"
	"time"
)

// BaudMod is the baudrate/modulation selector InListPassiveTarget and
// AutoPoll use.
type BaudMod byte

const (
	BaudMod106A    BaudMod = 0x00 // 106 kbps ISO14443-A
	BaudMod212F    BaudMod = 0x01 // 212 kbps FeliCa
	BaudMod424F    BaudMod = 0x02 // 424 kbps FeliCa
	BaudMod106B    BaudMod = 0x03 // 106 kbps ISO14443-B
	BaudMod106Jewel BaudMod = 0x04
)

// TargetKind tags the modulation-specific payload a discovered Target
// carries.
type TargetKind int

const (
	TargetKind106A TargetKind = iota
	TargetKind106B
	TargetKind212F
	TargetKind424F
	TargetKind106Jewel
)

// Target106A holds a 106 kbps ISO14443-A target record.
type Target106A struct {
	SensRes [2]byte
	SelRes  byte
	NFCID   []byte // 4, 7, or 10 bytes
	ATS     []byte
}

// Target106B holds a 106 kbps ISO14443-B target record.
type Target106B struct {
	ATQB      [12]byte
	AttribRes []byte
}

// TargetFeliCa holds a 212/424 kbps FeliCa target record (identical shape
// at both baud rates).
type TargetFeliCa struct {
	NFCID2   [8]byte
	Pad      [8]byte
	SystCode [2]byte
}

// Target106Jewel holds a 106 kbps Jewel target record.
type Target106Jewel struct {
	SensRes [2]byte
	JewelID [4]byte
}

// Target is a discovered, activated card: a PN532-assigned logical index
// plus the modulation-specific record.
type Target struct {
	LogicalIndex byte
	Kind         TargetKind

	A106     *Target106A
	B106     *Target106B
	FeliCa   *TargetFeliCa
	Jewel106 *Target106Jewel
}

// maxChunk is the firmware's single-frame InDataExchange payload ceiling.
const maxChunk = 262

// ListPassiveOpts parameterizes InListPassiveTarget, including the
// re-selection path via UID cascade bytes (initiator data).
type ListPassiveOpts struct {
	MaxTargets byte // 1 or 2
	// InitiatorData carries per-modulation data: AFI byte for type B,
	// FeliCa polling payload, or cascade UID bytes to re-find a known card.
	InitiatorData []byte
}

// InitiatorListPassiveTarget emits InListPassiveTarget for the given
// modulation and parses the reply into Targets. On a reply claiming more
// than 2 targets the record stream is clamped and the excess is dropped
// (warn-worthy, not an error).
func (c *Controller) InitiatorListPassiveTarget(ctx context.Context, mod BaudMod, opts ListPassiveOpts, timeout time.Duration) ([]Target, error) {
	if opts.MaxTargets == 0 {
		opts.MaxTargets = 1
	}
	payload := append([]byte{opts.MaxTargets, byte(mod)}, opts.InitiatorData...)
	reply, err := c.CommandResponse(ctx, CmdInListPassiveTarget, payload, timeout)
	if err != nil {
		return nil, err
	}
	if len(reply) < 1 {
		return nil, fmt.Errorf("%w: empty InListPassiveTarget reply", ErrMalformed)
	}
	count := int(reply[0])
	if count > 2 {
		count = 2
	}
	rest := reply[1:]
	targets := make([]Target, 0, count)
	for i := 0; i < count; i++ {
		t, n, err := parseTargetRecord(mod, rest)
		if err != nil {
			return targets, err
		}
		targets = append(targets, t)
		rest = rest[n:]
	}
	return targets, nil
}

func parseTargetRecord(mod BaudMod, buf []byte) (Target, int, error) {
	if len(buf) < 1 {
		return Target{}, 0, fmt.Errorf("%w: truncated target record", ErrMalformed)
	}
	logicalIndex := buf[0]
	buf = buf[1:]

	switch mod {
	case BaudMod106A:
		if len(buf) < 4 {
			return Target{}, 0, fmt.Errorf("%w: truncated 106A record", ErrMalformed)
		}
		sens := [2]byte{buf[0], buf[1]}
		selRes := buf[2]
		nfcidLen := int(buf[3])
		off := 4
		if len(buf) < off+nfcidLen {
			return Target{}, 0, fmt.Errorf("%w: truncated NFCID", ErrMalformed)
		}
		nfcid := append([]byte{}, buf[off:off+nfcidLen]...)
		off += nfcidLen
		var ats []byte
		if off < len(buf) {
			atsLen := int(buf[off])
			off++
			if atsLen > 0 {
				if len(buf) < off+atsLen-1 {
					return Target{}, 0, fmt.Errorf("%w: truncated ATS", ErrMalformed)
				}
				ats = append([]byte{}, buf[off:off+atsLen-1]...)
				off += atsLen - 1
			}
		}
		return Target{
			LogicalIndex: logicalIndex,
			Kind:         TargetKind106A,
			A106:         &Target106A{SensRes: sens, SelRes: selRes, NFCID: nfcid, ATS: ats},
		}, 1 + off, nil

	case BaudMod106B:
		if len(buf) < 13 {
			return Target{}, 0, fmt.Errorf("%w: truncated 106B record", ErrMalformed)
		}
		var atqb [12]byte
		copy(atqb[:], buf[:12])
		attribLen := int(buf[12])
		off := 13
		if len(buf) < off+attribLen {
			return Target{}, 0, fmt.Errorf("%w: truncated ATTRIB_RES", ErrMalformed)
		}
		attrib := append([]byte{}, buf[off:off+attribLen]...)
		off += attribLen
		return Target{
			LogicalIndex: logicalIndex,
			Kind:         TargetKind106B,
			B106:         &Target106B{ATQB: atqb, AttribRes: attrib},
		}, 1 + off, nil

	case BaudMod212F, BaudMod424F:
		if len(buf) < 18 {
			return Target{}, 0, fmt.Errorf("%w: truncated FeliCa record", ErrMalformed)
		}
		var nfcid2, pad [8]byte
		var syst [2]byte
		copy(nfcid2[:], buf[0:8])
		copy(pad[:], buf[8:16])
		copy(syst[:], buf[16:18])
		kind := TargetKind212F
		if mod == BaudMod424F {
			kind = TargetKind424F
		}
		return Target{
			LogicalIndex: logicalIndex,
			Kind:         kind,
			FeliCa:       &TargetFeliCa{NFCID2: nfcid2, Pad: pad, SystCode: syst},
		}, 19, nil

	case BaudMod106Jewel:
		if len(buf) < 6 {
			return Target{}, 0, fmt.Errorf("%w: truncated Jewel record", ErrMalformed)
		}
		var sens [2]byte
		var jid [4]byte
		copy(sens[:], buf[0:2])
		copy(jid[:], buf[2:6])
		return Target{
			LogicalIndex: logicalIndex,
			Kind:         TargetKind106Jewel,
			Jewel106:     &Target106Jewel{SensRes: sens, JewelID: jid},
		}, 7, nil
	}
	return Target{}, 0, fmt.Errorf("%w: unsupported modulation 0x%02x", ErrMalformed, mod)
}

// AutoPollType selects one of the up to 15 concurrent target types
// InitiatorAutoPoll can scan for.
type AutoPollType byte

const (
	AutoPollGeneric106A  AutoPollType = 0x00
	AutoPollMifare       AutoPollType = 0x10
	AutoPollFeliCa212    AutoPollType = 0x11
	AutoPollFeliCa424    AutoPollType = 0x12
	AutoPollISO14443B    AutoPollType = 0x23
	AutoPollJewel        AutoPollType = 0x24
)

// PollTarget is one discovered entry from InitiatorAutoPoll, tagged by the
// AutoPollType that matched.
type PollTarget struct {
	Type   AutoPollType
	Target Target
}

// InitiatorAutoPoll polls for up to 15 target types concurrently. Overall
// wall-clock must not exceed len(types) * attempts * period.
func (c *Controller) InitiatorAutoPoll(ctx context.Context, types []AutoPollType, attemptsPerType byte, period time.Duration, timeout time.Duration) ([]PollTarget, error) {
	if len(types) > 15 {
		types = types[:15]
	}
	payload := make([]byte, 0, 2+len(types))
	payload = append(payload, attemptsPerType, byte(period/(150*time.Millisecond)))
	for _, t := range types {
		payload = append(payload, byte(t))
	}
	reply, err := c.CommandResponse(ctx, CmdInAutoPoll, payload, timeout)
	if err != nil {
		return nil, err
	}
	if len(reply) < 1 {
		return nil, fmt.Errorf("%w: empty AutoPoll reply", ErrMalformed)
	}
	count := int(reply[0])
	rest := reply[1:]
	out := make([]PollTarget, 0, count)
	for i := 0; i < count; i++ {
		if len(rest) < 2 {
			return out, fmt.Errorf("%w: truncated AutoPoll entry", ErrMalformed)
		}
		pollType := AutoPollType(rest[0])
		recordLen := int(rest[1])
		rest = rest[2:]
		if len(rest) < recordLen {
			return out, fmt.Errorf("%w: truncated AutoPoll record", ErrMalformed)
		}
		mod := autoPollBaudMod(pollType)
		t, _, err := parseTargetRecord(mod, rest[:recordLen])
		if err != nil {
			return out, err
		}
		out = append(out, PollTarget{Type: pollType, Target: t})
		rest = rest[recordLen:]
	}
	return out, nil
}

func autoPollBaudMod(t AutoPollType) BaudMod {
	switch t {
	case AutoPollFeliCa212:
		return BaudMod212F
	case AutoPollFeliCa424:
		return BaudMod424F
	case AutoPollISO14443B:
		return BaudMod106B
	case AutoPollJewel:
		return BaudMod106Jewel
	default:
		return BaudMod106A
	}
}

func clampLogicalIndex(idx byte) byte {
	if idx > 1 {
		return idx & 0x01
	}
	return idx
}

// InitiatorSelect selects a previously discovered target by logical index.
func (c *Controller) InitiatorSelect(ctx context.Context, logicalIndex byte, timeout time.Duration) error {
	_, err := c.CommandResponse(ctx, CmdInSelect, []byte{clampLogicalIndex(logicalIndex)}, timeout)
	return err
}

// InitiatorDeselect deselects a target, keeping its state for a later
// InitiatorSelect.
func (c *Controller) InitiatorDeselect(ctx context.Context, logicalIndex byte, timeout time.Duration) error {
	_, err := c.CommandResponse(ctx, CmdInDeselect, []byte{clampLogicalIndex(logicalIndex)}, timeout)
	return err
}

// InitiatorRelease releases a target, forgetting its state.
func (c *Controller) InitiatorRelease(ctx context.Context, logicalIndex byte, timeout time.Duration) error {
	_, err := c.CommandResponse(ctx, CmdInRelease, []byte{clampLogicalIndex(logicalIndex)}, timeout)
	return err
}

// InitiatorPSL re-negotiates the baud rate for an active target (parameter
// select).
func (c *Controller) InitiatorPSL(ctx context.Context, logicalIndex byte, brIn, brOut byte, timeout time.Duration) error {
	_, err := c.CommandResponse(ctx, CmdInPSL, []byte{clampLogicalIndex(logicalIndex), brIn, brOut}, timeout)
	return err
}
