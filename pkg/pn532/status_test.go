package pn532

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusBitLayout(t *testing.T) {
	cases := []struct {
		name          string
		status        Status
		wantNAD       bool
		wantMoreInfo  bool
		wantErr       InternalError
		wantIsSuccess bool
	}{
		{"clean success", Status(0x00), false, false, ErrNone, true},
		{"nad present, success", Status(0x80), true, false, ErrNone, true},
		{"more-info chaining, success", Status(0x40), false, true, ErrNone, true},
		{"nad+more-info, timeout error", Status(0xC1), true, true, ErrTimeoutRF, false},
		{"crc error only", Status(0x02), false, false, ErrCRC, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantNAD, tc.status.NADPresent())
			assert.Equal(t, tc.wantMoreInfo, tc.status.MoreInfo())
			assert.Equal(t, tc.wantErr, tc.status.InternalError())
			assert.Equal(t, tc.wantIsSuccess, tc.status.IsSuccess())
		})
	}
}

func TestReplyCodeIsRequestPlusOne(t *testing.T) {
	assert.Equal(t, byte(0x03), ReplyCode(CmdGetFirmwareVersion))
	assert.Equal(t, byte(0x41), ReplyCode(CmdInDataExchange))
}

func TestInternalErrorStringFallback(t *testing.T) {
	assert.Equal(t, "crc", ErrCRC.String())
	assert.Contains(t, InternalError(0x7E).String(), "reserved")
}
