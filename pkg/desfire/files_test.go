package desfire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessRightsPackUnpackInvariant(t *testing.T) {
	cases := []struct {
		read, write, readWrite, change byte
	}{
		{0x0, 0x0, 0x0, 0x0},
		{0x1, 0x2, 0x3, 0x4},
		{byte(AccessAllKeys), byte(AccessAllKeys), byte(AccessAllKeys), byte(AccessAllKeys)},
		{0xF, 0xF, 0xF, 0xF},
	}
	for _, tc := range cases {
		rights := PackAccessRights(tc.read, tc.write, tc.readWrite, tc.change)
		gotRead, gotWrite, gotReadWrite, gotChange := rights.Unpack()
		assert.Equal(t, tc.read, gotRead)
		assert.Equal(t, tc.write, gotWrite)
		assert.Equal(t, tc.readWrite, gotReadWrite)
		assert.Equal(t, tc.change, gotChange)
	}
}

func TestPackAccessRightsWireLayout(t *testing.T) {
	// read=0x1, write=0x2, readWrite=0x3, change=0x4 -> 0x1234
	rights := PackAccessRights(0x1, 0x2, 0x3, 0x4)
	assert.Equal(t, AccessRights(0x1234), rights)
}

func TestLE3LE4RoundTrip(t *testing.T) {
	assert.Equal(t, 0x030201, parseLE3(le3(0x030201)))
	assert.Equal(t, int32(0x04030201), parseLE4(le4(0x04030201)))
	assert.Equal(t, int32(-1), parseLE4(le4(-1)))
}

func TestFileSecurityCommMode(t *testing.T) {
	assert.Equal(t, CommPlain, FileSecurityPlain.commMode())
	assert.Equal(t, CommMAC, FileSecurityAuthenticated.commMode())
	assert.Equal(t, CommCipher, FileSecurityEncrypted.commMode())
}

func TestEncodeGenericFileSettings(t *testing.T) {
	s := FileSettings{Security: FileSecurityAuthenticated, Rights: PackAccessRights(0xE, 0xE, 0xE, 0x0)}
	enc := s.encodeGeneric()
	require.Len(t, enc, 3)
	assert.Equal(t, byte(FileSecurityAuthenticated), enc[0])
	rights := AccessRights(uint16(enc[1]) | uint16(enc[2])<<8)
	assert.Equal(t, s.Rights, rights)
}

// TestGetFileSettingsParsesStandardFileTail drives GetFileSettings over a
// real Controller/Tag pair (no cipher, so unwrapResponse is passthrough)
// and checks the type-specific tail decode for a standard file.
func TestGetFileSettingsParsesStandardFileTail(t *testing.T) {
	q := &queueChannel{}
	reply := append([]byte{byte(FileStandard), byte(FileSecurityPlain), 0x0E, 0x00}, le3(256)...)
	reply = append(reply, byte(StatusSuccess))
	queueDataExchangeReply(q, 0x00, reply)

	tag := newTestTag(q)
	s, err := tag.GetFileSettings(0x01)
	require.NoError(t, err)
	assert.Equal(t, FileStandard, s.Type)
	assert.Equal(t, FileSecurityPlain, s.Security)
	assert.Equal(t, 256, s.Size)
}

// TestGetFileSettingsParsesValueFileTail covers the value-file tail shape.
func TestGetFileSettingsParsesValueFileTail(t *testing.T) {
	q := &queueChannel{}
	reply := []byte{byte(FileValue), byte(FileSecurityPlain), 0x0E, 0x00}
	reply = append(reply, le4(0)...)
	reply = append(reply, le4(1000)...)
	reply = append(reply, le4(42)...)
	reply = append(reply, 0x01) // limited credit enabled
	reply = append(reply, byte(StatusSuccess))
	queueDataExchangeReply(q, 0x00, reply)

	tag := newTestTag(q)
	s, err := tag.GetFileSettings(0x02)
	require.NoError(t, err)
	assert.Equal(t, FileValue, s.Type)
	assert.Equal(t, int32(0), s.LowerLimit)
	assert.Equal(t, int32(1000), s.UpperLimit)
	assert.Equal(t, int32(42), s.Value)
	assert.True(t, s.LimitedCreditEnabled)
}

// TestReadDataPlainAutoDetectsMode drives ReadData with security == nil,
// so it first issues GetFileSettings (learning CommPlain) and then the
// chained ReadData exchange itself, across two independent DataExchange
// round trips.
func TestReadDataPlainAutoDetectsMode(t *testing.T) {
	q := &queueChannel{}
	settingsReply := append([]byte{byte(FileStandard), byte(FileSecurityPlain), 0x0E, 0x00}, le3(16)...)
	settingsReply = append(settingsReply, byte(StatusSuccess))
	queueDataExchangeReply(q, 0x00, settingsReply)
	queueDataExchangeReply(q, 0x00, append([]byte{0x11, 0x22, 0x33}, byte(StatusSuccess)))

	tag := newTestTag(q)
	data, err := tag.ReadData(0x01, 0, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, data)
}

// TestReadDataTrustedModeSkipsFileSettings confirms a non-nil security
// pointer bypasses the GetFileSettings round trip entirely.
func TestReadDataTrustedModeSkipsFileSettings(t *testing.T) {
	q := &queueChannel{}
	queueDataExchangeReply(q, 0x00, append([]byte{0xAA, 0xBB}, byte(StatusSuccess)))

	tag := newTestTag(q)
	sec := FileSecurityPlain
	data, err := tag.ReadData(0x01, 0, 2, &sec)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
	require.Len(t, q.sent, 2) // one DataExchange round trip, no settings lookup
}

// TestWriteDataSendsPayloadAtOffset confirms WriteData completes a single
// DataExchange round trip (fileID + 3-byte LE offset + 3-byte LE length +
// payload wrapped by simpleCommand, passthrough since no cipher is active).
func TestWriteDataSendsPayloadAtOffset(t *testing.T) {
	q := &queueChannel{}
	queueDataExchangeReply(q, 0x00, []byte{byte(StatusSuccess)})

	tag := newTestTag(q)
	sec := FileSecurityPlain
	require.NoError(t, tag.WriteData(0x03, 0x10, []byte{0xDE, 0xAD}, &sec))
	require.Len(t, q.sent, 2) // command frame + final ack
}

// TestGetValueParsesBalance confirms GetValue decodes the 4-byte LE value
// out of the unwrapped reply.
func TestGetValueParsesBalance(t *testing.T) {
	q := &queueChannel{}
	reply := append(le4(12345), byte(StatusSuccess))
	queueDataExchangeReply(q, 0x00, reply)

	tag := newTestTag(q)
	sec := FileSecurityPlain
	v, err := tag.GetValue(0x05, &sec)
	require.NoError(t, err)
	assert.Equal(t, int32(12345), v)
}

// TestCreditDebitRejectNegativeAmount confirms valueOp's guard fires before
// any exchange is attempted.
func TestCreditDebitRejectNegativeAmount(t *testing.T) {
	tag := newTestTag(&queueChannel{})
	sec := FileSecurityPlain
	assert.Error(t, tag.Credit(0x05, -1, &sec))
	assert.Error(t, tag.Debit(0x05, -1, &sec))
}

// TestReadRecordsSplitsByRecordSize confirms the plain payload is chopped
// into recordSize-sized chunks.
func TestReadRecordsSplitsByRecordSize(t *testing.T) {
	q := &queueChannel{}
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	queueDataExchangeReply(q, 0x00, append(append([]byte{}, payload...), byte(StatusSuccess)))

	tag := newTestTag(q)
	sec := FileSecurityPlain
	records, err := tag.ReadRecords(0x06, 0, 2, 3, &sec)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, records[0])
	assert.Equal(t, []byte{0x04, 0x05, 0x06}, records[1])
}
