package pn532

// Cmd is a PN532 command code. Reply codes are always cmd+1.
type Cmd byte

const (
	CmdDiagnose              Cmd = 0x00
	CmdGetFirmwareVersion    Cmd = 0x02
	CmdGetGeneralStatus      Cmd = 0x04
	CmdReadRegister          Cmd = 0x06
	CmdWriteRegister         Cmd = 0x08
	CmdReadGPIO              Cmd = 0x0C
	CmdWriteGPIO             Cmd = 0x0E
	CmdSetSerialBaudRate     Cmd = 0x10
	CmdSetParameters         Cmd = 0x12
	CmdSAMConfiguration      Cmd = 0x14
	CmdPowerDown             Cmd = 0x16
	CmdRFConfiguration       Cmd = 0x32
	CmdRFRegulationTest      Cmd = 0x58
	CmdInJumpForDEP          Cmd = 0x56
	CmdInJumpForPSL          Cmd = 0x46
	CmdInListPassiveTarget   Cmd = 0x4A
	CmdInATR                 Cmd = 0x50
	CmdInPSL                 Cmd = 0x4E
	CmdInDataExchange        Cmd = 0x40
	CmdInCommunicateThru     Cmd = 0x42
	CmdInDeselect            Cmd = 0x44
	CmdInRelease             Cmd = 0x52
	CmdInSelect              Cmd = 0x54
	CmdInAutoPoll            Cmd = 0x60
	CmdTgInitAsTarget        Cmd = 0x8C
	CmdTgSetGeneralBytes     Cmd = 0x92
	CmdTgGetData             Cmd = 0x86
	CmdTgSetData             Cmd = 0x8E
	CmdTgSetMetaData         Cmd = 0x94
	CmdTgGetInitiatorCommand Cmd = 0x88
	CmdTgResponseToInitiator Cmd = 0x90
	CmdTgGetTargetStatus     Cmd = 0x8A
)

// ReplyCode returns the expected reply command code for a request code.
func ReplyCode(cmd Cmd) byte { return byte(cmd) + 1 }

// Status is the PN532 status byte attached to most responses: bit 7 = NAD
// present, bit 6 = more-info (chaining), bits 5..0 = internal error code.
type Status byte

func (s Status) NADPresent() bool     { return s&0x80 != 0 }
func (s Status) MoreInfo() bool       { return s&0x40 != 0 }
func (s Status) InternalError() InternalError {
	return InternalError(s & 0x3F)
}
func (s Status) IsSuccess() bool { return s.InternalError().IsSuccess() }
