package desfire

// Command codes, all single-byte.
const (
	CmdAuthenticateLegacy byte = 0x0A // DES / 3DES-2K
	CmdAuthenticateISO    byte = 0x1A // 3DES-3K
	CmdAuthenticateAES    byte = 0xAA

	CmdCreateApplication byte = 0xCA
	CmdDeleteApplication byte = 0xDA
	CmdGetApplicationIDs byte = 0x6A
	CmdSelectApplication byte = 0x5A
	CmdFormatPICC        byte = 0xFC
	CmdGetAppSettings    byte = 0x45
	CmdChangeAppSettings byte = 0x54
	CmdChangeKey         byte = 0xC4
	CmdGetKeyVersion     byte = 0x64

	CmdGetFileIDs        byte = 0x6F
	CmdGetFileSettings   byte = 0xF5
	CmdChangeFileSettings byte = 0x5F
	CmdCreateStdDataFile byte = 0xCD
	CmdCreateBackupFile  byte = 0xCB
	CmdCreateValueFile   byte = 0xCC
	CmdCreateLinearFile  byte = 0xC1
	CmdCreateCyclicFile  byte = 0xC0
	CmdDeleteFile        byte = 0xDF

	CmdReadData  byte = 0xBD
	CmdWriteData byte = 0x3D

	CmdGetValue         byte = 0x6C
	CmdCredit           byte = 0x0C
	CmdDebit            byte = 0xDC
	CmdLimitedCredit    byte = 0x1C

	CmdReadRecords  byte = 0xBB
	CmdWriteRecord  byte = 0x3B
	CmdClearRecordFile byte = 0xEB

	CmdCommitTransaction byte = 0xC7
	CmdAbortTransaction  byte = 0xA7

	CmdGetCardUID byte = 0x51
	CmdGetFreeMem byte = 0x6E
	CmdSetConfiguration byte = 0x5C

	CmdAdditionalFrame byte = 0xAF
)
