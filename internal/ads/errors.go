package ads

import "fmt"

// Error is an ADS device error code as carried in the AMS header or in a
// command response result field.
type Error uint32

const (
	ErrNoError                   Error = 0x0000
	ErrInternal                  Error = 0x0001
	ErrNoRuntime                 Error = 0x0002
	ErrAllocationLockedMemory    Error = 0x0003
	ErrInsertMailbox             Error = 0x0004
	ErrWrongReceiveHMSG          Error = 0x0005
	ErrTargetPortNotFound        Error = 0x0006
	ErrTargetMachineNotFound     Error = 0x0007
	ErrUnknownCommandID          Error = 0x0008
	ErrBadTaskID                 Error = 0x0009
	ErrNoIO                      Error = 0x000A
	ErrUnknownAMSCommand         Error = 0x000B
	ErrWin32Error                Error = 0x000C
	ErrPortNotConnected          Error = 0x000D
	ErrInvalidAMSLength          Error = 0x000E
	ErrInvalidAMSNetID           Error = 0x000F
	ErrLowInstallLevel           Error = 0x0010
	ErrNoDebugAvailable          Error = 0x0011
	ErrPortDisabled              Error = 0x0012
	ErrPortAlreadyConnected      Error = 0x0013
	ErrAMSSyncWin32Error         Error = 0x0014
	ErrAMSSyncTimeout            Error = 0x0015
	ErrAMSSyncAMSError           Error = 0x0016
	ErrAMSSyncNoIndexMap         Error = 0x0017
	ErrInvalidAMSPort            Error = 0x0018
	ErrNoMemory                  Error = 0x0019
	ErrTCPSendError              Error = 0x001A
	ErrHostUnreachable           Error = 0x001B
	ErrInvalidAMSFragment        Error = 0x001C
	ErrDeviceError               Error = 0x0700
	ErrDeviceServiceNotSupported Error = 0x0701
	ErrDeviceInvalidIndexGroup   Error = 0x0702
	ErrDeviceInvalidIndexOffset  Error = 0x0703
	ErrDeviceInvalidAccess       Error = 0x0704
	ErrDeviceInvalidSize         Error = 0x0705
	ErrDeviceInvalidData         Error = 0x0706
	ErrDeviceNotReady            Error = 0x0707
	ErrDeviceBusy                Error = 0x0708
	ErrDeviceInvalidContext      Error = 0x0709
	ErrDeviceNoMemory            Error = 0x070A
	ErrDeviceInvalidParameter    Error = 0x070B
	ErrDeviceNotFound            Error = 0x070C
	ErrDeviceSyntaxError         Error = 0x070D
	ErrDeviceIncompatible        Error = 0x070E
	ErrDeviceInvalidState        Error = 0x0712
	ErrDeviceTimeout             Error = 0x0745
	ErrClientInvalidParameter    Error = 0x0746
	ErrClientPortNotOpen         Error = 0x0748
)

var errorNames = map[Error]string{
	ErrNoError:                   "no error",
	ErrInternal:                  "internal error",
	ErrNoRuntime:                 "no runtime",
	ErrAllocationLockedMemory:    "allocation of locked memory failed",
	ErrInsertMailbox:             "mailbox full",
	ErrWrongReceiveHMSG:          "wrong receive HMSG",
	ErrTargetPortNotFound:        "target port not found",
	ErrTargetMachineNotFound:     "target machine not found",
	ErrUnknownCommandID:          "unknown command ID",
	ErrBadTaskID:                 "bad task ID",
	ErrNoIO:                      "no IO",
	ErrUnknownAMSCommand:         "unknown AMS command",
	ErrWin32Error:                "win32 error",
	ErrPortNotConnected:          "port not connected",
	ErrInvalidAMSLength:          "invalid AMS length",
	ErrInvalidAMSNetID:           "invalid AMS net ID",
	ErrLowInstallLevel:           "installation level too low",
	ErrNoDebugAvailable:          "no debugging available",
	ErrPortDisabled:              "port disabled",
	ErrPortAlreadyConnected:      "port already connected",
	ErrAMSSyncWin32Error:         "AMS sync win32 error",
	ErrAMSSyncTimeout:            "AMS sync timeout",
	ErrAMSSyncAMSError:           "AMS sync error",
	ErrAMSSyncNoIndexMap:         "no AMS sync index map",
	ErrInvalidAMSPort:            "invalid AMS port",
	ErrNoMemory:                  "out of memory",
	ErrTCPSendError:              "TCP send error",
	ErrHostUnreachable:           "host unreachable",
	ErrInvalidAMSFragment:        "invalid AMS fragment",
	ErrDeviceError:               "device error",
	ErrDeviceServiceNotSupported: "service not supported by device",
	ErrDeviceInvalidIndexGroup:   "invalid index group",
	ErrDeviceInvalidIndexOffset:  "invalid index offset",
	ErrDeviceInvalidAccess:       "reading or writing not permitted",
	ErrDeviceInvalidSize:         "parameter size not correct",
	ErrDeviceInvalidData:         "invalid data values",
	ErrDeviceNotReady:            "device not in ready state",
	ErrDeviceBusy:                "device busy",
	ErrDeviceInvalidContext:      "invalid OS context",
	ErrDeviceNoMemory:            "out of device memory",
	ErrDeviceInvalidParameter:    "invalid parameter values",
	ErrDeviceNotFound:            "not found",
	ErrDeviceSyntaxError:         "syntax error in command or file",
	ErrDeviceIncompatible:        "objects do not match",
	ErrDeviceInvalidState:        "invalid device state",
	ErrDeviceTimeout:             "device timeout",
	ErrClientInvalidParameter:    "invalid client parameter",
	ErrClientPortNotOpen:         "client port not open",
}

func (e Error) Error() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ADS error 0x%04X", uint32(e))
}

func (e Error) IsError() bool {
	return e != ErrNoError
}
