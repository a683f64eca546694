// Package ads implements ADS (Automation Device Specification) command handling.
package ads

import (
	"encoding/binary"
	"fmt"
)

type CommandID uint16

const (
	CmdInvalid               CommandID = 0x0000
	CmdReadDeviceInfo        CommandID = 0x0001
	CmdRead                  CommandID = 0x0002
	CmdWrite                 CommandID = 0x0003
	CmdReadState             CommandID = 0x0004
	CmdWriteControl          CommandID = 0x0005
	CmdAddDeviceNotification CommandID = 0x0006
	CmdDelDeviceNotification CommandID = 0x0007
	CmdDeviceNotification    CommandID = 0x0008
	CmdReadWrite             CommandID = 0x0009
)

func (c CommandID) String() string {
	switch c {
	case CmdReadDeviceInfo:
		return "ReadDeviceInfo"
	case CmdRead:
		return "Read"
	case CmdWrite:
		return "Write"
	case CmdReadState:
		return "ReadState"
	case CmdWriteControl:
		return "WriteControl"
	case CmdAddDeviceNotification:
		return "AddDeviceNotification"
	case CmdDelDeviceNotification:
		return "DeleteDeviceNotification"
	case CmdDeviceNotification:
		return "DeviceNotification"
	case CmdReadWrite:
		return "ReadWrite"
	default:
		return fmt.Sprintf("Command(0x%04X)", uint16(c))
	}
}

type ADSState uint16

const (
	StateInvalid    ADSState = 0
	StateIdle       ADSState = 1
	StateReset      ADSState = 2
	StateInit       ADSState = 3
	StateStart      ADSState = 4
	StateRun        ADSState = 5
	StateStop       ADSState = 6
	StateSaveConfig ADSState = 7
	StateLoadConfig ADSState = 8
	StatePowerGood  ADSState = 9
	StateError      ADSState = 10
	StateShutdown   ADSState = 11
	StateSuspend    ADSState = 12
	StateResume     ADSState = 13
	StateConfig     ADSState = 14
	StateReconfig   ADSState = 15
	StateStop2      ADSState = 16
)

func (s ADSState) String() string {
	names := [...]string{
		"Invalid", "Idle", "Reset", "Init", "Start", "Run", "Stop",
		"SaveConfig", "LoadConfig", "PowerGood", "Error", "Shutdown",
		"Suspend", "Resume", "Config", "Reconfig", "Stop",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("State(%d)", uint16(s))
}

type ReadStateRequest struct{}

func (r *ReadStateRequest) MarshalBinary() ([]byte, error) {
	return []byte{}, nil
}

type ReadStateResponse struct {
	Result      Error
	ADSState    ADSState
	DeviceState uint16
}

func (r *ReadStateResponse) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("ads: read state response requires 8 bytes, got %d", len(data))
	}
	r.Result = Error(binary.LittleEndian.Uint32(data[0:4]))
	r.ADSState = ADSState(binary.LittleEndian.Uint16(data[4:6]))
	r.DeviceState = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

type ReadDeviceInfoRequest struct{}

func (r *ReadDeviceInfoRequest) MarshalBinary() ([]byte, error) {
	return []byte{}, nil
}

type ReadDeviceInfoResponse struct {
	Result       Error
	MajorVersion uint8
	MinorVersion uint8
	VersionBuild uint16
	DeviceName   string
}

func (r *ReadDeviceInfoResponse) UnmarshalBinary(data []byte) error {
	if len(data) < 24 {
		return fmt.Errorf("ads: read device info response requires 24 bytes, got %d", len(data))
	}
	r.Result = Error(binary.LittleEndian.Uint32(data[0:4]))
	r.MajorVersion = data[4]
	r.MinorVersion = data[5]
	r.VersionBuild = binary.LittleEndian.Uint16(data[6:8])

	nameBytes := data[8:24]
	nameLen := len(nameBytes)
	for i, b := range nameBytes {
		if b == 0 {
			nameLen = i
			break
		}
	}
	r.DeviceName = string(nameBytes[:nameLen])
	return nil
}
