package ads

import (
	"encoding/binary"
	"testing"
)

func TestReadStateResponseUnmarshal(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], 0)
	binary.LittleEndian.PutUint16(data[4:6], uint16(StateRun))
	binary.LittleEndian.PutUint16(data[6:8], 37)

	var resp ReadStateResponse
	if err := resp.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if resp.Result != ErrNoError {
		t.Errorf("Result = %v", resp.Result)
	}
	if resp.ADSState != StateRun {
		t.Errorf("ADSState = %v, want Run", resp.ADSState)
	}
	if resp.DeviceState != 37 {
		t.Errorf("DeviceState = %d, want 37", resp.DeviceState)
	}
}

func TestReadStateResponseShort(t *testing.T) {
	var resp ReadStateResponse
	if err := resp.UnmarshalBinary(make([]byte, 7)); err == nil {
		t.Error("UnmarshalBinary accepted 7 bytes")
	}
}

func TestReadDeviceInfoResponseUnmarshal(t *testing.T) {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint32(data[0:4], 0)
	data[4] = 3
	data[5] = 1
	binary.LittleEndian.PutUint16(data[6:8], 4024)
	copy(data[8:24], "TwinCAT System")

	var resp ReadDeviceInfoResponse
	if err := resp.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if resp.MajorVersion != 3 || resp.MinorVersion != 1 || resp.VersionBuild != 4024 {
		t.Errorf("version = %d.%d.%d", resp.MajorVersion, resp.MinorVersion, resp.VersionBuild)
	}
	if resp.DeviceName != "TwinCAT System" {
		t.Errorf("DeviceName = %q", resp.DeviceName)
	}
}

func TestReadDeviceInfoResponseFullNameField(t *testing.T) {
	data := make([]byte, 24)
	copy(data[8:24], "ABCDEFGHIJKLMNOP") // 16 bytes, no terminator

	var resp ReadDeviceInfoResponse
	if err := resp.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if resp.DeviceName != "ABCDEFGHIJKLMNOP" {
		t.Errorf("DeviceName = %q", resp.DeviceName)
	}
}

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		err  Error
		want string
	}{
		{ErrNoError, "no error"},
		{ErrTargetPortNotFound, "target port not found"},
		{ErrDeviceInvalidState, "invalid device state"},
		{Error(0xABCD), "ADS error 0xABCD"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error(0x%04X).Error() = %q, want %q", uint32(tt.err), got, tt.want)
		}
	}
}

func TestCommandIDString(t *testing.T) {
	if got := CmdReadState.String(); got != "ReadState" {
		t.Errorf("CmdReadState.String() = %q", got)
	}
	if got := CommandID(0x1234).String(); got != "Command(0x1234)" {
		t.Errorf("unknown command String() = %q", got)
	}
}
