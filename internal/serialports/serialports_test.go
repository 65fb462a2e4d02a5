package serialports

import (
	"errors"
	"testing"
)

func stubPorts(t *testing.T, ports []string, err error) {
	t.Helper()
	orig := listPorts
	listPorts = func() ([]string, error) { return ports, err }
	t.Cleanup(func() { listPorts = orig })
}

func TestList_NoDevicesIsEmptySlice(t *testing.T) {
	stubPorts(t, nil, nil)
	ports, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if ports == nil || len(ports) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", ports)
	}
}

func TestList_ReturnsDevices(t *testing.T) {
	stubPorts(t, []string{"/dev/ttyUSB0", "/dev/ttyS0"}, nil)
	ports, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ports) != 2 || ports[0] != "/dev/ttyUSB0" {
		t.Errorf("unexpected ports %v", ports)
	}
}

func TestList_Error(t *testing.T) {
	stubPorts(t, nil, errors.New("permission denied"))
	if _, err := List(); err == nil {
		t.Error("expected error")
	}
}
