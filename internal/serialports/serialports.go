// Package serialports lists the serial devices the OS currently reports.
package serialports

import (
	"fmt"

	"go.bug.st/serial"
)

var listPorts = serial.GetPortsList

// List returns the available device paths. The result is never nil and is
// not cached.
func List() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}
