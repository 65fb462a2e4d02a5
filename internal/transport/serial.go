package transport

import (
	"errors"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialPollInterval is the read timeout of an open serial device. A read
// with nothing available returns after this long with zero bytes.
const SerialPollInterval = 100 * time.Millisecond

// serialOpener is replaced in tests.
var serialOpener = func(device string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(SerialPollInterval); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

type serialAdapter struct {
	port io.ReadWriteCloser
}

// OpenSerial opens the device at the requested baud rate.
func OpenSerial(p *SerialParams) (Adapter, error) {
	port, err := serialOpener(p.Device, p.BaudRate)
	if err != nil {
		return nil, &ConnectError{Transport: KindSerial, Target: p.Target(), Err: err}
	}
	return &serialAdapter{port: port}, nil
}

func (a *serialAdapter) Kind() Kind       { return KindSerial }
func (a *serialAdapter) TextOutput() bool { return false }

// Read returns whatever arrived within SerialPollInterval. It never returns
// io.EOF; an idle line yields 0, nil.
func (a *serialAdapter) Read(p []byte) (int, error) {
	n, err := a.port.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (a *serialAdapter) Write(p []byte) (int, error) {
	return a.port.Write(p)
}

func (a *serialAdapter) Close() error {
	return a.port.Close()
}
