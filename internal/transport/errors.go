package transport

import "fmt"

// ProtocolError reports a malformed or incomplete connection-parameters
// message. No adapter is opened when it is returned.
type ProtocolError struct {
	Transport Kind
	Detail    string
	Err       error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid connection parameters: %s: %v", e.Detail, e.Err)
	}
	return "invalid connection parameters: " + e.Detail
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ConnectError reports a dial, handshake or authentication failure.
type ConnectError struct {
	Transport Kind
	Target    string
	Err       error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IOError reports a read or write failure on an established session.
type IOError struct {
	Transport Kind
	Op        string // "read" or "write"
	Err       error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
