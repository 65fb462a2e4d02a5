// Package transport opens byte-stream sessions to SSH hosts, Telnet hosts and
// serial devices behind a single Adapter interface.
//
// The wire protocols themselves are delegated to libraries:
// golang.org/x/crypto/ssh, github.com/ziutek/telnet and go.bug.st/serial.
// This package only normalizes how a session is opened, read, written and
// closed so the relay can treat all three the same way.
//
// # End of stream
//
// SSH and Telnet adapters report remote close as io.EOF; a zero-byte read is
// reported as io.EOF too. The serial adapter never reports io.EOF: a serial
// line has no far-end close, so a read that times out returns 0, nil.
package transport

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ChunkSize is the read size used when pumping adapter output to a client.
const ChunkSize = 1024

// DefaultConnectTimeout bounds dial and handshake when Options leaves it zero.
const DefaultConnectTimeout = 15 * time.Second

// Kind identifies a transport variant.
type Kind string

const (
	KindSSH    Kind = "ssh"
	KindTelnet Kind = "telnet"
	KindSerial Kind = "serial"
)

// Label returns the display name used in client-facing status lines.
func (k Kind) Label() string {
	switch k {
	case KindSSH:
		return "SSH"
	case KindTelnet:
		return "Telnet"
	case KindSerial:
		return "Serial"
	default:
		return string(k)
	}
}

// Adapter is an open byte-stream session.
type Adapter interface {
	io.ReadWriteCloser
	Kind() Kind
	// TextOutput reports whether output should be delivered to clients as
	// text frames rather than binary frames.
	TextOutput() bool
}

// Options tunes how adapters dial.
type Options struct {
	ConnectTimeout time.Duration
	// KnownHostsPath enables SSH host key verification against an OpenSSH
	// known_hosts file. Empty means unknown hosts are trusted.
	KnownHostsPath string
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return o.ConnectTimeout
}

// DialFunc opens an adapter for parsed connection parameters.
type DialFunc func(ctx context.Context, p Params, opts Options) (Adapter, error)

// Dial opens the adapter matching the concrete type of p.
func Dial(ctx context.Context, p Params, opts Options) (Adapter, error) {
	switch p := p.(type) {
	case *SSHParams:
		return DialSSH(ctx, p, opts)
	case *TelnetParams:
		return DialTelnet(ctx, p, opts)
	case *SerialParams:
		return OpenSerial(p)
	default:
		return nil, fmt.Errorf("unsupported connection parameters %T", p)
	}
}
