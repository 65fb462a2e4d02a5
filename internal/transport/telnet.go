package transport

import (
	"context"
	"io"
	"net"
	"strconv"

	"github.com/ziutek/telnet"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type telnetAdapter struct {
	conn *telnet.Conn
	text io.Reader
}

// DialTelnet opens a Telnet session with default option negotiation.
// Output is decoded as UTF-8; a multi-byte sequence split across reads is
// held back until it completes, and invalid bytes become U+FFFD.
func DialTelnet(ctx context.Context, p *TelnetParams, opts Options) (Adapter, error) {
	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	dialer := net.Dialer{Timeout: opts.connectTimeout()}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Transport: KindTelnet, Target: p.Target(), Err: err}
	}

	conn, err := telnet.NewConn(netConn)
	if err != nil {
		netConn.Close()
		return nil, &ConnectError{Transport: KindTelnet, Target: p.Target(), Err: err}
	}

	return &telnetAdapter{
		conn: conn,
		text: transform.NewReader(conn, unicode.UTF8.NewDecoder()),
	}, nil
}

func (a *telnetAdapter) Kind() Kind       { return KindTelnet }
func (a *telnetAdapter) TextOutput() bool { return true }

func (a *telnetAdapter) Read(p []byte) (int, error) {
	n, err := a.text.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (a *telnetAdapter) Write(p []byte) (int, error) {
	return a.conn.Write(p)
}

func (a *telnetAdapter) Close() error {
	return a.conn.Close()
}
