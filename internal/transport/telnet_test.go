package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

const (
	iac  = 255
	do   = 253
	echo = 1
)

// telnetServer accepts one connection and hands it to serve.
func telnetServer(t *testing.T, serve func(net.Conn)) *TelnetParams {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return &TelnetParams{Host: host, Port: port}
}

func readAll(t *testing.T, a Adapter) (string, error) {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, ChunkSize)
	for {
		n, err := a.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			return sb.String(), err
		}
	}
}

func TestDialTelnet_DecodesSplitUTF8AndEOF(t *testing.T) {
	params := telnetServer(t, func(conn net.Conn) {
		conn.Write([]byte{iac, do, echo})
		conn.Write([]byte("h\xc3"))
		time.Sleep(50 * time.Millisecond)
		conn.Write([]byte("\xa9llo!"))
		time.Sleep(50 * time.Millisecond)
	})

	a, err := DialTelnet(context.Background(), params, Options{})
	if err != nil {
		t.Fatalf("DialTelnet: %v", err)
	}
	defer a.Close()

	if !a.TextOutput() {
		t.Error("telnet output should be text")
	}

	got, err := readAll(t, a)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at remote close, got %v", err)
	}
	if got != "héllo!" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestDialTelnet_InvalidBytesReplaced(t *testing.T) {
	params := telnetServer(t, func(conn net.Conn) {
		conn.Write([]byte("a\xc0b"))
	})

	a, err := DialTelnet(context.Background(), params, Options{})
	if err != nil {
		t.Fatalf("DialTelnet: %v", err)
	}
	defer a.Close()

	got, _ := readAll(t, a)
	if got != "a\uFFFDb" {
		t.Errorf("expected invalid byte replaced, got %q", got)
	}
}

func TestDialTelnet_WriteReachesServer(t *testing.T) {
	received := make(chan string, 1)
	params := telnetServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
	})

	a, err := DialTelnet(context.Background(), params, Options{})
	if err != nil {
		t.Fatalf("DialTelnet: %v", err)
	}
	defer a.Close()

	if _, err := a.Write([]byte("help\r")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case got := <-received:
		if got != "help\r" {
			t.Errorf("server received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive data")
	}
}

func TestDialTelnet_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	_, err = DialTelnet(context.Background(), &TelnetParams{Host: host, Port: port}, Options{ConnectTimeout: time.Second})
	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConnectError, got %T: %v", err, err)
	}
	if cerr.Transport != KindTelnet {
		t.Errorf("unexpected transport %s", cerr.Transport)
	}
}
