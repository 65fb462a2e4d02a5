// Package sshtest runs an in-process SSH server for tests. It supports
// password and public key auth, PTY shells that echo their input, and the
// sftp subsystem backed by the local filesystem.
package sshtest

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/sshkeys"
)

// Banner is written to every shell right after it starts.
const Banner = "welcome\r\n"

// ExitCommand closes the shell channel when received as a whole message.
const ExitCommand = "exit\r"

// Server is a running test SSH server.
type Server struct {
	Host string
	Port int

	User     string
	Password string

	listener net.Listener
	done     chan struct{}

	mu          sync.Mutex
	authorized  []ssh.PublicKey
	activeConns map[*ssh.ServerConn]struct{}
}

// NewServer starts a server accepting user/password. It is stopped when the
// test ends.
func NewServer(t *testing.T, user, password string) *Server {
	t.Helper()

	_, hostKeyPEM, err := sshkeys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := sshkeys.ParsePrivateKey(hostKeyPEM, "")
	if err != nil {
		t.Fatalf("parse host key: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	host, portStr, _ := net.SplitHostPort(listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	s := &Server{
		Host:        host,
		Port:        port,
		User:        user,
		Password:    password,
		listener:    listener,
		done:        make(chan struct{}),
		activeConns: make(map[*ssh.ServerConn]struct{}),
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if conn.User() == s.User && string(pw) == s.Password && s.Password != "" {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("password rejected for %q", conn.User())
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, k := range s.authorized {
				if bytes.Equal(k.Marshal(), key.Marshal()) && conn.User() == s.User {
					return &ssh.Permissions{}, nil
				}
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	config.AddHostKey(hostSigner)

	go func() {
		defer close(s.done)
		for {
			netConn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.handleConn(netConn, config)
		}
	}()

	t.Cleanup(s.Close)
	return s
}

// Authorize allows public key auth with key for the server's user.
func (s *Server) Authorize(key ssh.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = append(s.authorized, key)
}

// ActiveConns returns the number of SSH connections currently open.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Close stops accepting and drops every open connection.
func (s *Server) Close() {
	s.listener.Close()
	<-s.done
	s.mu.Lock()
	for c := range s.activeConns {
		c.Close()
	}
	s.mu.Unlock()
}

func (s *Server) handleConn(netConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, config)
	if err != nil {
		netConn.Close()
		return
	}
	s.mu.Lock()
	s.activeConns[sshConn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.activeConns, sshConn)
		s.mu.Unlock()
		sshConn.Close()
	}()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "pty-req", "window-change", "env":
			if req.WantReply {
				req.Reply(true, nil)
			}
		case "shell":
			if req.WantReply {
				req.Reply(true, nil)
			}
			go echoShell(ch)
		case "subsystem":
			name := ""
			if len(req.Payload) > 4 {
				name = string(req.Payload[4:])
			}
			if name != "sftp" {
				req.Reply(false, nil)
				ch.Close()
				return
			}
			req.Reply(true, nil)
			go func() {
				defer ch.Close()
				server, err := sftp.NewServer(ch)
				if err != nil {
					return
				}
				server.Serve()
			}()
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// echoShell writes Banner and then echoes every chunk back until it sees
// ExitCommand or the client goes away.
func echoShell(ch ssh.Channel) {
	defer ch.Close()
	ch.Write([]byte(Banner))
	buf := make([]byte, 4096)
	for {
		n, err := ch.Read(buf)
		if n > 0 {
			if string(buf[:n]) == ExitCommand {
				ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
				return
			}
			if _, werr := ch.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
