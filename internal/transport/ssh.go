package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/sshkeys"
)

// errNoAuth is returned when neither a password nor a usable key is given.
var errNoAuth = errors.New("password or private key required")

type sshAdapter struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	closeOnce sync.Once
	closeErr  error
}

// DialSSH connects, authenticates and starts an interactive shell on a PTY.
func DialSSH(ctx context.Context, p *SSHParams, opts Options) (Adapter, error) {
	client, err := DialSSHClient(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	a, err := startShell(client)
	if err != nil {
		client.Close()
		return nil, &ConnectError{Transport: KindSSH, Target: p.Target(), Err: err}
	}
	return a, nil
}

// DialSSHClient connects and authenticates without opening a session. The
// caller owns the returned client.
func DialSSHClient(ctx context.Context, p *SSHParams, opts Options) (*ssh.Client, error) {
	cfg, err := sshClientConfig(p, opts)
	if err != nil {
		return nil, &ConnectError{Transport: KindSSH, Target: p.Target(), Err: err}
	}

	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	timeout := opts.connectTimeout()

	dialer := net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Transport: KindSSH, Target: p.Target(), Err: err}
	}

	// The handshake is not context-aware; bound it with a deadline.
	netConn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, &ConnectError{Transport: KindSSH, Target: p.Target(), Err: err}
	}
	netConn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func sshClientConfig(p *SSHParams, opts Options) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if p.PrivateKey != "" {
		signer, err := sshkeys.LoadSigner(p.PrivateKey, p.Passphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if p.Password != "" {
		auth = append(auth, ssh.Password(p.Password))
	}
	if len(auth) == 0 {
		return nil, errNoAuth
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHostsPath != "" {
		cb, err := knownhosts.New(opts.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            p.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.connectTimeout(),
	}, nil
}

func startShell(client *ssh.Client) (*sshAdapter, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create ssh session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", 24, 80, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	return &sshAdapter{
		client:  client,
		session: session,
		stdin:   stdin,
		stdout:  stdout,
	}, nil
}

func (a *sshAdapter) Kind() Kind       { return KindSSH }
func (a *sshAdapter) TextOutput() bool { return false }

func (a *sshAdapter) Read(p []byte) (int, error) {
	n, err := a.stdout.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (a *sshAdapter) Write(p []byte) (int, error) {
	return a.stdin.Write(p)
}

func (a *sshAdapter) Close() error {
	a.closeOnce.Do(func() {
		a.session.Close()
		a.closeErr = a.client.Close()
	})
	return a.closeErr
}
