// Package relay pairs a client duplex channel with a transport adapter and
// pumps bytes between them until either side ends.
//
// Each Session runs two directions concurrently: client messages are written
// to the adapter one write per message, and adapter output is read in
// transport.ChunkSize chunks and sent to the client as binary frames (text
// frames for Telnet). The first direction to finish cancels the other.
// Sessions never retry or reconnect.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

// ErrClosedByServer is returned by Run when the session was closed through
// Session.Close rather than by either endpoint.
var ErrClosedByServer = errors.New("session closed by server")

var (
	errClientClosed = errors.New("client closed")
	errRemoteClosed = errors.New("remote closed")
)

// errorLineTimeout bounds the write of a final error line to the client.
const errorLineTimeout = 5 * time.Second

// Channel is the client side of a relay: one message per Read/Write.
// *websocket.Conn satisfies it.
type Channel interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// ErrorLine formats the status line sent to a client when a session fails.
func ErrorLine(kind transport.Kind, err error) string {
	return fmt.Sprintf("[%s] Error: %v\n", kind.Label(), err)
}

// ConnectedLine formats the status line sent once the adapter is open.
func ConnectedLine(kind transport.Kind) string {
	return fmt.Sprintf("[%s] Connected.\n", kind.Label())
}

// Session is one client channel relayed to one adapter.
type Session struct {
	ID        string
	Kind      transport.Kind
	Target    string
	CreatedAt time.Time

	bytesIn  atomic.Int64 // client -> remote
	bytesOut atomic.Int64 // remote -> client

	mu          sync.Mutex
	state       State
	closedAt    time.Time
	transitions []Transition
	cancel      context.CancelFunc
	closeReq    bool
}

func newSession(id string, kind transport.Kind, target string) *Session {
	return &Session{
		ID:        id,
		Kind:      kind,
		Target:    target,
		CreatedAt: time.Now(),
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClosedAt returns when the session closed, or the zero time.
func (s *Session) ClosedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closedAt
}

// Transitions returns the recorded state changes in order.
func (s *Session) Transitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// SetState moves the session to state. Invalid transitions are ignored and
// reported as false.
func (s *Session) SetState(state State, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStateLocked(state, reason)
}

func (s *Session) setStateLocked(state State, reason string) bool {
	if !canTransition(s.state, state) {
		return false
	}
	s.transitions = append(s.transitions, Transition{
		From:      s.state,
		To:        state,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	s.state = state
	if state == StateClosed {
		s.closedAt = time.Now()
	}
	return true
}

// Close requests termination. A relaying session is cancelled and finishes
// asynchronously; a session that has not started relaying is marked closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeReq = true
	if s.cancel != nil {
		s.cancel()
		return
	}
	s.setStateLocked(StateClosed, "closed by server")
}

// Run relays between ch and a until termination, then closes a. It returns
// nil when either endpoint closed normally, ErrClosedByServer after Close,
// or the *transport.IOError that ended the session. On an IOError one
// ErrorLine is sent to the client before returning.
//
// Run leaves ch open so the caller can send a close code. The client read
// may still be pending when Run returns; closing ch releases it.
func (s *Session) Run(parent context.Context, ch Channel, a transport.Adapter) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	if s.closeReq {
		s.setStateLocked(StateClosed, "closed by server")
		s.mu.Unlock()
		a.Close()
		return ErrClosedByServer
	}
	s.cancel = cancel
	s.setStateLocked(StateRelaying, "adapter connected")
	s.mu.Unlock()

	var closeOnce sync.Once
	closeAdapter := func() {
		closeOnce.Do(func() { a.Close() })
	}
	defer closeAdapter()

	// The client channel is only used with parent. Cancelling a websocket
	// read or write tears the connection down, and the caller still needs
	// it for the error line and the close code.
	g, gctx := errgroup.WithContext(ctx)
	inbound := make(chan error, 1)
	go func() { inbound <- s.pumpInbound(parent, gctx, ch, a) }()

	g.Go(func() error {
		<-gctx.Done()
		closeAdapter()
		return nil
	})
	g.Go(func() error { return s.pumpOutbound(parent, gctx, ch, a) })
	g.Go(func() error {
		select {
		case err := <-inbound:
			return err
		case <-gctx.Done():
			return gctx.Err()
		}
	})
	err := g.Wait()

	s.mu.Lock()
	forced := s.closeReq
	s.mu.Unlock()

	var result error
	reason := "client closed"
	switch {
	case errors.Is(err, errClientClosed):
	case errors.Is(err, errRemoteClosed):
		reason = "remote closed"
	case forced:
		reason = "closed by server"
		result = ErrClosedByServer
	case err == nil || errors.Is(err, context.Canceled):
		reason = "cancelled"
	default:
		reason = err.Error()
		result = err
		wctx, wcancel := context.WithTimeout(context.WithoutCancel(parent), errorLineTimeout)
		ch.Write(wctx, websocket.MessageText, []byte(ErrorLine(s.Kind, err)))
		wcancel()
	}

	s.SetState(StateClosed, reason)
	log.Printf("[relay] session %s closed: %s (in=%d out=%d)", s.ID, reason, s.bytesIn.Load(), s.bytesOut.Load())
	return result
}

// pumpInbound forwards each client message to the adapter as one write.
// It reads with ctx and classifies failures against stop, which ends when
// the session terminates.
func (s *Session) pumpInbound(ctx, stop context.Context, ch Channel, a transport.Adapter) error {
	for {
		_, data, err := ch.Read(ctx)
		if err != nil {
			if stop.Err() != nil {
				return stop.Err()
			}
			return errClientClosed
		}
		if len(data) == 0 {
			continue
		}
		if _, err := a.Write(data); err != nil {
			if stop.Err() != nil {
				return stop.Err()
			}
			return &transport.IOError{Transport: s.Kind, Op: "write", Err: err}
		}
		s.bytesIn.Add(int64(len(data)))
	}
}

// pumpOutbound forwards adapter output to the client. Empty reads without an
// error (serial polling) are skipped; io.EOF ends the direction. The adapter
// is closed when stop ends, which unblocks a pending Read.
func (s *Session) pumpOutbound(ctx, stop context.Context, ch Channel, a transport.Adapter) error {
	typ := websocket.MessageBinary
	if a.TextOutput() {
		typ = websocket.MessageText
	}

	buf := make([]byte, transport.ChunkSize)
	for {
		n, err := a.Read(buf)
		if n > 0 {
			if werr := ch.Write(ctx, typ, buf[:n]); werr != nil {
				if stop.Err() != nil {
					return stop.Err()
				}
				return errClientClosed
			}
			s.bytesOut.Add(int64(n))
		}
		if err != nil {
			if stop.Err() != nil {
				return stop.Err()
			}
			if errors.Is(err, io.EOF) {
				return errRemoteClosed
			}
			return &transport.IOError{Transport: s.Kind, Op: "read", Err: err}
		}
		if stop.Err() != nil {
			return stop.Err()
		}
	}
}

// Info is a JSON-friendly snapshot of a session.
type Info struct {
	ID          string       `json:"id"`
	Transport   string       `json:"transport"`
	Target      string       `json:"target"`
	State       State        `json:"state"`
	CreatedAt   time.Time    `json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
	BytesIn     int64        `json:"bytes_in"`
	BytesOut    int64        `json:"bytes_out"`
	Transitions []Transition `json:"transitions"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:          s.ID,
		Transport:   string(s.Kind),
		Target:      s.Target,
		State:       s.state,
		CreatedAt:   s.CreatedAt,
		BytesIn:     s.bytesIn.Load(),
		BytesOut:    s.bytesOut.Load(),
		Transitions: append([]Transition(nil), s.transitions...),
	}
	if !s.closedAt.IsZero() {
		t := s.closedAt
		info.ClosedAt = &t
	}
	return info
}
