package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/config"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/logutil"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/relay"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

// Close codes sent to relay clients alongside the text status line.
const (
	CloseInvalidParams websocket.StatusCode = 4400
	CloseRelayError    websocket.StatusCode = 4500
	CloseConnectFailed websocket.StatusCode = 4502
)

// relayReadLimit caps one client message; large pastes arrive as one message.
const relayReadLimit = 1 << 20

const statusLineTimeout = 5 * time.Second

// RelayWS returns the WebSocket endpoint for one transport kind.
//
// The first client message carries the connection parameters as JSON. A
// malformed message gets an error line and close code 4400; a failed dial
// gets an error line and 4502. Otherwise the client receives a Connected
// line and the connection is handed to a relay session until either side
// ends.
func RelayWS(kind transport.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, acceptOptions())
		if err != nil {
			log.Printf("[gateway] failed to accept %s websocket: %v", kind, err)
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(relayReadLimit)

		ctx := r.Context()

		_, first, err := conn.Read(ctx)
		if err != nil {
			// Client went away before sending parameters.
			return
		}

		params, err := transport.ParseParams(kind, first)
		if err != nil {
			log.Printf("[gateway] rejected %s parameters: %s", kind,
				logutil.Truncate(logutil.SanitizeForLog(err.Error()), 200))
			sendLine(ctx, conn, relay.ErrorLine(kind, err))
			conn.Close(CloseInvalidParams, "invalid connection parameters")
			return
		}

		target := logutil.SanitizeForLog(params.Target())
		session := Sessions.Create(kind, params.Target())
		session.SetState(relay.StateConnecting, "dialing "+target)

		adapter, err := DialAdapter(ctx, params, dialOptions())
		if err != nil {
			session.SetState(relay.StateClosed, err.Error())
			log.Printf("[gateway] session %s: %s connect to %s failed: %s", session.ID, kind, target,
				logutil.Truncate(logutil.SanitizeForLog(err.Error()), 200))
			sendLine(ctx, conn, relay.ErrorLine(kind, err))
			conn.Close(CloseConnectFailed, "connect failed")
			return
		}
		log.Printf("[gateway] session %s: %s connected to %s", session.ID, kind, target)

		if err := sendLine(ctx, conn, relay.ConnectedLine(kind)); err != nil {
			adapter.Close()
			session.SetState(relay.StateClosed, "client closed")
			return
		}

		err = session.Run(ctx, conn, adapter)
		switch {
		case err == nil:
			conn.Close(websocket.StatusNormalClosure, "")
		case errors.Is(err, relay.ErrClosedByServer):
			conn.Close(websocket.StatusGoingAway, "session closed by server")
		default:
			conn.Close(CloseRelayError, "relay error")
		}
	}
}

func sendLine(ctx context.Context, conn *websocket.Conn, line string) error {
	ctx, cancel := context.WithTimeout(ctx, statusLineTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(line))
}

// acceptOptions allows any origin when LEIZI_ALLOWED_ORIGINS contains "*",
// otherwise only the listed origins' hosts.
func acceptOptions() *websocket.AcceptOptions {
	var patterns []string
	for _, origin := range config.Cfg.AllowedOrigins {
		if origin == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
		if origin == "" {
			continue
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, origin)
		}
	}
	if len(patterns) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}
