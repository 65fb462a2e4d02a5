// Package handlers implements the HTTP and WebSocket endpoints of the relay.
//
// The package-level collaborators are set from main.go during startup.
package handlers

import (
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/config"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/relay"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/store"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

// Sessions tracks relay sessions started by the WebSocket endpoints.
var Sessions = relay.NewRegistry(relay.DefaultRetention)

// Store persists the config and shortcut documents.
var Store store.Backend

// DialAdapter opens transport adapters. Tests replace it.
var DialAdapter transport.DialFunc = transport.Dial

func dialOptions() transport.Options {
	return transport.Options{
		ConnectTimeout: config.Cfg.ConnectTimeout,
		KnownHostsPath: config.Cfg.SSHKnownHosts,
	}
}
