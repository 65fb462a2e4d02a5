package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

func TestRegistry_CreateListGet(t *testing.T) {
	reg := NewRegistry(time.Minute)
	a := reg.Create(transport.KindSSH, "u@h:22")
	b := reg.Create(transport.KindSerial, "/dev/ttyS0@9600")

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique IDs, got %q and %q", a.ID, b.ID)
	}
	if reg.Get(a.ID) != a {
		t.Error("Get returned a different session")
	}
	if reg.Get("missing") != nil {
		t.Error("Get for unknown id should be nil")
	}

	list := reg.List()
	if len(list) != 2 || list[0] != a || list[1] != b {
		t.Errorf("unexpected list order")
	}
	if n := reg.ActiveCount(); n != 2 {
		t.Errorf("expected 2 active, got %d", n)
	}
}

func TestRegistry_CloseUnknown(t *testing.T) {
	reg := NewRegistry(time.Minute)
	if err := reg.Close("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_PruneKeepsRecentAndLive(t *testing.T) {
	reg := NewRegistry(time.Minute)
	live := reg.Create(transport.KindSSH, "live")
	closed := reg.Create(transport.KindTelnet, "closed")
	closed.Close()

	if n := reg.Prune(time.Now()); n != 0 {
		t.Errorf("recently closed session pruned early (%d)", n)
	}
	if n := reg.ActiveCount(); n != 1 {
		t.Errorf("expected 1 active, got %d", n)
	}

	if n := reg.Prune(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if reg.Get(closed.ID) != nil {
		t.Error("closed session still listed")
	}
	if reg.Get(live.ID) == nil {
		t.Error("live session pruned")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry(time.Minute)
	s1 := reg.Create(transport.KindSSH, "a")
	s2 := reg.Create(transport.KindSSH, "b")
	s2.SetState(StateConnecting, "")

	reg.CloseAll()
	if s1.State() != StateClosed || s2.State() != StateClosed {
		t.Errorf("expected all closed, got %s and %s", s1.State(), s2.State())
	}
}

func TestRegistry_PrunerStartStop(t *testing.T) {
	reg := NewRegistry(time.Minute)
	if err := reg.StartPruner(); err != nil {
		t.Fatalf("StartPruner: %v", err)
	}
	reg.Stop()
	reg.Stop()
}
