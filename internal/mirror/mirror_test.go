package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hisabkitab/backend/internal/logging"
)

type pingMirror struct {
	Disabled
	err error
}

func (pingMirror) Available() bool { return true }

func (m pingMirror) Ping(context.Context) error { return m.err }

func (pingMirror) Select(context.Context, string, Filter) ([]json.RawMessage, error) {
	return nil, nil
}

func TestDisabledMirror(t *testing.T) {
	var m Mirror = Disabled{}
	if m.Available() {
		t.Fatalf("disabled mirror must not be available")
	}
	if _, err := m.Select(context.Background(), "expenses", Filter{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestConnectivityFlag(t *testing.T) {
	c := NewConnectivity(true)
	if !c.Online() {
		t.Fatalf("expected online")
	}
	c.Set(false)
	if c.Online() {
		t.Fatalf("expected offline")
	}
	var nilConn *Connectivity
	if !nilConn.Online() {
		t.Fatalf("nil connectivity reports online")
	}
}

func TestProbeMarksOfflineOnPingFailure(t *testing.T) {
	c := NewConnectivity(true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Probe(ctx, pingMirror{err: errors.New("dial tcp: refused")}, 5*time.Millisecond, time.Second, logging.Discard())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.Online() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if c.Online() {
		t.Fatalf("expected probe to flip connectivity offline")
	}
}

func TestValidIdentifier(t *testing.T) {
	cases := map[string]bool{
		"scheduled_export_configs": true,
		"employee_goods_purchases": true,
		"Expenses":                 false,
		"1table":                   false,
		"x;drop":                   false,
	}
	for name, want := range cases {
		if got := ValidIdentifier(name); got != want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}
