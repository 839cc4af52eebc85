package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	written  []interface{}
	failNext bool
	closed   bool
	// block, when set, holds every write until it is closed.
	block chan struct{}
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) messages() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.written...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	a1, a2, b := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register(NewClient(a1, "alice"))
	hub.Register(NewClient(a2, "alice"))
	hub.Register(NewClient(b, "bob"))

	hub.Publish("alice", "badge_unlocked", map[string]string{"badge_type": "week_hero"})

	eventually(t, "both alice sessions", func() bool {
		return len(a1.messages()) == 1 && len(a2.messages()) == 1
	})
	if n := len(b.messages()); n != 0 {
		t.Fatalf("bob got %d messages, want 0", n)
	}
	msg, ok := a1.messages()[0].(Message)
	if !ok || msg.Type != "badge_unlocked" || msg.UserID != "alice" {
		t.Errorf("unexpected message %+v", a1.messages()[0])
	}
}

func TestPublishKeepsOrderPerSession(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	hub.Register(NewClient(conn, "alice"))

	types := []string{"checked_in", "badge_unlocked", "certificate_issued"}
	for _, typ := range types {
		hub.Publish("alice", typ, nil)
	}
	eventually(t, "three events", func() bool { return len(conn.messages()) == len(types) })
	for i, m := range conn.messages() {
		if got := m.(Message).Type; got != types[i] {
			t.Errorf("event %d = %q, want %q", i, got, types[i])
		}
	}
}

func TestPublishDropsFailingClient(t *testing.T) {
	hub := NewHub()
	bad := &fakeConn{failNext: true}
	good := &fakeConn{}
	hub.Register(NewClient(bad, "alice"))
	hub.Register(NewClient(good, "alice"))

	hub.Publish("alice", "checked_in", nil)

	eventually(t, "failing session removal", func() bool { return hub.Count("alice") == 1 && bad.isClosed() })
	eventually(t, "healthy delivery", func() bool { return len(good.messages()) == 1 })
}

func TestPublishDoesNotWaitForSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &fakeConn{block: make(chan struct{})}
	defer close(slow.block)
	hub.Register(NewClient(slow, "alice"))

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer+2; i++ {
			hub.Publish("alice", "checked_in", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled session")
	}
	if hub.Count("alice") != 0 || !slow.isClosed() {
		t.Errorf("stalled session with a full queue was kept")
	}
}

func TestUnregisterAndClose(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	c := NewClient(conn, "alice")
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
	if hub.Count("alice") != 0 || !conn.isClosed() {
		t.Fatalf("client still registered or open")
	}

	other := &fakeConn{}
	hub.Register(NewClient(other, "bob"))
	hub.Close()
	if hub.Count("bob") != 0 || !other.isClosed() {
		t.Errorf("Close left clients behind")
	}
	// Publishing with nobody connected is a no-op.
	hub.Publish("bob", "checked_in", nil)
}
