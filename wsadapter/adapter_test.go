package wsadapter

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alimasry/go-collab-ot/client"
	"github.com/alimasry/go-collab-ot/ot"
	"github.com/alimasry/go-collab-ot/server"
	"github.com/alimasry/go-collab-ot/store"
)

func setupServer(t *testing.T) string {
	t.Helper()
	st := store.NewMemoryStore()
	hub := server.NewHub(st, &ot.JupiterEngine{})
	go hub.Run()
	srv := httptest.NewServer(server.NewHandler(hub))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func wait(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
	}
}

func TestAdapter_JoinSendAck(t *testing.T) {
	url := setupServer(t)

	a, err := Dial(url, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ready := make(chan struct{})
	acks := make(chan struct{}, 4)
	a.RegisterCallbacks(client.DatabaseCallbacks{
		Ready: func() { close(ready) },
		Ack:   func() { acks <- struct{}{} },
		Error: func(err error) { t.Logf("adapter error: %v", err) },
	})
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	wait(t, ready, "ready")

	if !a.IsHistoryEmpty() {
		t.Error("fresh document should have empty history")
	}
	if a.Content() != "" {
		t.Errorf("content = %q, want empty", a.Content())
	}

	if err := a.SendOperation(ot.NewInsert(0, "hello", 0)); err != nil {
		t.Fatal(err)
	}
	wait(t, acks, "ack")
	if a.Revision() != 1 {
		t.Errorf("revision = %d, want 1", a.Revision())
	}
	if a.IsHistoryEmpty() {
		t.Error("history no longer empty after an accepted op")
	}
}

func TestAdapter_TwoClientsConverge(t *testing.T) {
	url := setupServer(t)

	a1, err := Dial(url, "doc2")
	if err != nil {
		t.Fatal(err)
	}
	defer a1.Close()

	ready1 := make(chan struct{})
	acks1 := make(chan struct{}, 4)
	a1.RegisterCallbacks(client.DatabaseCallbacks{
		Ready: func() { close(ready1) },
		Ack:   func() { acks1 <- struct{}{} },
	})
	if err := a1.Start(); err != nil {
		t.Fatal(err)
	}
	wait(t, ready1, "a1 ready")

	if err := a1.SendOperation(ot.NewInsert(0, "hello", 0)); err != nil {
		t.Fatal(err)
	}
	wait(t, acks1, "a1 ack")

	// Second client joins and sees the current snapshot.
	a2, err := Dial(url, "doc2")
	if err != nil {
		t.Fatal(err)
	}
	defer a2.Close()

	ready2 := make(chan struct{})
	ops2 := make(chan *ot.Operation, 4)
	cursors2 := make(chan string, 4)
	a2.RegisterCallbacks(client.DatabaseCallbacks{
		Ready:     func() { close(ready2) },
		Operation: func(op *ot.Operation) { ops2 <- op },
		Cursor:    func(id string, c *ot.Cursor, color, name string) { cursors2 <- id },
	})
	if err := a2.Start(); err != nil {
		t.Fatal(err)
	}
	wait(t, ready2, "a2 ready")

	if a2.Content() != "hello" {
		t.Errorf("a2 snapshot = %q, want %q", a2.Content(), "hello")
	}
	if a2.IsHistoryEmpty() {
		t.Error("a2 should see non-empty history")
	}

	// a1's next op reaches a2.
	if err := a1.SendOperation(ot.NewInsert(5, "!", 5)); err != nil {
		t.Fatal(err)
	}
	select {
	case op := <-ops2:
		got, err := op.Apply(a2.Content())
		if err != nil {
			t.Fatal(err)
		}
		if got != "hello!" {
			t.Errorf("applied = %q, want %q", got, "hello!")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for broadcast op")
	}

	// a1's cursor reaches a2.
	if err := a1.SendCursor(ot.NewCursor(6)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-cursors2:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for cursor")
	}
}
