package wsctrl

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Agrid-Dev/heatroom/internal/simulation"
	"github.com/Agrid-Dev/heatroom/internal/testutil"
)

func newTestController() (*Controller, *testutil.FakeSimulationService) {
	svc := testutil.NewFakeSimulationService()
	return New(svc, Config{}), svc
}

func TestNewDefaults(t *testing.T) {
	c, _ := newTestController()
	if c.cfg.Addr != ":8081" {
		t.Fatalf("expected default Addr, got %q", c.cfg.Addr)
	}
	if c.cfg.PublishInterval != 500*time.Millisecond {
		t.Fatalf("expected default PublishInterval, got %v", c.cfg.PublishInterval)
	}
}

func TestStreamRequiresSession(t *testing.T) {
	c, _ := newTestController()
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStreamDeliversSnapshots(t *testing.T) {
	c, svc := newTestController()
	defer c.stopHubs()

	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream?session=default"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client, then push one snapshot the
	// way the Run ticker would.
	waitForClients(t, c, "default")
	c.publishAll()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got snapshotDTO
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.SessionID != "default" || got.Rows != 21 || got.Cols != 21 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.Grid[10][10] != 100 {
		t.Fatalf("expected source cell 100, got %v", got.Grid[10][10])
	}

	if len(svc.CurrentCalls) == 0 || svc.CurrentCalls[0] != "default" {
		t.Fatalf("expected Current(default), got %v", svc.CurrentCalls)
	}
}

func TestPublishSkipsUninitializedSession(t *testing.T) {
	c, svc := newTestController()
	defer c.stopHubs()
	svc.CurrentErr = simulation.ErrNotInitialized

	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream?session=default"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, c, "default")
	c.publishAll()

	// Nothing must arrive: the read should time out.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected no message for an uninitialized session")
	}
}

func TestHubsAreSharedPerSession(t *testing.T) {
	c, _ := newTestController()
	defer c.stopHubs()

	a := c.getHub("one")
	b := c.getHub("one")
	other := c.getHub("two")

	if a != b {
		t.Fatal("same session must share a hub")
	}
	if a == other {
		t.Fatal("different sessions must not share a hub")
	}
}

// waitForClients blocks until the session's hub has registered a client.
func waitForClients(t *testing.T, c *Controller, session string) {
	t.Helper()
	h := c.getHub(session)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		done := make(chan int, 1)
		h.count <- done
		if n := <-done; n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client never registered with hub")
}
