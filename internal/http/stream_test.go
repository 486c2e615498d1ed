package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

func dialStream(t *testing.T, h *HandlerSet) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/simulate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	return conn
}

// readUntilFinal drains progress frames and returns them with the closing frame.
func readUntilFinal(t *testing.T, conn *websocket.Conn) ([]StreamFrame, StreamFrame) {
	t.Helper()
	var progress []StreamFrame
	for {
		var frame StreamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Type == frameProgress {
			progress = append(progress, frame)
			continue
		}
		return progress, frame
	}
}

func TestStreamHandlerDeliversResult(t *testing.T) {
	conn := dialStream(t, newTestHandlers(Options{}))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(mercenaryRequest)); err != nil {
		t.Fatalf("write config: %v", err)
	}

	progress, final := readUntilFinal(t, conn)
	if final.Type != frameResult || final.Result == nil {
		t.Fatalf("expected a result frame, got %+v", final)
	}
	if final.Result.Status != simulation.StatusCompleted || final.Result.TrialsCompleted != 20 {
		t.Fatalf("unexpected result %+v", final.Result)
	}
	for _, frame := range progress {
		if frame.Progress == nil || frame.Progress.RunID != final.Result.RunID {
			t.Fatalf("progress frame for the wrong run: %+v", frame)
		}
	}
}

func TestStreamHandlerReportsConfigErrors(t *testing.T) {
	conn := dialStream(t, newTestHandlers(Options{}))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"bot":"Nobody","weapons":[{"name":"Assault Rifle"}]}`)); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, final := readUntilFinal(t, conn)
	if final.Type != frameError || final.Field != "bot" {
		t.Fatalf("expected a bot error frame, got %+v", final)
	}
}

func TestStreamHandlerCancelFrameStopsRun(t *testing.T) {
	logger := logging.NewTestLogger()
	runner := simulation.NewRunner(simulation.WithLogger(logger), simulation.WithBatchSize(1))
	conn := dialStream(t, newTestHandlers(Options{Runner: runner}))

	request := `{"bot":"G-34 Mercenary","weapons":[{"name":"Assault Rifle","count":2}],"trials":1000000,"seed":4}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(request)); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var first StreamFrame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if first.Type != frameProgress {
		t.Fatalf("expected progress before completion, got %+v", first)
	}
	if err := conn.WriteJSON(map[string]string{"type": frameCancel}); err != nil {
		t.Fatalf("write cancel: %v", err)
	}

	_, final := readUntilFinal(t, conn)
	if final.Type != frameResult || final.Result.Status != simulation.StatusCancelled {
		t.Fatalf("expected a cancelled result, got %+v", final)
	}
	if final.Result.TrialsCompleted >= final.Result.TrialsRequested {
		t.Fatalf("expected a partial run, got %d/%d", final.Result.TrialsCompleted, final.Result.TrialsRequested)
	}
	if final.Result.KillVolleys.Total() != final.Result.TrialsCompleted {
		t.Fatal("partial histogram must match completed trials")
	}
}

func TestStreamHandlerRejectsForeignOrigin(t *testing.T) {
	h := newTestHandlers(Options{AllowedOrigins: []string{"https://allowed.example"}})
	mux := http.NewServeMux()
	h.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/simulate"
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected the handshake to fail for a foreign origin")
	}
}
