package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	// Handlers outlive the test briefly, so they must not log through t.
	s := NewServer(Config{Logger: zap.NewNop()})
	ts := httptest.NewServer(s.Handler())
	s.Run()
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() failed: %v", err)
		}
		ts.Close()
	})
	return s, ts
}

func sampleSnapshot(title string) *Snapshot {
	res := &logseq.QueryResult{
		Records: []types.Record{{UUID: "u1", Title: &title, Status: types.NamedReference("Doing")}},
		Shape:   logseq.ShapeNested,
		Total:   1,
	}
	return NewSnapshot("work", "DOING Tasks", res, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s failed: %v", url, err)
	}
	return resp.StatusCode
}

func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message failed: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	s, ts := testServer(t)

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
		Ready   bool   `json:"ready"`
	}
	if code := getJSON(t, ts.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Status != "ok" || body.Ready {
		t.Errorf("health before publish = %+v", body)
	}

	s.Publish(sampleSnapshot("a"))
	getJSON(t, ts.URL+"/health", &body)
	if !body.Ready {
		t.Error("health after publish reports not ready")
	}
}

func TestTasksEndpoint(t *testing.T) {
	s, ts := testServer(t)

	var errBody map[string]string
	if code := getJSON(t, ts.URL+"/api/tasks", &errBody); code != http.StatusServiceUnavailable {
		t.Errorf("status before publish = %d, want 503", code)
	}

	s.Publish(sampleSnapshot("Write report"))

	var snap Snapshot
	if code := getJSON(t, ts.URL+"/api/tasks", &snap); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if snap.Graph != "work" || snap.Preset != "DOING Tasks" || snap.Shape != "nested" {
		t.Errorf("snapshot header = %+v", snap)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].Title != "Write report" || snap.Tasks[0].Status != "Doing" {
		t.Errorf("snapshot tasks = %+v", snap.Tasks)
	}
	if snap.Tasks[0].URL != "logseq://graph/work?block-id=u1" {
		t.Errorf("task URL = %q", snap.Tasks[0].URL)
	}
}

func TestTasksEndpointReportsError(t *testing.T) {
	s, ts := testServer(t)

	s.PublishError(&logseq.Error{Kind: logseq.ErrCommandFailed, Detail: "syntax error"})

	var body map[string]string
	if code := getJSON(t, ts.URL+"/api/tasks", &body); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if want := "logseq CLI command failed: syntax error"; body["error"] != want {
		t.Errorf("error = %q, want %q", body["error"], want)
	}

	// A later failure keeps the last good snapshot available.
	s.Publish(sampleSnapshot("a"))
	s.PublishError(errors.New("boom"))
	var snap Snapshot
	if code := getJSON(t, ts.URL+"/api/tasks", &snap); code != http.StatusOK {
		t.Errorf("status after error = %d, want 200", code)
	}
}

func TestWebSocketReceivesCurrentSnapshot(t *testing.T) {
	s, ts := testServer(t)
	s.Publish(sampleSnapshot("first"))

	conn, ctx := dial(t, ts)
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeTasks {
		t.Fatalf("first message type = %q, want %q", msg.Type, MessageTypeTasks)
	}
	var snap Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot failed: %v", err)
	}
	if snap.Tasks[0].Title != "first" {
		t.Errorf("title = %q, want %q", snap.Tasks[0].Title, "first")
	}
}

func TestWebSocketBroadcasts(t *testing.T) {
	s, ts := testServer(t)

	const numClients = 3
	conns := make([]*websocket.Conn, numClients)
	var ctx context.Context
	for i := range conns {
		conns[i], ctx = dial(t, ts)
	}
	waitForClients(t, s, numClients)

	s.Publish(sampleSnapshot("second"))
	s.PublishError(&logseq.Error{Kind: logseq.ErrDecodingFailed, Detail: "bad shape"})

	for i, conn := range conns {
		if msg := readMessage(t, ctx, conn); msg.Type != MessageTypeTasks {
			t.Errorf("client %d: first message type = %q, want %q", i, msg.Type, MessageTypeTasks)
		}
		msg := readMessage(t, ctx, conn)
		if msg.Type != MessageTypeError {
			t.Fatalf("client %d: second message type = %q, want %q", i, msg.Type, MessageTypeError)
		}
		var data ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatalf("unmarshal error data failed: %v", err)
		}
		if data.Kind != "defect" || data.Message != "failed to decode response: bad shape" {
			t.Errorf("client %d: error data = %+v", i, data)
		}
	}
}

func TestClientDisconnect(t *testing.T) {
	s, ts := testServer(t)

	conn, _ := dial(t, ts)
	waitForClients(t, s, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, s, 0)
}

func TestStartStop(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:0", Logger: zap.NewNop()})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	addr := s.Addr()
	if strings.HasSuffix(addr, ":0") {
		t.Errorf("Addr() = %q, want a bound port", addr)
	}

	var body map[string]any
	if code := getJSON(t, fmt.Sprintf("http://%s/health", addr), &body); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&logseq.Error{Kind: logseq.ErrInvalidConfig}, "user"},
		{&logseq.Error{Kind: logseq.ErrCommandFailed}, "user"},
		{&logseq.Error{Kind: logseq.ErrProcessLaunch}, "fatal"},
		{&logseq.Error{Kind: logseq.ErrConversionFailed}, "defect"},
		{context.DeadlineExceeded, "transient"},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
