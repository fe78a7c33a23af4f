package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nanodet/internal/dto"
	"nanodet/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newServer(t *testing.T, received chan<- map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("ReadJSON failed: %v", err)
			return
		}
		received <- msg
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestPublisher_SendsSummary(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	server := newServer(t, received)

	p := New(wsURL(server), false, logger.New(io.Discard))
	summary := dto.RunSummary{
		Input:     "street.jpg",
		Output:    "out.png",
		Objects:   []dto.DetectionResult{{Label: "person", Score: 0.9, Width: 10, Height: 20}},
		Timestamp: time.Now(),
	}

	if err := p.Publish(context.Background(), summary); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg["input"] != "street.jpg" {
			t.Errorf("Unexpected input %v", msg["input"])
		}
		objects, ok := msg["objects"].([]interface{})
		if !ok || len(objects) != 1 {
			t.Fatalf("Unexpected objects %v", msg["objects"])
		}
		if _, ok := msg["image"]; ok {
			t.Error("Image should not be attached")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for summary")
	}
}

func TestPublisher_AttachesImage(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	server := newServer(t, received)

	output := filepath.Join(t.TempDir(), "out.png")
	if err := os.WriteFile(output, []byte("png-bytes"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	p := New(wsURL(server), true, logger.New(io.Discard))
	if err := p.Publish(context.Background(), dto.RunSummary{Output: output}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msg := <-received
	raw, _ := json.Marshal(msg["image"])
	want, _ := json.Marshal(base64.StdEncoding.EncodeToString([]byte("png-bytes")))
	if string(raw) != string(want) {
		t.Errorf("Expected image %s, got %s", want, raw)
	}
}

func TestPublisher_Errors(t *testing.T) {
	log := logger.New(io.Discard)

	if err := New("", false, log).Publish(context.Background(), dto.RunSummary{}); err == nil {
		t.Error("Expected error for empty url")
	}

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	if err := New(wsURL(server), false, log).Publish(context.Background(), dto.RunSummary{}); err == nil {
		t.Error("Expected handshake error")
	}

	missing := filepath.Join(t.TempDir(), "missing.png")
	if err := New(wsURL(server), true, log).Publish(context.Background(), dto.RunSummary{Output: missing}); err == nil {
		t.Error("Expected error for missing output image")
	}
}
