package wsapi

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(sampleModelSet(), logger)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func TestHandlerRoundTripsAHarmonizationRequest(t *testing.T) {
	_, conn := newTestServer(t)

	req := Request{
		Seq:         7,
		Music:       Music{Notes: []Note{{Pitch: 60, Start: 0, End: 1}, {Pitch: 67, Start: 1, End: 2}}},
		ChordLength: 1,
		Mode:        "major",
		Tolerance:   0.01,
		Constraints: []Constraint{{Time: 0}, {Time: 1}},
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if resp.Seq != 7 {
		t.Errorf("Seq = %d, want 7", resp.Seq)
	}
	if len(resp.Result) != 2 {
		t.Errorf("expected 2 result slots, got %d", len(resp.Result))
	}
}

func TestHandlerSendsErrorResponseOnBadRequest(t *testing.T) {
	_, conn := newTestServer(t)

	req := Request{Mode: "major", ChordLength: 1} // no notes, no constraints
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var errResp ErrorResponse
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if errResp.Error == "" {
		t.Errorf("expected a non-empty error message")
	}

	// The connection should stay open for further requests after an error.
	req2 := Request{
		Music:       Music{Notes: []Note{{Pitch: 60, Start: 0, End: 1}}},
		ChordLength: 1,
		Mode:        "major",
		Tolerance:   0.01,
		Constraints: []Constraint{{Time: 0}, {Time: 1}},
	}
	if err := conn.WriteJSON(req2); err != nil {
		t.Fatalf("WriteJSON (second request): %v", err)
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON (second request): %v", err)
	}
	if len(resp.Result) != 2 {
		t.Errorf("expected the connection to keep serving after an error, got %d result slots", len(resp.Result))
	}
}
