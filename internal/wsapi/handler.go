package wsapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aftertouch/harmonia/internal/modelset"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler serves the harmonization websocket endpoint: one long-lived
// connection per client, one Request/Response exchange per message,
// mirroring server.py's echo coroutine.
type Handler struct {
	Models modelset.ModelSet
	Logger *slog.Logger

	// OnPredicted, if set, is called after every successfully served
	// request with the request and response that produced it. Engine main
	// wires this to persist a prediction log; left nil it is a no-op,
	// which is what every existing test exercises.
	OnPredicted func(req Request, resp Response)

	upgrader websocket.Upgrader
}

// NewHandler builds a Handler. Origin checking is left permissive (this
// mirrors the teacher's local-development default of auth disabled;
// see internal/auth) since the client is a browser-based editor served
// from the same origin in normal deployment.
func NewHandler(ms modelset.ModelSet, logger *slog.Logger) *Handler {
	return &Handler{
		Models: ms,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := h.Logger.With("conn", connID)
	logger.Info("websocket connection opened", "remote", r.RemoteAddr)
	for {
		if !h.handleOne(conn, logger) {
			return
		}
	}
}

// handleOne reads, processes, and answers a single message. It returns
// false when the connection should be torn down (read error or closed by
// the peer), matching the outer `async for message in websocket` loop
// which simply ends when the socket closes.
func (h *Handler) handleOne(conn *websocket.Conn, logger *slog.Logger) (keepGoing bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("websocket handler panic recovered", "panic", r)
			_ = conn.WriteJSON(ErrorResponse{Error: "internal server error"})
			keepGoing = true
		}
	}()

	var req Request
	if err := conn.ReadJSON(&req); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			logger.Warn("websocket read error", "error", err)
		}
		return false
	}

	start := time.Now()
	resp, err := Handle(h.Models, req)
	duration := time.Since(start)
	if err != nil {
		logger.Error("harmonization request failed", "seq", req.Seq, "error", err, "duration_ms", duration.Milliseconds())
		if werr := conn.WriteJSON(ErrorResponse{Error: err.Error()}); werr != nil {
			logger.Error("websocket write error", "error", werr)
			return false
		}
		return true
	}

	logger.Info("harmonization request served", "seq", req.Seq, "slots", len(resp.Result), "duration_ms", duration.Milliseconds())
	if err := conn.WriteJSON(resp); err != nil {
		logger.Error("websocket write error", "error", err)
		return false
	}
	if h.OnPredicted != nil {
		h.OnPredicted(req, resp)
	}
	return true
}
