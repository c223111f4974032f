package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyber-run/floro/internal/analysis"
	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsMaxMessageMB = 64
)

// WebSocketSegmentRequest is one segmentation request. Image holds the
// encoded file, base64 in JSON. A top-level ROI overrides Config.ROI.
type WebSocketSegmentRequest struct {
	ID     string         `json:"id,omitempty"`
	Image  []byte         `json:"image"`
	ROI    string         `json:"roi,omitempty"`
	Config RequestOptions `json:"config"`
}

// WebSocketSegmentResponse answers one request.
type WebSocketSegmentResponse struct {
	Type      string            `json:"type"`   // "result" or "error"
	Status    string            `json:"status"` // "completed" or "error"
	RequestID string            `json:"request_id,omitempty"`
	Result    *pipeline.Result  `json:"result,omitempty"`
	Summary   *analysis.Summary `json:"summary,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

var wsRequestSeq atomic.Int64

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.corsOrigin == "" || s.corsOrigin == "*" || origin == s.corsOrigin
		},
	}
}

// segmentWebSocketHandler serves GET /ws/segment.
func (s *Server) segmentWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("websocket connection established")
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(wsMaxMessageMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType != websocket.TextMessage {
			s.sendWebSocketError(conn, "", "invalid_request", "expected a JSON text message")
			continue
		}
		s.handleWebSocketMessage(ctx, conn, data)
	}
}

// handleWebSocketMessage decodes and runs one request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketSegmentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", "failed to parse request: "+err.Error())
		return
	}
	requestID := req.ID
	if requestID == "" {
		requestID = strconv.FormatInt(wsRequestSeq.Add(1), 10)
	}

	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "no image data provided")
		return
	}
	img, _, err := utils.DecodeImage(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", "failed to decode image: "+err.Error())
		return
	}

	opts := req.Config
	if req.ROI != "" {
		opts.ROI = req.ROI
	}
	res, err := s.segment(ctx, "websocket", img, opts, false)
	if err != nil {
		s.sendWebSocketError(conn, requestID, errorType(err), err.Error())
		return
	}

	summary := analysis.Summarize(res.Wells)
	s.sendWebSocketResponse(conn, WebSocketSegmentResponse{
		Type:      "result",
		Status:    "completed",
		RequestID: requestID,
		Result:    res,
		Summary:   &summary,
	})
}

// errorType names the error class reported to WebSocket clients.
func errorType(err error) string {
	switch {
	case errors.Is(err, segment.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, segment.ErrConfiguration):
		return "configuration_error"
	default:
		return "processing_error"
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketSegmentResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal websocket response")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn().Err(err).Msg("send websocket message")
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errType, message string) {
	s.sendWebSocketResponse(conn, WebSocketSegmentResponse{
		Type:      "error",
		Status:    "error",
		RequestID: requestID,
		Error:     message,
		ErrorType: errType,
	})
}
