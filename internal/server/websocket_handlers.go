package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/results"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are restricted by the CORS setting on the HTTP routes only.
		return true
	},
}

// WebSocketEstimateRequest is one estimation request on the WebSocket.
type WebSocketEstimateRequest struct {
	RequestID string `json:"request_id,omitempty"`
	EstimateRequest
}

// WebSocketEstimateResponse is the reply to one WebSocketEstimateRequest.
type WebSocketEstimateResponse struct {
	Type      string          `json:"type"`
	Status    string          `json:"status"` // "completed" or "error"
	Result    *results.Report `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"error_type,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsSession is the per-connection state: the client and its estimator.
type wsSession struct {
	clientID  string
	estimator *homography.Estimator
}

// estimateWebSocketHandler handles WebSocket connections for streaming estimation.
func (s *Server) estimateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	est, err := homography.NewEstimator(s.estimator)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn, &wsSession{clientID: getClientIP(r), estimator: est})
}

// handleWebSocketConnection processes messages until the client disconnects.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn, session *wsSession) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.sendWebSocketResponse(conn, s.handleWebSocketMessage(session, data))
		}
	}
}

// handleWebSocketMessage estimates the homography for one message.
func (s *Server) handleWebSocketMessage(session *wsSession, data []byte) WebSocketEstimateResponse {
	var req WebSocketEstimateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return webSocketError("", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	job, err := s.prepare(&req.EstimateRequest, session.estimator)
	if err != nil {
		return webSocketError(requestID, webSocketErrorType(err), err.Error())
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.ConsumePoints(session.clientID, job.set.Len()); err != nil {
			recordRateLimitHit(err)
			return webSocketError(requestID, "quota_exceeded", err.Error())
		}
	}

	report, err := s.run("websocket", job)
	if err != nil {
		return webSocketError(requestID, webSocketErrorType(err), err.Error())
	}

	return WebSocketEstimateResponse{
		Type:      "estimate_response",
		Status:    "completed",
		Result:    &report,
		RequestID: requestID,
	}
}

// hasOverrides reports whether the request changes any estimator setting.
func (r *EstimateRequest) hasOverrides() bool {
	return r.Confidence != nil || r.Threshold != nil || r.MaxIterations != nil || r.Seed != nil || r.Sampling != ""
}

func webSocketErrorType(err error) string {
	if statusForError(err) != http.StatusInternalServerError {
		return "invalid_request"
	}
	return "processing_error"
}

func webSocketError(requestID, errorType, message string) WebSocketEstimateResponse {
	return WebSocketEstimateResponse{
		Type:      "estimate_response",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketEstimateResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
