package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/homography"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{messageType: messageType, data: data})
	return nil
}

func newTestSession(t *testing.T, s *Server) *wsSession {
	t.Helper()
	est, err := homography.NewEstimator(s.estimator)
	require.NoError(t, err)
	return &wsSession{clientID: "client1", estimator: est}
}

func TestServer_HandleWebSocketMessage(t *testing.T) {
	s := newTestServer(t)
	session := newTestSession(t, s)

	t.Run("estimate", func(t *testing.T) {
		req := WebSocketEstimateRequest{RequestID: "req-1", EstimateRequest: syntheticRequest(t)}
		data, err := json.Marshal(req)
		require.NoError(t, err)

		resp := s.handleWebSocketMessage(session, data)
		assert.Equal(t, "estimate_response", resp.Type)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "req-1", resp.RequestID)
		require.NotNil(t, resp.Result)
		assert.Equal(t, 70, resp.Result.NumInliers)
	})

	t.Run("generated request id", func(t *testing.T) {
		resp := s.handleWebSocketMessage(session, []byte(`{"pts1":[],"pts2":[]}`))
		assert.Equal(t, "completed", resp.Status)
		assert.NotEmpty(t, resp.RequestID)
		assert.False(t, resp.Result.Found)
	})

	t.Run("override uses its own estimator", func(t *testing.T) {
		req := syntheticRequest(t)
		iterations := 1
		req.MaxIterations = &iterations
		data, err := json.Marshal(WebSocketEstimateRequest{RequestID: "req-2", EstimateRequest: req})
		require.NoError(t, err)

		resp := s.handleWebSocketMessage(session, data)
		require.Equal(t, "completed", resp.Status)
		assert.Equal(t, 1, resp.Result.Iterations)
	})

	errorCases := []struct {
		name      string
		body      string
		errorType string
	}{
		{"invalid json", `{"pts1":`, "invalid_request"},
		{"mismatched sets", `{"request_id":"r","pts1":[[0,0]],"pts2":[]}`, "invalid_request"},
		{"invalid override", `{"request_id":"r","pts1":[],"pts2":[],"threshold":-1}`, "invalid_request"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.handleWebSocketMessage(session, []byte(tt.body))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.errorType, resp.ErrorType)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_HandleWebSocketMessage_PointQuota(t *testing.T) {
	s := newTestServer(t)
	s.rateLimiter = NewRateLimiter(0, 0, 0, 50)
	session := newTestSession(t, s)

	data, err := json.Marshal(syntheticRequest(t))
	require.NoError(t, err)

	resp := s.handleWebSocketMessage(session, data)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "quota_exceeded", resp.ErrorType)
}

func TestServer_HandleWebSocketMessage_InvalidRequestKeepsQuota(t *testing.T) {
	s := newTestServer(t)
	s.rateLimiter = NewRateLimiter(0, 0, 0, 150)
	session := newTestSession(t, s)

	bad := WebSocketEstimateRequest{RequestID: "bad", EstimateRequest: syntheticRequest(t)}
	bad.Pts2 = bad.Pts2[:50]
	data, err := json.Marshal(bad)
	require.NoError(t, err)

	resp := s.handleWebSocketMessage(session, data)
	assert.Equal(t, "invalid_request", resp.ErrorType)
	assert.Zero(t, s.rateLimiter.GetUsage("client1").PointsToday)

	data, err = json.Marshal(WebSocketEstimateRequest{RequestID: "good", EstimateRequest: syntheticRequest(t)})
	require.NoError(t, err)
	resp = s.handleWebSocketMessage(session, data)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, int64(100), s.rateLimiter.GetUsage("client1").PointsToday)
}

func TestServer_HandleWebSocketMessage_IterationOverrideIsCapped(t *testing.T) {
	s := newTestServer(t)
	session := newTestSession(t, s)

	req := WebSocketEstimateRequest{RequestID: "it", EstimateRequest: syntheticRequest(t)}
	huge := 2_000_000_000
	req.MaxIterations = &huge
	cfg, err := s.requestConfig(&req.EstimateRequest)
	require.NoError(t, err)
	assert.Equal(t, s.estimator.MaxIterations, cfg.MaxIterations)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	resp := s.handleWebSocketMessage(session, data)
	require.Equal(t, "completed", resp.Status)
	assert.LessOrEqual(t, resp.Result.Iterations, s.estimator.MaxIterations)
}

func TestServer_SendWebSocketResponse(t *testing.T) {
	server := &Server{}
	mockConn := &mockWebSocketConn{}

	server.sendWebSocketResponse(mockConn, webSocketError("req-9", "processing_error", "boom"))

	require.Len(t, mockConn.sentMessages, 1)
	assert.Equal(t, websocket.TextMessage, mockConn.sentMessages[0].messageType)

	var resp WebSocketEstimateResponse
	require.NoError(t, json.Unmarshal(mockConn.sentMessages[0].data, &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "processing_error", resp.ErrorType)
	assert.Equal(t, "boom", resp.Error)
	assert.Equal(t, "req-9", resp.RequestID)
}

func TestServer_WebSocketEndToEnd(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/estimate"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	for _, id := range []string{"a", "b"} {
		req := WebSocketEstimateRequest{RequestID: id, EstimateRequest: syntheticRequest(t)}
		require.NoError(t, conn.WriteJSON(req))

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
		var reply WebSocketEstimateResponse
		require.NoError(t, conn.ReadJSON(&reply))

		assert.Equal(t, id, reply.RequestID)
		assert.Equal(t, "completed", reply.Status)
		require.NotNil(t, reply.Result)
		assert.True(t, reply.Result.Found)
	}
}
