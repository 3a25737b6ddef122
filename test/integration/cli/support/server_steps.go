package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

var errNoServer = errors.New("no test server is running")

func (testCtx *TestContext) theEstimationServerIsRunning() error {
	return testCtx.createTestHTTPServer(defaultServerConfig())
}

func (testCtx *TestContext) theEstimationServerIsRunningWithADailyQuotaOfPoints(points int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMinute = 1000
	cfg.RateLimit.RequestsPerHour = 1000
	cfg.RateLimit.MaxRequestsPerDay = 1000
	cfg.RateLimit.MaxPointsPerDay = int64(points)
	return testCtx.createTestHTTPServer(cfg)
}

func (testCtx *TestContext) theEstimationServerIsRunningWithAtMostPointsPerRequest(points int) error {
	cfg := defaultServerConfig()
	cfg.MaxPoints = points
	return testCtx.createTestHTTPServer(cfg)
}

// recordResponse stores status, headers and body of resp.
func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for name := range resp.Header {
		testCtx.LastHTTPHeaders[name] = resp.Header.Get(name)
	}
	return nil
}

func (testCtx *TestContext) httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func (testCtx *TestContext) iGETEndpoint(endpoint string) error {
	if testCtx.HTTPTestServer == nil {
		return errNoServer
	}
	resp, err := testCtx.httpClient().Get(testCtx.GetServerURL() + endpoint)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", endpoint, err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) post(endpoint string, body []byte) error {
	if testCtx.HTTPTestServer == nil {
		return errNoServer
	}
	resp, err := testCtx.httpClient().Post(testCtx.GetServerURL()+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", endpoint, err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iPOSTFileTo(filename, endpoint string) error {
	body, err := os.ReadFile(testCtx.Path(filename))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return testCtx.post(endpoint, body)
}

func (testCtx *TestContext) iPOSTTheBodyTo(endpoint string, body *godog.DocString) error {
	return testCtx.post(endpoint, []byte(body.Content))
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nBody: %s",
			expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var data interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return fieldEquals(data, field, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	actual := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if actual != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, actual, expected)
	}
	return nil
}

// iSendOverTheWebSocket sends a correspondence file as one WebSocket message
// and records the reply.
func (testCtx *TestContext) iSendOverTheWebSocket(filename, requestID string) error {
	if testCtx.HTTPTestServer == nil {
		return errNoServer
	}

	raw, err := os.ReadFile(testCtx.Path(filename))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%s is not a JSON document: %w", filename, err)
	}
	msg["request_id"] = requestID

	url := "ws" + strings.TrimPrefix(testCtx.GetServerURL(), "http") + "/ws/estimate"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, reply, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}

	testCtx.LastHTTPStatusCode = http.StatusSwitchingProtocols
	testCtx.LastHTTPResponse = string(reply)
	return nil
}

// RegisterServerSteps registers HTTP and WebSocket step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the estimation server is running$`, testCtx.theEstimationServerIsRunning)
	sc.Step(`^the estimation server is running with a daily quota of (\d+) points$`,
		testCtx.theEstimationServerIsRunningWithADailyQuotaOfPoints)
	sc.Step(`^the estimation server is running with at most (\d+) points per request$`,
		testCtx.theEstimationServerIsRunningWithAtMostPointsPerRequest)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGETEndpoint)
	sc.Step(`^I POST "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTFileTo)
	sc.Step(`^I POST the body to "([^"]*)":$`, testCtx.iPOSTTheBodyTo)
	sc.Step(`^I send "([^"]*)" over the WebSocket with request id "([^"]*)"$`, testCtx.iSendOverTheWebSocket)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
