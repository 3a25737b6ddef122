package support

import (
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/MeKo-Tech/homest/internal/homography"
	"github.com/MeKo-Tech/homest/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server around the estimation routes.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// serverTestSeed makes server estimations reproducible across runs.
const serverTestSeed = 11

// defaultServerConfig returns the configuration scenarios start from.
func defaultServerConfig() server.Config {
	est := homography.DefaultConfig()
	est.Seed = serverTestSeed
	return server.Config{
		Host:       "127.0.0.1",
		CORSOrigin: "*",
		MaxBodyMB:  1,
		MaxPoints:  10000,
		TimeoutSec: 30,
		Estimator:  est,
	}
}

// createTestHTTPServer starts the real routes on an httptest listener.
func (testCtx *TestContext) createTestHTTPServer(cfg server.Config) error {
	if testCtx.HTTPTestServer != nil {
		return errors.New("a test server is already running")
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(mux),
		TestServer: srv,
	}
	return nil
}

// StopServer stops the httptest server if one is running.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPTestServer == nil {
		return nil
	}
	testCtx.HTTPTestServer.Server.Close()
	err := testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
	return err
}

// GetServerURL returns the base URL of the running test server.
func (testCtx *TestContext) GetServerURL() string {
	if testCtx.HTTPTestServer == nil {
		return ""
	}
	return testCtx.HTTPTestServer.Server.URL
}
