//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/config"
	"github.com/ahmadawais/wordpress-playground/internal/protocol"
	"github.com/ahmadawais/wordpress-playground/internal/server"
	"github.com/ahmadawais/wordpress-playground/tests/helpers/testutil"
)

// newGateway spins up a full gateway over httptest.
func newGateway(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Gateway.ReplyTimeout = 5 * time.Second
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.Close() })
	return ts
}

func TestForwardRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := newGateway(t, nil)

	testutil.ConnectEngine(t, ts, func(msg *protocol.RequestMessage) *protocol.Response {
		assert.Equal(t, "abc123", msg.Scope)
		assert.Equal(t, "GET", msg.Request.Method)
		assert.Equal(t, "/wp-admin/index.php", msg.Request.Path)
		return testutil.TextResponse(http.StatusOK, "engine says hello")
	})

	resp, err := http.Get(ts.URL + "/scope:abc123/wp-admin/index.php")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "engine says hello", string(body))
}

func TestForwardPostForm(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := newGateway(t, nil)

	testutil.ConnectEngine(t, ts, func(msg *protocol.RequestMessage) *protocol.Response {
		assert.Equal(t, "POST", msg.Request.Method)
		assert.Equal(t, "/wp-login.php?redirect=1", msg.Request.Path)
		assert.Equal(t, "admin", msg.Request.Post["log"])
		assert.Equal(t, "secret", msg.Request.Post["pwd"])
		return testutil.TextResponse(http.StatusFound, "")
	})

	resp, err := http.PostForm(ts.URL+"/scope:abc123/wp-login.php?redirect=1", url.Values{
		"log": {"admin"},
		"pwd": {"secret"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	// http.Client follows the redirect to a missing location only if one
	// is set; with no Location header the 302 comes straight back.
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestForwardTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := newGateway(t, func(cfg *config.Config) {
		cfg.Gateway.ReplyTimeout = 200 * time.Millisecond
	})

	// Engine that never answers.
	testutil.ConnectEngine(t, ts, func(msg *protocol.RequestMessage) *protocol.Response {
		return nil
	})

	start := time.Now()
	resp, err := http.Get(ts.URL + "/scope:abc123/slow.php")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNativeHandlingServesStatic(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "style.css"), []byte("body{}"), 0o644))

	ts := newGateway(t, func(cfg *config.Config) {
		cfg.Gateway.StaticDir = staticDir
	})

	resp, err := http.Get(ts.URL + "/style.css")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}", string(body))
}

func TestInstanceLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := newGateway(t, nil)

	// Create an instance and read back its minted scope token.
	resp, err := http.Post(ts.URL+"/instances", "application/json",
		strings.NewReader(`{"name":"demo-site"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Scope string `json:"scope"`
		Name  string `json:"name"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "demo-site", created.Name)
	assert.NotEmpty(t, created.Scope)

	// Attach an engine to the minted scope.
	engine := testutil.ConnectEngine(t, ts, nil)
	engine.Attach(created.Scope)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/instances/" + created.Scope)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		defer resp.Body.Close()
		var inst struct {
			Attached bool `json:"attached"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&inst); err != nil {
			return false
		}
		return inst.Attached
	}, 2*time.Second, 20*time.Millisecond, "instance never showed attached")

	// Disconnecting the engine detaches the instance.
	engine.Close()
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/instances/" + created.Scope)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		defer resp.Body.Close()
		var inst struct {
			Attached bool `json:"attached"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&inst); err != nil {
			return false
		}
		return !inst.Attached
	}, 2*time.Second, 20*time.Millisecond, "instance never detached")

	// Delete and verify.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/instances/"+created.Scope, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/instances/" + created.Scope)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := newGateway(t, nil)
	testutil.ConnectEngine(t, ts, nil)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var health struct {
			Status  string `json:"status"`
			Clients int    `json:"clients"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return false
		}
		return health.Status == "healthy" && health.Clients == 1
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gateway_http_requests_total")
}

func TestPassthroughUpstream(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/theme/app.css", r.URL.Path)
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte(".scoped{}"))
	}))
	defer upstream.Close()

	ts := newGateway(t, func(cfg *config.Config) {
		cfg.Gateway.Upstream = upstream.URL
	})

	// Scoped, but not a script path: the gateway fetches it from the
	// upstream instead of forwarding to an engine.
	resp, err := http.Get(ts.URL + "/scope:abc123/theme/app.css")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ".scoped{}", string(body))
}
