package api

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhutoutoutousan/worldquant-miner/internal/service/brain"
	"github.com/zhutoutoutousan/worldquant-miner/internal/usecase"
	xlogger "github.com/zhutoutoutousan/worldquant-miner/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordPoll(string)         {}
func (nopMetrics) RecordEvent(string)        {}
func (nopMetrics) RecordPollLatency(float64) {}
func (nopMetrics) StreamOpened()             {}
func (nopMetrics) StreamClosed()             {}

// testStack wires real components against httptest upstreams: a status
// endpoint handler and an alpha endpoint handler.
func testStack(t *testing.T, status, alpha http.HandlerFunc, cfg usecase.Config) (relaySrv *httptest.Server, statusURL string) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/alphas/") {
			alpha(w, r)
			return
		}
		status(w, r)
	}))
	t.Cleanup(upstream.Close)

	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.EnrichmentBackoff == 0 {
		cfg.EnrichmentBackoff = time.Millisecond
	}
	src := brain.New(upstream.URL+"/alphas", 2*time.Second)
	relay := usecase.NewRelay(src, nil, nil, nopMetrics{}, l, cfg)

	e := echo.New()
	NewRelayEchoHandler(l, relay).RegisterRoutes(e)
	relaySrv = httptest.NewServer(e)
	t.Cleanup(relaySrv.Close)

	return relaySrv, upstream.URL + "/simulations/42"
}

func openStream(t *testing.T, relaySrv *httptest.Server, statusURL string) *http.Response {
	t.Helper()
	endpoint := fmt.Sprintf("%s/api/simulations/stream?status_url=%s",
		relaySrv.URL, url.QueryEscape(statusURL))
	resp, err := http.Post(endpoint, echo.MIMEApplicationJSON,
		strings.NewReader(`{"auth_token":"tok-1"}`))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readFrames(t *testing.T, body io.Reader, n int) []string {
	t.Helper()
	sc := bufio.NewScanner(body)
	var frames []string
	for sc.Scan() && len(frames) < n {
		line := sc.Text()
		if line == "" {
			continue
		}
		frames = append(frames, line)
	}
	return frames
}

func TestStreamInProgressFrame(t *testing.T) {
	srv, statusURL := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"RUNNING","progress":42}`))
		},
		nil,
		usecase.Config{Mode: usecase.ModeSingleShot},
	)

	resp := openStream(t, srv, statusURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(echo.HeaderContentType), "text/event-stream")
	assert.Equal(t, "no-cache", resp.Header.Get(echo.HeaderCacheControl))

	frames := readFrames(t, resp.Body, 1)
	require.Len(t, frames, 1)
	assert.Equal(t, `data: {"status":"in_progress","progress":42}`, frames[0])
}

func TestStreamCompleteFrameAndClose(t *testing.T) {
	srv, statusURL := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"COMPLETE","alpha":"abc123"}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/alphas/abc123", r.URL.Path)
			w.Write([]byte(`{"is":{"fitness":1.5,"sharpe":2.1}}`))
		},
		usecase.Config{Mode: usecase.ModeContinuous},
	)

	resp := openStream(t, srv, statusURL)
	body, err := io.ReadAll(resp.Body) // stream must end on its own
	require.NoError(t, err)
	assert.Equal(t,
		"data: {\"status\":\"complete\",\"result\":{\"fitness\":1.5,\"sharpe\":2.1,\"turnover\":0}}\n\n",
		string(body))
}

func TestStreamRateLimitFrame(t *testing.T) {
	srv, statusURL := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		nil,
		usecase.Config{Mode: usecase.ModeSingleShot},
	)

	resp := openStream(t, srv, statusURL)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"status\":\"rate_limit\"}\n\n", string(body))
}

func TestStreamErrorFrameAndClose(t *testing.T) {
	srv, statusURL := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ERROR","message":"insufficient data"}`))
		},
		nil,
		usecase.Config{Mode: usecase.ModeContinuous},
	)

	resp := openStream(t, srv, statusURL)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"status\":\"error\",\"error\":\"insufficient data\"}\n\n", string(body))
}

func TestStreamProgressThenComplete(t *testing.T) {
	calls := 0
	srv, statusURL := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				fmt.Fprintf(w, `{"status":"RUNNING","progress":%d}`, calls*30)
				return
			}
			w.Write([]byte(`{"status":"COMPLETE","alpha":"a9"}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"is":{"fitness":1}}`))
		},
		usecase.Config{Mode: usecase.ModeContinuous},
	)

	resp := openStream(t, srv, statusURL)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`data: {"status":"in_progress","progress":30}`,
		``,
		`data: {"status":"in_progress","progress":60}`,
		``,
		`data: {"status":"complete","result":{"fitness":1,"sharpe":0,"turnover":0}}`,
		``,
		``,
	}, "\n"), string(body))
}

func TestStreamValidation(t *testing.T) {
	srv, _ := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {},
		nil,
		usecase.Config{Mode: usecase.ModeSingleShot},
	)

	// Missing status_url
	resp, err := http.Post(srv.URL+"/api/simulations/stream", echo.MIMEApplicationJSON,
		strings.NewReader(`{"auth_token":"tok"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"status":400`)

	// Missing token
	resp2, err := http.Post(srv.URL+"/api/simulations/stream?status_url=http://x.test/s",
		echo.MIMEApplicationJSON, strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	body2, _ := io.ReadAll(resp2.Body)
	assert.Contains(t, string(body2), `"status":400`)
	assert.Contains(t, string(body2), "AuthToken")
}

func TestHealth(t *testing.T) {
	srv, _ := testStack(t,
		func(w http.ResponseWriter, r *http.Request) {},
		nil,
		usecase.Config{Mode: usecase.ModeSingleShot},
	)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
