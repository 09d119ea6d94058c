package brain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, alphaBase string) *Client {
	t.Helper()
	src := New(alphaBase, 2*time.Second)
	c, ok := src.(*Client)
	require.True(t, ok)
	return c
}

func TestPollDualAuth(t *testing.T) {
	var gotAuth, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if c, err := r.Cookie("t"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(`{"status":"RUNNING","progress":42}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/alphas")
	st, err := c.Poll(context.Background(), srv.URL, "tok-123")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "tok-123", gotCookie)
	assert.Equal(t, "RUNNING", st.Status)
	assert.Equal(t, 42.0, st.Progress)
}

func TestPollRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/alphas")
	_, err := c.Poll(context.Background(), srv.URL, "tok")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestPollMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/alphas")
	_, err := c.Poll(context.Background(), srv.URL, "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode status")
}

func TestAlphaMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alphas/abc123", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"is":{"fitness":1.5,"sharpe":2.1}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/alphas")
	m, err := c.AlphaMetrics(context.Background(), "abc123", "tok")
	require.NoError(t, err)
	assert.Equal(t, 1.5, m.Fitness)
	assert.Equal(t, 2.1, m.Sharpe)
	assert.Equal(t, 0.0, m.Turnover) // absent defaults to zero
}

func TestAlphaMetricsNullFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"is":{"fitness":null,"sharpe":null,"turnover":null}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/alphas")
	m, err := c.AlphaMetrics(context.Background(), "abc", "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Fitness)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 0.0, m.Turnover)
}

func TestAlphaMetricsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/alphas")
	_, err := c.AlphaMetrics(context.Background(), "abc", "tok")
	assert.ErrorIs(t, err, ErrAlphaUnavailable)
}

func TestPollTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	src := New(srv.URL+"/alphas", 50*time.Millisecond)
	_, err := src.Poll(context.Background(), srv.URL, "tok")
	assert.Error(t, err)
}
