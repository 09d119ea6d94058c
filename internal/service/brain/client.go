package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhutoutoutousan/worldquant-miner/internal/domain/models"
	drepo "github.com/zhutoutoutousan/worldquant-miner/internal/domain/repository"
	xhttp "github.com/zhutoutoutousan/worldquant-miner/pkg/http"
)

// ErrRateLimited is returned by Poll when the upstream answers 429. The
// caller reports it to the client without failing the invocation.
var ErrRateLimited = errors.New("brain: rate limited")

// ErrAlphaUnavailable wraps enrichment failures (non-200, decode errors).
var ErrAlphaUnavailable = errors.New("brain: alpha result unavailable")

// Client talks to the WorldQuant BRAIN platform: the caller-supplied
// simulation status endpoint and the fixed alpha lookup endpoint. The
// bearer token travels on both accepted auth channels, the Authorization
// header and the session cookie named "t".
type Client struct {
	alphaBaseURL string
	http         *xhttp.Client
}

// New creates a new BRAIN StatusSource.
func New(alphaBaseURL string, timeout time.Duration) drepo.StatusSource {
	return &Client{
		alphaBaseURL: strings.TrimRight(alphaBaseURL, "/"),
		http:         xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func authHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Cookie":        "t=" + token,
	}
}

// Poll fetches and decodes the simulation status at statusURL.
func (c *Client) Poll(ctx context.Context, statusURL, token string) (*models.SimulationStatus, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     statusURL,
		Headers: authHeaders(token),
	})
	if err != nil {
		return nil, fmt.Errorf("status poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrRateLimited
	}

	var st models.SimulationStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// alphaResponse carries the in-sample block of the alpha lookup body.
// Fields may be absent or null; both default to zero.
type alphaResponse struct {
	IS struct {
		Fitness  *float64 `json:"fitness"`
		Sharpe   *float64 `json:"sharpe"`
		Turnover *float64 `json:"turnover"`
	} `json:"is"`
}

// AlphaMetrics fetches in-sample metrics for a finished alpha.
func (c *Client) AlphaMetrics(ctx context.Context, alphaID, token string) (*models.AlphaMetrics, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.alphaBaseURL + "/" + alphaID,
		Headers: authHeaders(token),
	})
	if err != nil {
		return nil, fmt.Errorf("alpha lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrAlphaUnavailable, resp.StatusCode)
	}

	var body alphaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlphaUnavailable, err)
	}

	return &models.AlphaMetrics{
		Fitness:  deref(body.IS.Fitness),
		Sharpe:   deref(body.IS.Sharpe),
		Turnover: deref(body.IS.Turnover),
	}, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
