package repository

import (
	"context"

	"github.com/zhutoutoutousan/worldquant-miner/internal/domain/models"
)

// StatusSource polls a remote simulation and resolves finished alphas.
type StatusSource interface {
	// Poll fetches and decodes the current simulation status. Returns
	// ErrRateLimited (via errors.Is) when the upstream answers 429.
	Poll(ctx context.Context, statusURL, token string) (*models.SimulationStatus, error)

	// AlphaMetrics fetches in-sample metrics for a finished alpha.
	AlphaMetrics(ctx context.Context, alphaID, token string) (*models.AlphaMetrics, error)
}

// Metrics records relay instrumentation.
type Metrics interface {
	RecordPoll(outcome string)
	RecordEvent(kind string)
	RecordPollLatency(seconds float64)
	StreamOpened()
	StreamClosed()
}
