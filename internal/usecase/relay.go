package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhutoutoutousan/worldquant-miner/internal/domain/models"
	drepo "github.com/zhutoutoutousan/worldquant-miner/internal/domain/repository"
	"github.com/zhutoutoutousan/worldquant-miner/internal/service/brain"
	"github.com/zhutoutoutousan/worldquant-miner/internal/service/ratelimit"
	"github.com/zhutoutoutousan/worldquant-miner/pkg/cache"
	xlogger "github.com/zhutoutoutousan/worldquant-miner/pkg/logger"
)

// Mode selects the relay's polling discipline.
type Mode string

const (
	// ModeContinuous polls on an interval until a terminal state, closing
	// the stream only then.
	ModeContinuous Mode = "continuous"
	// ModeSingleShot performs exactly one poll cycle per invocation; the
	// caller re-requests after any non-terminal event.
	ModeSingleShot Mode = "single_shot"
)

const defaultErrorMessage = "Simulation failed"

// Config holds relay tuning knobs.
type Config struct {
	Mode              Mode
	PollInterval      time.Duration
	MaxPolls          int // 0 = unbounded
	RateLimitBackoff  time.Duration
	EnrichmentRetries int
	EnrichmentBackoff time.Duration
	PollRateCapacity  float64
	PollRateRefill    float64
	CacheTTL          time.Duration
}

// Relay bridges a poll-and-respond status endpoint to a push stream. One
// invocation owns one event channel: a single writer, events totally
// ordered, channel closed exactly once on every exit path.
type Relay struct {
	source  drepo.StatusSource
	cache   cache.Service // optional alpha metrics cache
	limiter *ratelimit.Limiter
	metrics drepo.Metrics
	logger  *xlogger.Logger
	cfg     Config
}

// NewRelay creates a relay engine. cache and limiter may be nil.
func NewRelay(source drepo.StatusSource, c cache.Service, limiter *ratelimit.Limiter, m drepo.Metrics, l *xlogger.Logger, cfg Config) *Relay {
	if cfg.Mode == "" {
		cfg.Mode = ModeContinuous
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Relay{source: source, cache: c, limiter: limiter, metrics: m, logger: l, cfg: cfg}
}

// Stream returns the event channel synchronously, before the first poll
// resolves, and drives the poll loop on its own goroutine. Cancel ctx to
// stop polling; the channel is closed on terminal events, cancellation,
// and every fault path.
func (r *Relay) Stream(ctx context.Context, req *models.RelayRequest) <-chan *models.PushEvent {
	ch := make(chan *models.PushEvent, 1)
	go r.run(ctx, req, ch)
	return ch
}

func (r *Relay) run(ctx context.Context, req *models.RelayRequest, ch chan<- *models.PushEvent) {
	defer close(ch)

	id := uuid.NewString()
	r.metrics.StreamOpened()
	defer r.metrics.StreamClosed()

	host := pollHost(req.StatusURL)
	polls := 0

	for {
		polls++

		ev, terminal := r.cycle(ctx, req, host)
		if ev != nil {
			if !r.emit(ctx, ch, ev, id) {
				return
			}
		}
		if terminal || ctx.Err() != nil {
			return
		}
		if r.cfg.Mode == ModeSingleShot {
			r.logger.Debug("single-shot cycle done", xlogger.String("invocation", id))
			return
		}
		if r.cfg.MaxPolls > 0 && polls >= r.cfg.MaxPolls {
			_ = r.emit(ctx, ch, models.ErrorEvent(fmt.Sprintf("simulation not finished after %d polls", polls)), id)
			return
		}

		pause := r.cfg.PollInterval
		if ev != nil && ev.Status == models.EventRateLimit && r.cfg.RateLimitBackoff > pause {
			pause = r.cfg.RateLimitBackoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

// cycle performs one poll round: query, classify, at most one event.
// terminal=true means the stream closes after the returned event.
func (r *Relay) cycle(ctx context.Context, req *models.RelayRequest, host string) (ev *models.PushEvent, terminal bool) {
	if r.limiter != nil && r.cfg.PollRateRefill > 0 {
		if err := r.limiter.Wait(ctx, host, r.cfg.PollRateCapacity, r.cfg.PollRateRefill); err != nil {
			return nil, true
		}
	}

	start := time.Now()
	st, err := r.source.Poll(ctx, req.StatusURL, req.AuthToken)
	r.metrics.RecordPollLatency(time.Since(start).Seconds())

	switch {
	case errors.Is(err, brain.ErrRateLimited):
		r.metrics.RecordPoll("rate_limited")
		return models.RateLimitEvent(), false
	case err != nil && ctx.Err() != nil:
		// Client gone; nothing left to tell it.
		return nil, true
	case err != nil:
		r.metrics.RecordPoll("fault")
		r.logger.Error("status poll failed", xlogger.Error(err))
		return models.ErrorEvent(faultMessage(err)), true
	}

	switch st.Status {
	case models.StatusComplete:
		r.metrics.RecordPoll("complete")
		m, err := r.resolveAlpha(ctx, st.Alpha, req.AuthToken)
		if err != nil {
			r.logger.Error("alpha resolution failed",
				xlogger.String("alpha", st.Alpha), xlogger.Error(err))
			return models.ErrorEvent(faultMessage(err)), true
		}
		return models.CompleteEvent(m), true

	case models.StatusError:
		r.metrics.RecordPoll("error")
		msg := st.Message
		if msg == "" {
			msg = defaultErrorMessage
		}
		return models.ErrorEvent(msg), true

	default:
		r.metrics.RecordPoll("in_progress")
		return models.InProgressEvent(st.Progress), false
	}
}

// resolveAlpha turns a COMPLETE status into metrics: cache first, then the
// enrichment endpoint with a bounded retry. A COMPLETE status without an
// alpha id, or an exhausted retry budget, is a terminal error rather than
// a silent stall.
func (r *Relay) resolveAlpha(ctx context.Context, alphaID, token string) (*models.AlphaMetrics, error) {
	if alphaID == "" {
		return nil, fmt.Errorf("%w: COMPLETE status carried no alpha id", brain.ErrAlphaUnavailable)
	}

	key := "alpha:" + alphaID
	if r.cache != nil {
		var m models.AlphaMetrics
		if err := r.cache.Get(ctx, key, &m); err == nil {
			return &m, nil
		}
	}

	attempts := r.cfg.EnrichmentRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.cfg.EnrichmentBackoff):
			}
		}

		m, err := r.source.AlphaMetrics(ctx, alphaID, token)
		if err == nil {
			if r.cache != nil {
				// Finished alphas are immutable; cache failures only cost a refetch.
				if cerr := r.cache.Set(ctx, key, m, r.cfg.CacheTTL); cerr != nil {
					r.logger.Warn("alpha cache set failed", xlogger.Error(cerr))
				}
			}
			return m, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	return nil, lastErr
}

// emit delivers one event, in order, unless the invocation was cancelled.
func (r *Relay) emit(ctx context.Context, ch chan<- *models.PushEvent, ev *models.PushEvent, id string) bool {
	select {
	case ch <- ev:
		r.metrics.RecordEvent(string(ev.Status))
		r.logger.Debug("event emitted",
			xlogger.String("invocation", id),
			xlogger.String("type", string(ev.Status)))
		return true
	case <-ctx.Done():
		return false
	}
}

func faultMessage(err error) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return "Unknown error"
	}
	return err.Error()
}

func pollHost(statusURL string) string {
	if u, err := url.Parse(statusURL); err == nil && u.Host != "" {
		return u.Host
	}
	return statusURL
}
