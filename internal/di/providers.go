package di

import (
	"fmt"

	"github.com/zhutoutoutousan/worldquant-miner/internal/domain/repository"
	"github.com/zhutoutoutousan/worldquant-miner/internal/handler/api"
	"github.com/zhutoutoutousan/worldquant-miner/internal/service/brain"
	"github.com/zhutoutoutousan/worldquant-miner/internal/service/ratelimit"
	"github.com/zhutoutoutousan/worldquant-miner/internal/usecase"
	pkgcache "github.com/zhutoutoutousan/worldquant-miner/pkg/cache"
	"github.com/zhutoutoutousan/worldquant-miner/pkg/config"
	xhttp "github.com/zhutoutoutousan/worldquant-miner/pkg/http"
	applogger "github.com/zhutoutoutousan/worldquant-miner/pkg/logger"
	"github.com/zhutoutoutousan/worldquant-miner/pkg/metrics"
	"github.com/zhutoutoutousan/worldquant-miner/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the alpha metrics cache, or nil when disabled.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		c, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
			pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
		), nil
	}
}

// ProvidePollLimiter creates the outbound poll rate limiter.
func ProvidePollLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideStatusSource creates the BRAIN status client.
func ProvideStatusSource(cfg *config.Config) repository.StatusSource {
	return brain.New(cfg.Relay.AlphaBaseURL, cfg.Relay.RequestTimeout)
}

// ProvideRelay creates the relay engine.
func ProvideRelay(
	source repository.StatusSource,
	cacheSvc pkgcache.Service,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Relay {
	return usecase.NewRelay(source, cacheSvc, limiter, m, l, usecase.Config{
		Mode:              usecase.Mode(cfg.Relay.Mode),
		PollInterval:      cfg.Relay.PollInterval,
		MaxPolls:          cfg.Relay.MaxPolls,
		RateLimitBackoff:  cfg.Relay.RateLimitBackoff,
		EnrichmentRetries: cfg.Relay.EnrichmentRetries,
		EnrichmentBackoff: cfg.Relay.EnrichmentBackoff,
		PollRateCapacity:  cfg.Relay.PollRate.Capacity,
		PollRateRefill:    cfg.Relay.PollRate.RefillPerSec,
		CacheTTL:          cfg.Cache.TTL,
	})
}

// ProvideRelayHandler creates the HTTP handler for the relay endpoints.
func ProvideRelayHandler(l *applogger.Logger, relay *usecase.Relay) xhttp.Handler {
	return api.NewRelayEchoHandler(l, relay)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	handler xhttp.Handler,
	cacheSvc pkgcache.Service,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, handler, cacheSvc, l)
}
