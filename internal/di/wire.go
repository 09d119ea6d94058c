//go:build wireinject
// +build wireinject

package di

import (
	"github.com/zhutoutoutousan/worldquant-miner/pkg/config"
	"github.com/zhutoutoutousan/worldquant-miner/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvidePollLimiter,
		ProvideStatusSource,

		// Use cases
		ProvideRelay,

		// HTTP surface
		ProvideRelayHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
