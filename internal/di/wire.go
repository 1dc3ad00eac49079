//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Ledger transport and contract service
		ProvideLedgerClient,
		ProvideLedger,

		// Market data sources
		ProvidePriceFeed,
		ProvideNewsFeed,
		ProvideContextSource,

		// Infrastructure
		ProvidePriceCache,
		ProvideEventPublisher,

		// Use cases
		ProvideExpirationPolicy,
		ProvideReconciler,
		ProvideScheduler,

		// HTTP surface and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
