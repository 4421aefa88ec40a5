//go:build wireinject
// +build wireinject

package di

import (
	"BartWatch/pkg/config"
	"BartWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Feed and monitor
		ProvideDepartureFeed,
		ProvideStations,
		ProvideOutbox,
		ProvideMonitor,

		// Display side
		ProvideConsole,
		ProvideDisplay,
		ProvideHub,
		ProvideSinks,
		ProvidePipeline,
		ProvideDisplayConsumer,

		// HTTP
		ProvideMonitorHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
