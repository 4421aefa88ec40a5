package di

import (
	"fmt"
	"net/http"

	"BartWatch/internal/domain/models"
	"BartWatch/internal/domain/repository"
	"BartWatch/internal/handler/api"
	mid "BartWatch/internal/middleware"
	internalrepo "BartWatch/internal/repository"
	"BartWatch/internal/service/bart"
	"BartWatch/internal/service/display"
	"BartWatch/internal/usecase"
	"BartWatch/pkg/config"
	xhttp "BartWatch/pkg/http"
	pkgkafka "BartWatch/pkg/kafka"
	applogger "BartWatch/pkg/logger"
	"BartWatch/pkg/metrics"
	pkgredis "BartWatch/pkg/redis"
	"BartWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideDepartureFeed creates the BART feed adapter.
func ProvideDepartureFeed(cfg *config.Config) repository.DepartureFeed {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.BART.Timeout))
	return bart.New(client, cfg.BART.BaseURL, cfg.BART.APIKey)
}

// ProvideStations converts the station section into domain station configs.
func ProvideStations(cfg *config.Config) []models.StationConfig {
	ids := cfg.StationIDs()
	out := make([]models.StationConfig, 0, len(ids))
	for _, id := range ids {
		st := cfg.Stations[id]
		out = append(out, models.StationConfig{
			ID:          id,
			Name:        st.Name,
			Direction:   st.Direction,
			NotifyDelay: st.NotifyDelay(),
		})
	}
	return out
}

// ProvideOutbox creates the monitor to display channel.
func ProvideOutbox(cfg *config.Config) *usecase.Outbox {
	return usecase.NewOutbox(cfg.Monitor.OutboxSize)
}

// ProvideMonitor creates the cadence controller.
func ProvideMonitor(
	feed repository.DepartureFeed,
	stations []models.StationConfig,
	outbox *usecase.Outbox,
	metrics repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Monitor {
	return usecase.NewMonitor(feed, stations, outbox, metrics, logger, repository.SystemClock{}, usecase.MonitorConfig{
		CyclePeriod:      cfg.Monitor.CyclePeriod,
		FetchTimeout:     cfg.Monitor.FetchTimeout,
		RecoveryDelay:    cfg.Monitor.RecoveryDelay,
		SuspensionWindow: cfg.Monitor.SuspensionWindow,
	})
}

// ProvideConsole creates the console LCD display.
func ProvideConsole(logger *applogger.Logger, cfg *config.Config) *display.Console {
	return display.NewConsole(logger, cfg.Display.HoldTicks)
}

// ProvideDisplay exposes the console as the Display.
func ProvideDisplay(c *display.Console) repository.Display { return c }

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(logger *applogger.Logger) *display.Hub {
	return display.NewHub(logger, 0)
}

// ProvideSinks builds every sink listed in display.sinks.
func ProvideSinks(cfg *config.Config, hub *display.Hub) ([]repository.NotificationSink, error) {
	var sinks []repository.NotificationSink
	for _, name := range cfg.Display.Sinks {
		switch name {
		case "websocket":
			sinks = append(sinks, hub)
		case "kafka":
			producer, err := pkgkafka.NewProducer(
				pkgkafka.WithBrokers(cfg.Kafka.Brokers),
				pkgkafka.WithCompression(cfg.Kafka.Compression),
				pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
				pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
				pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
				pkgkafka.WithHashByKey(true),
			)
			if err != nil {
				return nil, fmt.Errorf("kafka producer: %w", err)
			}
			sinks = append(sinks, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic))
		case "redis":
			client, err := pkgredis.NewClient(
				pkgredis.WithAddr(cfg.Redis.Addr),
				pkgredis.WithPassword(cfg.Redis.Password),
				pkgredis.WithDB(cfg.Redis.DB),
			)
			if err != nil {
				return nil, fmt.Errorf("redis client: %w", err)
			}
			sinks = append(sinks, internalrepo.NewRedisPublisher(client, cfg.Redis.Channel))
		}
	}
	return sinks, nil
}

// ProvidePipeline creates the sink fan-out pipeline.
func ProvidePipeline(sinks []repository.NotificationSink, metrics repository.Metrics) *mid.NotificationPipeline {
	return mid.NewNotificationPipeline(sinks, metrics, mid.WithBufferSize(256))
}

// ProvideDisplayConsumer creates the outbox consumer.
func ProvideDisplayConsumer(
	outbox *usecase.Outbox,
	d repository.Display,
	pipe *mid.NotificationPipeline,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.DisplayConsumer {
	return usecase.NewDisplayConsumer(outbox, d, pipe, cfg.Display.Tick, logger)
}

// ProvideMonitorHandler creates the status API. /ws is only routed when the
// websocket sink is enabled.
func ProvideMonitorHandler(logger *applogger.Logger, monitor *usecase.Monitor, hub *display.Hub, cfg *config.Config) *api.MonitorEchoHandler {
	var ws http.Handler
	if cfg.SinkEnabled("websocket") {
		ws = hub
	}
	return api.NewMonitorEchoHandler(logger, monitor, ws)
}

// ProvideHTTPServer creates the Echo server, or nil when disabled.
func ProvideHTTPServer(cfg *config.Config, logger *applogger.Logger, h *api.MonitorEchoHandler) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(logger, []xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	monitor *usecase.Monitor,
	consumer *usecase.DisplayConsumer,
	pipe *mid.NotificationPipeline,
	d repository.Display,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, logger, monitor, consumer, pipe, d, httpServer)
}
