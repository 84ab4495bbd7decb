package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/auth"
	"github.com/andreweacott/nuheat-conductor/pkg/climate"
	"github.com/andreweacott/nuheat-conductor/pkg/config"
	"github.com/andreweacott/nuheat-conductor/pkg/coordinator"
	"github.com/andreweacott/nuheat-conductor/pkg/device"
	"github.com/andreweacott/nuheat-conductor/pkg/logger"
	"github.com/andreweacott/nuheat-conductor/pkg/metrics"
	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
	"github.com/andreweacott/nuheat-conductor/pkg/publish"
	"github.com/andreweacott/nuheat-conductor/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	log.Info("nuheat-conductor starting", "config", cfg.String())

	// Create context with graceful shutdown support
	ctx := SetupGracefulShutdown(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Conductor stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

// run wires the components and blocks until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	representation, err := device.ParseRepresentation(cfg.Representation)
	if err != nil {
		return err
	}

	session, err := initializeAuth(cfg, log)
	if err != nil {
		return fmt.Errorf("authentication setup failed: %w", err)
	}

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	client := nuheat.NewClient(cfg.APIURL, session,
		nuheat.WithTimeout(requestTimeout),
		nuheat.WithLogger(log))
	api := nuheat.NewAPIWithCircuitBreaker(client, nuheat.CircuitBreakerConfig{
		MaxConsecutiveFailures: uint32(cfg.BreakerFailures),
		Timeout:                time.Duration(cfg.BreakerTimeout) * time.Second,
		Logger:                 log,
	})

	writer, closers, err := initializePublishers(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("Failed to close publisher", "error", err.Error())
			}
		}
	}()

	exporterMetrics := metrics.NewExporterMetricsUnregistered()
	coord := coordinator.New(api, metrics.NewMetricDescriptorsUnregistered(), coordinator.Options{
		Representation:  representation,
		Writer:          writer,
		PollTimeout:     time.Duration(cfg.PollInterval) * time.Second,
		Logger:          log,
		ExporterMetrics: exporterMetrics,
	})

	registry, err := initializeRegistry(coord, exporterMetrics)
	if err != nil {
		return err
	}
	log.Info("Prometheus metrics registered successfully")

	go coord.Run(ctx, time.Duration(cfg.PollInterval)*time.Second)

	srv := server.New(coord, session, server.Options{
		Gatherer:       registry,
		MetricsTimeout: requestTimeout,
		Breaker:        api,
		OnAuthorized: func() {
			go func() {
				if err := coord.Refresh(ctx); err != nil {
					log.Warn("Refresh after authorization failed", "error", err.Error())
				}
			}()
		},
		Logger: log,
	})

	return StartServer(ctx, cfg.Port, srv.Handler(), log)
}

// initializeAuth loads the stored token, if any, and returns the session
func initializeAuth(cfg *config.Config, log *logger.Logger) (*auth.Session, error) {
	oauthConfig := auth.NewOAuth2Config(cfg.ClientID, cfg.ClientSecret, cfg.AuthURL, cfg.RedirectURL)
	session, err := auth.NewSession(oauthConfig, auth.NewFileTokenStore(cfg.TokenPath), auth.WithLogger(log))
	if err != nil {
		return nil, err
	}

	if session.Authorized() {
		log.Info("Loaded stored token", "token_path", cfg.TokenPath)
	} else {
		log.Warn("No stored token, authorization required",
			"url", fmt.Sprintf("http://localhost:%d/oauth/login", cfg.Port))
	}
	return session, nil
}

// initializePublishers builds the state fan-out. NATS and MQTT are optional.
func initializePublishers(cfg *config.Config, log *logger.Logger) (climate.StateWriter, []io.Closer, error) {
	writers := publish.Multi{publish.NewLogPublisher(log)}
	var closers []io.Closer

	if cfg.NATSURL != "" {
		nc, err := publish.DialNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("Publishing state to NATS", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
		writers = append(writers, nc)
		closers = append(closers, nc)
	}

	if cfg.MQTTBroker != "" {
		mc, err := publish.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopicPrefix, cfg.MQTTClientID)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		log.Info("Publishing state to MQTT", "broker", cfg.MQTTBroker, "prefix", cfg.MQTTTopicPrefix)
		writers = append(writers, mc)
		closers = append(closers, mc)
	}

	return writers, closers, nil
}

// initializeRegistry creates a custom registry holding the entity gauges and health metrics
func initializeRegistry(coord *coordinator.Coordinator, exporterMetrics *metrics.ExporterMetrics) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(coord); err != nil {
		return nil, fmt.Errorf("failed to register coordinator collector: %w", err)
	}
	if err := exporterMetrics.RegisterWith(registry); err != nil {
		return nil, fmt.Errorf("failed to register exporter metrics: %w", err)
	}
	return registry, nil
}
