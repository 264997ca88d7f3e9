package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/txengine/internal/config"
	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/events/kafka"
	"github.com/congo-pay/txengine/internal/infra"
	"github.com/congo-pay/txengine/internal/logging"
	"github.com/congo-pay/txengine/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache == nil {
		logger.Warn("REDIS_URL not set, idempotent replay disabled")
	} else {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	sinks := []events.Sink{events.NewLoggerSink(logger)}
	if cfg.KafkaEnabled() {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("close kafka publisher", "error", err)
			}
		}()
		sinks = append(sinks, publisher)
	}

	srv := server.New(cfg, cache, events.Multi(sinks...), logger)

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
