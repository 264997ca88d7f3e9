// Command txengine replays a transactions CSV through the ledger engine and
// prints the resulting account table as CSV on stdout.
//
//	txengine <transactions.csv> [events.log]
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/congo-pay/txengine/internal/audit"
	"github.com/congo-pay/txengine/internal/batch"
	"github.com/congo-pay/txengine/internal/config"
	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/events/kafka"
	"github.com/congo-pay/txengine/internal/logging"
	"github.com/congo-pay/txengine/internal/report"
)

const usage = "usage: txengine <transactions.csv> [events.log]"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "App failed: load config: %v\n", err)
		return 1
	}
	// stdout carries the report, so logs go to stderr.
	logger := logging.NewWithWriter(stderr, cfg.LogLevel)

	sinks := []events.Sink{events.NewLoggerSink(logger)}
	if len(args) == 2 {
		fileLog, err := audit.Open(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "App failed: %v\n", err)
			return 1
		}
		defer fileLog.Close()
		sinks = append(sinks, fileLog)
	}
	if cfg.KafkaEnabled() {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	svc := batch.NewService(events.Multi(sinks...), logger)
	res, err := svc.RunFile(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "App failed: %v\n", err)
		return 1
	}

	if err := report.WriteCSV(stdout, res.Accounts); err != nil {
		fmt.Fprintf(stderr, "App failed: write report: %v\n", err)
		return 1
	}
	return 0
}
