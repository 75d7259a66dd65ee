// Command lakehouse-maintd runs the maintenance daemon (materialization,
// retention, temp-file GC) as a long-running process, the same role
// cmd/tempo/main.go plays for the full Tempo binary: load config, wire the
// app, run until signaled.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grafana/lakehouse/lakehouse/app"
	"github.com/grafana/lakehouse/lakehouse/config"
)

func main() {
	cfg, httpAddr, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "error initializing app", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if httpAddr != "" {
		go serveMetrics(logger, httpAddr)
	}

	level.Info(logger).Log("msg", "starting maintenance daemon")
	a.Daemon(logger).Run(ctx)
	level.Info(logger).Log("msg", "maintenance daemon stopped")
}

func serveMetrics(logger log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		level.Error(logger).Log("msg", "metrics server exited", "err", err)
	}
}

func loadConfig() (*config.Config, string, error) {
	var configFile, httpAddr string

	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configFile, "config.file", "", "YAML configuration file")
	fs.StringVar(&httpAddr, "http.addr", ":8081", "address to serve /metrics on, empty to disable")

	args := os.Args[1:]
	for len(args) > 0 {
		_ = fs.Parse(args)
		args = args[1:]
	}

	flag.StringVar(&configFile, "config.file", configFile, "YAML configuration file")
	flag.StringVar(&httpAddr, "http.addr", httpAddr, "address to serve /metrics on, empty to disable")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, "", err
	}
	return cfg, httpAddr, nil
}
