package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/metrics"
	"github.com/zulandar/stash/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		Long:  "Serves the stash over HTTP, with Prometheus metrics at /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: server.port from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewLedger(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	a, err := connectFromConfig(cmd, configPath, m)
	if err != nil {
		return err
	}
	defer a.close()

	if port <= 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return server.Start(ctx, server.StartOpts{
		DB:       a.db,
		Blobs:    a.blobs,
		Ledger:   a.ledger,
		Gatherer: reg,
		Logger:   a.log,
		Port:     port,
		Out:      cmd.OutOrStdout(),
	})
}
