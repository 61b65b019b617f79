// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/Thermoquad/monsoon/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	httpReadTimeout     = 10 * time.Second
	httpWriteTimeout    = 10 * time.Second
	httpIdleTimeout     = 60 * time.Second
	httpShutdownTimeout = 5 * time.Second
)

var exporterListen string

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Serve appliance state as Prometheus metrics",
	Long: `Keep the link up and serve the appliance state for Prometheus.

Endpoints:
  /metrics  Prometheus exposition format
  /health   200 while the appliance is online, 503 otherwise`,
	RunE: runExporter,
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().StringVarP(&exporterListen, "listen", "l", ":9646", "HTTP listen address")
}

// newExporterMux serves the collector registry and the handler status.
func newExporterMux(collector *metrics.Collector, status func() link.Status) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		s := status()
		if s.Kind != link.StatusOnline {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		fmt.Fprintln(w, s)
	})
	return mux
}

func runExporter(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	collector := metrics.New(cfg.DeviceID)

	ac, err := openAppliance(cmd, appliance.WithMetrics(collector))
	if err != nil {
		return err
	}
	defer ac.Close()

	ac.handler.SubscribeStatus(collector.SetStatus)
	if err := ac.handler.Initialize(ctx, ac.cfg); err != nil {
		if link.KindOf(err) == link.KindConfiguration {
			return err
		}
		ac.logger.Warn("initial connection failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:         exporterListen,
		Handler:      newExporterMux(collector, ac.handler.Status),
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: httpWriteTimeout,
		IdleTimeout:  httpIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Printf("Monsoon - Prometheus Exporter\n")
	fmt.Printf("Connection: %s\n", connInfo(ac.cfg))
	fmt.Printf("Metrics available at http://%s/metrics\n", exporterListen)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
