// Package pmtable is a subcommand of the root command. It locates the SMU power
// management table and optionally maps it to print or export its values.
package pmtable

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"zensmu/internal/common"
	pm "zensmu/internal/pmtable"
	"zensmu/internal/smu"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const cmdName = "pmtable"

var examples = []string{
	fmt.Sprintf("  Locate the pm table:                    $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Print the values of the pm table:       $ %s %s --map", common.AppName, cmdName),
	fmt.Sprintf("  Refresh the table before printing it:   $ %s %s --map --refresh", common.AppName, cmdName),
	fmt.Sprintf("  Serve pm table values to prometheus:    $ %s %s --prometheus-server-addr :9090", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Locate, map and export the SMU power management table",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagMap            bool
	flagRefresh        bool
	flagPrometheusAddr string
)

const (
	flagMapName            = "map"
	flagRefreshName        = "refresh"
	flagPrometheusAddrName = "prometheus-server-addr"
)

func init() {
	Cmd.Flags().BoolVar(&flagMap, flagMapName, false, "")
	Cmd.Flags().BoolVar(&flagRefresh, flagRefreshName, false, "")
	Cmd.Flags().StringVar(&flagPrometheusAddr, flagPrometheusAddrName, "", "")
	Cmd.Flags().StringVar(&common.FlagFormat, common.FlagFormatName, common.FormatAuto, "")
	common.AddDeviceFlags(Cmd)
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagMapName,
			Help: "map the table through /dev/mem and print its values",
		},
		{
			Name: flagRefreshName,
			Help: "ask the smu to publish the table again before reading it",
		},
		{
			Name: common.FlagFormatName,
			Help: common.FormatHelp(),
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Options",
		Flags:     flags,
	})
	flags = []common.Flag{
		{
			Name: flagPrometheusAddrName,
			Help: "address (e.g., host:port) for serving table values as prometheus metrics, implies --map",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Prometheus Options",
		Flags:     flags,
	})
	groups = append(groups, common.GetDeviceFlagGroup())
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateFormat(common.FlagFormat); err != nil {
		return common.ExitError(cmd, err)
	}
	if flagPrometheusAddr != "" {
		if cmd.Flags().Changed(common.FlagFormatName) {
			return common.ExitError(cmd, fmt.Errorf("--%s can't be used with --%s", common.FlagFormatName, flagPrometheusAddrName))
		}
		flagMap = true
	}
	if flagRefresh && !flagMap {
		return common.ExitError(cmd, fmt.Errorf("--%s requires --%s", flagRefreshName, flagMapName))
	}
	if err := common.ValidateDeviceFlags(cmd); err != nil {
		return common.ExitError(cmd, err)
	}
	return nil
}

// Word is one decoded table entry.
type Word struct {
	Offset uint32  `json:"offset" yaml:"offset"`
	Value  float64 `json:"value" yaml:"value"`
}

// Result is the output of the pmtable command.
type Result struct {
	Table     *pm.Table `json:"table" yaml:"table"`
	Primary   []Word    `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary []Word    `json:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// words drops entries that aren't finite so that the result can be encoded as json.
func words(vals []float32) []Word {
	var ws []Word
	for i, v := range vals {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		ws = append(ws, Word{Offset: uint32(i * 4), Value: f})
	}
	return ws
}

func newResult(t *pm.Table, v *pm.View) *Result {
	r := &Result{Table: t}
	if v != nil {
		r.Primary = words(v.Values())
		r.Secondary = words(v.SecondaryValues())
	}
	return r
}

func (r *Result) writeText(w io.Writer) error {
	fmt.Fprintln(w, r.Table)
	for _, bank := range []struct {
		name  string
		words []Word
	}{{"Primary", r.Primary}, {"Secondary", r.Secondary}} {
		if len(bank.words) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", bank.name)
		for _, word := range bank.words {
			fmt.Fprintf(w, "  0x%04X  %g\n", word.Offset, word.Value)
		}
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	p, closeDevices, err := common.OpenPlugin(common.DeviceOptions{MapTable: flagMap})
	if err != nil {
		slog.Error("failed to attach to smu", slog.String("error", err.Error()))
		return common.ExitError(cmd, err)
	}
	defer func() {
		if err := closeDevices(); err != nil {
			slog.Warn("failed to close devices", slog.String("error", err.Error()))
		}
	}()
	table, pipeline := p.PMTable()
	if table == nil {
		return common.ExitError(cmd, fmt.Errorf("pm table is not available on %s", p.Platform()))
	}
	view := p.View()
	if flagMap && view == nil {
		return common.ExitError(cmd, fmt.Errorf("%w: %s", pm.ErrNotMapped, table))
	}
	if flagPrometheusAddr != "" {
		if err := serve(cmd.Context(), flagPrometheusAddr, pm.NewCollector(view, pipeline)); err != nil {
			return common.ExitError(cmd, err)
		}
		return nil
	}
	if flagRefresh {
		if err := pipeline.Refresh(table); err != nil {
			return common.ExitError(cmd, err)
		}
	}
	result := newResult(table, view)
	if err := common.Render(os.Stdout, common.FlagFormat, result, result.writeText); err != nil {
		return common.ExitError(cmd, err)
	}
	return nil
}

// serve exports collector and the smu transport metrics on listenAddr until the
// process is interrupted.
func serve(ctx context.Context, listenAddr string, collector prometheus.Collector) error {
	if ctx == nil {
		ctx = context.Background()
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return err
	}
	if err := smu.RegisterMetrics(registry); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
		}
		return err
	case <-ctx.Done():
	}
	slog.Info("Stopping Prometheus metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
