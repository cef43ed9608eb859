// Package cmd provides the command line interface for the application.
package cmd

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"zensmu/cmd/identify"
	"zensmu/cmd/pmtable"
	"zensmu/cmd/smu"
	"zensmu/internal/common"
	"zensmu/internal/util"

	"github.com/spf13/cobra"
)

var gLogFile *os.File
var gVersion = "9.9.9" // overwritten by ldflags in Makefile

const (
	// LongAppName is the name of the application
	LongAppName = "Zen SMU Inspector"
)

var examples = []string{
	fmt.Sprintf("  Identify the processor platform:             $ %s identify", common.AppName),
	fmt.Sprintf("  Show the SMU firmware version and mailbox:    $ %s smu", common.AppName),
	fmt.Sprintf("  Locate the PM table and print its values:     $ %s pmtable --map", common.AppName),
	fmt.Sprintf("  Serve PM table values to prometheus:          $ %s pmtable --prometheus-server-addr :9090", common.AppName),
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:                common.AppName,
	Short:              common.AppName,
	Long:               fmt.Sprintf(`%s (%s) identifies AMD Zen platforms and talks to their System Management Unit.`, LongAppName, common.AppName),
	Example:            strings.Join(examples, "\n"),
	PersistentPreRunE:  initializeApplication, // will only be run if command has a 'Run' function
	PersistentPostRunE: terminateApplication,  // ...
	Version:            gVersion,
}

var (
	// logging
	flagDebug     bool
	flagSyslog    bool
	flagLogStdOut bool
	flagLogFile   string
)

const (
	flagDebugName     = "debug"
	flagSyslogName    = "syslog"
	flagLogStdOutName = "log-stdout"
	flagLogFileName   = "log-file"
)

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{}) // block the help command
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.AddGroup([]*cobra.Group{{ID: "primary", Title: "Commands:"}}...)
	rootCmd.AddCommand(identify.Cmd)
	rootCmd.AddCommand(smu.Cmd)
	rootCmd.AddCommand(pmtable.Cmd)
	// Global (persistent) flags
	rootCmd.PersistentFlags().BoolVar(&flagDebug, flagDebugName, false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagSyslog, flagSyslogName, false, "write logs to syslog instead of a file")
	rootCmd.PersistentFlags().BoolVar(&flagLogStdOut, flagLogStdOutName, false, "write logs to stdout")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, flagLogFileName, common.AppName+".log", "path of the log file, '~' expands to the home directory")
	rootCmd.MarkFlagsMutuallyExclusive(flagSyslogName, flagLogStdOutName, flagLogFileName)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.EnableCommandSorting = false
	cobra.EnableCaseInsensitive = true
	err := rootCmd.Execute()
	if err != nil {
		terminateErr := terminateApplication(rootCmd, os.Args)
		if terminateErr != nil {
			slog.Error("Error terminating application", slog.String("error", terminateErr.Error()))
			fmt.Printf("Error: %v\n", terminateErr)
		}
		os.Exit(1)
	}
}

// newLogHandler builds the handler selected by the logging flags. A log file opened
// for the handler is returned so that it can be closed at exit.
func newLogHandler(debug, toSyslog, toStdout bool, logPath string) (slog.Handler, *os.File, error) {
	var logOpts slog.HandlerOptions
	if debug {
		logOpts.Level = slog.LevelDebug
		logOpts.AddSource = true
	} else {
		logOpts.Level = slog.LevelInfo
	}
	switch {
	case toSyslog && toStdout:
		return nil, nil, fmt.Errorf("both syslog handler and stdout output specified, please pick one only")
	case toSyslog:
		handler, err := NewSyslogHandler(&logOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create syslog handler: %w", err)
		}
		return handler, nil, nil
	case toStdout:
		return slog.NewJSONHandler(os.Stdout, &logOpts), nil, nil
	}
	// log to file, relative paths are resolved against the current directory
	logPath, err := util.AbsPath(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve log file path: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G302 G304
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.NewTextHandler(logFile, &logOpts), logFile, nil
}

func initializeApplication(cmd *cobra.Command, args []string) error {
	handler, logFile, err := newLogHandler(flagDebug, flagSyslog, flagLogStdOut, flagLogFile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	gLogFile = logFile
	slog.SetDefault(slog.New(handler))
	slog.Info("Starting up", slog.String("app", common.AppName), slog.String("version", gVersion), slog.Int("PID", os.Getpid()), slog.String("arguments", strings.Join(os.Args, " ")))
	var logFilePath string
	if gLogFile != nil {
		logFilePath = gLogFile.Name()
	}
	// set app context
	cmd.Parent().SetContext(
		context.WithValue(
			context.Background(),
			common.AppContext{},
			common.AppContext{
				LogFilePath: logFilePath,
				Version:     gVersion,
				Debug:       flagDebug},
		),
	)
	return nil
}

// terminateApplication closes the log file
func terminateApplication(cmd *cobra.Command, args []string) error {
	var ctx context.Context
	if cmd.Parent() == nil {
		ctx = cmd.Context()
	} else {
		ctx = cmd.Parent().Context()
	}
	if ctx == nil || ctx.Value(common.AppContext{}) == nil {
		return nil
	}
	slog.Info("Shutting down", slog.String("app", common.AppName), slog.String("version", gVersion), slog.Int("PID", os.Getpid()), slog.String("arguments", strings.Join(os.Args, " ")))
	if gLogFile != nil {
		err := gLogFile.Close()
		gLogFile = nil
		if err != nil {
			slog.Error("error closing log file", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}
