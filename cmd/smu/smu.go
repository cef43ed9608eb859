// Package smu is a subcommand of the root command. It reports the SMU firmware
// version and mailbox state and can send a single raw mailbox command.
package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"zensmu/internal/common"
	smusvc "zensmu/internal/smu"
	"zensmu/internal/util"

	"github.com/spf13/cobra"
)

const cmdName = "smu"

var examples = []string{
	fmt.Sprintf("  Show the smu firmware version and mailbox:  $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Ask MP1 for the firmware version:           $ %s %s --mailbox mp1 --msg 0x2 --arg 0x1", common.AppName, cmdName),
	fmt.Sprintf("  Read the PM table version over RSMU:        $ %s %s --mailbox rsmu --msg 0x8", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Query the System Management Unit",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagMailbox string
	flagMsg     string
	flagArgs    []string
)

const (
	flagMailboxName = "mailbox"
	flagMsgName     = "msg"
	flagArgName     = "arg"
)

var mailboxOptions = []string{"rsmu", "mp1"}

func init() {
	Cmd.Flags().StringVar(&flagMailbox, flagMailboxName, "rsmu", "")
	Cmd.Flags().StringVar(&flagMsg, flagMsgName, "", "")
	Cmd.Flags().StringSliceVar(&flagArgs, flagArgName, nil, "")
	Cmd.Flags().StringVar(&common.FlagFormat, common.FlagFormatName, common.FormatAuto, "")
	common.AddDeviceFlags(Cmd)
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
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
			Name: flagMsgName,
			Help: "hex opcode to send, the command is only sent when this is set",
		},
		{
			Name: flagArgName,
			Help: fmt.Sprintf("hex argument, repeat or separate with commas for up to %d arguments", smusvc.ArgCount),
		},
		{
			Name: flagMailboxName,
			Help: fmt.Sprintf("mailbox that receives the command, one of: %s", strings.Join(mailboxOptions, ", ")),
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Command Options",
		Flags:     flags,
	})
	groups = append(groups, common.GetDeviceFlagGroup())
	return groups
}

func parseMailbox(name string) (smusvc.Kind, error) {
	switch strings.ToLower(name) {
	case "rsmu":
		return smusvc.RSMU, nil
	case "mp1":
		return smusvc.MP1, nil
	}
	return 0, fmt.Errorf("--%s options are: %s", flagMailboxName, strings.Join(mailboxOptions, ", "))
}

// buildCommand parses the command flags into a mailbox command.
func buildCommand(mailbox, msg string, args []string) (*smusvc.Command, error) {
	kind, err := parseMailbox(mailbox)
	if err != nil {
		return nil, err
	}
	opcode, err := util.ParseHexUint32(msg)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagMsgName, err)
	}
	if len(args) > smusvc.ArgCount {
		return nil, fmt.Errorf("at most %d --%s values are allowed", smusvc.ArgCount, flagArgName)
	}
	values, err := util.ParseHexUint32List(args)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagArgName, err)
	}
	cmd := smusvc.NewCommand(kind, opcode, 0)
	copy(cmd.Args[:], values)
	return cmd, nil
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateFormat(common.FlagFormat); err != nil {
		return common.ExitError(cmd, err)
	}
	if _, err := parseMailbox(flagMailbox); err != nil {
		return common.ExitError(cmd, err)
	}
	if flagMsg == "" && (cmd.Flags().Changed(flagArgName) || cmd.Flags().Changed(flagMailboxName)) {
		return common.ExitError(cmd, fmt.Errorf("--%s and --%s require --%s", flagArgName, flagMailboxName, flagMsgName))
	}
	if flagMsg != "" {
		if _, err := buildCommand(flagMailbox, flagMsg, flagArgs); err != nil {
			return common.ExitError(cmd, err)
		}
	}
	if err := common.ValidateDeviceFlags(cmd); err != nil {
		return common.ExitError(cmd, err)
	}
	return nil
}

// Result is the output of the smu command.
type Result struct {
	State   smusvc.State    `json:"state" yaml:"state"`
	Command *smusvc.Command `json:"command,omitempty" yaml:"command,omitempty"`
}

func (r *Result) writeText(w io.Writer) error {
	st := r.State
	fmt.Fprintf(w, "Platform:       %s\n", st.Platform)
	fmt.Fprintf(w, "SMU Version:    %s (0x%X)\n", st.Version, st.VersionRaw)
	fmt.Fprintf(w, "Mailbox:        %s\n", st.Mailbox)
	fmt.Fprintf(w, "Last Command:   %s\n", st.LastCommand)
	fmt.Fprintf(w, "Last Returned:  %s\n", st.LastReturned)
	if st.DramBase != 0 {
		fmt.Fprintf(w, "PM Table Base:  0x%X\n", st.DramBase)
	}
	if r.Command != nil {
		fmt.Fprintf(w, "Sent:           %s\n", r.Command)
		fmt.Fprintf(w, "Response:       %s\n", r.Command.Response)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	p, closeDevices, err := common.OpenPlugin(common.DeviceOptions{})
	if err != nil {
		slog.Error("failed to attach to smu", slog.String("error", err.Error()))
		return common.ExitError(cmd, err)
	}
	defer func() {
		if err := closeDevices(); err != nil {
			slog.Warn("failed to close devices", slog.String("error", err.Error()))
		}
	}()
	service := p.Service()
	result := &Result{}
	if flagMsg != "" {
		// validated in validateFlags
		smuCmd, _ := buildCommand(flagMailbox, flagMsg, flagArgs)
		slog.Info("sending raw smu command", slog.String("command", smuCmd.String()))
		if err := service.Exec(smuCmd); err != nil {
			service.DumpState()
			return common.ExitError(cmd, err)
		}
		if smuCmd.Response != smusvc.StatusOK {
			slog.Warn("smu command was not OK", slog.String("response", smuCmd.Response.String()))
		}
		result.Command = smuCmd
	}
	result.State = service.State()
	appContext := cmd.Parent().Context().Value(common.AppContext{}).(common.AppContext)
	if appContext.Debug {
		service.DumpState()
	}
	if err := common.Render(os.Stdout, common.FlagFormat, result, result.writeText); err != nil {
		return common.ExitError(cmd, err)
	}
	return nil
}
