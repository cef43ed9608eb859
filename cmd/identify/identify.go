// Package identify is a subcommand of the root command. It reports the processor's
// vendor, signature and SMU platform.
package identify

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"zensmu/internal/common"
	"zensmu/internal/cppc"
	"zensmu/internal/cpuid"
	"zensmu/internal/platform"

	"github.com/spf13/cobra"
)

const cmdName = "identify"

var examples = []string{
	fmt.Sprintf("  Identify the platform of cpu 0:          $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Identify cpu 3 and print its _CPC data:  $ %s %s --cpu 3 --cppc", common.AppName, cmdName),
	fmt.Sprintf("  Print the identification as yaml:       $ %s %s --format yaml", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Identify the processor and its SMU platform",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagCPPC bool
)

const (
	flagCPPCName = "cppc"
)

func init() {
	Cmd.Flags().StringVar(&common.FlagFormat, common.FlagFormatName, common.FormatAuto, "")
	Cmd.Flags().BoolVar(&flagCPPC, flagCPPCName, false, "")
	common.AddDeviceFlags(Cmd)
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagCPPCName,
			Help: "include the processor's collaborative performance control (_CPC) fields",
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
	groups = append(groups, common.GetDeviceFlagGroup())
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateFormat(common.FlagFormat); err != nil {
		return common.ExitError(cmd, err)
	}
	if common.CPU() < 0 {
		return common.ExitError(cmd, fmt.Errorf("--cpu must not be negative"))
	}
	if err := cpuid.ValidateModule(common.CPU()); err != nil {
		return common.ExitError(cmd, err)
	}
	return nil
}

// Report is the identification of one logical cpu.
type Report struct {
	CPU       int            `json:"cpu" yaml:"cpu"`
	Vendor    string         `json:"vendor" yaml:"vendor"`
	Brand     string         `json:"brand,omitempty" yaml:"brand,omitempty"`
	Identity  cpuid.Identity `json:"identity" yaml:"identity"`
	Supported bool           `json:"supported" yaml:"supported"`
	Platform  string         `json:"platform" yaml:"platform"`
	Codename  string         `json:"codename,omitempty" yaml:"codename,omitempty"`
	CPPC      []cppc.Field   `json:"cppc,omitempty" yaml:"cppc,omitempty"`
}

// newReport classifies the signature read from r.
func newReport(cpu int, r cpuid.Reader, classifier *platform.Classifier) (*Report, error) {
	vendor, id, err := cpuid.Read(r)
	if err != nil {
		return nil, err
	}
	rpt := &Report{CPU: cpu, Vendor: vendor, Identity: id, Platform: platform.Platform{}.String()}
	if vendor != cpuid.AMDVendor || !platform.IsSupportedFamily(id.Family) {
		return rpt, nil
	}
	p := classifier.Classify(id)
	rpt.Platform = p.String()
	if !p.IsUndetermined() {
		rpt.Supported = true
		rpt.Codename = p.Codename()
	}
	return rpt, nil
}

func (r *Report) writeText(w io.Writer) error {
	fmt.Fprintf(w, "CPU:        %d\n", r.CPU)
	fmt.Fprintf(w, "Vendor:     %s\n", r.Vendor)
	if r.Brand != "" {
		fmt.Fprintf(w, "Brand:      %s\n", r.Brand)
	}
	fmt.Fprintf(w, "Family:     0x%X\n", r.Identity.Family)
	fmt.Fprintf(w, "Ext Model:  0x%X\n", r.Identity.ExtModel)
	fmt.Fprintf(w, "Base Model: 0x%X\n", r.Identity.BaseModel)
	fmt.Fprintf(w, "Pkg Type:   %d\n", r.Identity.PkgType)
	fmt.Fprintf(w, "Platform:   %s\n", r.Platform)
	if !r.Supported {
		fmt.Fprintln(w, "Supported:  no")
	}
	if len(r.CPPC) > 0 {
		fmt.Fprintln(w, "CPPC:")
		for _, f := range r.CPPC {
			if !f.Present {
				continue
			}
			fmt.Fprintf(w, "  %-36s %d\n", f.Name, f.Value)
		}
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	cpu := common.CPU()
	rpt, err := newReport(cpu, cpuid.NewDevReader(cpu), platform.MustNewClassifier(platform.Rules))
	if err != nil {
		slog.Error("failed to identify cpu", slog.Int("cpu", cpu), slog.String("error", err.Error()))
		return common.ExitError(cmd, err)
	}
	rpt.Brand = cpuid.HostBrand()
	slog.Info("cpu identified", slog.String("vendor", rpt.Vendor), slog.String("identity", rpt.Identity.String()), slog.String("platform", rpt.Platform))
	if flagCPPC {
		caps, err := cppc.Read(cppc.NewSysfs(""), cpu)
		if err != nil {
			slog.Warn("failed to read _CPC", slog.Int("cpu", cpu), slog.String("error", err.Error()))
		} else {
			rpt.CPPC = caps.Fields()
		}
	}
	if err := common.Render(os.Stdout, common.FlagFormat, rpt, rpt.writeText); err != nil {
		return common.ExitError(cmd, err)
	}
	return nil
}
