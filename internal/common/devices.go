package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"

	"zensmu/internal/cppc"
	"zensmu/internal/cpuid"
	"zensmu/internal/pci"
	"zensmu/internal/physmem"
	"zensmu/internal/plugin"
	"zensmu/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagCPU       int
	flagPCIDevice string
)

const (
	flagCPUName       = "cpu"
	flagPCIDeviceName = "pci-device"
)

var deviceFlags = []Flag{
	{
		Name: flagCPUName,
		Help: "logical cpu whose cpuid device is read",
	},
	{
		Name: flagPCIDeviceName,
		Help: "sysfs address of the pci device that exposes the smu index/data registers",
	},
}

func AddDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagCPU, flagCPUName, 0, deviceFlags[0].Help)
	cmd.Flags().StringVar(&flagPCIDevice, flagPCIDeviceName, pci.DefaultDevice, deviceFlags[1].Help)
}

func GetDeviceFlagGroup() FlagGroup {
	return FlagGroup{
		GroupName: "Device Options",
		Flags:     deviceFlags,
	}
}

func ValidateDeviceFlags(cmd *cobra.Command) error {
	if flagCPU < 0 {
		return fmt.Errorf("--%s must not be negative", flagCPUName)
	}
	// confirm that the cpuid driver is loaded for the requested cpu
	if err := cpuid.ValidateModule(flagCPU); err != nil {
		return err
	}
	exists, err := util.FileExists(pci.SysfsPath(flagPCIDevice))
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("pci device %s does not exist", flagPCIDevice)
	}
	return nil
}

// CPU returns the cpu selected with --cpu.
func CPU() int {
	return flagCPU
}

// DeviceOptions selects the optional collaborators OpenPlugin wires in.
type DeviceOptions struct {
	// MapTable maps the PM table through /dev/mem.
	MapTable bool
	// CPPC evaluates the processor's _CPC package from sysfs.
	CPPC bool
}

// OpenPlugin opens the devices selected by the device flags and attaches a plugin to
// them. The returned close function releases everything OpenPlugin opened.
func OpenPlugin(opts DeviceOptions) (*plugin.Plugin, func() error, error) {
	if !cpuid.HostIsAMD() {
		slog.Warn("host cpu does not report an AMD vendor", slog.String("brand", cpuid.HostBrand()))
	}
	cfg, err := pci.Open(flagPCIDevice)
	if err != nil {
		return nil, nil, err
	}
	deps := plugin.Deps{
		CPUID:     cpuid.NewDevReader(flagCPU),
		Registers: pci.NewIndexed(cfg),
		CPU:       flagCPU,
	}
	if opts.MapTable {
		if exists, err := util.DeviceExists(physmem.DevMem); err != nil || !exists {
			slog.Warn("physical memory device unavailable", slog.String("path", physmem.DevMem))
		} else {
			deps.Mapper = physmem.New()
		}
	}
	if opts.CPPC {
		deps.CPPC = cppc.NewSysfs("")
	}
	p := plugin.New(deps)
	closeFn := func() error {
		err := p.Close()
		if cerr := cfg.Close(); err == nil {
			err = cerr
		}
		return err
	}
	if err := p.Attach(); err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}
