// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"zensmu/cmd"
	"zensmu/internal/common"
)

func main() {
	// profile only if the environment variable is set, its value names the output directory
	if dir := os.Getenv("ZENSMU_PROFILE"); dir != "" {
		cpuPath := filepath.Join(dir, common.AppName+"-cpu.prof")
		memPath := filepath.Join(dir, common.AppName+"-mem.prof")
		// CPU profiling
		cpuFile, err := os.Create(cpuPath) // #nosec G304
		if err != nil {
			panic(err)
		}
		defer cpuFile.Close()

		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()

		// Memory profiling
		memFile, err := os.Create(memPath) // #nosec G304
		if err != nil {
			panic(err)
		}
		defer memFile.Close()
		defer func() {
			if err := pprof.WriteHeapProfile(memFile); err != nil {
				panic(err)
			}
		}()
		defer func() {
			fmt.Fprintf(os.Stderr, "Profiling data written to %s and %s\n", cpuPath, memPath)
		}()
	}
	// register, cpuid and /dev/mem access need root
	if os.Geteuid() != 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s is not running as root, device access will likely fail\n", common.AppName)
	}
	cmd.Execute()
}
