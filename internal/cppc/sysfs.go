// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package cppc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const sysfsCPUPath = "/sys/devices/system/cpu"

// sysfsFields maps the files the kernel publishes under acpi_cppc to package indices.
var sysfsFields = map[string]int{
	"highest_perf":          HighestPerformance,
	"nominal_perf":          NominalPerformance,
	"lowest_nonlinear_perf": LowestNonlinearPerformance,
	"lowest_perf":           LowestPerformance,
	"guaranteed_perf":       GuaranteedPerformanceRegister,
	"wraparound_time":       CounterWraparoundTime,
	"reference_perf":        ReferencePerformance,
	"lowest_freq":           LowestFrequency,
	"nominal_freq":          NominalFrequency,
}

// Sysfs evaluates _CPC from the values the Linux CPPC driver exports. The kernel
// does not publish the register descriptors, so register fields are absent.
type Sysfs struct {
	root string
}

// NewSysfs returns an evaluator rooted at root, or the system cpu directory when
// root is empty.
func NewSysfs(root string) *Sysfs {
	if root == "" {
		root = sysfsCPUPath
	}
	return &Sysfs{root: root}
}

func (s *Sysfs) Evaluate(cpu int, object string) ([]Element, error) {
	if object != Object {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, object)
	}
	dir := filepath.Join(s.root, fmt.Sprintf("cpu%d", cpu), "acpi_cppc")
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, errors.Wrapf(err, "couldn't stat %s", dir)
	}
	pkg := make([]Element, FieldCount)
	pkg[Entries] = Int(FieldCount)
	for name, idx := range sysfsFields {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "couldn't read %s", name)
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't parse %s", name)
		}
		pkg[idx] = Int(v)
	}
	return pkg, nil
}
