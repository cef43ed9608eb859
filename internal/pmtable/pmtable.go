// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package pmtable locates, sizes and maps the SMU power management table.
//
// The table lives in DRAM; the SMU publishes it there on request. Setup runs the
// sequence that finds the DRAM base, reads the table version, asks the firmware to
// publish the table and looks up the size of that version's layout. Map then hands
// the range to a physical memory mapper.
package pmtable

import (
	"errors"
	"fmt"

	"zensmu/internal/platform"
	"zensmu/internal/smu"
)

var (
	// ErrDramBaseUnavailable means a DRAM base sub-command failed or returned no address.
	ErrDramBaseUnavailable = errors.New("pm table dram base address unavailable")
	// ErrFailed means firmware reported the failure status.
	ErrFailed = errors.New("pm table command failed")
	// ErrUnsupported means the platform or table version has no known layout.
	ErrUnsupported = errors.New("pm table unsupported")
	// ErrVersionChanged means firmware now reports a different table version than the
	// one the table was sized for. Run Setup again.
	ErrVersionChanged = errors.New("pm table version changed")
	// ErrNotMapped means the table has no address or size to map.
	ErrNotMapped = errors.New("pm table not mapped")
)

// Executor sends one command to the SMU. *smu.Service implements it.
type Executor interface {
	Exec(cmd *smu.Command) error
}

// Table describes where the PM table lives and how large it is.
type Table struct {
	Platform platform.Platform `json:"platform" yaml:"platform"`
	Version  uint32            `json:"version" yaml:"version"`
	// Size is the byte size of the primary range at DramBase.
	Size uint32 `json:"size" yaml:"size"`
	// SecondarySize and DramBaseHigh are set only on the Raven family, whose table is
	// split across two banks.
	SecondarySize uint32 `json:"secondary_size,omitempty" yaml:"secondary_size,omitempty"`
	DramBase      uint64 `json:"dram_base" yaml:"dram_base"`
	DramBaseHigh  uint32 `json:"dram_base_high,omitempty" yaml:"dram_base_high,omitempty"`
	// Degraded is set when firmware does not expose the DRAM base. Such a table has a
	// version but can't be mapped.
	Degraded bool `json:"degraded" yaml:"degraded"`
}

func (t *Table) String() string {
	if t.Degraded {
		return fmt.Sprintf("%s pm table version 0x%x (dram base unsupported)", t.Platform, t.Version)
	}
	s := fmt.Sprintf("%s pm table version 0x%x at 0x%x size 0x%x", t.Platform, t.Version, t.DramBase, t.Size)
	if t.SecondarySize != 0 {
		s += fmt.Sprintf(", secondary at 0x%x size 0x%x", t.DramBaseHigh, t.SecondarySize)
	}
	return s
}

// Activated reports whether the PM table pipeline runs on p at attach time.
func Activated(p platform.Platform) bool {
	switch p.Class() {
	case platform.APU:
		return true
	case platform.Desktop:
		return p.DesktopVariant() == platform.Matisse || p.DesktopVariant() == platform.Vermeer
	}
	return false
}

// checkStatus converts a firmware status to a pipeline error. Statuses that aren't
// Failed or Unsupported map to other.
func checkStatus(stage string, status smu.Status, other error) error {
	switch status {
	case smu.StatusOK:
		return nil
	case smu.StatusFailed:
		return fmt.Errorf("%w: %s", ErrFailed, stage)
	case smu.StatusUnsupported:
		return fmt.Errorf("%w: %s", ErrUnsupported, stage)
	}
	return fmt.Errorf("%w: %s returned %s", other, stage, status)
}
