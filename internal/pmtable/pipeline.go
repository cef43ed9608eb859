// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"zensmu/internal/platform"
	"zensmu/internal/smu"
)

// Pipeline runs the PM table commands for one platform.
type Pipeline struct {
	exec     Executor
	platform platform.Platform

	mu   sync.Mutex
	last *smu.Command
}

// NewPipeline returns a pipeline sending its commands through exec.
func NewPipeline(exec Executor, p platform.Platform) *Pipeline {
	return &Pipeline{exec: exec, platform: p}
}

// LastCommand returns a copy of the last command the pipeline sent.
func (pl *Pipeline) LastCommand() (smu.Command, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.last == nil {
		return smu.Command{}, false
	}
	return *pl.last, true
}

// send runs cmd on the RSMU mailbox. Every PM table command goes there; the resolver
// substitutes MP1 on platforms without one.
func (pl *Pipeline) send(cmd *smu.Command) error {
	cmd.Mailbox = smu.RSMU
	err := pl.exec.Exec(cmd)
	last := *cmd
	pl.mu.Lock()
	pl.last = &last
	pl.mu.Unlock()
	return err
}

// Setup locates the table and sizes it. When firmware doesn't expose the DRAM base
// the returned table is Degraded and the error is nil.
func (pl *Pipeline) Setup() (*Table, error) {
	t := &Table{Platform: pl.platform}
	base, err := pl.DramBase()
	switch {
	case errors.Is(err, ErrUnsupported):
		slog.Warn("dram base address grabbing appears to be unsupported", slog.String("platform", pl.platform.String()))
		t.Degraded = true
	case err != nil:
		return nil, err
	}
	if t.Version, err = pl.Version(); err != nil {
		return nil, err
	}
	if t.Degraded {
		return t, nil
	}
	if err := pl.ToDram(); err != nil {
		return nil, err
	}
	layout, err := LookupLayout(pl.platform, t.Version)
	if err != nil {
		return nil, err
	}
	t.DramBase = base
	t.Size = layout.Size
	t.SecondarySize = layout.SecondarySize
	if layout.Split {
		t.DramBaseHigh = uint32(base >> 32)
		t.DramBase = base & 0xFFFFFFFF
	}
	slog.Debug("preparing pm table", slog.String("table", t.String()))
	return t, nil
}

// DramBase asks the SMU for the physical address of the table.
func (pl *Pipeline) DramBase() (uint64, error) {
	slog.Debug("grabbing smu dram base address")
	ops, ok := dramBaseTable[pl.platform]
	if !ok {
		return 0, fmt.Errorf("%w: no dram base command for %s", ErrUnsupported, pl.platform)
	}
	var (
		addr uint64
		err  error
	)
	switch {
	case ops.low != 0:
		addr, err = pl.dramBaseSplit(ops)
	case ops.high != 0:
		addr, err = pl.dramBasePrepared(ops)
	default:
		addr, err = pl.dramBaseDirect(ops)
	}
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: firmware returned address 0", ErrDramBaseUnavailable)
	}
	return addr, nil
}

func (pl *Pipeline) dramBaseStep(cmd *smu.Command) error {
	if err := pl.send(cmd); err != nil {
		return fmt.Errorf("%w: 0x%x: %w", ErrDramBaseUnavailable, cmd.Opcode, err)
	}
	return checkStatus(fmt.Sprintf("dram base command 0x%x", cmd.Opcode), cmd.Response, ErrDramBaseUnavailable)
}

// dramBaseSplit reads the two halves of the address, selecting them with
// arguments 3 and 5.
func (pl *Pipeline) dramBaseSplit(ops dramBaseOps) (uint64, error) {
	var part [2]uint32
	cmd := smu.NewCommand(smu.RSMU, ops.prepare, 3)
	steps := []struct {
		opcode uint32
		arg0   uint32
		part   int
	}{
		{ops.prepare, 3, -1},
		{ops.low, 3, 0},
		{ops.high, 3, -1},
		{ops.prepare, 5, -1},
		{ops.low, 5, 1},
	}
	for _, s := range steps {
		cmd.Reuse(s.opcode, s.arg0)
		if err := pl.dramBaseStep(cmd); err != nil {
			return 0, err
		}
		if s.part >= 0 {
			part[s.part] = cmd.Args[0]
		}
	}
	return uint64(part[1])<<32 | uint64(part[0]), nil
}

func (pl *Pipeline) dramBasePrepared(ops dramBaseOps) (uint64, error) {
	cmd := smu.NewCommand(smu.RSMU, ops.prepare, 0)
	if err := pl.dramBaseStep(cmd); err != nil {
		return 0, err
	}
	cmd.Reuse(ops.high, 0)
	if err := pl.dramBaseStep(cmd); err != nil {
		return 0, err
	}
	return uint64(cmd.Args[0]), nil
}

func (pl *Pipeline) dramBaseDirect(ops dramBaseOps) (uint64, error) {
	cmd := smu.NewCommand(smu.RSMU, ops.prepare, 1)
	cmd.Args[1] = 1
	if err := pl.dramBaseStep(cmd); err != nil {
		return 0, err
	}
	return uint64(cmd.Args[0]) | uint64(cmd.Args[1])<<32, nil
}

// Version reads the table version code.
func (pl *Pipeline) Version() (uint32, error) {
	opcode, ok := versionTable[pl.platform]
	if !ok {
		return 0, fmt.Errorf("%w: no table version command for %s", ErrUnsupported, pl.platform)
	}
	cmd := smu.NewCommand(smu.RSMU, opcode, 0)
	if err := pl.send(cmd); err != nil {
		return 0, err
	}
	if err := checkStatus("get table version", cmd.Response, ErrFailed); err != nil {
		return 0, err
	}
	slog.Debug("pm table version", slog.String("version", fmt.Sprintf("0x%x", cmd.Args[0])))
	return cmd.Args[0], nil
}

// ToDram asks firmware to publish the table into DRAM.
func (pl *Pipeline) ToDram() error {
	tc, ok := toDramTable[pl.platform]
	if !ok {
		return fmt.Errorf("%w: no transfer table command for %s", ErrUnsupported, pl.platform)
	}
	cmd := smu.NewCommand(smu.RSMU, tc.opcode, tc.arg0)
	if err := pl.send(cmd); err != nil {
		return err
	}
	return checkStatus("transfer table to dram", cmd.Response, ErrFailed)
}

// Refresh asks firmware to publish a fresh copy of t and checks that the version
// still matches.
func (pl *Pipeline) Refresh(t *Table) error {
	if t.Degraded {
		return fmt.Errorf("%w: %s", ErrNotMapped, t)
	}
	if err := pl.ToDram(); err != nil {
		return err
	}
	v, err := pl.Version()
	if err != nil {
		return err
	}
	if v != t.Version {
		return fmt.Errorf("%w: was 0x%x, now 0x%x", ErrVersionChanged, t.Version, v)
	}
	return nil
}
