// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package physmem maps physical memory ranges read-only through /dev/mem.
package physmem

import (
	"fmt"
	"log/slog"

	"zensmu/internal/pmtable"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const DevMem = "/dev/mem"

// Mapper maps ranges of a memory device. The zero value is not usable; use New.
type Mapper struct {
	path     string
	pageSize int
}

type Option func(*Mapper)

// WithPath maps from path instead of /dev/mem.
func WithPath(path string) Option {
	return func(m *Mapper) { m.path = path }
}

func New(opts ...Option) *Mapper {
	m := &Mapper{path: DevMem, pageSize: unix.Getpagesize()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Region is a mapped range. Bytes starts at the requested address even though the
// underlying mapping starts at the enclosing page boundary.
type Region struct {
	mem  []byte
	data []byte
}

func (r *Region) Bytes() []byte { return r.data }

// Close unmaps the range. It is safe to call more than once.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem, r.data = nil, nil
	return errors.Wrap(err, "couldn't unmap physical range")
}

// MapPhysical maps size bytes at physical address addr for reading.
func (m *Mapper) MapPhysical(addr uint64, size int) (pmtable.Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid mapping size %d", size)
	}
	pageMask := uint64(m.pageSize - 1)
	aligned := addr &^ pageMask
	skip := int(addr - aligned)
	length := (skip + size + m.pageSize - 1) &^ (m.pageSize - 1)

	fd, err := unix.Open(m.path, unix.O_RDONLY|unix.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", m.path)
	}
	// the mapping keeps its own reference to the file
	defer unix.Close(fd)

	slog.Debug("mapping physical range", slog.String("path", m.path), slog.String("phys_addr", fmt.Sprintf("0x%x", aligned)), slog.Int("length", length))
	mem, err := unix.Mmap(fd, int64(aligned), length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't map 0x%x bytes at 0x%x", length, aligned)
	}
	return &Region{mem: mem, data: mem[skip : skip+size]}, nil
}
