// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package pci accesses PCI configuration space through sysfs and provides the
// indexed register window the SMU mailboxes sit behind.
package pci

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultDevice is the host bridge that exposes the SMN index/data pair.
const DefaultDevice = "0000:00:00.0"

var sysBusPciPath = "/sys/bus/pci/devices"

// ConfigSpace is an open sysfs config file of one device.
type ConfigSpace struct {
	path string
	fd   int
}

// SysfsPath returns the config file path of the device at addr, e.g. 0000:00:00.0.
func SysfsPath(addr string) string {
	return filepath.Join(sysBusPciPath, addr, "config")
}

// Open opens the config space of the device at addr for reading and writing.
func Open(addr string) (*ConfigSpace, error) {
	return OpenPath(SysfsPath(addr))
}

// OpenPath opens a config space file by path.
func OpenPath(path string) (*ConfigSpace, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	return &ConfigSpace{path: path, fd: fd}, nil
}

func (c *ConfigSpace) ReadConfig32(offset uint32) (uint32, error) {
	var b [4]byte
	n, err := unix.Pread(c.fd, b[:], int64(offset))
	if err != nil {
		return 0, errors.Wrapf(err, "couldn't read %s at 0x%x", c.path, offset)
	}
	if n != len(b) {
		return 0, fmt.Errorf("short read of %d bytes from %s at 0x%x", n, c.path, offset)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (c *ConfigSpace) WriteConfig32(offset uint32, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	n, err := unix.Pwrite(c.fd, b[:], int64(offset))
	if err != nil {
		return errors.Wrapf(err, "couldn't write %s at 0x%x", c.path, offset)
	}
	if n != len(b) {
		return fmt.Errorf("short write of %d bytes to %s at 0x%x", n, c.path, offset)
	}
	return nil
}

func (c *ConfigSpace) Close() error {
	return unix.Close(c.fd)
}

// Config reads and writes 32-bit config space words.
type Config interface {
	ReadConfig32(offset uint32) (uint32, error)
	WriteConfig32(offset uint32, value uint32) error
}

const (
	// IndexOffset is the config offset that selects the target register.
	IndexOffset uint32 = 0xC4
	// DataOffset is the config offset that reads or writes the selected register.
	DataOffset uint32 = 0xC8
)

// Indexed reaches registers by writing their address to IndexOffset and then
// accessing DataOffset. The pair is one operation; Indexed holds a lock across it.
type Indexed struct {
	mu  sync.Mutex
	cfg Config
}

func NewIndexed(cfg Config) *Indexed {
	return &Indexed{cfg: cfg}
}

func (x *Indexed) ReadReg32(addr uint32) (uint32, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.cfg.WriteConfig32(IndexOffset, addr); err != nil {
		return 0, err
	}
	return x.cfg.ReadConfig32(DataOffset)
}

func (x *Indexed) WriteReg32(addr uint32, value uint32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.cfg.WriteConfig32(IndexOffset, addr); err != nil {
		return err
	}
	return x.cfg.WriteConfig32(DataOffset, value)
}
