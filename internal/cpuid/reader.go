package cpuid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const cpuidPath = "/dev/cpu/%d/cpuid"

// Reader returns the raw registers for a CPUID function.
type Reader interface {
	Leaf(function uint32) (Leaf, error)
}

// DevReader reads CPUID through the Linux cpuid driver. The driver maps the
// file offset to the function (low 32 bits) and sub-leaf (high 32 bits).
type DevReader struct {
	path string
}

// NewDevReader returns a reader for the given logical cpu.
func NewDevReader(cpu int) *DevReader {
	return &DevReader{path: fmt.Sprintf(cpuidPath, cpu)}
}

// ValidateModule checks that the cpuid device node exists for the given cpu.
func ValidateModule(cpu int) error {
	return validate(fmt.Sprintf(cpuidPath, cpu))
}

func validate(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, fmt.Sprintf("cpuid module isn't loaded at %s, please load it using modprobe cpuid command", path))
	}
	return nil
}

func (r *DevReader) Leaf(function uint32) (Leaf, error) {
	fd, err := unix.Open(r.path, unix.O_RDONLY, 0)
	if err != nil {
		return Leaf{}, errors.Wrapf(err, "couldn't open %s", r.path)
	}
	defer unix.Close(fd)

	buf := make([]byte, 16)
	n, err := unix.Pread(fd, buf, int64(function))
	if err != nil {
		return Leaf{}, errors.Wrapf(err, "couldn't read cpuid function 0x%x", function)
	}
	if n != len(buf) {
		return Leaf{}, fmt.Errorf("wrong byte count %d reading cpuid function 0x%x", n, function)
	}
	var leaf Leaf
	for i := range leaf {
		leaf[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	slog.Debug("read cpuid", slog.String("function", fmt.Sprintf("0x%x", function)), slog.String("eax", fmt.Sprintf("0x%08x", leaf[EAX])), slog.String("ebx", fmt.Sprintf("0x%08x", leaf[EBX])))
	return leaf, nil
}

// Read collects the vendor string and identity from r.
func Read(r Reader) (vendor string, id Identity, err error) {
	var leaf0, leaf1, leafExt Leaf
	if leaf0, err = r.Leaf(FunctionVendor); err != nil {
		return
	}
	if leaf1, err = r.Leaf(FunctionSignature); err != nil {
		return
	}
	if leafExt, err = r.Leaf(FunctionExtFeature); err != nil {
		return
	}
	vendor = Vendor(leaf0)
	id = Identify(leaf1, leafExt)
	return
}
