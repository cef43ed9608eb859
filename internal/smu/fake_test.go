// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package smu

import "sync"

type access struct {
	write bool
	addr  uint32
	value uint32
}

// fakeRegs emulates a mailbox at set. The response register returns successive
// values from ready until the opcode is written and from done afterwards; the last
// value of each sequence repeats. Clearing the response register starts a new
// transaction.
type fakeRegs struct {
	mu      sync.Mutex
	set     AddressSet
	ready   []uint32
	done    []uint32
	reply   [ArgCount]uint32
	issued  bool
	readyN  int
	doneN   int
	ops     []access
	readErr error
}

func seq(vals []uint32, n int) uint32 {
	if len(vals) == 0 {
		return 0
	}
	if n >= len(vals) {
		return vals[len(vals)-1]
	}
	return vals[n]
}

func (f *fakeRegs) ReadReg32(addr uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, access{addr: addr})
	if f.readErr != nil {
		return 0, f.readErr
	}
	if addr == f.set.Response {
		if !f.issued {
			v := seq(f.ready, f.readyN)
			f.readyN++
			return v
		}
		v := seq(f.done, f.doneN)
		f.doneN++
		return v
	}
	for i := range ArgCount {
		if addr == f.set.arg(i) {
			return f.reply[i], nil
		}
	}
	return 0, nil
}

func (f *fakeRegs) WriteReg32(addr uint32, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, access{write: true, addr: addr, value: value})
	switch addr {
	case f.set.Command:
		f.issued = true
	case f.set.Response:
		f.issued = false
		f.doneN = 0
	}
	return nil
}

func (f *fakeRegs) responseReads() int {
	n := 0
	for _, op := range f.ops {
		if !op.write && op.addr == f.set.Response {
			n++
		}
	}
	return n
}

func (f *fakeRegs) writes() int {
	n := 0
	for _, op := range f.ops {
		if op.write {
			n++
		}
	}
	return n
}

var testSet = AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10998, Interface: InterfaceV12, Kind: MP1}
