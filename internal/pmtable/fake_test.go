// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import (
	"errors"

	"zensmu/internal/smu"
)

type opKey struct {
	opcode uint32
	arg0   uint32
}

type reply struct {
	args   [smu.ArgCount]uint32
	status smu.Status
	err    error
}

// fakeExec answers commands by opcode and first argument. Unlisted commands succeed
// with zero arguments.
type fakeExec struct {
	replies map[opKey]reply
	sent    []smu.Command
}

func (f *fakeExec) Exec(cmd *smu.Command) error {
	f.sent = append(f.sent, *cmd)
	r, ok := f.replies[opKey{cmd.Opcode, cmd.Args[0]}]
	if !ok {
		r = reply{status: smu.StatusOK}
	}
	if r.err != nil {
		cmd.Response = 0
		return r.err
	}
	cmd.Args = r.args
	cmd.Response = r.status
	return nil
}

func (f *fakeExec) sentKeys() []opKey {
	keys := make([]opKey, 0, len(f.sent))
	for _, c := range f.sent {
		keys = append(keys, opKey{c.Opcode, c.Args[0]})
	}
	return keys
}

func ok(args ...uint32) reply {
	r := reply{status: smu.StatusOK}
	copy(r.args[:], args)
	return r
}

type fakeRegion struct {
	b      []byte
	closed bool
}

func (r *fakeRegion) Bytes() []byte { return r.b }

func (r *fakeRegion) Close() error {
	if r.closed {
		return errors.New("already closed")
	}
	r.closed = true
	return nil
}

type mapCall struct {
	addr uint64
	size int
}

type fakeMapper struct {
	calls   []mapCall
	regions []*fakeRegion
	fail    map[uint64]error
}

func (m *fakeMapper) MapPhysical(addr uint64, size int) (Region, error) {
	m.calls = append(m.calls, mapCall{addr, size})
	if err := m.fail[addr]; err != nil {
		return nil, err
	}
	r := &fakeRegion{b: make([]byte, size)}
	m.regions = append(m.regions, r)
	return r, nil
}
