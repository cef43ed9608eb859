package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"sync"
)

// PollRetries is the number of response register reads made while waiting for the
// mailbox, both before staging a command and after issuing it. The budget is a read
// count, not a duration.
const PollRetries = 500

// RegisterAccessor reads and writes SMU registers by address.
type RegisterAccessor interface {
	ReadReg32(addr uint32) (uint32, error)
	WriteReg32(addr uint32, value uint32) error
}

// Transport runs the mailbox handshake. It serializes transactions: the mailbox
// registers are a single hardware resource shared by every caller.
//
// A transaction cannot be cancelled once started; a caller blocked in Send returns
// only after the poll budget is spent or firmware answers.
type Transport struct {
	mu      sync.Mutex
	regs    RegisterAccessor
	retries int

	lastMu sync.Mutex
	last   Command
}

// NewTransport returns a transport that accesses registers through regs.
func NewTransport(regs RegisterAccessor) *Transport {
	return &Transport{regs: regs, retries: PollRetries}
}

// LastCommand returns a copy of the most recent command passed to Send, as it stood
// when Send returned.
func (t *Transport) LastCommand() Command {
	t.lastMu.Lock()
	defer t.lastMu.Unlock()
	return t.last
}

func (t *Transport) record(cmd *Command) {
	t.lastMu.Lock()
	t.last = *cmd
	t.lastMu.Unlock()
}

// Send performs one transaction on the mailbox at addrs:
//
//  1. wait for a non-zero response register (ErrMailboxUnavailable)
//  2. clear the response register
//  3. write all six argument registers
//  4. write the opcode to the command register
//  5. wait for a non-zero response register (ErrTimeout)
//  6. read back all six argument registers into cmd.Args
//
// A non-OK response is not an error; it is left in cmd.Response for the caller.
// The command is recorded as the last one before the mailbox is released.
func (t *Transport) Send(addrs AddressSet, cmd *Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.send(addrs, cmd)
	t.record(cmd)
	observeTransaction(addrs.Kind, cmd.Response, err)
	return err
}

func (t *Transport) send(addrs AddressSet, cmd *Command) (err error) {
	cmd.Response = 0
	if !addrs.Complete() {
		return fmt.Errorf("%w: %s", ErrUnresolved, addrs)
	}

	slog.Debug("sending command to smu", slog.String("mailbox", addrs.Kind.String()), slog.String("msg", fmt.Sprintf("0x%x", cmd.Opcode)), slog.String("args", fmt.Sprintf("%#x", cmd.Args)))
	rsp, err := t.poll(addrs)
	if err != nil {
		return err
	}
	if rsp == 0 {
		slog.Error("timed out whilst waiting for the mailbox to be available", slog.String("mailbox", addrs.Kind.String()))
		return ErrMailboxUnavailable
	}
	if err = t.write(addrs.Response, 0); err != nil {
		return err
	}
	for i := range ArgCount {
		if err = t.write(addrs.arg(i), cmd.Args[i]); err != nil {
			return err
		}
	}
	if err = t.write(addrs.Command, cmd.Opcode); err != nil {
		return err
	}
	rsp, err = t.poll(addrs)
	if err != nil {
		return err
	}
	if rsp == 0 {
		slog.Error("timed out whilst waiting for the smu to respond", slog.String("mailbox", addrs.Kind.String()), slog.String("msg", fmt.Sprintf("0x%x", cmd.Opcode)))
		return ErrTimeout
	}
	cmd.Response = Status(rsp)
	if cmd.Response != StatusOK {
		slog.Warn("smu response was not OK", slog.String("msg", fmt.Sprintf("0x%x", cmd.Opcode)), slog.String("response", fmt.Sprintf("0x%x", rsp)), slog.String("status", cmd.Response.String()))
	}
	for i := range ArgCount {
		if cmd.Args[i], err = t.read(addrs.arg(i)); err != nil {
			return err
		}
	}
	slog.Debug("smu has responded", slog.String("msg", fmt.Sprintf("0x%x", cmd.Opcode)), slog.String("args", fmt.Sprintf("%#x", cmd.Args)))
	return nil
}

// poll reads the response register until it is non-zero or the budget is spent.
func (t *Transport) poll(addrs AddressSet) (uint32, error) {
	polls := 0
	defer func() { observePolls(addrs.Kind, polls) }()
	for range t.retries {
		polls++
		v, err := t.read(addrs.Response)
		if err != nil {
			return 0, err
		}
		if v != 0 {
			return v, nil
		}
	}
	return 0, nil
}

func (t *Transport) read(addr uint32) (uint32, error) {
	v, err := t.regs.ReadReg32(addr)
	if err != nil {
		return 0, fmt.Errorf("%w: read 0x%x: %w", ErrRegisterAccess, addr, err)
	}
	return v, nil
}

func (t *Transport) write(addr, value uint32) error {
	if err := t.regs.WriteReg32(addr, value); err != nil {
		return fmt.Errorf("%w: write 0x%x: %w", ErrRegisterAccess, addr, err)
	}
	return nil
}
