// Package smu talks to the AMD System Management Unit through its register mailboxes.
package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "errors"

// Status is the value firmware leaves in the response register.
type Status uint32

const (
	StatusOK                Status = 0x01
	StatusFailed            Status = 0xFF
	StatusUnknownCmd        Status = 0xFE
	StatusCmdRejectedPrereq Status = 0xFD
	StatusCmdRejectedBusy   Status = 0xFC
	StatusUnsupported       Status = 0xFB
	StatusUnknownReturn     Status = 0xFA
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFailed:
		return "Failed"
	case StatusUnknownCmd:
		return "UnknownCmd"
	case StatusCmdRejectedPrereq:
		return "CmdRejectedPrereq"
	case StatusCmdRejectedBusy:
		return "CmdRejectedBusy"
	case StatusUnsupported:
		return "Unsupported"
	}
	return "UnknownReturn"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrUnresolved means the platform has no complete address set for the mailbox.
	ErrUnresolved = errors.New("smu mailbox address unresolved")
	// ErrMailboxUnavailable means the response register stayed zero before the command was staged.
	ErrMailboxUnavailable = errors.New("timed out waiting for the smu mailbox to be available")
	// ErrTimeout means the response register stayed zero after the command was issued.
	ErrTimeout = errors.New("timed out waiting for the smu to respond")
	// ErrRegisterAccess wraps failures of the underlying register accessor.
	ErrRegisterAccess = errors.New("smu register access failed")
	// ErrCommandFailed means firmware answered with StatusFailed.
	ErrCommandFailed = errors.New("smu reported failure")
)
