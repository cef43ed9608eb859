package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "fmt"

// ArgCount is the number of argument registers in every mailbox.
const ArgCount = 6

// Command is one mailbox transaction. Args carries the request on the way in and the
// firmware's reply on the way out.
type Command struct {
	Opcode   uint32           `json:"opcode" yaml:"opcode"`
	Args     [ArgCount]uint32 `json:"args" yaml:"args"`
	Response Status           `json:"response" yaml:"response"`
	Mailbox  Kind             `json:"mailbox" yaml:"mailbox"`
}

// NewCommand returns a command with arg0 set and every other argument zero.
func NewCommand(kind Kind, opcode, arg0 uint32) *Command {
	cmd := &Command{Opcode: opcode, Mailbox: kind}
	cmd.Args[0] = arg0
	return cmd
}

// ClearArgs zeroes arguments 1 through 5 and leaves argument 0 untouched. Firmware
// reads all six registers, so stale values must not survive between transactions.
func (c *Command) ClearArgs() {
	for i := 1; i < ArgCount; i++ {
		c.Args[i] = 0
	}
}

// Reuse prepares c for another transaction on the same mailbox.
func (c *Command) Reuse(opcode, arg0 uint32) {
	c.ClearArgs()
	c.Opcode = opcode
	c.Args[0] = arg0
	c.Response = 0
}

func (c Command) String() string {
	return fmt.Sprintf("%s msg 0x%X args [0x%X 0x%X 0x%X 0x%X 0x%X 0x%X]", c.Mailbox, c.Opcode, c.Args[0], c.Args[1], c.Args[2], c.Args[3], c.Args[4], c.Args[5])
}
