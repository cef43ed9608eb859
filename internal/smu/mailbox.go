package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "fmt"

// Kind identifies one of the SMU mailbox register sets.
type Kind uint32

const (
	RSMU Kind = iota
	MP1
	HSMP
)

func (k Kind) String() string {
	switch k {
	case RSMU:
		return "RSMU"
	case MP1:
		return "MP1"
	case HSMP:
		return "HSMP"
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// InterfaceVersion is the MP1 firmware interface generation. RSMU mailboxes report
// InterfaceNotMP1.
type InterfaceVersion uint32

const (
	InterfaceNotMP1 InterfaceVersion = 0
	InterfaceV9     InterfaceVersion = 9
	InterfaceV10    InterfaceVersion = 10
	InterfaceV11    InterfaceVersion = 11
	InterfaceV12    InterfaceVersion = 12
	InterfaceV13    InterfaceVersion = 13
)

func (v InterfaceVersion) String() string {
	if v == InterfaceNotMP1 {
		return "not MP1"
	}
	return fmt.Sprintf("v%d", uint32(v))
}

func (v InterfaceVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// AddressSet is the register triple of one mailbox. Args is the base of six
// consecutive 32-bit argument registers.
type AddressSet struct {
	Command   uint32           `json:"command" yaml:"command"`
	Response  uint32           `json:"response" yaml:"response"`
	Args      uint32           `json:"args" yaml:"args"`
	Interface InterfaceVersion `json:"interface" yaml:"interface"`
	Kind      Kind             `json:"kind" yaml:"kind"`
}

// Complete reports whether all three addresses are non-zero.
func (a AddressSet) Complete() bool {
	return a.Command != 0 && a.Response != 0 && a.Args != 0
}

func (a AddressSet) arg(i int) uint32 {
	return a.Args + uint32(i)*4
}

func (a AddressSet) String() string {
	return fmt.Sprintf("%s cmd 0x%X rsp 0x%X args 0x%X (interface %s)", a.Kind, a.Command, a.Response, a.Args, a.Interface)
}
