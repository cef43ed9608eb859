package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"zensmu/internal/platform"
)

const opGetSmuVersion uint32 = 0x02

// Service sends commands to the mailbox the command names on a fixed platform and
// keeps the state reported by DumpState.
type Service struct {
	platform  platform.Platform
	resolver  *Resolver
	transport *Transport

	mu           sync.Mutex
	started      bool
	inUse        AddressSet
	lastReturned Status
	version      uint32
	dramBase     uint64
}

// NewService returns a service for p. A nil resolver selects DefaultResolver.
func NewService(p platform.Platform, transport *Transport, resolver *Resolver) *Service {
	if resolver == nil {
		resolver = DefaultResolver
	}
	return &Service{platform: p, resolver: resolver, transport: transport}
}

func (s *Service) Platform() platform.Platform {
	return s.platform
}

// Resolve returns the address set for kind and makes it the set reported as in use.
func (s *Service) Resolve(kind Kind) (AddressSet, error) {
	addrs, err := s.resolver.Resolve(s.platform, kind)
	if err != nil {
		return AddressSet{}, err
	}
	s.mu.Lock()
	s.inUse = addrs
	s.mu.Unlock()
	return addrs, nil
}

// Exec resolves the mailbox named by cmd.Mailbox and sends cmd to it. Address
// resolution failures abort before any register is touched.
func (s *Service) Exec(cmd *Command) error {
	addrs, err := s.Resolve(cmd.Mailbox)
	if err != nil {
		slog.Error("finding address for smu mailbox failed", slog.String("mailbox", cmd.Mailbox.String()), slog.String("error", err.Error()))
		return err
	}
	err = s.transport.Send(addrs, cmd)
	s.mu.Lock()
	if err != nil {
		s.lastReturned = StatusFailed
	} else {
		s.lastReturned = cmd.Response
	}
	s.mu.Unlock()
	return err
}

// FirmwareVersion asks MP1 for the SMU firmware version.
func (s *Service) FirmwareVersion() (uint32, error) {
	slog.Debug("grabbing smu version")
	cmd := NewCommand(MP1, opGetSmuVersion, 1)
	if err := s.Exec(cmd); err != nil {
		return 0, err
	}
	if cmd.Response == StatusFailed {
		return 0, fmt.Errorf("%w: get smu version", ErrCommandFailed)
	}
	s.mu.Lock()
	s.version = cmd.Args[0]
	s.mu.Unlock()
	return cmd.Args[0], nil
}

// FormatVersion renders a firmware version word as major.minor.patch.
func FormatVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF)
}

// MarkStarted records that the service finished attaching.
func (s *Service) MarkStarted() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
}

// SetDramBase records the PM table DRAM base for state dumps.
func (s *Service) SetDramBase(addr uint64) {
	s.mu.Lock()
	s.dramBase = addr
	s.mu.Unlock()
}

// State is a snapshot of the service for diagnostics.
type State struct {
	Started      bool              `json:"started" yaml:"started"`
	LastCommand  Command           `json:"last_command" yaml:"last_command"`
	Version      string            `json:"version" yaml:"version"`
	VersionRaw   uint32            `json:"version_raw" yaml:"version_raw"`
	Mailbox      AddressSet        `json:"mailbox" yaml:"mailbox"`
	LastReturned Status            `json:"last_returned" yaml:"last_returned"`
	DramBase     uint64            `json:"dram_base" yaml:"dram_base"`
	Platform     platform.Platform `json:"platform" yaml:"platform"`
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Started:      s.started,
		LastCommand:  s.transport.LastCommand(),
		Version:      FormatVersion(s.version),
		VersionRaw:   s.version,
		Mailbox:      s.inUse,
		LastReturned: s.lastReturned,
		DramBase:     s.dramBase,
		Platform:     s.platform,
	}
}

// DumpState logs the service state.
func (s *Service) DumpState() {
	st := s.State()
	p := st.Platform
	slog.Info("smu services state",
		slog.Bool("started", st.Started),
		slog.Group("last_command",
			slog.String("msg", fmt.Sprintf("0x%x", st.LastCommand.Opcode)),
			slog.String("args", fmt.Sprintf("%#x", st.LastCommand.Args)),
			slog.String("response", fmt.Sprintf("0x%x", uint32(st.LastCommand.Response)))),
		slog.Group("smu",
			slog.String("version", fmt.Sprintf("0x%x", st.VersionRaw)),
			slog.String("interface", st.Mailbox.Interface.String()),
			slog.String("mailbox", st.Mailbox.Kind.String()),
			slog.String("args_addr", fmt.Sprintf("0x%x", st.Mailbox.Args)),
			slog.String("cmd_addr", fmt.Sprintf("0x%x", st.Mailbox.Command)),
			slog.String("rsp_addr", fmt.Sprintf("0x%x", st.Mailbox.Response)),
			slog.String("last_returned", st.LastReturned.String()),
			slog.String("last_returned_hex", fmt.Sprintf("0x%x", uint32(st.LastReturned))),
			slog.String("dram_base", fmt.Sprintf("0x%x", st.DramBase))),
		slog.Group("platforms",
			slog.String("current", p.Class().String()),
			slog.String("apu", p.APUVariant().String()),
			slog.String("desktop", p.DesktopVariant().String()),
			slog.String("hedt", p.HEDTVariant().String())),
	)
}

// IsTransient reports whether err is a busy or timeout condition that a later
// attempt may not hit.
func IsTransient(err error) bool {
	return errors.Is(err, ErrMailboxUnavailable) || errors.Is(err, ErrTimeout)
}
