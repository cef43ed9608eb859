// Package platform maps a decoded CPU identity to the AMD platform class and codename
// that select every SMU mailbox address, opcode and PM table layout.
package platform

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "fmt"

// Class is the broad product segment of a platform.
type Class uint32

const (
	Undetermined Class = iota
	APU
	Desktop
	HEDT
)

func (c Class) String() string {
	switch c {
	case Undetermined:
		return "Undetermined"
	case APU:
		return "APU"
	case Desktop:
		return "Desktop"
	case HEDT:
		return "HEDT"
	}
	return fmt.Sprintf("Class(%d)", uint32(c))
}

// APUVariant enumerates Ryzen mobile and desktop APU codenames.
type APUVariant uint32

const (
	NotAPU APUVariant = iota
	Raven
	Raven2
	Picasso
	Dali
	Renoir
	Lucienne
	Cezanne
	VanGogh
	Rembrandt
	Mendocino
	Barcelo
	Phoenix
)

var apuNames = []string{"NotAPUPlatform", "Raven", "Raven2", "Picasso", "Dali", "Renoir", "Lucienne", "Cezanne", "VanGogh", "Rembrandt", "Mendocino", "Barcelo", "Phoenix"}

func (v APUVariant) String() string {
	if int(v) < len(apuNames) {
		return apuNames[v]
	}
	return fmt.Sprintf("APUVariant(%d)", uint32(v))
}

// DesktopVariant enumerates Ryzen desktop codenames.
type DesktopVariant uint32

const (
	NotDesktop DesktopVariant = iota
	SummitRidge
	PinnacleRidge
	Matisse
	Vermeer
	Raphael
)

var desktopNames = []string{"NotDesktopPlatform", "SummitRidge", "PinnacleRidge", "Matisse", "Vermeer", "Raphael"}

func (v DesktopVariant) String() string {
	if int(v) < len(desktopNames) {
		return desktopNames[v]
	}
	return fmt.Sprintf("DesktopVariant(%d)", uint32(v))
}

// HEDTVariant enumerates Threadripper codenames.
type HEDTVariant uint32

const (
	NotHEDT HEDTVariant = iota
	Whitehaven
	Colfax
	CastlePeak
	Chagall
)

var hedtNames = []string{"NotHEDTPlatform", "Whitehaven", "Colfax", "CastlePeak", "Chagall"}

func (v HEDTVariant) String() string {
	if int(v) < len(hedtNames) {
		return hedtNames[v]
	}
	return fmt.Sprintf("HEDTVariant(%d)", uint32(v))
}

// Platform is the classified platform: a class and the one variant that applies to it.
// The variants of the other classes always hold their "not applicable" zero value.
// The zero Platform is Undetermined.
type Platform struct {
	class   Class
	apu     APUVariant
	desktop DesktopVariant
	hedt    HEDTVariant
}

func NewAPU(v APUVariant) Platform {
	if v == NotAPU {
		return Platform{}
	}
	return Platform{class: APU, apu: v}
}

func NewDesktop(v DesktopVariant) Platform {
	if v == NotDesktop {
		return Platform{}
	}
	return Platform{class: Desktop, desktop: v}
}

func NewHEDT(v HEDTVariant) Platform {
	if v == NotHEDT {
		return Platform{}
	}
	return Platform{class: HEDT, hedt: v}
}

func (p Platform) Class() Class { return p.class }

func (p Platform) APUVariant() APUVariant { return p.apu }

func (p Platform) DesktopVariant() DesktopVariant { return p.desktop }

func (p Platform) HEDTVariant() HEDTVariant { return p.hedt }

// IsUndetermined reports whether classification found no matching platform.
func (p Platform) IsUndetermined() bool {
	return p.class == Undetermined
}

// Codename returns the variant name, e.g. "Renoir", or "Undetermined".
func (p Platform) Codename() string {
	switch p.class {
	case APU:
		return p.apu.String()
	case Desktop:
		return p.desktop.String()
	case HEDT:
		return p.hedt.String()
	}
	return Undetermined.String()
}

func (p Platform) String() string {
	if p.class == Undetermined {
		return Undetermined.String()
	}
	return fmt.Sprintf("%s(%s)", p.class, p.Codename())
}

func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// valid reports whether exactly the variant belonging to the class is set.
func (p Platform) valid() bool {
	switch p.class {
	case Undetermined:
		return p.apu == NotAPU && p.desktop == NotDesktop && p.hedt == NotHEDT
	case APU:
		return p.apu != NotAPU && p.desktop == NotDesktop && p.hedt == NotHEDT
	case Desktop:
		return p.desktop != NotDesktop && p.apu == NotAPU && p.hedt == NotHEDT
	case HEDT:
		return p.hedt != NotHEDT && p.apu == NotAPU && p.desktop == NotDesktop
	}
	return false
}
