package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"

	"zensmu/internal/platform"

	mapset "github.com/deckarep/golang-set/v2"
)

// AddressEntry binds the mailbox kind requested on a group of platforms to the
// address set that serves it. Set.Kind may differ from Kind when firmware has no
// such mailbox and another one stands in for it.
type AddressEntry struct {
	Platforms []platform.Platform
	Kind      Kind
	Set       AddressSet
}

var (
	ravenGroup       = []platform.Platform{platform.NewAPU(platform.Raven), platform.NewAPU(platform.Raven2), platform.NewAPU(platform.Picasso), platform.NewAPU(platform.Dali)}
	renoirGroup      = []platform.Platform{platform.NewAPU(platform.Renoir), platform.NewAPU(platform.Lucienne), platform.NewAPU(platform.Cezanne), platform.NewAPU(platform.Barcelo)}
	vanGoghGroup     = []platform.Platform{platform.NewAPU(platform.VanGogh), platform.NewAPU(platform.Rembrandt), platform.NewAPU(platform.Mendocino)}
	zen1Group        = []platform.Platform{platform.NewDesktop(platform.SummitRidge), platform.NewDesktop(platform.PinnacleRidge), platform.NewHEDT(platform.Whitehaven), platform.NewHEDT(platform.Colfax)}
	zen2DesktopGroup = []platform.Platform{platform.NewDesktop(platform.Matisse), platform.NewDesktop(platform.Vermeer), platform.NewHEDT(platform.CastlePeak)}
)

var (
	apuRSMU = AddressSet{Command: 0x3B10A20, Response: 0x3B10A80, Args: 0x3B10A88, Interface: InterfaceNotMP1, Kind: RSMU}
	apuMP1  = AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10998, Kind: MP1}
)

// AddressTable holds the mailbox addresses for every supported platform.
var AddressTable = []AddressEntry{
	// RSMU
	{Platforms: ravenGroup, Kind: RSMU, Set: apuRSMU},
	{Platforms: renoirGroup, Kind: RSMU, Set: apuRSMU},
	// no RSMU on these, MP1 stands in
	{Platforms: vanGoghGroup, Kind: RSMU, Set: withInterface(apuMP1, InterfaceV13)},
	{Platforms: zen1Group, Kind: RSMU, Set: AddressSet{Command: 0x3B1051C, Response: 0x3B10568, Args: 0x3B10590, Interface: InterfaceNotMP1, Kind: RSMU}},
	{Platforms: zen2DesktopGroup, Kind: RSMU, Set: AddressSet{Command: 0x3B10524, Response: 0x3B10570, Args: 0x3B10A40, Interface: InterfaceNotMP1, Kind: RSMU}},
	// MP1
	{Platforms: ravenGroup, Kind: MP1, Set: withInterface(apuMP1, InterfaceV10)},
	{Platforms: renoirGroup, Kind: MP1, Set: withInterface(apuMP1, InterfaceV12)},
	{Platforms: vanGoghGroup, Kind: MP1, Set: withInterface(apuMP1, InterfaceV13)},
	{Platforms: zen1Group, Kind: MP1, Set: AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10598, Interface: InterfaceV9, Kind: MP1}},
	{Platforms: zen2DesktopGroup, Kind: MP1, Set: AddressSet{Command: 0x3B10530, Response: 0x3B1057C, Args: 0x3B109C4, Interface: InterfaceV11, Kind: MP1}},
}

func withInterface(a AddressSet, v InterfaceVersion) AddressSet {
	a.Interface = v
	return a
}

type resolveKey struct {
	platform platform.Platform
	kind     Kind
}

// Resolver looks up mailbox address sets by platform and mailbox kind.
type Resolver struct {
	sets map[resolveKey]AddressSet
}

// NewResolver indexes entries. A platform listed twice for the same kind is an error.
func NewResolver(entries []AddressEntry) (*Resolver, error) {
	seen := mapset.NewSet[resolveKey]()
	sets := make(map[resolveKey]AddressSet)
	for _, e := range entries {
		for _, p := range e.Platforms {
			key := resolveKey{platform: p, kind: e.Kind}
			if !seen.Add(key) {
				return nil, fmt.Errorf("duplicate %s address entry for %s", e.Kind, p)
			}
			sets[key] = e.Set
		}
	}
	return &Resolver{sets: sets}, nil
}

// MustNewResolver is like NewResolver but panics on a malformed table.
func MustNewResolver(entries []AddressEntry) *Resolver {
	r, err := NewResolver(entries)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultResolver resolves against AddressTable.
var DefaultResolver = MustNewResolver(AddressTable)

// Resolve returns the address set for kind on p. It fails with ErrUnresolved unless
// the command, response and argument addresses are all non-zero.
func (r *Resolver) Resolve(p platform.Platform, kind Kind) (AddressSet, error) {
	set := r.sets[resolveKey{platform: p, kind: kind}]
	if !set.Complete() {
		slog.Error("one of the smu mailbox addresses is null", slog.String("platform", p.String()), slog.String("mailbox", kind.String()))
		return AddressSet{}, fmt.Errorf("%w: %s on %s", ErrUnresolved, kind, p)
	}
	if set.Kind != kind {
		slog.Debug("mailbox substituted", slog.String("platform", p.String()), slog.String("requested", kind.String()), slog.String("using", set.Kind.String()))
	}
	return set, nil
}
