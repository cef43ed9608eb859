// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package smu

import (
	"testing"

	"zensmu/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allPlatforms() []platform.Platform {
	var all []platform.Platform
	for v := platform.Raven; v <= platform.Phoenix; v++ {
		all = append(all, platform.NewAPU(v))
	}
	for v := platform.SummitRidge; v <= platform.Raphael; v++ {
		all = append(all, platform.NewDesktop(v))
	}
	for v := platform.Whitehaven; v <= platform.Chagall; v++ {
		all = append(all, platform.NewHEDT(v))
	}
	return append(all, platform.Platform{})
}

func TestResolveNeverReturnsIncompleteSet(t *testing.T) {
	for _, p := range allPlatforms() {
		for _, kind := range []Kind{RSMU, MP1, HSMP} {
			set, err := DefaultResolver.Resolve(p, kind)
			if err != nil {
				assert.ErrorIs(t, err, ErrUnresolved)
				assert.Equal(t, AddressSet{}, set)
				continue
			}
			assert.True(t, set.Complete(), "%s %s", p, kind)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		platform platform.Platform
		kind     Kind
		want     AddressSet
	}{
		{platform.NewAPU(platform.Raven), MP1, AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10998, Interface: InterfaceV10, Kind: MP1}},
		{platform.NewAPU(platform.Dali), MP1, AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10998, Interface: InterfaceV10, Kind: MP1}},
		{platform.NewAPU(platform.Renoir), MP1, AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10998, Interface: InterfaceV12, Kind: MP1}},
		{platform.NewAPU(platform.Cezanne), RSMU, AddressSet{Command: 0x3B10A20, Response: 0x3B10A80, Args: 0x3B10A88, Interface: InterfaceNotMP1, Kind: RSMU}},
		{platform.NewAPU(platform.Picasso), RSMU, AddressSet{Command: 0x3B10A20, Response: 0x3B10A80, Args: 0x3B10A88, Interface: InterfaceNotMP1, Kind: RSMU}},
		{platform.NewAPU(platform.Rembrandt), MP1, AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10998, Interface: InterfaceV13, Kind: MP1}},
		{platform.NewDesktop(platform.SummitRidge), RSMU, AddressSet{Command: 0x3B1051C, Response: 0x3B10568, Args: 0x3B10590, Interface: InterfaceNotMP1, Kind: RSMU}},
		{platform.NewHEDT(platform.Colfax), MP1, AddressSet{Command: 0x3B10528, Response: 0x3B10564, Args: 0x3B10598, Interface: InterfaceV9, Kind: MP1}},
		{platform.NewDesktop(platform.Matisse), RSMU, AddressSet{Command: 0x3B10524, Response: 0x3B10570, Args: 0x3B10A40, Interface: InterfaceNotMP1, Kind: RSMU}},
		{platform.NewDesktop(platform.Vermeer), MP1, AddressSet{Command: 0x3B10530, Response: 0x3B1057C, Args: 0x3B109C4, Interface: InterfaceV11, Kind: MP1}},
		{platform.NewHEDT(platform.CastlePeak), MP1, AddressSet{Command: 0x3B10530, Response: 0x3B1057C, Args: 0x3B109C4, Interface: InterfaceV11, Kind: MP1}},
	}
	for _, tt := range tests {
		t.Run(tt.platform.String()+"/"+tt.kind.String(), func(t *testing.T) {
			got, err := DefaultResolver.Resolve(tt.platform, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSubstitutesMP1ForRSMU(t *testing.T) {
	for _, v := range []platform.APUVariant{platform.VanGogh, platform.Rembrandt, platform.Mendocino} {
		p := platform.NewAPU(v)
		rsmu, err := DefaultResolver.Resolve(p, RSMU)
		require.NoError(t, err)
		mp1, err := DefaultResolver.Resolve(p, MP1)
		require.NoError(t, err)
		assert.Equal(t, MP1, rsmu.Kind)
		assert.Equal(t, mp1, rsmu)
	}
}

func TestResolveUnresolved(t *testing.T) {
	tests := []struct {
		platform platform.Platform
		kind     Kind
	}{
		{platform.Platform{}, MP1},
		{platform.Platform{}, RSMU},
		{platform.NewAPU(platform.Renoir), HSMP},
		{platform.NewDesktop(platform.Raphael), MP1},
		{platform.NewHEDT(platform.Chagall), RSMU},
		{platform.NewAPU(platform.Phoenix), MP1},
	}
	for _, tt := range tests {
		_, err := DefaultResolver.Resolve(tt.platform, tt.kind)
		assert.ErrorIs(t, err, ErrUnresolved, "%s %s", tt.platform, tt.kind)
	}
}

func TestResolvePartialSetFails(t *testing.T) {
	r, err := NewResolver([]AddressEntry{
		{Platforms: []platform.Platform{platform.NewAPU(platform.Renoir)}, Kind: MP1, Set: AddressSet{Command: 0x3B10528, Response: 0x3B10564, Kind: MP1}},
	})
	require.NoError(t, err)
	_, err = r.Resolve(platform.NewAPU(platform.Renoir), MP1)
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestNewResolverRejectsDuplicates(t *testing.T) {
	_, err := NewResolver([]AddressEntry{
		{Platforms: ravenGroup, Kind: MP1, Set: apuMP1},
		{Platforms: []platform.Platform{platform.NewAPU(platform.Dali)}, Kind: MP1, Set: apuMP1},
	})
	assert.ErrorContains(t, err, "duplicate MP1 address entry for APU(Dali)")
	assert.Panics(t, func() {
		MustNewResolver([]AddressEntry{{Platforms: ravenGroup, Kind: RSMU}, {Platforms: ravenGroup, Kind: RSMU}})
	})
}
