// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import "zensmu/internal/platform"

// dramBaseOps holds the opcodes of a DRAM base query. Which of them are non-zero
// decides the shape of the exchange:
//   - prepare, high and low: Raven family, two prepare/read rounds with selectors 3 and 5
//   - prepare and high: prepare, then read the address from high
//   - prepare only: one command returning the address in args 0 and 1
type dramBaseOps struct {
	prepare uint32
	high    uint32
	low     uint32
}

// tableCommand is an opcode with its first argument.
type tableCommand struct {
	opcode uint32
	arg0   uint32
}

var (
	ravenFamily = []platform.Platform{
		platform.NewAPU(platform.Raven),
		platform.NewAPU(platform.Raven2),
		platform.NewAPU(platform.Picasso),
		platform.NewAPU(platform.Dali),
	}
	renoirFamily = []platform.Platform{
		platform.NewAPU(platform.Renoir),
		platform.NewAPU(platform.Lucienne),
		platform.NewAPU(platform.Cezanne),
	}
	zen2Desktop = []platform.Platform{
		platform.NewDesktop(platform.Matisse),
		platform.NewDesktop(platform.Vermeer),
	}
)

var dramBaseTable = index(
	group(ravenFamily, dramBaseOps{prepare: 0x0A, high: 0x3D, low: 0x03}),
	group(renoirFamily, dramBaseOps{prepare: 0x66}),
	group([]platform.Platform{platform.NewDesktop(platform.PinnacleRidge), platform.NewHEDT(platform.Colfax)}, dramBaseOps{prepare: 0x0B, high: 0x0C}),
	group(append([]platform.Platform{platform.NewHEDT(platform.CastlePeak)}, zen2Desktop...), dramBaseOps{prepare: 0x06}),
)

var versionTable = index(
	group(ravenFamily, uint32(0x0C)),
	group(renoirFamily, uint32(0x06)),
	group(zen2Desktop, uint32(0x08)),
)

var toDramTable = index(
	group(ravenFamily, tableCommand{opcode: 0x3D, arg0: 3}),
	group([]platform.Platform{platform.NewAPU(platform.Renoir)}, tableCommand{opcode: 0x65, arg0: 3}),
	group([]platform.Platform{platform.NewAPU(platform.Cezanne), platform.NewAPU(platform.Lucienne)}, tableCommand{opcode: 0x65}),
	group(zen2Desktop, tableCommand{opcode: 0x05}),
)

type entry[T any] struct {
	platforms []platform.Platform
	value     T
}

func group[T any](platforms []platform.Platform, value T) entry[T] {
	return entry[T]{platforms: platforms, value: value}
}

// index flattens entries into a lookup map. A platform listed twice is a programming
// error in the tables above.
func index[T any](entries ...entry[T]) map[platform.Platform]T {
	m := make(map[platform.Platform]T)
	for _, e := range entries {
		for _, p := range e.platforms {
			if _, ok := m[p]; ok {
				panic("pmtable: duplicate table entry for " + p.String())
			}
			m[p] = e.value
		}
	}
	return m
}
