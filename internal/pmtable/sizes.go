// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import (
	"fmt"

	"zensmu/internal/platform"
)

// Layout is the in-memory extent of one table version.
type Layout struct {
	Size          uint32
	SecondarySize uint32
	// Split means the DRAM base carries the secondary bank address in its high half.
	Split bool
}

// ravenSecondarySize is the size of the Raven family's second bank.
const ravenSecondarySize = 0xA4

var ravenLayout = Layout{Size: 0x608 + ravenSecondarySize, SecondarySize: ravenSecondarySize, Split: true}

// sizeTable maps a platform to its known table versions and their sizes in bytes.
var sizeTable = map[platform.Platform]map[uint32]uint32{
	platform.NewAPU(platform.Renoir): {
		0x37000000: 0x794,
		0x370001:   0x884,
		0x370002:   0x88C,
		0x370003:   0x88C,
		0x370004:   0x8AC,
		0x370005:   0x8C8,
	},
	platform.NewAPU(platform.Cezanne): {
		0x400005: 0x944,
	},
	platform.NewDesktop(platform.Matisse): {
		0x240902: 0x514,
		0x240903: 0x518,
		0x240802: 0x7E0,
		0x240803: 0x7E4,
	},
	platform.NewDesktop(platform.Vermeer): {
		0x2D0903: 0x594,
		0x380904: 0x5A4,
		0x380905: 0x5D0,
		0x2D0803: 0x894,
		0x380804: 0x8A4,
		0x380805: 0x8F0,
	},
}

// LookupLayout returns the layout of table version on p. The Raven family has one
// layout for every version. Unknown platforms and versions yield ErrUnsupported.
func LookupLayout(p platform.Platform, version uint32) (Layout, error) {
	for _, r := range ravenFamily {
		if p == r {
			return ravenLayout, nil
		}
	}
	versions, ok := sizeTable[p]
	if !ok {
		return Layout{}, fmt.Errorf("%w: no table layouts for %s", ErrUnsupported, p)
	}
	size, ok := versions[version]
	if !ok {
		return Layout{}, fmt.Errorf("%w: unknown table version 0x%x on %s", ErrUnsupported, version, p)
	}
	return Layout{Size: size}, nil
}
