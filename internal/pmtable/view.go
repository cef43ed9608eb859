// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// Region is a mapped physical range.
type Region interface {
	Bytes() []byte
	io.Closer
}

// Mapper maps physical memory for reading.
type Mapper interface {
	MapPhysical(addr uint64, size int) (Region, error)
}

// View is a mapped PM table.
type View struct {
	Table     *Table
	primary   Region
	secondary Region
}

// Map maps the ranges described by t. The secondary bank is mapped only when t has one.
func Map(m Mapper, t *Table) (*View, error) {
	if t.Degraded || t.Size == 0 || t.DramBase == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotMapped, t)
	}
	slog.Debug("mapping dram", slog.String("addr", fmt.Sprintf("0x%x", t.DramBase)), slog.Int("size", int(t.Size)))
	primary, err := m.MapPhysical(t.DramBase, int(t.Size))
	if err != nil {
		return nil, fmt.Errorf("map pm table at 0x%x: %w", t.DramBase, err)
	}
	v := &View{Table: t, primary: primary}
	if t.SecondarySize != 0 {
		if t.DramBaseHigh == 0 {
			_ = primary.Close()
			return nil, fmt.Errorf("%w: secondary bank address is 0", ErrNotMapped)
		}
		v.secondary, err = m.MapPhysical(uint64(t.DramBaseHigh), int(t.SecondarySize))
		if err != nil {
			_ = primary.Close()
			return nil, fmt.Errorf("map pm table secondary bank at 0x%x: %w", t.DramBaseHigh, err)
		}
	}
	return v, nil
}

// Values decodes the primary range as little-endian float32 words.
func (v *View) Values() []float32 {
	return decode(v.primary.Bytes())
}

// SecondaryValues decodes the secondary bank, or returns nil when there is none.
func (v *View) SecondaryValues() []float32 {
	if v.secondary == nil {
		return nil
	}
	return decode(v.secondary.Bytes())
}

// Close unmaps both ranges.
func (v *View) Close() error {
	var errs []error
	if v.primary != nil {
		errs = append(errs, v.primary.Close())
	}
	if v.secondary != nil {
		errs = append(errs, v.secondary.Close())
	}
	return errors.Join(errs...)
}

// decode copies b before decoding; firmware may rewrite the table at any time.
func decode(b []byte) []float32 {
	buf := make([]byte, len(b)-len(b)%4)
	copy(buf, b)
	vals := make([]float32, len(buf)/4)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vals
}
