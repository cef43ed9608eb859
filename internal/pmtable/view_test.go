// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pmtable

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFloats(b []byte, vals ...float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
}

func TestMapPrimaryOnly(t *testing.T) {
	m := &fakeMapper{}
	tbl := &Table{Platform: matisse, Version: 0x240902, Size: 0x514, DramBase: 0xE0000000}
	v, err := Map(m, tbl)
	require.NoError(t, err)
	assert.Equal(t, []mapCall{{0xE0000000, 0x514}}, m.calls)

	putFloats(m.regions[0].b, 1.5, -2, 95.25)
	vals := v.Values()
	assert.Len(t, vals, 0x514/4)
	assert.Equal(t, []float32{1.5, -2, 95.25, 0}, vals[:4])
	assert.Nil(t, v.SecondaryValues())

	require.NoError(t, v.Close())
	assert.True(t, m.regions[0].closed)
}

func TestMapSecondaryBank(t *testing.T) {
	m := &fakeMapper{}
	tbl := &Table{Platform: raven, Size: 0x6AC, SecondarySize: 0xA4, DramBase: 0xF0000000, DramBaseHigh: 0xF1000000}
	v, err := Map(m, tbl)
	require.NoError(t, err)
	assert.Equal(t, []mapCall{{0xF0000000, 0x6AC}, {0xF1000000, 0xA4}}, m.calls)

	putFloats(m.regions[1].b, 42)
	assert.Len(t, v.SecondaryValues(), 0xA4/4)
	assert.Equal(t, float32(42), v.SecondaryValues()[0])

	require.NoError(t, v.Close())
	assert.True(t, m.regions[0].closed)
	assert.True(t, m.regions[1].closed)
}

func TestMapNotMapped(t *testing.T) {
	tests := []*Table{
		{Platform: renoir, Version: 1, Degraded: true},
		{Platform: renoir, DramBase: 0xE0000000},
		{Platform: renoir, Size: 0x8C8},
		{Platform: raven, Size: 0x6AC, SecondarySize: 0xA4, DramBase: 0xF0000000},
	}
	for _, tbl := range tests {
		m := &fakeMapper{}
		_, err := Map(m, tbl)
		assert.ErrorIs(t, err, ErrNotMapped, tbl.String())
		for _, r := range m.regions {
			assert.True(t, r.closed)
		}
	}
}

func TestMapSecondaryFailureReleasesPrimary(t *testing.T) {
	boom := errors.New("permission denied")
	m := &fakeMapper{fail: map[uint64]error{0xF1000000: boom}}
	tbl := &Table{Platform: raven, Size: 0x6AC, SecondarySize: 0xA4, DramBase: 0xF0000000, DramBaseHigh: 0xF1000000}
	_, err := Map(m, tbl)
	assert.ErrorIs(t, err, boom)
	require.Len(t, m.regions, 1)
	assert.True(t, m.regions[0].closed)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	b := make([]byte, 10)
	putFloats(b, 3, 4)
	assert.Equal(t, []float32{3, 4}, decode(b))
	assert.Empty(t, decode(nil))
}

func TestCollector(t *testing.T) {
	m := &fakeMapper{}
	tbl := &Table{Platform: matisse, Version: 0x240902, Size: 8, DramBase: 0xE0000000}
	v, err := Map(m, tbl)
	require.NoError(t, err)
	putFloats(m.regions[0].b, 1, float32(math.NaN()))

	c := NewCollector(v, nil)
	assert.Equal(t, 1, testutil.CollectAndCount(c, "zensmu_pm_table_value"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "zensmu_pm_table_version"))

	expected := `
# HELP zensmu_pm_table_value PM table word decoded as float32
# TYPE zensmu_pm_table_value gauge
zensmu_pm_table_value{bank="primary",offset="0x0"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "zensmu_pm_table_value"))
}

func TestCollectorRefreshes(t *testing.T) {
	exec := &fakeExec{replies: map[opKey]reply{{0x08, 0}: ok(0x240902)}}
	tbl := &Table{Platform: matisse, Version: 0x240902, Size: 4, DramBase: 0xE0000000}
	v, err := Map(&fakeMapper{}, tbl)
	require.NoError(t, err)
	c := NewCollector(v, NewPipeline(exec, matisse))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "zensmu_pm_table_version"))
	assert.Equal(t, []opKey{{0x05, 0}, {0x08, 0}}, exec.sentKeys())
}
