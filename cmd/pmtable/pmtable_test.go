package pmtable

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"zensmu/internal/platform"
	pm "zensmu/internal/pmtable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type region []byte

func (r region) Bytes() []byte { return r }
func (r region) Close() error  { return nil }

type mapper map[uint64][]float32

func (m mapper) MapPhysical(addr uint64, size int) (pm.Region, error) {
	b := make([]byte, size)
	for i, v := range m[addr] {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return region(b), nil
}

func TestWords(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	got := words([]float32{1.5, nan, 0, inf, 42})
	assert.Equal(t, []Word{{0x0, 1.5}, {0x8, 0}, {0x10, 42}}, got)
	assert.Nil(t, words(nil))
}

func TestResult(t *testing.T) {
	table := &pm.Table{
		Platform:      platform.NewAPU(platform.Raven),
		Version:       0x1E0001,
		Size:          8,
		SecondarySize: 4,
		DramBase:      0x1000,
		DramBaseHigh:  0x2000,
	}
	view, err := pm.Map(mapper{0x1000: {65.25, float32(math.NaN())}, 0x2000: {3}}, table)
	require.NoError(t, err)
	defer view.Close()

	r := newResult(table, view)
	assert.Equal(t, []Word{{0x0, 65.25}}, r.Primary)
	assert.Equal(t, []Word{{0x0, 3}}, r.Secondary)

	var buf bytes.Buffer
	require.NoError(t, r.writeText(&buf))
	out := buf.String()
	assert.Contains(t, out, "pm table version 0x1e0001 at 0x1000 size 0x8, secondary at 0x2000 size 0x4\n")
	assert.Contains(t, out, "Primary:\n  0x0000  65.25\n")
	assert.Contains(t, out, "Secondary:\n  0x0000  3\n")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"primary":[{"offset":0,"value":65.25}]`)
}

func TestResultWithoutView(t *testing.T) {
	table := &pm.Table{Platform: platform.NewAPU(platform.Renoir), Version: 0x370005, Degraded: true}
	r := newResult(table, nil)
	assert.Nil(t, r.Primary)
	var buf bytes.Buffer
	require.NoError(t, r.writeText(&buf))
	assert.Equal(t, "APU(Renoir) pm table version 0x370005 (dram base unsupported)\n", buf.String())
}
