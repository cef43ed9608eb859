package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"testing"

	"zensmu/internal/platform"
	smusvc "zensmu/internal/smu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMailbox(t *testing.T) {
	kind, err := parseMailbox("MP1")
	require.NoError(t, err)
	assert.Equal(t, smusvc.MP1, kind)
	kind, err = parseMailbox("rsmu")
	require.NoError(t, err)
	assert.Equal(t, smusvc.RSMU, kind)
	_, err = parseMailbox("hsmp")
	assert.ErrorContains(t, err, "rsmu, mp1")
}

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name    string
		mailbox string
		msg     string
		args    []string
		want    *smusvc.Command
		wantErr bool
	}{
		{
			name:    "no args",
			mailbox: "rsmu",
			msg:     "0x8",
			want:    &smusvc.Command{Opcode: 0x8, Mailbox: smusvc.RSMU},
		},
		{
			name:    "args",
			mailbox: "mp1",
			msg:     "2",
			args:    []string{"0x1", "ff"},
			want:    &smusvc.Command{Opcode: 0x2, Args: [smusvc.ArgCount]uint32{1, 0xff}, Mailbox: smusvc.MP1},
		},
		{name: "bad opcode", mailbox: "rsmu", msg: "zz", wantErr: true},
		{name: "bad arg", mailbox: "rsmu", msg: "0x8", args: []string{"0xg"}, wantErr: true},
		{name: "too many args", mailbox: "rsmu", msg: "0x8", args: []string{"1", "2", "3", "4", "5", "6", "7"}, wantErr: true},
		{name: "bad mailbox", mailbox: "smn", msg: "0x8", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildCommand(tt.mailbox, tt.msg, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultText(t *testing.T) {
	sent := smusvc.NewCommand(smusvc.RSMU, 0x8, 0)
	sent.Response = smusvc.StatusOK
	r := &Result{
		State: smusvc.State{
			Version:    "46.63.0",
			VersionRaw: 0x2E3F00,
			Platform:   platform.NewDesktop(platform.Matisse),
			DramBase:   0xDEAD0000,
		},
		Command: sent,
	}
	var buf bytes.Buffer
	require.NoError(t, r.writeText(&buf))
	out := buf.String()
	assert.Contains(t, out, "Platform:       Desktop(Matisse)\n")
	assert.Contains(t, out, "SMU Version:    46.63.0 (0x2E3F00)\n")
	assert.Contains(t, out, "PM Table Base:  0xDEAD0000\n")
	assert.Contains(t, out, "Sent:           RSMU msg 0x8")
}
