// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package smu

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOrdering(t *testing.T) {
	regs := &fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{0, 0, 1}, reply: [ArgCount]uint32{0xA, 0xB, 0xC, 0xD, 0xE, 0xF}}
	tr := NewTransport(regs)
	cmd := NewCommand(MP1, 0x02, 1)
	cmd.Args[5] = 0x55

	require.NoError(t, tr.Send(testSet, cmd))

	want := []access{{addr: testSet.Response}, {write: true, addr: testSet.Response, value: 0}}
	for i := range ArgCount {
		want = append(want, access{write: true, addr: testSet.Args + uint32(i)*4, value: []uint32{1, 0, 0, 0, 0, 0x55}[i]})
	}
	want = append(want, access{write: true, addr: testSet.Command, value: 0x02})
	want = append(want, access{addr: testSet.Response}, access{addr: testSet.Response}, access{addr: testSet.Response})
	for i := range ArgCount {
		want = append(want, access{addr: testSet.Args + uint32(i)*4})
	}
	assert.Equal(t, want, regs.ops)
	assert.Equal(t, StatusOK, cmd.Response)
	assert.Equal(t, [ArgCount]uint32{0xA, 0xB, 0xC, 0xD, 0xE, 0xF}, cmd.Args)
}

func TestSendMailboxUnavailable(t *testing.T) {
	regs := &fakeRegs{set: testSet, ready: []uint32{0}}
	tr := NewTransport(regs)
	err := tr.Send(testSet, NewCommand(MP1, 0x02, 1))
	assert.ErrorIs(t, err, ErrMailboxUnavailable)
	assert.Equal(t, PollRetries, regs.responseReads())
	assert.Zero(t, regs.writes())
}

func TestSendTimeout(t *testing.T) {
	regs := &fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{0}}
	tr := NewTransport(regs)
	cmd := NewCommand(MP1, 0x02, 1)
	err := tr.Send(testSet, cmd)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1+PollRetries, regs.responseReads())
	assert.Equal(t, 1+ArgCount+1, regs.writes())
	assert.Len(t, regs.ops, 1+1+ArgCount+1+PollRetries)
	assert.Equal(t, Status(0), cmd.Response)
}

func TestSendPollBudgetBound(t *testing.T) {
	ready := make([]uint32, PollRetries)
	ready[PollRetries-1] = 1
	regs := &fakeRegs{set: testSet, ready: ready, done: []uint32{0}}
	tr := NewTransport(regs)
	err := tr.Send(testSet, NewCommand(RSMU, 0x06, 0))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2*PollRetries, regs.responseReads())
}

func TestSendNonOKResponseProceeds(t *testing.T) {
	regs := &fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{uint32(StatusUnknownCmd)}, reply: [ArgCount]uint32{7}}
	tr := NewTransport(regs)
	cmd := NewCommand(MP1, 0x99, 0)
	require.NoError(t, tr.Send(testSet, cmd))
	assert.Equal(t, StatusUnknownCmd, cmd.Response)
	assert.Equal(t, uint32(7), cmd.Args[0])
}

func TestSendUnresolvedTouchesNoRegister(t *testing.T) {
	for _, set := range []AddressSet{
		{Command: 0, Response: 1, Args: 1},
		{Command: 1, Response: 0, Args: 1},
		{Command: 1, Response: 1, Args: 0},
		{},
	} {
		regs := &fakeRegs{set: set, ready: []uint32{1}, done: []uint32{1}}
		tr := NewTransport(regs)
		err := tr.Send(set, NewCommand(RSMU, 0x02, 0))
		assert.ErrorIs(t, err, ErrUnresolved)
		assert.Empty(t, regs.ops)
	}
}

func TestSendRegisterError(t *testing.T) {
	hw := errors.New("config space gone")
	regs := &fakeRegs{set: testSet, readErr: hw}
	tr := NewTransport(regs)
	err := tr.Send(testSet, NewCommand(MP1, 0x02, 1))
	assert.ErrorIs(t, err, ErrRegisterAccess)
	assert.ErrorIs(t, err, hw)
	assert.Len(t, regs.ops, 1)
}

func TestLastCommandRecordedOnEveryOutcome(t *testing.T) {
	tr := NewTransport(&fakeRegs{set: testSet, ready: []uint32{0}})
	cmd := NewCommand(RSMU, 0x66, 1)
	cmd.Args[1] = 1
	require.Error(t, tr.Send(testSet, cmd))
	assert.Equal(t, *cmd, tr.LastCommand())

	require.Error(t, tr.Send(AddressSet{}, NewCommand(RSMU, 0x0C, 0)))
	assert.Equal(t, uint32(0x0C), tr.LastCommand().Opcode)

	ok := NewTransport(&fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{1}, reply: [ArgCount]uint32{0x1234}})
	cmd = NewCommand(MP1, 0x02, 1)
	require.NoError(t, ok.Send(testSet, cmd))
	assert.Equal(t, uint32(0x1234), ok.LastCommand().Args[0])
	assert.Equal(t, StatusOK, ok.LastCommand().Response)
}

func TestSendSerializesTransactions(t *testing.T) {
	regs := &fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{1}}
	tr := NewTransport(regs)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				assert.NoError(t, tr.Send(testSet, NewCommand(MP1, uint32(g), 0)))
			}
		}()
	}
	wg.Wait()

	inTx := false
	argReads := 0
	for _, op := range regs.ops {
		if op.write && op.addr == testSet.Response {
			require.False(t, inTx, "transaction interleaved with another")
			inTx = true
			argReads = 0
			continue
		}
		if !op.write && op.addr != testSet.Response {
			argReads++
			if argReads == ArgCount {
				inTx = false
			}
		}
	}
	assert.False(t, inTx)
}

func TestLastCommandMatchesLastIssued(t *testing.T) {
	for range 20 {
		regs := &fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{1}}
		tr := NewTransport(regs)
		var wg sync.WaitGroup
		for g := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 10 {
					assert.NoError(t, tr.Send(testSet, NewCommand(MP1, uint32(g*100+i), 0)))
				}
			}()
		}
		wg.Wait()

		var issued uint32
		for _, op := range regs.ops {
			if op.write && op.addr == testSet.Command {
				issued = op.value
			}
		}
		require.Equal(t, issued, tr.LastCommand().Opcode)
	}
}

func TestClearArgs(t *testing.T) {
	cmd := &Command{Opcode: 0x3D, Args: [ArgCount]uint32{3, 9, 9, 9, 9, 9}}
	cmd.ClearArgs()
	assert.Equal(t, [ArgCount]uint32{3, 0, 0, 0, 0, 0}, cmd.Args)
}

func TestCommandReuse(t *testing.T) {
	cmd := &Command{Opcode: 0x0A, Args: [ArgCount]uint32{1, 2, 3, 4, 5, 6}, Response: StatusOK, Mailbox: RSMU}
	cmd.Reuse(0x03, 5)
	assert.Equal(t, &Command{Opcode: 0x03, Args: [ArgCount]uint32{5}, Mailbox: RSMU}, cmd)
}

func TestTransactionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	require.NoError(t, RegisterMetrics(reg))

	timeouts := testutil.ToFloat64(transactionsTotal.WithLabelValues("MP1", "timeout"))
	polls := testutil.ToFloat64(responsePollsTotal.WithLabelValues("MP1"))
	tr := NewTransport(&fakeRegs{set: testSet, ready: []uint32{1}, done: []uint32{0}})
	require.Error(t, tr.Send(testSet, NewCommand(MP1, 0x02, 1)))
	assert.Equal(t, timeouts+1, testutil.ToFloat64(transactionsTotal.WithLabelValues("MP1", "timeout")))
	assert.Equal(t, polls+1+PollRetries, testutil.ToFloat64(responsePollsTotal.WithLabelValues("MP1")))
}

func TestTransactionResult(t *testing.T) {
	assert.Equal(t, "ok", transactionResult(StatusOK, nil))
	assert.Equal(t, "not_ok", transactionResult(StatusFailed, nil))
	assert.Equal(t, "unresolved", transactionResult(0, ErrUnresolved))
	assert.Equal(t, "unavailable", transactionResult(0, ErrMailboxUnavailable))
	assert.Equal(t, "timeout", transactionResult(0, ErrTimeout))
	assert.Equal(t, "register_error", transactionResult(0, ErrRegisterAccess))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OK", StatusOK.String())
	assert.Equal(t, "Unsupported", StatusUnsupported.String())
	assert.Equal(t, "UnknownReturn", Status(0x42).String())
}
