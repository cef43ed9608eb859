package smu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var transactionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "zensmu_smu_transactions_total",
		Help: "SMU mailbox transactions by mailbox and outcome",
	},
	[]string{"mailbox", "result"},
)

var responsePollsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "zensmu_smu_response_polls_total",
		Help: "Reads of the SMU response register made while polling",
	},
	[]string{"mailbox"},
)

// RegisterMetrics registers the transport's collectors with reg. Collectors that are
// already registered are left in place.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{transactionsTotal, responsePollsTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

func transactionResult(rsp Status, err error) string {
	switch {
	case err == nil && rsp == StatusOK:
		return "ok"
	case err == nil:
		return "not_ok"
	case errors.Is(err, ErrUnresolved):
		return "unresolved"
	case errors.Is(err, ErrMailboxUnavailable):
		return "unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	}
	return "register_error"
}

func observeTransaction(kind Kind, rsp Status, err error) {
	transactionsTotal.WithLabelValues(kind.String(), transactionResult(rsp, err)).Inc()
}

func observePolls(kind Kind, n int) {
	responsePollsTotal.WithLabelValues(kind.String()).Add(float64(n))
}
