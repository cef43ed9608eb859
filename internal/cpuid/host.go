package cpuid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	hostcpu "github.com/klauspost/cpuid/v2"
)

// HostIsAMD reports whether the processor running this program is an AMD part. It
// executes CPUID directly and needs no device node.
func HostIsAMD() bool {
	return hostcpu.CPU.VendorID == hostcpu.AMD
}

// HostBrand returns the brand string of the processor running this program.
func HostBrand() string {
	return hostcpu.CPU.BrandName
}
