// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package cppc decodes the ACPI _CPC (Collaborative Processor Performance Control)
// package of a processor.
package cppc

import (
	"errors"
	"fmt"
)

// ErrNotFound means the processor has no _CPC object.
var ErrNotFound = errors.New("_CPC object could not be found")

// ErrNotPackage means _CPC evaluated to something other than a package.
var ErrNotPackage = errors.New("_CPC did not return a package")

// Object is the name of the ACPI method evaluated.
const Object = "_CPC"

// Field indices into the _CPC package.
const (
	Entries = iota
	Revision
	HighestPerformance
	NominalPerformance
	LowestNonlinearPerformance
	LowestPerformance
	GuaranteedPerformanceRegister
	DesiredPerformanceRegister
	MinimumPerformanceRegister
	MaximumPerformanceRegister
	PerformanceReductionToleranceRegister
	TimeWindowRegister
	CounterWraparoundTime
	ReferencePerformanceCounterRegister
	DeliveredPerformanceCounterRegister
	PerformanceLimitedRegister
	EnableRegister
	AutonomousSelectEnable
	AutonomousActivityWindowRegister
	EnergyPerformancePreferenceRegister
	ReferencePerformance
	LowestFrequency
	NominalFrequency

	FieldCount
)

var fieldNames = [FieldCount]string{
	"Entries",
	"CPC Revision",
	"Highest Performance",
	"Nominal Performance",
	"Lowest Nonlinear Performance",
	"Lowest Performance",
	"Guaranteed Performance Register",
	"Desired Performance Register",
	"Minimum Performance Register",
	"Maximum Performance Register",
	"Performance Reduction Tolerance Register",
	"Time Window Register",
	"Counter Wraparound Time",
	"Reference Performance Counter Register",
	"Delivered Performance Counter Register",
	"Performance Limited Register",
	"CPPC Enable Register",
	"Autonomous Select Enable",
	"Autonomous Activity Window Register",
	"Energy Performance Preference Register",
	"Reference Performance",
	"Lowest Frequency",
	"Nominal Frequency",
}

// FieldName returns the name of the field at index i.
func FieldName(i int) string {
	if i < 0 || i >= FieldCount {
		return fmt.Sprintf("Field(%d)", i)
	}
	return fieldNames[i]
}

// Element is one entry of an evaluated package. Entries that aren't integers, such
// as register buffers, have Present unset.
type Element struct {
	Value   uint64
	Present bool
}

// Int returns a present integer element.
func Int(v uint64) Element {
	return Element{Value: v, Present: true}
}

// Evaluator evaluates a named ACPI object of a logical cpu.
type Evaluator interface {
	Evaluate(cpu int, object string) ([]Element, error)
}

// Field is a named package entry.
type Field struct {
	Name    string `json:"name" yaml:"name"`
	Value   uint64 `json:"value" yaml:"value"`
	Present bool   `json:"present" yaml:"present"`
}

// Capabilities holds a decoded _CPC package.
type Capabilities struct {
	elements [FieldCount]Element
}

// Decode names the entries of pkg. Entries past the known fields are ignored and
// missing trailing entries are absent.
func Decode(pkg []Element) (*Capabilities, error) {
	if len(pkg) == 0 {
		return nil, ErrNotPackage
	}
	c := &Capabilities{}
	copy(c.elements[:], pkg)
	return c, nil
}

// Get returns the field at index i and whether it is present.
func (c *Capabilities) Get(i int) (uint64, bool) {
	if i < 0 || i >= FieldCount {
		return 0, false
	}
	e := c.elements[i]
	return e.Value, e.Present
}

// Fields returns every field in package order.
func (c *Capabilities) Fields() []Field {
	fields := make([]Field, FieldCount)
	for i, e := range c.elements {
		fields[i] = Field{Name: fieldNames[i], Value: e.Value, Present: e.Present}
	}
	return fields
}

// Read evaluates _CPC for cpu and decodes it.
func Read(ev Evaluator, cpu int) (*Capabilities, error) {
	pkg, err := ev.Evaluate(cpu, Object)
	if err != nil {
		return nil, err
	}
	return Decode(pkg)
}
