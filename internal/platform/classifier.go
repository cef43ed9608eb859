package platform

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"slices"

	"zensmu/internal/cpuid"
)

// Classifier resolves identities against a validated rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates rules and returns a classifier that uses a copy of them.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return &Classifier{rules: slices.Clone(rules)}, nil
}

// MustNewClassifier is like NewClassifier but panics if the rules are invalid.
func MustNewClassifier(rules []Rule) *Classifier {
	c, err := NewClassifier(rules)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultClassifier = MustNewClassifier(Rules)

// Classify returns the platform of the first matching rule. Identities with no
// matching rule, including every family other than 0x17 and 0x19, are Undetermined.
func (c *Classifier) Classify(id cpuid.Identity) Platform {
	for _, r := range c.rules {
		if r.matches(id) {
			slog.Debug("platform classified", slog.String("identity", id.String()), slog.String("platform", r.Platform.String()))
			return r.Platform
		}
	}
	slog.Debug("platform not classified", slog.String("identity", id.String()))
	return Platform{}
}

// Classify classifies id with the built-in rule table.
func Classify(id cpuid.Identity) Platform {
	return defaultClassifier.Classify(id)
}

// IsSupportedFamily reports whether family is one the rule table covers.
func IsSupportedFamily(family uint32) bool {
	return slices.Contains(SupportedFamilies, family)
}
