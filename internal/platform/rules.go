package platform

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"

	"zensmu/internal/cpuid"

	mapset "github.com/deckarep/golang-set/v2"
)

// PkgTypeAny matches every package type.
const PkgTypeAny = ^uint32(0)

// SupportedFamilies lists the CPU families that can be classified.
var SupportedFamilies = []uint32{0x17, 0x19}

// Rule matches a CPU identity to a platform. Rules are evaluated in order and the
// first match wins, so a rule with a specific package type must precede the
// PkgTypeAny rule for the same family and models.
type Rule struct {
	Family    uint32
	ExtModel  uint32
	BaseModel uint32
	PkgType   uint32
	Platform  Platform
}

func (r Rule) matches(id cpuid.Identity) bool {
	return r.Family == id.Family &&
		r.ExtModel == id.ExtModel &&
		r.BaseModel == id.BaseModel &&
		(r.PkgType == PkgTypeAny || r.PkgType == id.PkgType)
}

func (r Rule) String() string {
	pkg := "any"
	if r.PkgType != PkgTypeAny {
		pkg = fmt.Sprintf("%d", r.PkgType)
	}
	return fmt.Sprintf("family 0x%X ext model 0x%X base model 0x%X pkg %s -> %s", r.Family, r.ExtModel, r.BaseModel, pkg, r.Platform)
}

// Rules is the platform table.
var Rules = []Rule{
	// family 0x17
	{Family: 0x17, ExtModel: 0x0, BaseModel: 0x1, PkgType: 7, Platform: NewHEDT(Whitehaven)},
	{Family: 0x17, ExtModel: 0x0, BaseModel: 0x1, PkgType: PkgTypeAny, Platform: NewDesktop(SummitRidge)},
	{Family: 0x17, ExtModel: 0x0, BaseModel: 0x8, PkgType: 7, Platform: NewHEDT(Colfax)},
	{Family: 0x17, ExtModel: 0x0, BaseModel: 0x8, PkgType: PkgTypeAny, Platform: NewDesktop(PinnacleRidge)},
	{Family: 0x17, ExtModel: 0x1, BaseModel: 0x1, PkgType: PkgTypeAny, Platform: NewAPU(Raven)},
	{Family: 0x17, ExtModel: 0x1, BaseModel: 0x8, PkgType: 2, Platform: NewAPU(Raven2)},
	{Family: 0x17, ExtModel: 0x1, BaseModel: 0x8, PkgType: PkgTypeAny, Platform: NewAPU(Picasso)},
	{Family: 0x17, ExtModel: 0x2, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewAPU(Dali)},
	{Family: 0x17, ExtModel: 0x3, BaseModel: 0x1, PkgType: PkgTypeAny, Platform: NewHEDT(CastlePeak)},
	{Family: 0x17, ExtModel: 0x6, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewAPU(Renoir)},
	{Family: 0x17, ExtModel: 0x6, BaseModel: 0x8, PkgType: PkgTypeAny, Platform: NewAPU(Lucienne)},
	{Family: 0x17, ExtModel: 0x7, BaseModel: 0x1, PkgType: PkgTypeAny, Platform: NewDesktop(Matisse)},
	{Family: 0x17, ExtModel: 0x9, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewAPU(VanGogh)},
	{Family: 0x17, ExtModel: 0xA, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewAPU(Mendocino)},
	// family 0x19
	{Family: 0x19, ExtModel: 0x2, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewDesktop(Vermeer)},
	{Family: 0x19, ExtModel: 0x2, BaseModel: 0x1, PkgType: PkgTypeAny, Platform: NewDesktop(Vermeer)},
	{Family: 0x19, ExtModel: 0x4, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewAPU(Rembrandt)},
	{Family: 0x19, ExtModel: 0x5, BaseModel: 0x0, PkgType: PkgTypeAny, Platform: NewAPU(Cezanne)},
}

type ruleKey struct {
	family, extModel, baseModel, pkgType uint32
}

// ValidateRules rejects tables with duplicate keys, rules that can never match
// because an earlier wildcard rule covers them, unsupported families, and rules
// whose platform is not a well-formed class/variant pair.
func ValidateRules(rules []Rule) error {
	seen := mapset.NewSet[ruleKey]()
	wildcards := mapset.NewSet[ruleKey]()
	for i, r := range rules {
		if !slices.Contains(SupportedFamilies, r.Family) {
			return fmt.Errorf("rule %d (%s): unsupported family", i, r)
		}
		if r.Platform.IsUndetermined() || !r.Platform.valid() {
			return fmt.Errorf("rule %d (%s): invalid platform", i, r)
		}
		key := ruleKey{r.Family, r.ExtModel, r.BaseModel, r.PkgType}
		if seen.Contains(key) {
			return fmt.Errorf("rule %d (%s): duplicate key", i, r)
		}
		models := ruleKey{r.Family, r.ExtModel, r.BaseModel, PkgTypeAny}
		if wildcards.Contains(models) {
			return fmt.Errorf("rule %d (%s): shadowed by an earlier any-package rule", i, r)
		}
		seen.Add(key)
		if r.PkgType == PkgTypeAny {
			wildcards.Add(models)
		}
	}
	return nil
}
