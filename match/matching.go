// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package match implements the four-stage CGT matching engine (C8-C11):
// short-sell cover, same-day, 30-day "bed & breakfast", and the
// Section 104 pool, run in that strict precedence order against a
// shared Ledger so no acquisition or disposal quantity is ever
// consumed twice.
package match

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rule identifies which matcher produced a Matching.
type Rule string

const (
	RuleShortSell  Rule = "ShortSell"
	RuleSameDay    Rule = "SameDay"
	RuleThirtyDay  Rule = "ThirtyDay"
	RuleSection104 Rule = "Section104"
)

// precedence lists the strict rule order, earliest first. The Ledger
// does not read it; engine.Run applies the order by calling the
// matchers in this sequence.
var precedence = []Rule{RuleShortSell, RuleSameDay, RuleThirtyDay, RuleSection104}

// AcquisitionLeg is one acquisition's contribution to a Matching.
type AcquisitionLeg struct {
	TransactionID   string
	QuantityMatched decimal.Decimal
	CostBasisGBP    decimal.Decimal
}

// Matching is the output of any matcher: a disposal and the
// acquisition legs it was covered by under one rule.
type Matching struct {
	ID           string
	DisposalID   string
	Rule         Rule
	Acquisitions []AcquisitionLeg
}

// QuantityMatched sums the acquisition legs' matched quantity.
func (m Matching) QuantityMatched() decimal.Decimal {
	total := decimal.Zero
	for _, a := range m.Acquisitions {
		total = total.Add(a.QuantityMatched)
	}
	return total
}

// TotalCostBasisGBP sums the acquisition legs' cost basis.
func (m Matching) TotalCostBasisGBP() decimal.Decimal {
	total := decimal.Zero
	for _, a := range m.Acquisitions {
		total = total.Add(a.CostBasisGBP)
	}
	return total
}

// NewMatching builds a Matching with a fresh random ID.
func NewMatching(disposalID string, rule Rule, legs []AcquisitionLeg) Matching {
	return Matching{
		ID:           uuid.NewString(),
		DisposalID:   disposalID,
		Rule:         rule,
		Acquisitions: legs,
	}
}
