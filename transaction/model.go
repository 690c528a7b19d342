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

// Package transaction defines the canonical brokerage-event model the
// rest of the engine operates on: the sum-type Transaction, its
// per-kind invariants, and the EnrichedTransaction view each
// enrichment pass (splits, FX, tax-year, matching) annotates in turn.
package transaction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultContractSize is used for option transactions that don't specify one.
const DefaultContractSize = 100

// RawTransaction is the shape external parsers hand to the engine: it may
// be missing an ID (the engine will derive a stable one) and carries
// whatever optional fields its Kind calls for.
type RawTransaction struct {
	ID       string
	Source   string
	Symbol   string
	Date     time.Time
	Kind     Kind
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Currency string
	Total    *decimal.Decimal
	Fee      *decimal.Decimal

	// Ratio is the "new:old" split ratio string, required iff Kind == StockSplit.
	Ratio string

	IsShortSell bool

	// Option fields, present iff Kind.IsOption().
	Underlying   string
	OptType      OptType
	Strike       *decimal.Decimal
	Expiration   *time.Time
	ContractSize int

	Ignored bool
}

// Transaction is a validated RawTransaction: its invariants (spec.md §3)
// hold and it carries a non-empty, stable ID.
type Transaction struct {
	ID       string
	Source   string
	Symbol   string
	Date     time.Time
	Kind     Kind
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Currency string
	Total    *decimal.Decimal
	Fee      *decimal.Decimal
	Ratio    string

	IsShortSell bool

	Underlying   string
	OptType      OptType
	Strike       *decimal.Decimal
	Expiration   *time.Time
	ContractSize int

	Ignored bool
}

// SplitRatio is a parsed "new:old" ratio.
type SplitRatio struct {
	New int
	Old int
}

// Multiplier returns new/old as a decimal.
func (r SplitRatio) Multiplier() decimal.Decimal {
	return decimal.NewFromInt(int64(r.New)).Div(decimal.NewFromInt(int64(r.Old)))
}

// ParseSplitRatio parses a "n:m" string with n,m > 0.
func ParseSplitRatio(s string) (SplitRatio, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return SplitRatio{}, fmt.Errorf("transaction: invalid split ratio %q, want \"new:old\"", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return SplitRatio{}, fmt.Errorf("transaction: invalid split ratio numerator %q: %w", s, err)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return SplitRatio{}, fmt.Errorf("transaction: invalid split ratio denominator %q: %w", s, err)
	}
	if n <= 0 || m <= 0 {
		return SplitRatio{}, fmt.Errorf("transaction: split ratio %q must have positive components", s)
	}
	return SplitRatio{New: n, Old: m}, nil
}

// NewTransaction validates raw and returns the canonical Transaction,
// deriving a stable ID via DeriveID when raw.ID is blank.
func NewTransaction(raw RawTransaction) (*Transaction, error) {
	if err := raw.Kind.Validate(); err != nil {
		return nil, err
	}

	if raw.Symbol == "" {
		return nil, fmt.Errorf("transaction: symbol is required")
	}

	if raw.Date.IsZero() {
		return nil, fmt.Errorf("transaction: date is required")
	}

	if raw.Kind == StockSplit {
		if raw.Ratio == "" {
			return nil, fmt.Errorf("transaction: %s requires a ratio", raw.Kind)
		}
		if _, err := ParseSplitRatio(raw.Ratio); err != nil {
			return nil, err
		}
		if raw.Quantity != nil || raw.Price != nil || raw.Total != nil {
			return nil, fmt.Errorf("transaction: %s must not carry quantity, price or total", raw.Kind)
		}
	}

	if raw.Quantity != nil {
		signAllowed := raw.Kind == OptExpired || raw.Kind == OptAssigned
		if !signAllowed && raw.Quantity.IsNegative() {
			return nil, fmt.Errorf("transaction: %s quantity must be >= 0, got %s", raw.Kind, raw.Quantity.String())
		}
	}

	contractSize := raw.ContractSize
	if raw.Kind.IsOption() {
		if raw.Underlying == "" {
			return nil, fmt.Errorf("transaction: %s requires an underlying", raw.Kind)
		}
		if err := raw.OptType.Validate(); err != nil {
			return nil, err
		}
		if contractSize <= 0 {
			contractSize = DefaultContractSize
		}
	}

	id := raw.ID
	if id == "" {
		id = DeriveID(raw)
	}

	return &Transaction{
		ID:           id,
		Source:       raw.Source,
		Symbol:       raw.Symbol,
		Date:         raw.Date,
		Kind:         raw.Kind,
		Quantity:     raw.Quantity,
		Price:        raw.Price,
		Currency:     raw.Currency,
		Total:        raw.Total,
		Fee:          raw.Fee,
		Ratio:        raw.Ratio,
		IsShortSell:  raw.IsShortSell,
		Underlying:   raw.Underlying,
		OptType:      raw.OptType,
		Strike:       raw.Strike,
		Expiration:   raw.Expiration,
		ContractSize: contractSize,
		Ignored:      raw.Ignored,
	}, nil
}

// AppliedSplit records one split that was folded into split_adjusted_*.
type AppliedSplit struct {
	Symbol string
	Date   time.Time
	Ratio  SplitRatio
}

// EnrichedTransaction is a Transaction plus the fields each pipeline pass
// (splits, FX, tax-year, matching) computes in turn.
type EnrichedTransaction struct {
	*Transaction

	// populated by the split normaliser (C4)
	SplitAdjustedQuantity *decimal.Decimal
	SplitAdjustedPrice    *decimal.Decimal
	SplitMultiplier       decimal.Decimal
	AppliedSplits         []AppliedSplit

	// populated by the FX enricher (C5)
	FxRate                 decimal.Decimal
	PriceGBP               *decimal.Decimal
	SplitAdjustedPriceGBP  *decimal.Decimal
	ValueGBP               *decimal.Decimal
	FeeGBP                 *decimal.Decimal
	FxSource               string
	FxError                string

	// populated by the tax-year enricher (C6)
	TaxYear string

	// populated by disposal assembly (C12) from the matchers' output
	GainGroup    GainGroup
	MatchGroups  []string
}

// HasFxError reports whether FX resolution failed for this transaction.
func (e *EnrichedTransaction) HasFxError() bool {
	return e.FxError != ""
}
