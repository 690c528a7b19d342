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

// Package fx implements the currency enrichment pass (C5): converting
// every non-GBP transaction value onto GBP using HMRC's "foreign units
// per 1 GBP" quotation convention, i.e. amount_gbp = amount_foreign /
// rate. A provider's failure to quote a (date, currency) pair never
// aborts the run -- the affected transaction is flagged and excluded
// from matching instead.
package fx

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const GBP = "GBP"

var (
	decimalOne  = decimal.NewFromInt(1)
	decimalZero = decimal.Zero
)

// Rate is one quoted (date, currency) -> foreign-units-per-GBP value.
type Rate struct {
	Currency string
	Date     time.Time
	Value    decimal.Decimal
	Source   string
}

// Provider is the pluggable external collaborator supplying exchange
// rates. GetRate returns the rate quoted on or nearest before date for
// currency; Prefetch lets a provider batch-warm its cache ahead of a
// run's main loop (spec.md §5's concurrency window).
type Provider interface {
	GetRate(ctx context.Context, date time.Time, currency string) (Rate, error)
	Prefetch(ctx context.Context, dates []time.Time, currencies []string) error
}

// ToGBP converts a foreign-denominated amount to GBP using HMRC's
// "foreign units per 1 GBP" quotation: dividing, never multiplying.
func ToGBP(amount decimal.Decimal, rate decimal.Decimal) (decimal.Decimal, bool) {
	if rate.IsZero() {
		return decimal.Zero, false
	}
	return amount.Div(rate), true
}
