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

// Package splits implements the auto-split reconciler (C3) and the
// split normaliser (C4): deduplicating broker-reported stock splits
// against an externally-sourced feed, then forward-projecting every
// other transaction's quantity/price onto post-split units.
package splits

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

const (
	SourceBroker    = "Broker"
	SourceCommunity = "Community"
)

// StockSplitEvent is the derived, numeric view of a StockSplit
// transaction (or a surviving externally-sourced record) used by the
// normaliser.
type StockSplitEvent struct {
	Symbol string
	Date   time.Time
	Ratio  transaction.SplitRatio
	Source string
	Name   string
	Notes  string
}

// Multiplier returns the event's new/old ratio as a decimal.
func (e StockSplitEvent) Multiplier() decimal.Decimal {
	return e.Ratio.Multiplier()
}

// SplitRecord is one row from an external split-data feed.
type SplitRecord struct {
	Symbol    string
	Date      time.Time
	RatioFrom int
	RatioTo   int
	Name      string
	Source    string
	Notes     string
}

// SplitFeed is the pluggable external collaborator supplying
// community-sourced split records. Implementations are expected to
// cache their own responses (spec.md §5) -- the engine never retries
// or caches on their behalf, it just treats any error as "no external
// contribution this run" (spec.md §4.3 step 7: "never fail the
// pipeline").
type SplitFeed interface {
	FetchSplitsForYears(ctx context.Context, years []int) ([]SplitRecord, error)
}

// MaxYearSpan bounds how many years of feed history a single Reconcile
// call will request, guarding against a malformed transaction history
// (e.g. a stray 1970 date) turning into a runaway query.
const MaxYearSpan = 50

// FuzzyWindow is the ±7-day window within which an externally-sourced
// split is considered a duplicate of a broker-reported one, regardless
// of ratio agreement (broker data is authoritative; see spec.md §9 on
// widening this only with explicit rationale).
const FuzzyWindow = 7 * 24 * time.Hour
