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

package match

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
)

// defaultCacheSize is the floor the memoization cache is sized to when
// the caller's transaction count doesn't suggest a larger one -- the
// ledger is never expected to outlive a single Run, so the cache just
// needs to avoid re-summing the same transaction's matchings on every
// residual-quantity check within a pass.
const defaultCacheSize = 1024

// Ledger accumulates every Matching produced across all four rules in
// precedence order and answers already_matched_quantity(tx) queries
// against the running total -- the single source of truth every
// matcher consults before claiming residual quantity, so no
// transaction is ever double-matched across passes.
type Ledger struct {
	matchings []Matching
	cache     *lru.Cache
}

// NewLedger builds a Ledger sized for roughly txCount transactions.
func NewLedger(txCount int) *Ledger {
	size := txCount
	if size < defaultCacheSize {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		// lru.New only errors for size <= 0, which can't happen here.
		panic(err)
	}
	return &Ledger{cache: cache}
}

// Record appends a Matching and invalidates the memoized totals for
// every transaction it touches (the disposal and each acquisition leg).
func (l *Ledger) Record(m Matching) {
	l.matchings = append(l.matchings, m)
	l.cache.Remove(m.DisposalID)
	for _, leg := range m.Acquisitions {
		l.cache.Remove(leg.TransactionID)
	}
}

// All returns every Matching recorded so far, in recording order.
func (l *Ledger) All() []Matching {
	return l.matchings
}

// ByRule returns every Matching recorded under rule.
func (l *Ledger) ByRule(rule Rule) []Matching {
	var out []Matching
	for _, m := range l.matchings {
		if m.Rule == rule {
			out = append(out, m)
		}
	}
	return out
}

// AlreadyMatchedQuantity sums the quantity consumed against txID
// across every matching recorded so far, whether txID appeared as the
// disposal or as an acquisition leg. Memoized per transaction ID until
// the next Record touching that ID invalidates it.
func (l *Ledger) AlreadyMatchedQuantity(txID string) decimal.Decimal {
	if cached, ok := l.cache.Get(txID); ok {
		return cached.(decimal.Decimal)
	}

	total := decimal.Zero
	for _, m := range l.matchings {
		for _, leg := range m.Acquisitions {
			if leg.TransactionID == txID {
				total = total.Add(leg.QuantityMatched)
			}
		}
		if m.DisposalID == txID {
			total = total.Add(m.QuantityMatched())
		}
	}

	l.cache.Add(txID, total)
	return total
}

// MatchGroupsFor returns the deduplicated disposal IDs that have
// matched against txID as an acquisition leg, in the order their first
// matching was recorded (the IDs are not sorted).
func (l *Ledger) MatchGroupsFor(txID string) []string {
	seen := make(map[string]bool)
	var groups []string
	for _, m := range l.matchings {
		for _, leg := range m.Acquisitions {
			if leg.TransactionID == txID && !seen[m.DisposalID] {
				seen[m.DisposalID] = true
				groups = append(groups, m.DisposalID)
			}
		}
	}
	return groups
}
