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
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/classify"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// poolSourceID is the synthetic acquisition-leg reference used when a
// Section 104 disposal draws on the pool's blended cost rather than
// any single acquisition transaction.
func poolSourceID(symbol string) string {
	return fmt.Sprintf("section104-pool:%s", symbol)
}

// Section104Pool is the running-average cost pool HMRC defines for a
// single symbol's Section 104 holding. Invariant: Quantity never goes
// negative; when Quantity is zero, TotalCostGBP is zero too.
type Section104Pool struct {
	Symbol       string
	Quantity     decimal.Decimal
	TotalCostGBP decimal.Decimal
}

// AverageCostGBP is TotalCostGBP / Quantity, or zero when the pool is empty.
func (p Section104Pool) AverageCostGBP() decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return p.TotalCostGBP.Div(p.Quantity)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (p Section104Pool) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Symbol", p.Symbol).
		Str("Quantity", p.Quantity.String()).
		Str("TotalCostGBP", p.TotalCostGBP.String()).
		Str("AverageCostGBP", p.AverageCostGBP().String())
}

func (p *Section104Pool) acquire(quantity, costPerShare decimal.Decimal) {
	p.Quantity = p.Quantity.Add(quantity)
	p.TotalCostGBP = p.TotalCostGBP.Add(quantity.Mul(costPerShare))
}

// dispose matches up to quantity against the pool and returns the
// quantity actually matched plus its cost basis.
func (p *Section104Pool) dispose(quantity decimal.Decimal) (matched, costBasis decimal.Decimal) {
	if p.Quantity.LessThan(quantity) {
		matched = p.Quantity
		costBasis = p.TotalCostGBP
		p.Quantity = decimal.Zero
		p.TotalCostGBP = decimal.Zero
		return matched, costBasis
	}

	matched = quantity
	costBasis = quantity.Mul(p.AverageCostGBP())
	p.Quantity = p.Quantity.Sub(matched)
	p.TotalCostGBP = p.TotalCostGBP.Sub(costBasis)
	if p.Quantity.IsZero() {
		p.TotalCostGBP = decimal.Zero
	}
	return matched, costBasis
}

// Section104 implements the Section 104 pool & matcher (C11): it walks
// every symbol's events in chronological order (acquisitions before
// disposals on a tied date), folding residual acquisitions into a
// running-average pool and depleting it against residual disposals.
// Returns the final per-symbol pool snapshot.
func Section104(ledger *Ledger, txs []*transaction.EnrichedTransaction) map[string]*Section104Pool {
	pools := make(map[string]*Section104Pool)

	for symbol, symbolTxs := range groupBySymbol(txs) {
		ordered := make([]*transaction.EnrichedTransaction, len(symbolTxs))
		copy(ordered, symbolTxs)
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			aAcq := classify.IsAcquisition(a.Transaction)
			bAcq := classify.IsAcquisition(b.Transaction)
			if aAcq != bAcq {
				return aAcq
			}
			return false
		})

		pool := &Section104Pool{Symbol: symbol}
		pools[symbol] = pool

		for _, tx := range ordered {
			r := residual(ledger, tx)
			if r.IsZero() {
				continue
			}

			size := decimal.NewFromInt(int64(classify.ContractSize(tx.Transaction)))

			switch {
			case classify.IsAcquisition(tx.Transaction):
				pool.acquire(r, costPerUnit(tx).Mul(size))

			case classify.IsDisposal(tx.Transaction):
				matched, costBasis := pool.dispose(r)
				if matched.IsZero() {
					continue
				}
				ledger.Record(NewMatching(tx.ID, RuleSection104, []AcquisitionLeg{
					{TransactionID: poolSourceID(symbol), QuantityMatched: matched, CostBasisGBP: costBasis},
				}))
			}
		}
	}

	return pools
}
