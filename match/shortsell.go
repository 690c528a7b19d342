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
	"sort"

	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/classify"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// residual returns the quantity of tx not yet claimed by any matching
// recorded in the ledger.
func residual(ledger *Ledger, tx *transaction.EnrichedTransaction) decimal.Decimal {
	q := classify.EffectiveQuantity(tx).Sub(ledger.AlreadyMatchedQuantity(tx.ID))
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// costPerUnit is (price_gbp + fee_per_unit_gbp), the per-share-or-contract
// acquisition cost used by every matcher's cost-basis calculation.
func costPerUnit(tx *transaction.EnrichedTransaction) decimal.Decimal {
	price := classify.EffectivePriceGBP(tx)
	if price == nil {
		return decimal.Zero
	}
	total := *price
	if tx.FeeGBP != nil {
		qty := classify.EffectiveQuantity(tx)
		size := decimal.NewFromInt(int64(classify.ContractSize(tx.Transaction)))
		denom := qty.Mul(size)
		if !denom.IsZero() {
			total = total.Add(tx.FeeGBP.Div(denom))
		}
	}
	return total
}

func groupBySymbol(txs []*transaction.EnrichedTransaction) map[string][]*transaction.EnrichedTransaction {
	grouped := make(map[string][]*transaction.EnrichedTransaction)
	for _, tx := range txs {
		grouped[tx.Symbol] = append(grouped[tx.Symbol], tx)
	}
	return grouped
}

type shortPosition struct {
	tx        *transaction.EnrichedTransaction
	remaining decimal.Decimal
}

// ShortSell implements the short-sell matcher (C8): per symbol,
// chronologically (short-sell disposals ordered before acquisitions on
// the same date), FIFO-covers open short positions against later
// acquisitions.
func ShortSell(ledger *Ledger, txs []*transaction.EnrichedTransaction) {
	for _, symbolTxs := range groupBySymbol(txs) {
		ordered := make([]*transaction.EnrichedTransaction, len(symbolTxs))
		copy(ordered, symbolTxs)
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			aShort := a.IsShortSell && classify.IsDisposal(a.Transaction)
			bShort := b.IsShortSell && classify.IsDisposal(b.Transaction)
			if aShort != bShort {
				return aShort
			}
			return false
		})

		var open []*shortPosition
		size := func(tx *transaction.EnrichedTransaction) decimal.Decimal {
			return decimal.NewFromInt(int64(classify.ContractSize(tx.Transaction)))
		}

		for _, tx := range ordered {
			if tx.IsShortSell && classify.IsDisposal(tx.Transaction) {
				r := residual(ledger, tx)
				if r.IsPositive() {
					open = append(open, &shortPosition{tx: tx, remaining: r})
				}
				continue
			}

			if !classify.IsAcquisition(tx.Transaction) {
				continue
			}

			acqRemaining := residual(ledger, tx)
			if acqRemaining.IsZero() || len(open) == 0 {
				continue
			}

			for len(open) > 0 && acqRemaining.IsPositive() {
				short := open[0]
				if short.remaining.IsZero() {
					open = open[1:]
					continue
				}

				matched := decimal.Min(acqRemaining, short.remaining)
				if matched.IsZero() {
					break
				}

				costBasis := costPerUnit(tx).Mul(matched).Mul(size(tx))
				ledger.Record(NewMatching(short.tx.ID, RuleShortSell, []AcquisitionLeg{
					{TransactionID: tx.ID, QuantityMatched: matched, CostBasisGBP: costBasis},
				}))

				short.remaining = short.remaining.Sub(matched)
				acqRemaining = acqRemaining.Sub(matched)

				if short.remaining.IsZero() {
					open = open[1:]
				}
			}
		}
	}
}
