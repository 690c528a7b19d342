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

package splits

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// bySymbol groups events by symbol and sorts each group ascending by
// date, the order the normaliser walks forward-splits in.
func bySymbol(events []StockSplitEvent) map[string][]StockSplitEvent {
	grouped := make(map[string][]StockSplitEvent)
	for _, e := range events {
		grouped[e.Symbol] = append(grouped[e.Symbol], e)
	}
	for symbol, evs := range grouped {
		sorted := make([]StockSplitEvent, len(evs))
		copy(sorted, evs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
		grouped[symbol] = sorted
	}
	return grouped
}

// Normalise is the split normaliser (C4): for every enriched
// transaction it accumulates the product of every future split's
// multiplier on that symbol (strictly date > tx.Date) and stamps the
// split-adjusted quantity/price plus the list of AppliedSplit entries
// that contributed. A StockSplit transaction itself is never adjusted
// against later splits of the same kind -- its own multiplier is fixed
// at 1 and its adjusted fields are left nil, since a split transaction
// carries no share quantity or price of its own to rescale.
func Normalise(txs []*transaction.EnrichedTransaction, events []StockSplitEvent) {
	grouped := bySymbol(events)

	for _, tx := range txs {
		if tx.Kind == transaction.StockSplit {
			tx.SplitMultiplier = decimal.NewFromInt(1)
			continue
		}

		future := grouped[tx.Symbol]
		multiplier := decimal.NewFromInt(1)
		var applied []transaction.AppliedSplit

		for _, e := range future {
			if !e.Date.After(tx.Date) {
				continue
			}
			multiplier = multiplier.Mul(e.Multiplier())
			applied = append(applied, transaction.AppliedSplit{
				Symbol: e.Symbol,
				Date:   e.Date,
				Ratio:  e.Ratio,
			})
		}

		tx.SplitMultiplier = multiplier
		tx.AppliedSplits = applied

		if tx.Quantity != nil {
			adjQty := tx.Quantity.Mul(multiplier)
			tx.SplitAdjustedQuantity = &adjQty
		}
		if tx.Price != nil && !multiplier.IsZero() {
			adjPrice := tx.Price.Div(multiplier)
			tx.SplitAdjustedPrice = &adjPrice
		}
	}
}
