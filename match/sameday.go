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

	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/classify"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

func dayKey(tx *transaction.EnrichedTransaction) string {
	return fmt.Sprintf("%s|%s", tx.Symbol, tx.Date.Format("2006-01-02"))
}

// SameDay implements the same-day matcher (C9): within each
// (symbol, date) group, disposals consume acquisitions in input order,
// FIFO, until each disposal's residual reaches zero or the group's
// acquisitions are exhausted.
func SameDay(ledger *Ledger, txs []*transaction.EnrichedTransaction) {
	groups := make(map[string][]*transaction.EnrichedTransaction)
	var order []string
	for _, tx := range txs {
		k := dayKey(tx)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], tx)
	}

	for _, k := range order {
		group := groups[k]

		var acquisitions, disposals []*transaction.EnrichedTransaction
		for _, tx := range group {
			switch {
			case classify.IsAcquisition(tx.Transaction):
				acquisitions = append(acquisitions, tx)
			case classify.IsDisposal(tx.Transaction):
				disposals = append(disposals, tx)
			}
		}

		acqRemaining := make(map[string]decimal.Decimal, len(acquisitions))
		for _, a := range acquisitions {
			acqRemaining[a.ID] = residual(ledger, a)
		}

		for _, d := range disposals {
			dispRemaining := residual(ledger, d)
			if dispRemaining.IsZero() {
				continue
			}

			var legs []AcquisitionLeg
			for _, a := range acquisitions {
				if dispRemaining.IsZero() {
					break
				}
				avail := acqRemaining[a.ID]
				if avail.IsZero() {
					continue
				}

				matched := decimal.Min(avail, dispRemaining)
				if matched.IsZero() {
					continue
				}

				size := decimal.NewFromInt(int64(classify.ContractSize(a.Transaction)))
				costBasis := costPerUnit(a).Mul(matched).Mul(size)
				legs = append(legs, AcquisitionLeg{TransactionID: a.ID, QuantityMatched: matched, CostBasisGBP: costBasis})

				acqRemaining[a.ID] = avail.Sub(matched)
				dispRemaining = dispRemaining.Sub(matched)
			}

			if len(legs) > 0 {
				ledger.Record(NewMatching(d.ID, RuleSameDay, legs))
			}
		}
	}
}
