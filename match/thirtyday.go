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
	"time"

	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/classify"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

const thirtyDayWindow = 30 * 24 * time.Hour

// ThirtyDay implements the 30-day "bed & breakfast" matcher (C10): per
// symbol, each disposal (chronological order) is matched FIFO against
// acquisitions strictly after it and within the following 30 calendar
// days. An acquisition's residual is tracked globally across every
// disposal processed in this pass, so it can never be consumed twice.
func ThirtyDay(ledger *Ledger, txs []*transaction.EnrichedTransaction) {
	for _, symbolTxs := range groupBySymbol(txs) {
		var acquisitions, disposals []*transaction.EnrichedTransaction
		for _, tx := range symbolTxs {
			switch {
			case classify.IsAcquisition(tx.Transaction):
				acquisitions = append(acquisitions, tx)
			case classify.IsDisposal(tx.Transaction):
				disposals = append(disposals, tx)
			}
		}

		sort.SliceStable(disposals, func(i, j int) bool { return disposals[i].Date.Before(disposals[j].Date) })
		sort.SliceStable(acquisitions, func(i, j int) bool { return acquisitions[i].Date.Before(acquisitions[j].Date) })

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
				if !a.Date.After(d.Date) {
					continue
				}
				if a.Date.After(d.Date.Add(thirtyDayWindow)) {
					continue
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
				ledger.Record(NewMatching(d.ID, RuleThirtyDay, legs))
			}
		}
	}
}
