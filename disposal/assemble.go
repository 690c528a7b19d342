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

// Package disposal implements disposal assembly and tax-year
// summarisation (C12): grouping every Matching by its disposal
// transaction, computing proceeds/costs/gain-or-loss, and rolling the
// result up into per-tax-year totals.
package disposal

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/classify"
	"github.com/coffee-cpu/capital-gains-uk/match"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// Record is one disposal transaction's fully-assembled CGT outcome.
type Record struct {
	DisposalID        string
	Symbol            string
	TaxYear           string
	Matchings         []match.Matching
	ProceedsGBP       decimal.Decimal
	AllowableCostsGBP decimal.Decimal
	GainOrLossGBP     decimal.Decimal
	UnmatchedQuantity decimal.Decimal
	IsIncomplete      bool
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r Record) MarshalZerologObject(e *zerolog.Event) {
	e.Str("DisposalID", r.DisposalID).
		Str("Symbol", r.Symbol).
		Str("TaxYear", r.TaxYear).
		Str("GainOrLossGBP", r.GainOrLossGBP.String()).
		Bool("IsIncomplete", r.IsIncomplete)
}

// Assemble groups every recorded Matching by disposal transaction and
// computes each resulting Record, broadcasting match-group IDs back
// onto the acquisition transactions each disposal drew from. Disposals
// are returned sorted ascending by date.
func Assemble(ledger *match.Ledger, txs []*transaction.EnrichedTransaction) []Record {
	byID := make(map[string]*transaction.EnrichedTransaction, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx
	}

	matchingsByDisposal := make(map[string][]match.Matching)
	for _, m := range ledger.All() {
		matchingsByDisposal[m.DisposalID] = append(matchingsByDisposal[m.DisposalID], m)
	}

	var records []Record
	for _, tx := range txs {
		if !classify.IsDisposal(tx.Transaction) {
			continue
		}

		matchings := matchingsByDisposal[tx.ID]

		price := classify.EffectivePriceGBP(tx)
		qty := classify.EffectiveQuantity(tx)
		size := decimal.NewFromInt(int64(classify.ContractSize(tx.Transaction)))

		proceeds := decimal.Zero
		if price != nil {
			proceeds = price.Mul(qty).Mul(size)
		}
		if tx.FeeGBP != nil {
			proceeds = proceeds.Sub(*tx.FeeGBP)
		}

		costs := decimal.Zero
		matchedQty := decimal.Zero
		for _, m := range matchings {
			costs = costs.Add(m.TotalCostBasisGBP())
			matchedQty = matchedQty.Add(m.QuantityMatched())

			for _, leg := range m.Acquisitions {
				if acq, ok := byID[leg.TransactionID]; ok {
					acq.MatchGroups = appendUnique(acq.MatchGroups, tx.ID)
					acq.GainGroup = gainGroupFor(m.Rule)
				}
			}
		}

		unmatched := qty.Sub(matchedQty)
		if unmatched.IsNegative() {
			unmatched = decimal.Zero
		}

		if len(matchings) > 0 {
			tx.GainGroup = gainGroupFor(matchings[0].Rule)
		}

		records = append(records, Record{
			DisposalID:        tx.ID,
			Symbol:            tx.Symbol,
			TaxYear:           tx.TaxYear,
			Matchings:         matchings,
			ProceedsGBP:       proceeds,
			AllowableCostsGBP: costs,
			GainOrLossGBP:     proceeds.Sub(costs),
			UnmatchedQuantity: unmatched,
			IsIncomplete:      unmatched.IsPositive(),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		ti, oki := byID[records[i].DisposalID]
		tj, okj := byID[records[j].DisposalID]
		if !oki || !okj {
			return false
		}
		return ti.Date.Before(tj.Date)
	})

	return records
}

func gainGroupFor(rule match.Rule) transaction.GainGroup {
	switch rule {
	case match.RuleShortSell:
		return transaction.GainGroupShortSell
	case match.RuleSameDay:
		return transaction.GainGroupSameDay
	case match.RuleThirtyDay:
		return transaction.GainGroupThirtyDay
	case match.RuleSection104:
		return transaction.GainGroupSection104
	default:
		return transaction.GainGroupNone
	}
}

func appendUnique(groups []string, id string) []string {
	for _, g := range groups {
		if g == id {
			return groups
		}
	}
	return append(groups, id)
}
