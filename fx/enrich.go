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

package fx

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/coffee-cpu/capital-gains-uk/enginerr"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// Enrich is the FX enricher (C5): it stamps PriceGBP/ValueGBP/FeeGBP
// (and their split-adjusted counterpart) on every transaction, using
// Provider.GetRate for anything not already denominated in GBP. A
// quote failure does not abort the run -- it sets FxRate to zero,
// leaves the GBP fields nil, records FxSource "Failed" and FxError,
// and returns an Issue for the transaction so it can be excluded from
// matching downstream.
func Enrich(ctx context.Context, provider Provider, txs []*transaction.EnrichedTransaction) []enginerr.Issue {
	var issues []enginerr.Issue

	for _, tx := range txs {
		if tx.Currency == "" || tx.Currency == GBP {
			tx.FxRate = decimalOne
			tx.FxSource = "Native GBP"
			tx.PriceGBP = tx.Price
			tx.SplitAdjustedPriceGBP = tx.SplitAdjustedPrice
			tx.ValueGBP = tx.Total
			tx.FeeGBP = tx.Fee
			continue
		}

		rate, err := provider.GetRate(ctx, tx.Date, tx.Currency)
		if err != nil {
			tx.FxRate = decimalZero
			tx.FxSource = "Failed"
			tx.FxError = err.Error()
			log.Warn().Err(err).Str("TransactionID", tx.ID).Str("Currency", tx.Currency).Msg("fx rate resolution failed")
			issues = append(issues, enginerr.Issue{
				Kind:          enginerr.ErrFxResolution,
				TransactionID: tx.ID,
				Symbol:        tx.Symbol,
				Message:       fmt.Sprintf("no fx rate for %s on %s: %s", tx.Currency, tx.Date.Format("2006-01-02"), err),
			})
			continue
		}

		tx.FxRate = rate.Value
		tx.FxSource = rate.Source

		if tx.Price != nil {
			if v, ok := ToGBP(*tx.Price, rate.Value); ok {
				tx.PriceGBP = &v
			}
		}
		if tx.SplitAdjustedPrice != nil {
			if v, ok := ToGBP(*tx.SplitAdjustedPrice, rate.Value); ok {
				tx.SplitAdjustedPriceGBP = &v
			}
		}
		if tx.Total != nil {
			if v, ok := ToGBP(*tx.Total, rate.Value); ok {
				tx.ValueGBP = &v
			}
		}
		if tx.Fee != nil {
			if v, ok := ToGBP(*tx.Fee, rate.Value); ok {
				tx.FeeGBP = &v
			}
		}
	}

	return issues
}
