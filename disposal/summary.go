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

package disposal

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/taxyear"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// TaxYearSummary rolls up every disposal and dividend transaction
// falling in one UK tax year.
type TaxYearSummary struct {
	TaxYear            string
	DisposalCount      int
	GainsGBP           decimal.Decimal
	LossesGBP          decimal.Decimal
	NetGainGBP         decimal.Decimal
	AnnualExemptAmount decimal.Decimal
	TaxableGainGBP     decimal.Decimal
	DividendCount      int
	DividendTotalGBP   decimal.Decimal
	DividendAllowance  decimal.Decimal
}

// Summarise builds one TaxYearSummary per tax year seen across records
// and txs -- every transaction seeds its tax year's summary even if it
// contributes no gain, loss or dividend total, so a year with only
// buys still gets an entry. Sorted descending by tax year.
func Summarise(records []Record, txs []*transaction.EnrichedTransaction) []TaxYearSummary {
	years := make(map[string]*TaxYearSummary)

	get := func(year string) *TaxYearSummary {
		s, ok := years[year]
		if !ok {
			s = &TaxYearSummary{
				TaxYear:            year,
				AnnualExemptAmount: taxyear.AnnualExemptAmount(year),
				DividendAllowance:  taxyear.DividendAllowance(year),
			}
			years[year] = s
		}
		return s
	}

	for _, r := range records {
		s := get(r.TaxYear)
		s.DisposalCount++
		if r.GainOrLossGBP.IsPositive() {
			s.GainsGBP = s.GainsGBP.Add(r.GainOrLossGBP)
		} else if r.GainOrLossGBP.IsNegative() {
			s.LossesGBP = s.LossesGBP.Add(r.GainOrLossGBP)
		}
	}

	for _, tx := range txs {
		s := get(tx.TaxYear)
		if tx.Kind != transaction.Dividend {
			continue
		}
		s.DividendCount++
		if tx.ValueGBP != nil {
			s.DividendTotalGBP = s.DividendTotalGBP.Add(*tx.ValueGBP)
		}
	}

	out := make([]TaxYearSummary, 0, len(years))
	for _, s := range years {
		s.NetGainGBP = s.GainsGBP.Add(s.LossesGBP)
		s.TaxableGainGBP = decimal.Max(decimal.Zero, s.NetGainGBP.Sub(s.AnnualExemptAmount))
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		return taxyear.Compare(out[i].TaxYear, out[j].TaxYear) > 0
	})

	return out
}
