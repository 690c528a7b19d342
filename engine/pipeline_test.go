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

package engine_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/engine"
	"github.com/coffee-cpu/capital-gains-uk/enginerr"
	"github.com/coffee-cpu/capital-gains-uk/match"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

func gbpRaw(symbol string, date time.Time, kind transaction.Kind, qty, price int64) transaction.RawTransaction {
	q := decimal.NewFromInt(qty)
	p := decimal.NewFromInt(price)
	return transaction.RawTransaction{Symbol: symbol, Date: date, Kind: kind, Quantity: &q, Price: &p, Currency: "GBP"}
}

var _ = Describe("Run", func() {
	It("matches a same-day buy and sell and reports the resulting gain", func() {
		raw := []transaction.RawTransaction{
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Buy, 10, 100),
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Sell, 10, 150),
		}

		result, err := engine.Run(context.Background(), raw, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Disposals).To(HaveLen(1))
		Expect(result.Disposals[0].GainOrLossGBP.Equal(decimal.NewFromInt(500))).To(BeTrue())
		Expect(result.Disposals[0].Matchings[0].Rule).To(Equal(match.RuleSameDay))
	})

	It("falls back to the 30-day matcher when there is no same-day acquisition", func() {
		raw := []transaction.RawTransaction{
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Sell, 10, 150),
			gbpRaw("VOD", time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC), transaction.Buy, 10, 120),
		}

		result, err := engine.Run(context.Background(), raw, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Disposals).To(HaveLen(1))
		Expect(result.Disposals[0].Matchings[0].Rule).To(Equal(match.RuleThirtyDay))
	})

	It("falls back to the Section 104 pool when nothing else matches", func() {
		raw := []transaction.RawTransaction{
			gbpRaw("VOD", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), transaction.Buy, 10, 100),
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Sell, 10, 150),
		}

		result, err := engine.Run(context.Background(), raw, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Disposals).To(HaveLen(1))
		Expect(result.Disposals[0].Matchings[0].Rule).To(Equal(match.RuleSection104))
	})

	It("excludes an acquisition with no price from the matching pool and flags an issue", func() {
		raw := []transaction.RawTransaction{
			{Symbol: "VOD", Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Kind: transaction.Buy, Currency: "GBP"},
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Sell, 10, 150),
		}

		result, err := engine.Run(context.Background(), raw, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Disposals[0].IsIncomplete).To(BeTrue())

		var sawIssue bool
		for _, issue := range result.Issues {
			if issue.Message != "" {
				sawIssue = true
			}
		}
		Expect(sawIssue).To(BeTrue())
	})

	It("deduplicates a transaction appearing twice with the same explicit ID", func() {
		q := decimal.NewFromInt(10)
		p := decimal.NewFromInt(100)
		tx := transaction.RawTransaction{ID: "dup-1", Symbol: "VOD", Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Kind: transaction.Buy, Quantity: &q, Price: &p, Currency: "GBP"}

		result, err := engine.Run(context.Background(), []transaction.RawTransaction{tx, tx}, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Transactions).To(HaveLen(1))
	})

	It("produces a tax-year summary for the disposal's tax year", func() {
		raw := []transaction.RawTransaction{
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Buy, 10, 100),
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Sell, 10, 150),
		}

		result, err := engine.Run(context.Background(), raw, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TaxYearSummaries).To(HaveLen(1))
		Expect(result.TaxYearSummaries[0].TaxYear).To(Equal("2023/24"))
		Expect(result.TaxYearSummaries[0].DisposalCount).To(Equal(1))
	})

	It("returns ErrCancelled when the context is already cancelled before the run", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		raw := []transaction.RawTransaction{
			gbpRaw("VOD", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), transaction.Buy, 10, 100),
		}

		_, err := engine.Run(ctx, raw, engine.Options{})
		Expect(err).To(MatchError(enginerr.ErrCancelled))
	})
})
