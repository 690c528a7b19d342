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

package match_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/match"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

var _ = Describe("ShortSell", func() {
	It("covers an open short position against a later buy-to-cover", func() {
		short := mkTx("short-1", "VOD", d(1), transaction.Sell, 10, 150)
		short.IsShortSell = true
		cover := mkTx("cover-1", "VOD", d(5), transaction.Buy, 10, 120)

		ledger := match.NewLedger(2)
		match.ShortSell(ledger, []*transaction.EnrichedTransaction{short, cover})

		matchings := ledger.ByRule(match.RuleShortSell)
		Expect(matchings).To(HaveLen(1))
		Expect(matchings[0].DisposalID).To(Equal("short-1"))
		Expect(matchings[0].QuantityMatched().Equal(decimal.NewFromInt(10))).To(BeTrue())
	})

	It("ignores an ordinary (non-short) sell", func() {
		sell := mkTx("sell-1", "VOD", d(1), transaction.Sell, 10, 150)
		buy := mkTx("buy-1", "VOD", d(5), transaction.Buy, 10, 120)

		ledger := match.NewLedger(2)
		match.ShortSell(ledger, []*transaction.EnrichedTransaction{sell, buy})

		Expect(ledger.ByRule(match.RuleShortSell)).To(BeEmpty())
	})

	It("covers a short FIFO across two later acquisitions", func() {
		short := mkTx("short-1", "VOD", d(1), transaction.Sell, 10, 150)
		short.IsShortSell = true
		coverA := mkTx("cover-a", "VOD", d(3), transaction.Buy, 4, 120)
		coverB := mkTx("cover-b", "VOD", d(5), transaction.Buy, 6, 130)

		ledger := match.NewLedger(3)
		match.ShortSell(ledger, []*transaction.EnrichedTransaction{short, coverA, coverB})

		matchings := ledger.ByRule(match.RuleShortSell)
		Expect(matchings).To(HaveLen(2))
		totalMatched := decimal.Zero
		for _, m := range matchings {
			totalMatched = totalMatched.Add(m.QuantityMatched())
		}
		Expect(totalMatched.Equal(decimal.NewFromInt(10))).To(BeTrue())
	})
})
