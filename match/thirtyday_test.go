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

var _ = Describe("ThirtyDay", func() {
	It("matches a disposal against a repurchase within the following 30 days", func() {
		sell := mkTx("sell-1", "VOD", d(1), transaction.Sell, 10, 150)
		buy := mkTx("buy-1", "VOD", d(10), transaction.Buy, 10, 120)

		ledger := match.NewLedger(2)
		match.ThirtyDay(ledger, []*transaction.EnrichedTransaction{sell, buy})

		matchings := ledger.ByRule(match.RuleThirtyDay)
		Expect(matchings).To(HaveLen(1))
		Expect(matchings[0].DisposalID).To(Equal("sell-1"))
		Expect(matchings[0].QuantityMatched().Equal(decimal.NewFromInt(10))).To(BeTrue())
	})

	It("does not match a repurchase more than 30 days later", func() {
		sell := mkTx("sell-1", "VOD", d(1), transaction.Sell, 10, 150)
		buy := mkTx("buy-1", "VOD", d(1).AddDate(0, 0, 31), transaction.Buy, 10, 120)

		ledger := match.NewLedger(2)
		match.ThirtyDay(ledger, []*transaction.EnrichedTransaction{sell, buy})

		Expect(ledger.ByRule(match.RuleThirtyDay)).To(BeEmpty())
	})

	It("does not match a purchase made before the disposal", func() {
		buy := mkTx("buy-1", "VOD", d(1), transaction.Buy, 10, 120)
		sell := mkTx("sell-1", "VOD", d(10), transaction.Sell, 10, 150)

		ledger := match.NewLedger(2)
		match.ThirtyDay(ledger, []*transaction.EnrichedTransaction{buy, sell})

		Expect(ledger.ByRule(match.RuleThirtyDay)).To(BeEmpty())
	})

	It("never double-matches one repurchase against two disposals within the window", func() {
		sellA := mkTx("sell-a", "VOD", d(1), transaction.Sell, 6, 150)
		sellB := mkTx("sell-b", "VOD", d(2), transaction.Sell, 6, 150)
		buy := mkTx("buy-1", "VOD", d(5), transaction.Buy, 10, 120)

		ledger := match.NewLedger(3)
		match.ThirtyDay(ledger, []*transaction.EnrichedTransaction{sellA, sellB, buy})

		Expect(ledger.AlreadyMatchedQuantity("buy-1").LessThanOrEqual(decimal.NewFromInt(10))).To(BeTrue())
		totalMatched := decimal.Zero
		for _, m := range ledger.ByRule(match.RuleThirtyDay) {
			totalMatched = totalMatched.Add(m.QuantityMatched())
		}
		Expect(totalMatched.Equal(decimal.NewFromInt(10))).To(BeTrue())
	})

	It("only matches the residual left over after an earlier rule already claimed some quantity", func() {
		buy := mkTx("buy-1", "VOD", d(5), transaction.Buy, 10, 120)
		sell := mkTx("sell-1", "VOD", d(1), transaction.Sell, 10, 150)

		ledger := match.NewLedger(2)
		ledger.Record(match.NewMatching("sell-1", match.RuleSameDay, []match.AcquisitionLeg{
			{TransactionID: "other-acq", QuantityMatched: decimal.NewFromInt(4), CostBasisGBP: decimal.NewFromInt(400)},
		}))

		match.ThirtyDay(ledger, []*transaction.EnrichedTransaction{buy, sell})

		matchings := ledger.ByRule(match.RuleThirtyDay)
		Expect(matchings).To(HaveLen(1))
		Expect(matchings[0].QuantityMatched().Equal(decimal.NewFromInt(6))).To(BeTrue())
	})
})
