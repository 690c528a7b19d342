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

var _ = Describe("Section104", func() {
	It("averages cost across two acquisitions and matches a later disposal against the blended pool", func() {
		buyA := mkTx("buy-a", "VOD", d(1), transaction.Buy, 10, 100)
		buyB := mkTx("buy-b", "VOD", d(2), transaction.Buy, 10, 200)
		sell := mkTx("sell-1", "VOD", d(10), transaction.Sell, 5, 300)

		ledger := match.NewLedger(3)
		pools := match.Section104(ledger, []*transaction.EnrichedTransaction{buyA, buyB, sell})

		pool := pools["VOD"]
		Expect(pool.Quantity.Equal(decimal.NewFromInt(15))).To(BeTrue())

		matchings := ledger.ByRule(match.RuleSection104)
		Expect(matchings).To(HaveLen(1))
		Expect(matchings[0].QuantityMatched().Equal(decimal.NewFromInt(5))).To(BeTrue())
		Expect(matchings[0].TotalCostBasisGBP().Equal(decimal.NewFromInt(750))).To(BeTrue(), "average cost is (1000+2000)/20=150/share, so 5 shares cost 750")
	})

	It("drains the pool fully and matches only the available quantity when the disposal is larger", func() {
		buy := mkTx("buy-1", "VOD", d(1), transaction.Buy, 5, 100)
		sell := mkTx("sell-1", "VOD", d(10), transaction.Sell, 8, 300)

		ledger := match.NewLedger(2)
		pools := match.Section104(ledger, []*transaction.EnrichedTransaction{buy, sell})

		pool := pools["VOD"]
		Expect(pool.Quantity.IsZero()).To(BeTrue())
		Expect(pool.TotalCostGBP.IsZero()).To(BeTrue())

		matchings := ledger.ByRule(match.RuleSection104)
		Expect(matchings).To(HaveLen(1))
		Expect(matchings[0].QuantityMatched().Equal(decimal.NewFromInt(5))).To(BeTrue())
	})

	It("leaves the disposal's residual acquisition-leg pointing at a synthetic pool source, not a real transaction", func() {
		buy := mkTx("buy-1", "VOD", d(1), transaction.Buy, 10, 100)
		sell := mkTx("sell-1", "VOD", d(10), transaction.Sell, 5, 300)

		ledger := match.NewLedger(2)
		match.Section104(ledger, []*transaction.EnrichedTransaction{buy, sell})

		matchings := ledger.ByRule(match.RuleSection104)
		Expect(matchings[0].Acquisitions[0].TransactionID).To(Equal("section104-pool:VOD"))
	})

	It("only pools residual quantity left over after an earlier rule already claimed some", func() {
		buy := mkTx("buy-1", "VOD", d(1), transaction.Buy, 10, 100)
		sell := mkTx("sell-1", "VOD", d(10), transaction.Sell, 10, 300)

		ledger := match.NewLedger(2)
		ledger.Record(match.NewMatching("sell-1", match.RuleThirtyDay, []match.AcquisitionLeg{
			{TransactionID: "buy-1", QuantityMatched: decimal.NewFromInt(4), CostBasisGBP: decimal.NewFromInt(400)},
		}))

		pools := match.Section104(ledger, []*transaction.EnrichedTransaction{buy, sell})

		Expect(pools["VOD"].Quantity.IsZero()).To(BeTrue())
		matchings := ledger.ByRule(match.RuleSection104)
		Expect(matchings[0].QuantityMatched().Equal(decimal.NewFromInt(6))).To(BeTrue())
	})
})

var _ = Describe("Section104Pool", func() {
	It("computes AverageCostGBP as zero for an empty pool", func() {
		pool := &match.Section104Pool{Symbol: "VOD"}
		Expect(pool.AverageCostGBP().IsZero()).To(BeTrue())
	})
})
