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

package splits_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/splits"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

func mustTx(raw transaction.RawTransaction) *transaction.Transaction {
	tx, err := transaction.NewTransaction(raw)
	Expect(err).NotTo(HaveOccurred())
	return tx
}

type fakeFeed struct {
	records []splits.SplitRecord
	err     error
}

func (f fakeFeed) FetchSplitsForYears(ctx context.Context, years []int) ([]splits.SplitRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

var _ = Describe("ExtractBrokerEvents", func() {
	It("extracts StockSplit transactions as broker events", func() {
		tx := mustTx(transaction.RawTransaction{
			Symbol: "VOD", Date: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			Kind: transaction.StockSplit, Ratio: "2:1",
		})

		events, issues := splits.ExtractBrokerEvents([]*transaction.Transaction{tx})
		Expect(issues).To(BeEmpty())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Symbol).To(Equal("VOD"))
		Expect(events[0].Source).To(Equal(splits.SourceBroker))
	})
})

var _ = Describe("HeldSymbols", func() {
	It("only includes symbols from trading kinds, not dividends or fees", func() {
		qty := decimal.NewFromInt(10)
		price := decimal.NewFromInt(1)
		txs := []*transaction.Transaction{
			mustTx(transaction.RawTransaction{Symbol: "AAA", Date: time.Now(), Kind: transaction.Buy, Quantity: &qty, Price: &price}),
			mustTx(transaction.RawTransaction{Symbol: "BBB", Date: time.Now(), Kind: transaction.Dividend}),
		}
		held := splits.HeldSymbols(txs)
		Expect(held).To(ConsistOf("AAA"))
	})
})

var _ = Describe("Reconcile", func() {
	It("fuzzy-dedups an external record within the window against a broker split", func() {
		brokerSplit := mustTx(transaction.RawTransaction{
			Symbol: "VOD", Date: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			Kind: transaction.StockSplit, Ratio: "2:1",
		})
		qty := decimal.NewFromInt(10)
		price := decimal.NewFromInt(1)
		buy := mustTx(transaction.RawTransaction{Symbol: "VOD", Date: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), Kind: transaction.Buy, Quantity: &qty, Price: &price})

		feed := fakeFeed{records: []splits.SplitRecord{
			{Symbol: "VOD", Date: time.Date(2023, 5, 3, 0, 0, 0, 0, time.UTC), RatioFrom: 1, RatioTo: 2},
		}}

		events, _ := splits.Reconcile(context.Background(), []*transaction.Transaction{brokerSplit, buy}, feed, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
		Expect(events).To(HaveLen(1), "the external record within ±7 days of the broker split should be dropped as a duplicate")
		Expect(events[0].Source).To(Equal(splits.SourceBroker))
	})

	It("keeps an external record outside the fuzzy window", func() {
		qty := decimal.NewFromInt(10)
		price := decimal.NewFromInt(1)
		buy := mustTx(transaction.RawTransaction{Symbol: "VOD", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Kind: transaction.Buy, Quantity: &qty, Price: &price})

		feed := fakeFeed{records: []splits.SplitRecord{
			{Symbol: "VOD", Date: time.Date(2023, 5, 3, 0, 0, 0, 0, time.UTC), RatioFrom: 1, RatioTo: 2},
		}}

		events, _ := splits.Reconcile(context.Background(), []*transaction.Transaction{buy}, feed, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
		Expect(events).To(HaveLen(1))
		Expect(events[0].Source).To(Equal(splits.SourceCommunity))
	})

	It("ignores external records for symbols not held", func() {
		qty := decimal.NewFromInt(10)
		price := decimal.NewFromInt(1)
		buy := mustTx(transaction.RawTransaction{Symbol: "VOD", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Kind: transaction.Buy, Quantity: &qty, Price: &price})

		feed := fakeFeed{records: []splits.SplitRecord{
			{Symbol: "OTHER", Date: time.Date(2023, 5, 3, 0, 0, 0, 0, time.UTC), RatioFrom: 1, RatioTo: 2},
		}}

		events, _ := splits.Reconcile(context.Background(), []*transaction.Transaction{buy}, feed, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
		Expect(events).To(BeEmpty())
	})

	It("never fails the pipeline when the feed errors", func() {
		qty := decimal.NewFromInt(10)
		price := decimal.NewFromInt(1)
		buy := mustTx(transaction.RawTransaction{Symbol: "VOD", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Kind: transaction.Buy, Quantity: &qty, Price: &price})

		feed := fakeFeed{err: errors.New("feed unreachable")}

		events, issues := splits.Reconcile(context.Background(), []*transaction.Transaction{buy}, feed, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
		Expect(events).To(BeEmpty())
		Expect(issues).To(HaveLen(1))
	})
})
