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
	"time"

	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// mkTx builds a GBP-priced EnrichedTransaction ready for the matchers,
// bypassing the FX enricher entirely (PriceGBP is stamped directly).
func mkTx(id, symbol string, date time.Time, kind transaction.Kind, qty, priceGBP int64) *transaction.EnrichedTransaction {
	q := decimal.NewFromInt(qty)
	p := decimal.NewFromInt(priceGBP)
	raw := transaction.RawTransaction{ID: id, Symbol: symbol, Date: date, Kind: kind, Quantity: &q, Price: &p, Currency: "GBP"}
	tx, err := transaction.NewTransaction(raw)
	Expect(err).NotTo(HaveOccurred())
	et := &transaction.EnrichedTransaction{Transaction: tx}
	et.PriceGBP = &p
	return et
}

func d(day int) time.Time {
	return time.Date(2023, 6, day, 0, 0, 0, 0, time.UTC)
}
