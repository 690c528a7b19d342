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

package taxyear

import "github.com/coffee-cpu/capital-gains-uk/transaction"

// Annotate is the tax-year enricher (C6): a pure pass that stamps every
// enriched transaction with the UK tax year its date falls within.
func Annotate(txs []*transaction.EnrichedTransaction) {
	for _, tx := range txs {
		tx.TaxYear = Of(tx.Date)
	}
}
