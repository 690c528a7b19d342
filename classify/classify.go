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

// Package classify centralises the acquisition/disposal polarity rules
// (C7) so every matcher shares one definition of "this transaction adds
// to a holding" vs. "this transaction disposes of one" -- including the
// option-closure kinds whose polarity is sign-encoded rather than
// kind-encoded.
package classify

import (
	"github.com/shopspring/decimal"

	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// IsAcquisition reports whether tx adds to a holding.
func IsAcquisition(tx *transaction.Transaction) bool {
	switch tx.Kind {
	case transaction.Buy, transaction.OptBuyToOpen, transaction.OptBuyToClose:
		return true
	case transaction.OptExpired, transaction.OptAssigned:
		return tx.Quantity != nil && !tx.Quantity.IsNegative()
	default:
		return false
	}
}

// IsDisposal reports whether tx disposes of a holding.
func IsDisposal(tx *transaction.Transaction) bool {
	switch tx.Kind {
	case transaction.Sell, transaction.OptSellToClose, transaction.OptSellToOpen:
		return true
	case transaction.OptExpired, transaction.OptAssigned:
		return tx.Quantity != nil && tx.Quantity.IsNegative()
	default:
		return false
	}
}

// EffectiveQuantity returns the absolute share/contract-equivalent
// quantity used for matching: the split-adjusted quantity when present,
// falling back to the raw quantity, taking the absolute value so signed
// option-closure quantities compare like any other disposal/acquisition.
func EffectiveQuantity(tx *transaction.EnrichedTransaction) decimal.Decimal {
	var q *decimal.Decimal
	if tx.SplitAdjustedQuantity != nil {
		q = tx.SplitAdjustedQuantity
	} else {
		q = tx.Quantity
	}
	if q == nil {
		return decimal.Zero
	}
	return q.Abs()
}

// EffectivePriceGBP returns the split-adjusted GBP price when present,
// falling back to the unadjusted GBP price.
func EffectivePriceGBP(tx *transaction.EnrichedTransaction) *decimal.Decimal {
	if tx.SplitAdjustedPriceGBP != nil {
		return tx.SplitAdjustedPriceGBP
	}
	return tx.PriceGBP
}

// ContractSize returns tx's contract size, defaulting to 1 for non-option
// kinds so callers can multiply unconditionally.
func ContractSize(tx *transaction.Transaction) int {
	if tx.Kind.IsOption() {
		if tx.ContractSize < 1 {
			return transaction.DefaultContractSize
		}
		return tx.ContractSize
	}
	return 1
}
