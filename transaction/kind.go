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

package transaction

import "fmt"

// Kind is the closed set of transaction variants the engine understands.
// New option events must be added to the switch in Validate and in every
// exhaustive switch elsewhere in the engine -- the compiler won't catch a
// missing case on a string enum, so callers that switch on Kind should
// always carry a default branch that errors instead of silently no-op'ing.
type Kind string

const (
	Buy            Kind = "Buy"
	Sell           Kind = "Sell"
	Dividend       Kind = "Dividend"
	Fee            Kind = "Fee"
	Interest       Kind = "Interest"
	Transfer       Kind = "Transfer"
	Tax            Kind = "Tax"
	StockSplit     Kind = "StockSplit"
	OptBuyToOpen   Kind = "OptBuyToOpen"
	OptSellToOpen  Kind = "OptSellToOpen"
	OptBuyToClose  Kind = "OptBuyToClose"
	OptSellToClose Kind = "OptSellToClose"
	OptAssigned    Kind = "OptAssigned"
	OptExpired     Kind = "OptExpired"
)

// Validate reports whether k is one of the closed set of known kinds.
func (k Kind) Validate() error {
	switch k {
	case Buy, Sell, Dividend, Fee, Interest, Transfer, Tax, StockSplit,
		OptBuyToOpen, OptSellToOpen, OptBuyToClose, OptSellToClose,
		OptAssigned, OptExpired:
		return nil
	default:
		return fmt.Errorf("transaction: unknown kind %q", string(k))
	}
}

// IsOption reports whether k carries option fields (underlying, strike,
// expiration, contract size).
func (k Kind) IsOption() bool {
	switch k {
	case OptBuyToOpen, OptSellToOpen, OptBuyToClose, OptSellToClose, OptAssigned, OptExpired:
		return true
	default:
		return false
	}
}

// OptType is the option right.
type OptType string

const (
	Call OptType = "Call"
	Put  OptType = "Put"
)

func (t OptType) Validate() error {
	switch t {
	case Call, Put:
		return nil
	default:
		return fmt.Errorf("transaction: unknown option type %q", string(t))
	}
}

// GainGroup records which matching rule, if any, consumed a transaction.
type GainGroup string

const (
	GainGroupNone       GainGroup = "None"
	GainGroupSameDay    GainGroup = "SameDay"
	GainGroupThirtyDay  GainGroup = "ThirtyDay"
	GainGroupSection104 GainGroup = "Section104"
	GainGroupShortSell  GainGroup = "ShortSell"
)
