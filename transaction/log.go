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

import "github.com/rs/zerolog"

func (t *Transaction) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ID", t.ID).
		Time("Date", t.Date).
		Str("Source", t.Source).
		Str("Symbol", t.Symbol).
		Str("Kind", string(t.Kind)).
		Str("Currency", t.Currency).
		Bool("IsShortSell", t.IsShortSell).
		Bool("Ignored", t.Ignored)

	if t.Quantity != nil {
		e.Str("Quantity", t.Quantity.String())
	}
	if t.Price != nil {
		e.Str("Price", t.Price.String())
	}
}

func (e *EnrichedTransaction) MarshalZerologObject(ev *zerolog.Event) {
	e.Transaction.MarshalZerologObject(ev)
	ev.Str("TaxYear", e.TaxYear).
		Str("GainGroup", string(e.GainGroup)).
		Str("FxSource", e.FxSource).
		Strs("MatchGroups", e.MatchGroups)

	if e.FxError != "" {
		ev.Str("FxError", e.FxError)
	}
}
