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

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// DeriveID computes a stable, deterministic transaction ID from the
// fields that identify a real-world event: the same broker row fed
// through the engine twice always derives the same ID, which is what
// lets the orchestrator's deduplication (C13) treat re-ingested
// transactions idempotently. Synthetic auto-split transactions take
// their IDs from AutoSplitID instead.
func DeriveID(raw RawTransaction) string {
	h := blake3.New()

	fmt.Fprintf(h, "%s|%s|%s|%s", raw.Date.UTC().Format("2006-01-02"), raw.Source, raw.Symbol, raw.Kind)

	if raw.Quantity != nil {
		fmt.Fprintf(h, "|q=%s", raw.Quantity.String())
	}
	if raw.Price != nil {
		fmt.Fprintf(h, "|p=%s", raw.Price.String())
	}
	if raw.Total != nil {
		fmt.Fprintf(h, "|t=%s", raw.Total.String())
	}
	if raw.Ratio != "" {
		fmt.Fprintf(h, "|r=%s", raw.Ratio)
	}
	if raw.Kind.IsOption() {
		fmt.Fprintf(h, "|u=%s|k=%s", raw.Underlying, raw.OptType)
		if raw.Strike != nil {
			fmt.Fprintf(h, "|s=%s", raw.Strike.String())
		}
		if raw.Expiration != nil {
			fmt.Fprintf(h, "|e=%s", raw.Expiration.UTC().Format("2006-01-02"))
		}
	}

	digest := h.Digest()
	buf := make([]byte, 16)
	_, _ = digest.Read(buf)

	return hex.EncodeToString(buf)
}

// AutoSplitID builds the deterministic synthetic-transaction ID the
// auto-split reconciler (C3) assigns to surviving external split
// records: "auto-split-{symbol}-{date}".
func AutoSplitID(symbol string, date string) string {
	return fmt.Sprintf("auto-split-%s-%s", symbol, date)
}
