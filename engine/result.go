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

// Package engine implements the pipeline orchestrator (C13): the
// linear sequence of enrichment and matching passes that turns a raw
// transaction batch into a CgtResult.
package engine

import (
	"time"

	"github.com/coffee-cpu/capital-gains-uk/disposal"
	"github.com/coffee-cpu/capital-gains-uk/enginerr"
	"github.com/coffee-cpu/capital-gains-uk/match"
	"github.com/coffee-cpu/capital-gains-uk/splits"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// Metadata carries the run-level facts about a CgtResult that aren't
// tied to any one transaction or disposal.
type Metadata struct {
	CalculatedAt      time.Time
	TotalTransactions int
	TotalBuys         int
	TotalSells        int
}

// CgtResult is the complete output of a Run: every enriched
// transaction, the assembled disposal records, the final Section 104
// pool snapshot per symbol, the per-tax-year summaries, a deterministic
// list of non-fatal issues encountered along the way, and the run's
// metadata.
type CgtResult struct {
	Transactions     []*transaction.EnrichedTransaction
	Disposals        []disposal.Record
	Section104Pools  map[string]*match.Section104Pool
	TaxYearSummaries []disposal.TaxYearSummary
	SplitEvents      []splits.StockSplitEvent
	Issues           []enginerr.Issue
	Metadata         Metadata
}
