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

package splits

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coffee-cpu/capital-gains-uk/enginerr"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// tradingKinds are the kinds that establish or close a position --
// used to decide which symbols are "held" for the purpose of scoping
// external split-feed queries.
var tradingKinds = map[transaction.Kind]bool{
	transaction.Buy:            true,
	transaction.Sell:           true,
	transaction.OptBuyToOpen:   true,
	transaction.OptSellToOpen:  true,
	transaction.OptBuyToClose:  true,
	transaction.OptSellToClose: true,
	transaction.OptAssigned:    true,
	transaction.OptExpired:     true,
}

// ExtractBrokerEvents pulls out every StockSplit transaction as a
// broker-provided StockSplitEvent. A transaction whose ratio fails to
// parse is skipped with an ErrInvalidSplitRatio issue rather than
// aborting extraction for the rest of the batch.
func ExtractBrokerEvents(txs []*transaction.Transaction) ([]StockSplitEvent, []enginerr.Issue) {
	events := make([]StockSplitEvent, 0)
	var issues []enginerr.Issue

	for _, tx := range txs {
		if tx.Kind != transaction.StockSplit || tx.Ignored {
			continue
		}
		ratio, err := transaction.ParseSplitRatio(tx.Ratio)
		if err != nil {
			log.Warn().Err(err).Str("Symbol", tx.Symbol).Str("TransactionID", tx.ID).Msg("skipping stock split with invalid ratio")
			issues = append(issues, enginerr.Issue{
				Kind:          enginerr.ErrInvalidSplitRatio,
				TransactionID: tx.ID,
				Symbol:        tx.Symbol,
				Message:       fmt.Sprintf("invalid split ratio %q on %s", tx.Ratio, tx.Symbol),
			})
			continue
		}
		events = append(events, StockSplitEvent{
			Symbol: tx.Symbol,
			Date:   tx.Date,
			Ratio:  ratio,
			Source: SourceBroker,
		})
	}

	return events, issues
}

// HeldSymbols returns the set of symbols that appear on at least one
// trading transaction (buys, sells, option opens/closes/assignments).
func HeldSymbols(txs []*transaction.Transaction) []string {
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx.Ignored {
			continue
		}
		if tradingKinds[tx.Kind] {
			seen[tx.Symbol] = true
		}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// yearRange derives [min, max] covering every transaction's date,
// extended to include now's year, and capped at MaxYearSpan years.
func yearRange(txs []*transaction.Transaction, now time.Time) (int, int) {
	minYear, maxYear := now.Year(), now.Year()
	first := true
	for _, tx := range txs {
		y := tx.Date.Year()
		if first {
			minYear, maxYear = y, y
			first = false
		}
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	if now.Year() > maxYear {
		maxYear = now.Year()
	}
	if maxYear-minYear+1 > MaxYearSpan {
		minYear = maxYear - MaxYearSpan + 1
	}
	return minYear, maxYear
}

func yearsBetween(min, max int) []int {
	years := make([]int, 0, max-min+1)
	for y := min; y <= max; y++ {
		years = append(years, y)
	}
	return years
}

// containsSymbol does a case-sensitive membership check against a
// sorted symbol slice (as returned by HeldSymbols).
func containsSymbol(held []string, symbol string) bool {
	i := sort.SearchStrings(held, symbol)
	return i < len(held) && held[i] == symbol
}

// Reconcile implements the auto-split reconciler (C3): it extracts
// broker-provided splits, queries feed for every year from the earliest
// transaction through now (capped at MaxYearSpan), keeps only records
// for held symbols, fuzzy-dedups external records against broker ones
// within FuzzyWindow, and returns the merged, date-ascending event list
// plus any issues encountered along the way. A feed error never fails
// the pipeline -- it just means no external contribution this run.
func Reconcile(ctx context.Context, txs []*transaction.Transaction, feed SplitFeed, now time.Time) ([]StockSplitEvent, []enginerr.Issue) {
	brokerEvents, issues := ExtractBrokerEvents(txs)

	held := HeldSymbols(txs)
	minYear, maxYear := yearRange(txs, now)
	years := yearsBetween(minYear, maxYear)

	var external []SplitRecord
	if feed != nil {
		records, err := feed.FetchSplitsForYears(ctx, years)
		if err != nil {
			log.Warn().Err(err).Ints("Years", years).Msg("split feed unavailable, continuing with broker splits only")
			issues = append(issues, enginerr.Issue{
				Kind:    enginerr.ErrSplitFeedFailure,
				Message: fmt.Sprintf("split feed unavailable: %s", err),
			})
		} else {
			external = records
		}
	}

	merged := make([]StockSplitEvent, len(brokerEvents))
	copy(merged, brokerEvents)

	for _, rec := range external {
		if !containsSymbol(held, rec.Symbol) {
			continue
		}
		if duplicatesBrokerEvent(rec, brokerEvents) {
			continue
		}
		ratio := transaction.SplitRatio{New: rec.RatioTo, Old: rec.RatioFrom}
		if rec.RatioTo <= 0 || rec.RatioFrom <= 0 {
			issues = append(issues, enginerr.Issue{
				Kind:    enginerr.ErrInvalidSplitRatio,
				Symbol:  rec.Symbol,
				Message: fmt.Sprintf("invalid external split ratio %d:%d on %s", rec.RatioTo, rec.RatioFrom, rec.Symbol),
			})
			continue
		}
		merged = append(merged, StockSplitEvent{
			Symbol: rec.Symbol,
			Date:   rec.Date,
			Ratio:  ratio,
			Source: SourceCommunity,
			Name:   rec.Name,
			Notes:  rec.Notes,
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Symbol < merged[j].Symbol
		}
		return merged[i].Date.Before(merged[j].Date)
	})

	return merged, issues
}

// duplicatesBrokerEvent reports whether rec falls within FuzzyWindow of
// a broker split on the same symbol, regardless of ratio agreement. A
// ratio mismatch against the nearest broker event is logged so the
// discrepancy is auditable even though broker data always wins.
func duplicatesBrokerEvent(rec SplitRecord, broker []StockSplitEvent) bool {
	for _, b := range broker {
		if b.Symbol != rec.Symbol {
			continue
		}
		diff := rec.Date.Sub(b.Date)
		if diff < 0 {
			diff = -diff
		}
		if diff <= FuzzyWindow {
			if b.Ratio.New != rec.RatioTo || b.Ratio.Old != rec.RatioFrom {
				log.Warn().
					Str("Symbol", rec.Symbol).
					Str("BrokerRatio", fmt.Sprintf("%d:%d", b.Ratio.New, b.Ratio.Old)).
					Str("ExternalRatio", fmt.Sprintf("%d:%d", rec.RatioTo, rec.RatioFrom)).
					Msg("external split ratio disagrees with broker split within dedup window; keeping broker ratio")
			}
			return true
		}
	}
	return false
}
