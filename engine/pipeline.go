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

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coffee-cpu/capital-gains-uk/classify"
	"github.com/coffee-cpu/capital-gains-uk/disposal"
	"github.com/coffee-cpu/capital-gains-uk/enginerr"
	"github.com/coffee-cpu/capital-gains-uk/fx"
	"github.com/coffee-cpu/capital-gains-uk/match"
	"github.com/coffee-cpu/capital-gains-uk/splits"
	"github.com/coffee-cpu/capital-gains-uk/taxyear"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// Options configures one pipeline Run.
type Options struct {
	// FxProvider resolves exchange rates; required unless every
	// transaction is GBP-denominated.
	FxProvider fx.Provider

	// SplitFeed supplies externally-sourced stock splits; nil is
	// treated as "no external contribution", per C3's failure mode.
	SplitFeed splits.SplitFeed

	// ProviderDeadline bounds how long the FX and split-feed
	// suspension points (spec's §5) are allowed to block before the
	// Run is cancelled.
	ProviderDeadline time.Duration

	// Now is the reference "current time" the auto-split reconciler
	// uses to extend its year range; defaults to time.Now() if zero.
	Now time.Time
}

// Run executes the full pipeline -- deduplication, auto-split
// injection, split normalisation, FX, tax-year, the four matchers in
// strict precedence order, disposal assembly, and summarisation --
// over raw. It returns enginerr.ErrCancelled (with no partial result)
// if ctx is cancelled during either suspension point.
func Run(ctx context.Context, raw []transaction.RawTransaction, opts Options) (*CgtResult, error) {
	if opts.ProviderDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ProviderDeadline)
		defer cancel()
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	txs, issues := deduplicateAndValidate(raw)

	splitEvents, splitIssues := splits.Reconcile(ctx, txs, opts.SplitFeed, now)
	issues = append(issues, splitIssues...)
	if ctx.Err() != nil {
		return nil, enginerr.ErrCancelled
	}

	txs = injectAutoSplits(txs, splitEvents)

	enriched := make([]*transaction.EnrichedTransaction, len(txs))
	for i, tx := range txs {
		enriched[i] = &transaction.EnrichedTransaction{Transaction: tx}
	}

	splits.Normalise(enriched, splitEvents)

	if opts.FxProvider != nil {
		fxIssues := fx.Enrich(ctx, opts.FxProvider, enriched)
		issues = append(issues, fxIssues...)
	} else {
		fxIssues := fx.Enrich(ctx, noopProvider{}, enriched)
		issues = append(issues, fxIssues...)
	}
	if ctx.Err() != nil {
		return nil, enginerr.ErrCancelled
	}

	taxyear.Annotate(enriched)

	matchable := excludeFxErrors(enriched)

	ledger := match.NewLedger(len(matchable))
	match.ShortSell(ledger, matchable)
	match.SameDay(ledger, matchable)
	match.ThirtyDay(ledger, matchable)
	pools := match.Section104(ledger, matchable)

	disposals := disposal.Assemble(ledger, enriched)
	for _, d := range disposals {
		if d.IsIncomplete {
			issues = append(issues, enginerr.Issue{
				Kind:       enginerr.ErrIncompleteDisposal,
				DisposalID: d.DisposalID,
				Symbol:     d.Symbol,
				Message:    "disposal has unmatched residual quantity after all matchers ran",
			})
		}
	}

	summaries := disposal.Summarise(disposals, enriched)

	metadata := Metadata{
		CalculatedAt:      now,
		TotalTransactions: len(enriched),
	}
	for _, tx := range enriched {
		switch tx.Kind {
		case transaction.Buy:
			metadata.TotalBuys++
		case transaction.Sell:
			metadata.TotalSells++
		}
	}

	log.Info().
		Int("Transactions", len(enriched)).
		Int("Disposals", len(disposals)).
		Int("Issues", len(issues)).
		Msg("cgt pipeline run complete")

	return &CgtResult{
		Transactions:     enriched,
		Disposals:        disposals,
		Section104Pools:  pools,
		TaxYearSummaries: summaries,
		SplitEvents:      splitEvents,
		Issues:           issues,
		Metadata:         metadata,
	}, nil
}

// deduplicateAndValidate drops transactions whose derived/supplied ID
// has already been seen, then validates the rest, collecting
// ErrIncompleteAcquisition issues for any acquisition-shaped
// transaction missing the price needed to establish a cost basis.
func deduplicateAndValidate(raw []transaction.RawTransaction) ([]*transaction.Transaction, []enginerr.Issue) {
	seen := make(map[string]bool, len(raw))
	var txs []*transaction.Transaction
	var issues []enginerr.Issue

	for _, r := range raw {
		tx, err := transaction.NewTransaction(r)
		if err != nil {
			log.Warn().Err(err).Str("Symbol", r.Symbol).Msg("dropping invalid transaction")
			continue
		}
		if seen[tx.ID] {
			continue
		}
		seen[tx.ID] = true

		if !tx.Ignored && classify.IsAcquisition(tx) && tx.Kind != transaction.StockSplit && tx.Price == nil {
			tx.Ignored = true
			issues = append(issues, enginerr.Issue{
				Kind:          enginerr.ErrIncompleteAcquisition,
				TransactionID: tx.ID,
				Symbol:        tx.Symbol,
				Message:       "acquisition has no price to establish a cost basis; excluded from calculation",
			})
		}

		txs = append(txs, tx)
	}

	return txs, issues
}

// injectAutoSplits appends a synthetic StockSplit transaction for
// every Community-sourced split event not already present as a broker
// transaction, so the rest of the pipeline only ever sees transactions.
func injectAutoSplits(txs []*transaction.Transaction, events []splits.StockSplitEvent) []*transaction.Transaction {
	existing := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.Kind == transaction.StockSplit {
			existing[tx.Symbol+"|"+tx.Date.Format("2006-01-02")] = true
		}
	}

	out := make([]*transaction.Transaction, len(txs))
	copy(out, txs)

	for _, e := range events {
		if e.Source != splits.SourceCommunity {
			continue
		}
		key := e.Symbol + "|" + e.Date.Format("2006-01-02")
		if existing[key] {
			continue
		}
		ratioStr := ratioString(e.Ratio.New, e.Ratio.Old)
		synthetic, err := transaction.NewTransaction(transaction.RawTransaction{
			ID:     transaction.AutoSplitID(e.Symbol, e.Date.Format("2006-01-02")),
			Source: splits.SourceCommunity,
			Symbol: e.Symbol,
			Date:   e.Date,
			Kind:   transaction.StockSplit,
			Ratio:  ratioStr,
		})
		if err != nil {
			log.Warn().Err(err).Str("Symbol", e.Symbol).Msg("failed to synthesize auto-split transaction")
			continue
		}
		out = append(out, synthetic)
	}

	return out
}

func ratioString(newQty, oldQty int) string {
	return fmt.Sprintf("%d:%d", newQty, oldQty)
}

// excludeFxErrors returns every enriched transaction whose FX
// resolution succeeded -- the subset the matchers are allowed to
// touch, per spec's "excluded from matching" rule.
func excludeFxErrors(txs []*transaction.EnrichedTransaction) []*transaction.EnrichedTransaction {
	out := make([]*transaction.EnrichedTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Ignored || tx.HasFxError() {
			continue
		}
		out = append(out, tx)
	}
	return out
}

var errNoProvider = errors.New("engine: no fx provider configured")

// noopProvider treats every currency as unresolvable; it is used
// whenever the caller supplies no FxProvider. fx.Enrich never calls it
// for GBP-native transactions, and every other currency fails to resolve.
type noopProvider struct{}

func (noopProvider) GetRate(ctx context.Context, date time.Time, currency string) (fx.Rate, error) {
	return fx.Rate{}, errNoProvider
}

func (noopProvider) Prefetch(ctx context.Context, dates []time.Time, currencies []string) error {
	return nil
}
