// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/goccy/go-json"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coffee-cpu/capital-gains-uk/engine"
	"github.com/coffee-cpu/capital-gains-uk/fx"
	"github.com/coffee-cpu/capital-gains-uk/splits"
	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

var (
	jsonOut  bool
	deadline time.Duration
)

func init() {
	rootCmd.AddCommand(calculateCmd)
	calculateCmd.Flags().BoolVar(&jsonOut, "json", false, "emit the full result as JSON instead of a summary table")
	calculateCmd.Flags().DurationVar(&deadline, "provider-deadline", 30*time.Second, "deadline for FX and split-feed lookups")
}

var calculateCmd = &cobra.Command{
	Use:   "calculate [csv file]",
	Short: "Compute CGT disposals from a minimal CSV transaction history",
	Long: `Reads a flat CSV of transactions -- not a general broker-format parser,
just the engine's own canonical column set -- and prints the per-tax-year
summary table, a cumulative gain/loss chart over the disposals, and any
issues (or, with --json, the full result including every disposal).`,
	Args: cobra.ExactArgs(1),
	RunE: runCalculate,
}

// csvRow is the engine's own minimal CSV column set.
type csvRow struct {
	Source      string `csv:"source"`
	Symbol      string `csv:"symbol"`
	Date        string `csv:"date"`
	Kind        string `csv:"kind"`
	Quantity    string `csv:"quantity"`
	Price       string `csv:"price"`
	Currency    string `csv:"currency"`
	Total       string `csv:"total"`
	Fee         string `csv:"fee"`
	Ratio       string `csv:"ratio"`
	IsShortSell bool   `csv:"is_short_sell"`
	Underlying  string `csv:"underlying"`
	OptType     string `csv:"opt_type"`
	Strike      string `csv:"strike"`
	Expiration  string `csv:"expiration"`
}

func parseOptionalDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func (r csvRow) toRaw() (transaction.RawTransaction, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return transaction.RawTransaction{}, fmt.Errorf("row %s/%s: invalid date %q: %w", r.Symbol, r.Kind, r.Date, err)
	}

	raw := transaction.RawTransaction{
		Source:      r.Source,
		Symbol:      r.Symbol,
		Date:        date,
		Kind:        transaction.Kind(r.Kind),
		Quantity:    parseOptionalDecimal(r.Quantity),
		Price:       parseOptionalDecimal(r.Price),
		Currency:    r.Currency,
		Total:       parseOptionalDecimal(r.Total),
		Fee:         parseOptionalDecimal(r.Fee),
		Ratio:       r.Ratio,
		IsShortSell: r.IsShortSell,
		Underlying:  r.Underlying,
		OptType:     transaction.OptType(r.OptType),
		Strike:      parseOptionalDecimal(r.Strike),
	}

	if r.Expiration != "" {
		exp, err := time.Parse("2006-01-02", r.Expiration)
		if err != nil {
			return transaction.RawTransaction{}, fmt.Errorf("row %s/%s: invalid expiration %q: %w", r.Symbol, r.Kind, r.Expiration, err)
		}
		raw.Expiration = &exp
	}

	return raw, nil
}

func runCalculate(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	var rows []csvRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}

	raw := make([]transaction.RawTransaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toRaw()
		if err != nil {
			log.Warn().Err(err).Msg("skipping unparseable row")
			continue
		}
		raw = append(raw, tx)
	}

	opts := engine.Options{ProviderDeadline: deadline}
	if base := viper.GetString("fx.base_url"); base != "" {
		opts.FxProvider = fx.NewHMRCProvider(base, 5)
	}
	if base := viper.GetString("splits.base_url"); base != "" {
		opts.SplitFeed = splits.NewHTTPFeed(base, 5)
	}

	ctx := context.Background()
	result, err := engine.Run(ctx, raw, opts)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummaryTable(result)
	printGainLossChart(result)

	if len(result.Issues) > 0 {
		fmt.Printf("\n%d issue(s) encountered:\n", len(result.Issues))
		for _, issue := range result.Issues {
			fmt.Printf("  - [%s] %s\n", issue.Kind, issue.Message)
		}
	}

	return nil
}

func printSummaryTable(result *engine.CgtResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Tax Year", "Disposals", "Gains", "Losses", "Net", "Allowance", "Taxable Gain"})

	for _, s := range result.TaxYearSummaries {
		table.Append([]string{
			s.TaxYear,
			fmt.Sprintf("%d", s.DisposalCount),
			s.GainsGBP.StringFixed(2),
			s.LossesGBP.StringFixed(2),
			s.NetGainGBP.StringFixed(2),
			s.AnnualExemptAmount.StringFixed(2),
			s.TaxableGainGBP.StringFixed(2),
		})
	}

	table.Render()
}

func printGainLossChart(result *engine.CgtResult) {
	if len(result.Disposals) == 0 {
		return
	}

	series := make([]float64, 0, len(result.Disposals))
	running := 0.0
	for _, d := range result.Disposals {
		f, _ := d.GainOrLossGBP.Float64()
		running += f
		series = append(series, running)
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(series, asciigraph.Height(10), asciigraph.Caption("Cumulative gain/loss (GBP)")))
}
