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

// Package taxyear maps calendar dates onto UK tax years (6 April to the
// following 5 April) and holds the historical allowance tables the
// tax-year summary component (C12) reads from.
package taxyear

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Of returns the UK tax-year label ("2024/25") that date falls within.
func Of(date time.Time) string {
	y := date.Year()
	if date.Month() < time.April || (date.Month() == time.April && date.Day() < 6) {
		return fmt.Sprintf("%d/%02d", y-1, y%100)
	}
	return fmt.Sprintf("%d/%02d", y, (y+1)%100)
}

// startYear parses the left-hand full year out of a "Y/YY" label.
func startYear(label string) (int, error) {
	parts := strings.SplitN(label, "/", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("taxyear: invalid label %q", label)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("taxyear: invalid label %q: %w", label, err)
	}
	return y, nil
}

// Start returns 6 April of the tax year's start calendar year.
func Start(label string) (time.Time, error) {
	y, err := startYear(label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, time.April, 6, 0, 0, 0, 0, time.UTC), nil
}

// End returns 5 April of the following calendar year.
func End(label string) (time.Time, error) {
	y, err := startYear(label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y+1, time.April, 5, 0, 0, 0, 0, time.UTC), nil
}

// Compare orders two tax-year labels by their parsed start year,
// ascending, falling back to plain string comparison when either label
// does not parse. C12's descending tax-year-summary sort uses it.
func Compare(a, b string) int {
	ya, errA := startYear(a)
	yb, errB := startYear(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	switch {
	case ya < yb:
		return -1
	case ya > yb:
		return 1
	default:
		return 0
	}
}

// AnnualExemptAmount returns the individual CGT allowance for the tax
// year starting in label's start year, per HMRC's historical table.
func AnnualExemptAmount(label string) decimal.Decimal {
	y, err := startYear(label)
	if err != nil {
		return decimal.Zero
	}
	switch {
	case y >= 2024:
		return decimal.NewFromInt(3000)
	case y == 2023:
		return decimal.NewFromInt(6000)
	case y >= 2020 && y <= 2022:
		return decimal.NewFromInt(12300)
	case y == 2019:
		return decimal.NewFromInt(12000)
	case y == 2018:
		return decimal.NewFromInt(11700)
	case y == 2017:
		return decimal.NewFromInt(11300)
	case y >= 2015 && y <= 2016:
		return decimal.NewFromInt(11100)
	default:
		return decimal.NewFromInt(11000)
	}
}

// DividendAllowance returns the dividend income-tax allowance for the
// tax year starting in label's start year. The engine only reports
// against this allowance (spec Non-goal: no dividend tax computation).
func DividendAllowance(label string) decimal.Decimal {
	y, err := startYear(label)
	if err != nil {
		return decimal.Zero
	}
	switch {
	case y >= 2024:
		return decimal.NewFromInt(500)
	case y == 2023:
		return decimal.NewFromInt(1000)
	case y >= 2018 && y <= 2022:
		return decimal.NewFromInt(2000)
	case y >= 2016 && y <= 2017:
		return decimal.NewFromInt(5000)
	default:
		return decimal.Zero
	}
}
