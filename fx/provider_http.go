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

package fx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/coffee-cpu/capital-gains-uk/transaction"
)

// HMRCProvider is the reference Provider: it quotes HMRC's published
// monthly average exchange rates, one request per (currency, year,
// month), caching each response for the process lifetime. Rates for a
// closed period never change, so the cache never needs invalidation.
type HMRCProvider struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *haxmap.Map[string, decimal.Decimal]
}

// NewHMRCProvider builds a provider against baseURL, allowing at most
// ratePerSecond requests per second with a burst of 1.
func NewHMRCProvider(baseURL string, ratePerSecond float64) *HMRCProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &HMRCProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		cache:   haxmap.New[string, decimal.Decimal](),
	}
}

// HTTPClient exposes the provider's underlying *http.Client so tests
// can intercept it (e.g. via httpmock.ActivateNonDefault).
func (p *HMRCProvider) HTTPClient() *http.Client {
	return p.client.GetClient()
}

func cacheKey(currency string, date time.Time) string {
	return fmt.Sprintf("%s|%04d-%02d", currency, date.Year(), date.Month())
}

type hmrcRateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// GetRate implements Provider. The returned Rate's Value is quoted as
// foreign-units-per-1-GBP, matching HMRC's own publication convention;
// callers must divide (ToGBP), never multiply.
func (p *HMRCProvider) GetRate(ctx context.Context, date time.Time, currency string) (Rate, error) {
	key := cacheKey(currency, date)
	if cached, ok := p.cache.Get(key); ok {
		return Rate{Currency: currency, Date: date, Value: cached, Source: "hmrc-monthly-average"}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Rate{}, err
	}

	var result hmrcRateResponse
	op := func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetResult(&result).
			SetQueryParams(map[string]string{
				"currency": currency,
				"year":     fmt.Sprintf("%d", date.Year()),
				"month":    fmt.Sprintf("%d", int(date.Month())),
			}).
			Get("/exchange-rates/monthly")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("hmrc rate feed returned %s", resp.Status())
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return Rate{}, err
	}

	p.cache.Set(key, result.Rate)
	return Rate{Currency: currency, Date: date, Value: result.Rate, Source: "hmrc-monthly-average"}, nil
}

// Prefetch warms the cache for every (date, currency) pair up front so
// the per-transaction GetRate calls in the main loop are cache hits.
func (p *HMRCProvider) Prefetch(ctx context.Context, dates []time.Time, currencies []string) error {
	seen := make(map[string]bool)
	for _, d := range dates {
		for _, c := range currencies {
			k := cacheKey(c, d)
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, err := p.GetRate(ctx, d, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrefetchTransactions is a convenience wrapper deriving the date and
// currency sets straight from a transaction batch.
func (p *HMRCProvider) PrefetchTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	var dates []time.Time
	var currencies []string
	seenCur := make(map[string]bool)
	for _, tx := range txs {
		if tx.Currency == "" || tx.Currency == GBP {
			continue
		}
		dates = append(dates, tx.Date)
		if !seenCur[tx.Currency] {
			seenCur[tx.Currency] = true
			currencies = append(currencies, tx.Currency)
		}
	}
	return p.Prefetch(ctx, dates, currencies)
}
