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
	"net/http"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// httpSplitRecord is the wire shape returned by the feed; it maps 1:1
// onto SplitRecord but keeps the JSON tags off the domain type.
type httpSplitRecord struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	RatioFrom int       `json:"ratio_from"`
	RatioTo   int       `json:"ratio_to"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
}

// HTTPFeed is the reference SplitFeed: a rate-limited, retrying,
// per-year-cached client against a community split-data endpoint.
// Results for a given year are cached for the process lifetime since
// historical split data for a closed year never changes.
type HTTPFeed struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *haxmap.Map[int, []SplitRecord]
}

// NewHTTPFeed builds a feed client against baseURL, allowing at most
// ratePerSecond requests per second with a burst of 1.
func NewHTTPFeed(baseURL string, ratePerSecond float64) *HTTPFeed {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &HTTPFeed{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		cache:   haxmap.New[int, []SplitRecord](),
	}
}

// HTTPClient exposes the feed's underlying *http.Client so tests can
// intercept it (e.g. via httpmock.ActivateNonDefault).
func (f *HTTPFeed) HTTPClient() *http.Client {
	return f.client.GetClient()
}

// FetchSplitsForYears implements SplitFeed. Each year is fetched and
// cached independently so a partial failure only affects the years it
// touches; the overall call still returns an error if any year fails,
// per the "caller decides whether to proceed" contract used by
// Reconcile (a feed error there is absorbed into an Issue, not a panic).
func (f *HTTPFeed) FetchSplitsForYears(ctx context.Context, years []int) ([]SplitRecord, error) {
	var all []SplitRecord

	for _, year := range years {
		if cached, ok := f.cache.Get(year); ok {
			all = append(all, cached...)
			continue
		}

		records, err := f.fetchYear(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("fetch splits for %d: %w", year, err)
		}

		f.cache.Set(year, records)
		all = append(all, records...)
	}

	return all, nil
}

func (f *HTTPFeed) fetchYear(ctx context.Context, year int) ([]SplitRecord, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []httpSplitRecord

	op := func() error {
		resp, err := f.client.R().
			SetContext(ctx).
			SetResult(&raw).
			SetQueryParam("year", fmt.Sprintf("%d", year)).
			Get("/splits")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("split feed returned %s", resp.Status())
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		log.Warn().Err(err).Int("Year", year).Msg("split feed request failed after retries")
		return nil, err
	}

	records := make([]SplitRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, SplitRecord{
			Symbol:    r.Symbol,
			Date:      r.Date,
			RatioFrom: r.RatioFrom,
			RatioTo:   r.RatioTo,
			Name:      r.Name,
			Source:    SourceCommunity,
			Notes:     r.Notes,
		})
	}
	return records, nil
}
