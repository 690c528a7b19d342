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

package splits_test

import (
	"context"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coffee-cpu/capital-gains-uk/splits"
)

var _ = Describe("HTTPFeed", func() {
	var feed *splits.HTTPFeed

	BeforeEach(func() {
		feed = splits.NewHTTPFeed("https://splits.example.test", 1000)
		httpmock.ActivateNonDefault(feed.HTTPClient())
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	It("decodes split records from the mocked feed", func() {
		httpmock.RegisterResponder("GET", "=~/splits",
			httpmock.NewJsonResponderOrPanic(200, []map[string]interface{}{
				{"symbol": "VOD", "date": "2023-06-01T00:00:00Z", "ratio_from": 1, "ratio_to": 2, "name": "forward split"},
			}))

		records, err := feed.FetchSplitsForYears(context.Background(), []int{2023})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Symbol).To(Equal("VOD"))
		Expect(records[0].RatioTo).To(Equal(2))
		Expect(records[0].Source).To(Equal(splits.SourceCommunity))
	})

	It("caches a year's records and never re-requests it", func() {
		httpmock.RegisterResponder("GET", "=~/splits",
			httpmock.NewJsonResponderOrPanic(200, []map[string]interface{}{}))

		_, err := feed.FetchSplitsForYears(context.Background(), []int{2023})
		Expect(err).NotTo(HaveOccurred())
		_, err = feed.FetchSplitsForYears(context.Background(), []int{2023})
		Expect(err).NotTo(HaveOccurred())

		Expect(httpmock.GetTotalCallCount()).To(Equal(1))
	})

	It("returns an error identifying the failing year when the feed errors", func() {
		httpmock.RegisterResponder("GET", "=~/splits",
			httpmock.NewStringResponder(503, "unavailable"))

		_, err := feed.FetchSplitsForYears(context.Background(), []int{2023})
		Expect(err).To(MatchError(ContainSubstring("2023")))
	})
})
