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
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coffee-cpu/capital-gains-uk/common"
)

func init() {
	viper.BindEnv("log.level", "CGT_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("fx.base_url", "CGT_FX_BASE_URL")
	rootCmd.PersistentFlags().String("fx-base-url", "", "Base URL of the HMRC exchange-rate feed")
	viper.BindPFlag("fx.base_url", rootCmd.PersistentFlags().Lookup("fx-base-url"))

	viper.BindEnv("splits.base_url", "CGT_SPLITS_BASE_URL")
	rootCmd.PersistentFlags().String("splits-base-url", "", "Base URL of the community split-data feed")
	viper.BindPFlag("splits.base_url", rootCmd.PersistentFlags().Lookup("splits-base-url"))

	cobra.OnInitialize(configureLogging)
}

func configureLogging() {
	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

var rootCmd = &cobra.Command{
	Use:     "cgtctl",
	Version: common.CurrentVersion.String(),
	Short:   "cgtctl computes UK capital gains tax disposals from a transaction history",
	Long:    `A deterministic, fully-audited UK Capital Gains Tax engine for share and equity-option disposals.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
