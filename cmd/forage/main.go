// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the forage CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/okrent/forage/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is shared by all subcommands, configured in the root
// pre-run.
var logger *zap.Logger

// rootCmd is the base command for the forage CLI.
var rootCmd = &cobra.Command{
	Use:   "forage",
	Short: "Fetch and normalize content from documents, mail, and the web",
	Long: `forage takes opaque references (document URLs and IDs, mail thread IDs and
tokens, web URLs, attachment pointers), classifies them, extracts their
content through type-specific strategies with quality-gated fallback, and
deposits normalized markdown plus sidecar files into per-fetch folders.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
			logger, err = cfg.Build()
		}
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./forage.yaml or ~/.config/forage/forage.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("forage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "forage"))
		}
	}

	viper.SetDefault("fetch.deposit_dir", "forage-fetch")
	viper.SetDefault("fetch.workers", 2)
	viper.SetDefault("fetch.timeout", 60*time.Second)
	viper.SetDefault("fetch.user_agent", "forage/0.1")
	viper.SetDefault("fetch.secrets_dir", ".secrets")
	viper.SetDefault("fetch.browser.headless", true)
	viper.SetDefault("fetch.converter", "remote")
	viper.SetDefault("ledger.dir", ".forage")
	viper.SetDefault("ledger.max_results", 50)

	viper.SetEnvPrefix("FORAGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// fetchConfig assembles the pipeline configuration from config file,
// environment, and defaults.
func fetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("fetch.timeout"),
			UserAgent: viper.GetString("fetch.user_agent"),
		},
		DepositDir:   viper.GetString("fetch.deposit_dir"),
		Workers:      viper.GetInt("fetch.workers"),
		ForceBrowser: viper.GetBool("fetch.force_browser"),
		Quality: types.QualityConfig{
			MinChars:          viper.GetInt("fetch.quality.min_chars"),
			FlatMinLines:      viper.GetInt("fetch.quality.flat_min_lines"),
			FlatShortRatio:    viper.GetFloat64("fetch.quality.flat_short_ratio"),
			FlatSentenceRatio: viper.GetFloat64("fetch.quality.flat_sentence_ratio"),
			FlatNumericRatio:  viper.GetFloat64("fetch.quality.flat_numeric_ratio"),
		},
		Browser: types.BrowserConfig{
			Headless:        viper.GetBool("fetch.browser.headless"),
			NavigateTimeout: viper.GetDuration("fetch.browser.navigate_timeout"),
			SettleDelay:     viper.GetDuration("fetch.browser.settle_delay"),
		},
	}
}

func ledgerConfig() types.LedgerConfig {
	return types.LedgerConfig{
		Dir:        viper.GetString("ledger.dir"),
		MaxResults: viper.GetInt("ledger.max_results"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
