// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with outgoing requests
	// (e.g. "forage/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// QualityConfig holds the Quality Gate thresholds. The defaults are
// empirically tuned; treat them as configuration, not constants whose
// exact values are load-bearing.
type QualityConfig struct {
	// MinChars is the minimum extracted-character count below which the
	// fast path is insufficient regardless of structure.
	MinChars int `json:"min_chars" yaml:"min_chars"`

	// FlatMinLines guards the flattened-table heuristic: fewer non-empty
	// lines than this and the heuristic abstains.
	FlatMinLines int `json:"flat_min_lines" yaml:"flat_min_lines"`

	// FlatShortRatio is the minimum share of 1-3 token lines.
	FlatShortRatio float64 `json:"flat_short_ratio" yaml:"flat_short_ratio"`

	// FlatSentenceRatio is the maximum share of 6+ token lines.
	FlatSentenceRatio float64 `json:"flat_sentence_ratio" yaml:"flat_sentence_ratio"`

	// FlatNumericRatio is the minimum share of lines containing digits.
	FlatNumericRatio float64 `json:"flat_numeric_ratio" yaml:"flat_numeric_ratio"`
}

// DefaultQuality returns the tuned thresholds.
func DefaultQuality() QualityConfig {
	return QualityConfig{
		MinChars:          500,
		FlatMinLines:      20,
		FlatShortRatio:    0.60,
		FlatSentenceRatio: 0.10,
		FlatNumericRatio:  0.15,
	}
}

// BrowserConfig holds settings for the headed-browser fallback tier.
type BrowserConfig struct {
	Headless bool `json:"headless" yaml:"headless"`

	// NavigateTimeout bounds a single navigation.
	NavigateTimeout time.Duration `json:"navigate_timeout" yaml:"navigate_timeout"`

	// SettleDelay is the wait after load for late hydration.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`
}

// FetchConfig holds settings for the fetch pipeline.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DepositDir is the base directory for deposit folders.
	DepositDir string `json:"deposit_dir" yaml:"deposit_dir"`

	// Workers bounds concurrency across independent extractions
	// (attachments, thumbnails). Capped at two: the upstream service
	// corrupts connections and rate-limits above that.
	Workers int `json:"workers" yaml:"workers"`

	// ForceBrowser skips the HTTP fast path for web content.
	ForceBrowser bool `json:"force_browser" yaml:"force_browser"`

	Quality QualityConfig `json:"quality" yaml:"quality"`
	Browser BrowserConfig `json:"browser" yaml:"browser"`
}

// LedgerConfig holds settings for the fetch-history index.
type LedgerConfig struct {
	// Dir is the directory holding the ledger database.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default list page size.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
}
