// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality decides whether fast-path extracted text is good
// enough to keep or whether the caller should escalate to a more
// expensive tier. The gate only ever votes escalate/keep; it never
// mutates content.
package quality

import (
	"strings"
	"unicode"

	"github.com/okrent/forage/pkg/types"
)

// Verdict is the gate's decision about one piece of extracted text.
type Verdict struct {
	// Sufficient is false when the caller should escalate.
	Sufficient bool

	// Reason is a short machine-readable cause ("too_short",
	// "flattened_tables") recorded as a warning by callers.
	Reason string
}

// Gate applies the configured thresholds to extracted text.
type Gate struct {
	cfg types.QualityConfig
}

// NewGate returns a gate with the given thresholds. Zero-value fields
// fall back to the tuned defaults.
func NewGate(cfg types.QualityConfig) *Gate {
	def := types.DefaultQuality()
	if cfg.MinChars == 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.FlatMinLines == 0 {
		cfg.FlatMinLines = def.FlatMinLines
	}
	if cfg.FlatShortRatio == 0 {
		cfg.FlatShortRatio = def.FlatShortRatio
	}
	if cfg.FlatSentenceRatio == 0 {
		cfg.FlatSentenceRatio = def.FlatSentenceRatio
	}
	if cfg.FlatNumericRatio == 0 {
		cfg.FlatNumericRatio = def.FlatNumericRatio
	}
	return &Gate{cfg: cfg}
}

// Check evaluates extracted text against the minimum-length and
// flattened-table criteria, in that order.
func (g *Gate) Check(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < g.cfg.MinChars {
		return Verdict{Sufficient: false, Reason: "too_short"}
	}
	if g.looksFlattened(trimmed) {
		return Verdict{Sufficient: false, Reason: "flattened_tables"}
	}
	return Verdict{Sufficient: true}
}

// looksFlattened detects text-layer output where tabular data collapsed
// into a column of cell fragments: mostly very short lines, few
// sentence-length lines, a meaningful share of numeric lines. Content
// that already contains pipe-table markup is never flagged.
func (g *Gate) looksFlattened(text string) bool {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < g.cfg.FlatMinLines {
		return false
	}

	var short, sentence, numeric, piped int
	for _, line := range lines {
		tokens := len(strings.Fields(line))
		if tokens >= 1 && tokens <= 3 {
			short++
		}
		if tokens >= 6 {
			sentence++
		}
		if containsDigit(line) {
			numeric++
		}
		if strings.Contains(line, "|") {
			piped++
		}
	}

	// Already-structured tables pass through untouched.
	if piped*2 >= len(lines) {
		return false
	}

	n := float64(len(lines))
	return float64(short)/n >= g.cfg.FlatShortRatio &&
		float64(sentence)/n <= g.cfg.FlatSentenceRatio &&
		float64(numeric)/n >= g.cfg.FlatNumericRatio
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
