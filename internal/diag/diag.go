// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diag collects extraction warnings and turns them into the
// short caller-facing cues shown after a fetch.
package diag

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Recorder accumulates warnings during one extraction. Append-only;
// consecutive duplicates collapse so a loop over fifty slides with the
// same defect yields one line.
type Recorder struct {
	warnings []string
}

// Add appends a warning unless it repeats the previous one exactly.
func (r *Recorder) Add(format string, args ...any) {
	w := fmt.Sprintf(format, args...)
	if n := len(r.warnings); n > 0 && r.warnings[n-1] == w {
		return
	}
	r.warnings = append(r.warnings, w)
}

// Merge appends another component's warnings with the same
// consecutive-duplicate rule.
func (r *Recorder) Merge(ws []string) {
	for _, w := range ws {
		r.Add("%s", w)
	}
}

// Warnings returns the accumulated list in insertion order.
func (r *Recorder) Warnings() []string {
	return r.warnings
}

// BuildCues compresses raw warnings into display cues. Thumbnail
// warnings ("slide N: <reason>" lines emitted per slide) collapse into
// a single count line; all other warnings pass through in order.
func BuildCues(warnings []string) []string {
	var cues []string
	thumbs := 0
	for _, w := range warnings {
		if strings.HasPrefix(w, "slide ") && strings.Contains(w, "thumbnail") {
			thumbs++
			continue
		}
		cues = append(cues, w)
	}
	if thumbs == 1 {
		cues = append(cues, "1 slide captured as a thumbnail image")
	} else if thumbs > 1 {
		cues = append(cues, fmt.Sprintf("%d slides captured as thumbnail images", thumbs))
	}
	return cues
}

var thumbFilePattern = regexp.MustCompile(`^slide-\d{3}\.png$`)

// FileList renders deposited filenames on one line, sorted, with runs
// of numbered thumbnails collapsed so a fifty-slide deck does not
// produce a fifty-item cue.
func FileList(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var out []string
	var thumbs []string
	for _, n := range sorted {
		if thumbFilePattern.MatchString(n) {
			thumbs = append(thumbs, n)
			continue
		}
		out = append(out, n)
	}
	switch len(thumbs) {
	case 0:
	case 1:
		out = append(out, thumbs[0])
	default:
		out = append(out, fmt.Sprintf("%s ... %s (%d thumbnails)",
			thumbs[0], thumbs[len(thumbs)-1], len(thumbs)))
	}
	return strings.Join(out, ", ")
}
