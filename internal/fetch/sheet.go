// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/pkg/types"
)

// Above this cell count a tab goes to a sidecar CSV instead of an
// inline markdown table.
const inlineCellLimit = 400

// extractSheet renders a spreadsheet as markdown. Small tabs become
// pipe tables inline; large tabs are summarized inline and written
// whole as per-tab CSV sidecars.
func extractSheet(ctx context.Context, svc *Services, id string, rec *diag.Recorder) (*types.ExtractionResult, error) {
	sheet, err := svc.Sheets.Spreadsheet(ctx, id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	aux := map[string][]byte{}
	fmt.Fprintf(&b, "# %s\n", sheet.Title)
	for _, tab := range sheet.Tabs {
		fmt.Fprintf(&b, "\n## %s\n", tab.Name)
		if len(tab.Values) == 0 {
			rec.Add("tab %q is empty", tab.Name)
			b.WriteString("\n(empty)\n")
			continue
		}

		cells := 0
		for _, row := range tab.Values {
			cells += len(row)
		}
		if cells <= inlineCellLimit {
			b.WriteString("\n" + pipeTable(tab.Values))
			continue
		}

		name := "tab-" + sanitizeFilename(tab.Name) + ".csv"
		aux[name] = renderCSV(tab.Values)
		fmt.Fprintf(&b, "\n%d rows x %d columns, written to %s\n", len(tab.Values), maxWidth(tab.Values), name)
		rec.Add("tab %q too large for inline rendering, deposited as CSV", tab.Name)
	}

	// Comments ride the file-level comments API, same as documents.
	if comments, err := svc.Docs.Comments(ctx, id); err == nil && len(comments) > 0 {
		aux["comments.md"] = renderComments(sheet.Title, comments)
	}

	res := &types.ExtractionResult{
		Content: b.String(),
		Format:  types.FormatMarkdown,
		Method:  "api",
	}
	if len(aux) > 0 {
		res.Auxiliary = aux
	}
	return res, nil
}

// pipeTable renders rows as a markdown table, first row as header.
func pipeTable(values [][]string) string {
	width := maxWidth(values)
	var b strings.Builder
	for i, row := range values {
		b.WriteString("|")
		for c := 0; c < width; c++ {
			cell := ""
			if c < len(row) {
				cell = strings.ReplaceAll(row[c], "|", "\\|")
				cell = strings.ReplaceAll(cell, "\n", " ")
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
		}
	}
	return b.String()
}

func renderCSV(values [][]string) []byte {
	var b strings.Builder
	for _, row := range values {
		for i, cell := range row {
			if i > 0 {
				b.WriteString(",")
			}
			if strings.ContainsAny(cell, ",\"\n") {
				cell = "\"" + strings.ReplaceAll(cell, "\"", "\"\"") + "\""
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func maxWidth(values [][]string) int {
	w := 0
	for _, row := range values {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-")

func sanitizeFilename(name string) string {
	return strings.ToLower(filenameReplacer.Replace(name))
}
