// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/pkg/types"
)

// headingLevels maps service paragraph styles to markdown heading
// depth.
var headingLevels = map[string]int{
	"TITLE":     1,
	"HEADING_1": 1,
	"HEADING_2": 2,
	"HEADING_3": 3,
	"HEADING_4": 4,
	"HEADING_5": 5,
	"HEADING_6": 6,
}

// extractDoc renders a structured document as markdown. Tabs become
// top-level sections; open comments are fetched best-effort and land
// in a sidecar file.
func extractDoc(ctx context.Context, svc *Services, id string, rec *diag.Recorder) (*types.ExtractionResult, error) {
	doc, err := svc.Docs.Document(ctx, id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", doc.Title)
	for _, tab := range doc.Tabs {
		if len(doc.Tabs) > 1 {
			fmt.Fprintf(&b, "\n## Tab: %s\n", tab.Title)
		}
		empty := true
		for _, p := range tab.Paragraphs {
			line := renderParagraph(p)
			if line == "" {
				continue
			}
			empty = false
			b.WriteString("\n" + line + "\n")
		}
		if empty {
			rec.Add("tab %q is empty", tab.Title)
		}
	}

	res := &types.ExtractionResult{
		Content: b.String(),
		Format:  types.FormatMarkdown,
		Method:  "api",
	}

	comments, err := svc.Docs.Comments(ctx, id)
	if err != nil {
		rec.Add("comments unavailable: %v", err)
	} else if len(comments) > 0 {
		res.Auxiliary = map[string][]byte{
			"comments.md": renderComments(doc.Title, comments),
		}
	}
	return res, nil
}

func renderParagraph(p types.Paragraph) string {
	text := strings.TrimRight(p.Text, "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if lvl, ok := headingLevels[p.Style]; ok {
		return strings.Repeat("#", lvl) + " " + text
	}
	if p.Bullet {
		return strings.Repeat("  ", p.Nesting) + "- " + text
	}
	return text
}

func renderComments(title string, comments []types.Comment) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Open comments on %s\n", title)
	for _, c := range comments {
		if c.Resolved {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (%s)\n", c.Author, c.CreatedAt.Format("2006-01-02"))
		if c.QuotedText != "" {
			fmt.Fprintf(&b, "\n> %s\n", strings.ReplaceAll(c.QuotedText, "\n", " "))
		}
		fmt.Fprintf(&b, "\n%s\n", c.Content)
	}
	return []byte(b.String())
}
