// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/pkg/types"
)

// extractSlides renders a presentation as markdown, one section per
// slide. Slides whose visual content is not captured by text (charts,
// diagrams, fragmented text boxes) get a thumbnail image fetched
// concurrently, bounded by the worker cap.
func extractSlides(ctx context.Context, svc *Services, id string, workers int, rec *diag.Recorder) (*types.ExtractionResult, error) {
	deck, err := svc.Slides.Presentation(ctx, id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", deck.Title)
	for _, s := range deck.Slides {
		title := s.Title
		if title == "" {
			title = fmt.Sprintf("Slide %d", s.Index+1)
		} else {
			title = fmt.Sprintf("Slide %d: %s", s.Index+1, title)
		}
		fmt.Fprintf(&b, "\n## %s\n", title)
		for _, text := range s.Texts {
			if t := strings.TrimSpace(text); t != "" {
				fmt.Fprintf(&b, "\n%s\n", t)
			}
		}
		for _, table := range s.Tables {
			if len(table.Rows) > 0 {
				b.WriteString("\n" + pipeTable(table.Rows))
			}
		}
		if notes := strings.TrimSpace(s.Notes); notes != "" {
			fmt.Fprintf(&b, "\nSpeaker notes: %s\n", notes)
		}
		if s.NeedsThumbnail {
			fmt.Fprintf(&b, "\n![slide %d](slide-%03d.png)\n", s.Index+1, s.Index+1)
		}
	}

	aux, err := fetchThumbnails(ctx, svc, deck, workers, rec)
	if err != nil {
		return nil, err
	}
	if comments, err := svc.Docs.Comments(ctx, id); err == nil && len(comments) > 0 {
		if aux == nil {
			aux = map[string][]byte{}
		}
		aux["comments.md"] = renderComments(deck.Title, comments)
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

// fetchThumbnails renders marked slides to images, bounded by the
// worker cap with one session per worker. One failed thumbnail
// degrades to a warning; the text extraction stands.
func fetchThumbnails(ctx context.Context, svc *Services, deck types.DeckData, workers int, rec *diag.Recorder) (map[string][]byte, error) {
	var marked []types.Slide
	for _, s := range deck.Slides {
		if s.NeedsThumbnail {
			marked = append(marked, s)
		}
	}
	if len(marked) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	aux := map[string][]byte{}
	failures := make([]string, len(marked))

	err := runSubfetches(ctx, svc, workers, len(marked), func(ctx context.Context, wsvc *Services, i int) {
		s := marked[i]
		data, err := wsvc.Slides.Thumbnail(ctx, deck.PresentationID, s.ObjectID)
		if err != nil {
			failures[i] = fmt.Sprintf("slide %d thumbnail failed: %v", s.Index+1, err)
			return
		}
		mu.Lock()
		aux[fmt.Sprintf("slide-%03d.png", s.Index+1)] = data
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	// Report in slide order regardless of completion order.
	for i, s := range marked {
		if failures[i] != "" {
			rec.Add("%s", failures[i])
			continue
		}
		reason := s.ThumbnailReason
		if reason == "" {
			reason = "visual content"
		}
		rec.Add("slide %d: %s, captured thumbnail", s.Index+1, reason)
	}
	return aux, nil
}
