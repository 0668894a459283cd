// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/okrent/forage/pkg/types"
)

// Slides with less combined text than this and a visual element are
// flagged for a thumbnail.
const thumbnailTextFloor = 40

// SlidesService implements structured presentation access on a
// session.
type SlidesService struct {
	s *Session
}

// NewSlidesService wraps a session.
func NewSlidesService(s *Session) *SlidesService {
	return &SlidesService{s: s}
}

type presentationResource struct {
	PresentationID string `json:"presentationId"`
	Title          string `json:"title"`
	Slides         []struct {
		ObjectID     string        `json:"objectId"`
		PageElements []pageElement `json:"pageElements"`
		SlideProperties struct {
			NotesPage struct {
				PageElements []pageElement `json:"pageElements"`
			} `json:"notesPage"`
		} `json:"slideProperties"`
	} `json:"slides"`
}

type pageElement struct {
	Shape *struct {
		Placeholder *struct {
			Type string `json:"type"`
		} `json:"placeholder"`
		Text *textContent `json:"text"`
	} `json:"shape"`
	Table *struct {
		TableRows []struct {
			TableCells []struct {
				Text *textContent `json:"text"`
			} `json:"tableCells"`
		} `json:"tableRows"`
	} `json:"table"`
	Image       *struct{} `json:"image"`
	SheetsChart *struct{} `json:"sheetsChart"`
	Video       *struct{} `json:"video"`
}

type textContent struct {
	TextElements []struct {
		TextRun *struct {
			Content string `json:"content"`
		} `json:"textRun"`
	} `json:"textElements"`
}

// Presentation fetches every slide with its text, tables, speaker
// notes, and the thumbnail flag for visually dense slides.
func (sv *SlidesService) Presentation(ctx context.Context, presentationID string) (types.DeckData, error) {
	u := fmt.Sprintf("%s/presentations/%s", slidesBaseURL, url.PathEscape(presentationID))
	var res presentationResource
	if err := sv.s.getJSON(ctx, u, "presentation "+presentationID, &res); err != nil {
		return types.DeckData{}, err
	}

	deck := types.DeckData{Title: res.Title, PresentationID: res.PresentationID}
	for i, s := range res.Slides {
		slide := types.Slide{ObjectID: s.ObjectID, Index: i}
		visuals := 0
		for _, el := range s.PageElements {
			switch {
			case el.Shape != nil && el.Shape.Text != nil:
				text := elementText(el.Shape.Text)
				if text == "" {
					continue
				}
				if el.Shape.Placeholder != nil && isTitlePlaceholder(el.Shape.Placeholder.Type) && slide.Title == "" {
					slide.Title = strings.TrimSpace(text)
					continue
				}
				slide.Texts = append(slide.Texts, text)
			case el.Table != nil:
				var rows [][]string
				for _, r := range el.Table.TableRows {
					var cells []string
					for _, c := range r.TableCells {
						cells = append(cells, strings.TrimSpace(elementText(c.Text)))
					}
					rows = append(rows, cells)
				}
				slide.Tables = append(slide.Tables, types.SlideTable{Rows: rows})
			case el.Image != nil, el.SheetsChart != nil, el.Video != nil:
				visuals++
			}
		}
		slide.Notes = notesText(s.SlideProperties.NotesPage.PageElements)

		if visuals > 0 {
			textLen := len(slide.Title)
			for _, t := range slide.Texts {
				textLen += len(t)
			}
			if textLen < thumbnailTextFloor {
				slide.NeedsThumbnail = true
				slide.ThumbnailReason = "visual content without extractable text"
			}
		}
		deck.Slides = append(deck.Slides, slide)
	}
	return deck, nil
}

type thumbnailResource struct {
	ContentURL string `json:"contentUrl"`
}

// Thumbnail renders one slide to a PNG. Two calls: the API returns a
// short-lived content URL, then the image is fetched from it.
func (sv *SlidesService) Thumbnail(ctx context.Context, presentationID, objectID string) ([]byte, error) {
	u := fmt.Sprintf("%s/presentations/%s/pages/%s/thumbnail?thumbnailProperties.mimeType=PNG&thumbnailProperties.thumbnailSize=MEDIUM",
		slidesBaseURL, url.PathEscape(presentationID), url.PathEscape(objectID))
	var res thumbnailResource
	if err := sv.s.getJSON(ctx, u, "thumbnail of "+objectID, &res); err != nil {
		return nil, err
	}
	return sv.s.get(ctx, res.ContentURL, "thumbnail image of "+objectID)
}

func elementText(t *textContent) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, e := range t.TextElements {
		if e.TextRun != nil {
			b.WriteString(e.TextRun.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func notesText(elements []pageElement) string {
	var parts []string
	for _, el := range elements {
		if el.Shape == nil || el.Shape.Text == nil {
			continue
		}
		// The speaker notes live in the BODY placeholder; the notes page
		// also mirrors the slide thumbnail, which has no text.
		if el.Shape.Placeholder != nil && el.Shape.Placeholder.Type == "SLIDE_IMAGE" {
			continue
		}
		if t := strings.TrimSpace(elementText(el.Shape.Text)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func isTitlePlaceholder(t string) bool {
	return t == "TITLE" || t == "CENTERED_TITLE"
}
