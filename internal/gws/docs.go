// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okrent/forage/pkg/types"
)

// DocService implements structured document access on a session.
type DocService struct {
	s *Session
}

// NewDocService wraps a session.
func NewDocService(s *Session) *DocService {
	return &DocService{s: s}
}

// Wire shapes, limited to the fields the extraction consumes.
type docResource struct {
	Title      string       `json:"title"`
	DocumentID string       `json:"documentId"`
	Body       *docBody     `json:"body"`
	Tabs       []docTabWire `json:"tabs"`
}

type docTabWire struct {
	TabProperties struct {
		Title string `json:"title"`
		Index int    `json:"index"`
	} `json:"tabProperties"`
	DocumentTab struct {
		Body *docBody `json:"body"`
	} `json:"documentTab"`
	ChildTabs []docTabWire `json:"childTabs"`
}

type docBody struct {
	Content []struct {
		Paragraph *struct {
			Elements []struct {
				TextRun *struct {
					Content string `json:"content"`
				} `json:"textRun"`
			} `json:"elements"`
			ParagraphStyle struct {
				NamedStyleType string `json:"namedStyleType"`
			} `json:"paragraphStyle"`
			Bullet *struct {
				NestingLevel int `json:"nestingLevel"`
			} `json:"bullet"`
		} `json:"paragraph"`
		Table *struct{} `json:"table"`
	} `json:"content"`
}

// Document fetches a document with all its tabs. Legacy documents
// without tabs are normalized to a single-tab structure.
func (d *DocService) Document(ctx context.Context, documentID string) (types.DocData, error) {
	u := fmt.Sprintf("%s/documents/%s?includeTabsContent=true", docsBaseURL, url.PathEscape(documentID))
	var res docResource
	if err := d.s.getJSON(ctx, u, "document "+documentID, &res); err != nil {
		return types.DocData{}, err
	}

	doc := types.DocData{Title: res.Title, DocumentID: res.DocumentID}
	if len(res.Tabs) > 0 {
		doc.Tabs = flattenTabs(res.Tabs)
	} else {
		doc.Tabs = []types.DocTab{{
			Title:      res.Title,
			Paragraphs: bodyParagraphs(res.Body),
		}}
	}
	return doc, nil
}

// flattenTabs walks the tab tree depth-first, child tabs after their
// parent, matching reading order in the editor.
func flattenTabs(tabs []docTabWire) []types.DocTab {
	var out []types.DocTab
	for _, t := range tabs {
		out = append(out, types.DocTab{
			Title:      t.TabProperties.Title,
			Index:      t.TabProperties.Index,
			Paragraphs: bodyParagraphs(t.DocumentTab.Body),
		})
		out = append(out, flattenTabs(t.ChildTabs)...)
	}
	return out
}

func bodyParagraphs(body *docBody) []types.Paragraph {
	if body == nil {
		return nil
	}
	var out []types.Paragraph
	for _, c := range body.Content {
		if c.Paragraph == nil {
			continue
		}
		var text strings.Builder
		for _, e := range c.Paragraph.Elements {
			if e.TextRun != nil {
				text.WriteString(e.TextRun.Content)
			}
		}
		p := types.Paragraph{
			Style: c.Paragraph.ParagraphStyle.NamedStyleType,
			Text:  strings.TrimRight(text.String(), "\n"),
		}
		if c.Paragraph.Bullet != nil {
			p.Bullet = true
			p.Nesting = c.Paragraph.Bullet.NestingLevel
		}
		out = append(out, p)
	}
	return out
}

type commentList struct {
	Comments []struct {
		Author struct {
			DisplayName string `json:"displayName"`
		} `json:"author"`
		Content           string `json:"content"`
		Resolved          bool   `json:"resolved"`
		CreatedTime       string `json:"createdTime"`
		QuotedFileContent *struct {
			Value string `json:"value"`
		} `json:"quotedFileContent"`
	} `json:"comments"`
}

// Comments lists the comments on a file.
func (d *DocService) Comments(ctx context.Context, fileID string) ([]types.Comment, error) {
	u := fmt.Sprintf("%s/files/%s/comments?fields=comments(author/displayName,content,resolved,createdTime,quotedFileContent/value)&pageSize=100",
		driveBaseURL, url.PathEscape(fileID))
	var res commentList
	if err := d.s.getJSON(ctx, u, "comments on "+fileID, &res); err != nil {
		return nil, err
	}
	var out []types.Comment
	for _, c := range res.Comments {
		created, _ := time.Parse(time.RFC3339, c.CreatedTime)
		comment := types.Comment{
			Author:    c.Author.DisplayName,
			Content:   c.Content,
			Resolved:  c.Resolved,
			CreatedAt: created,
		}
		if c.QuotedFileContent != nil {
			comment.QuotedText = c.QuotedFileContent.Value
		}
		out = append(out, comment)
	}
	return out, nil
}
