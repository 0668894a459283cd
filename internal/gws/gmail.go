// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/pkg/types"
)

// MailService implements thread and attachment access on a session.
type MailService struct {
	s *Session
}

// NewMailService wraps a session.
func NewMailService(s *Session) *MailService {
	return &MailService{s: s}
}

type threadResource struct {
	ID       string            `json:"id"`
	Messages []messageResource `json:"messages"`
}

type messageResource struct {
	ID      string      `json:"id"`
	Payload messagePart `json:"payload"`
}

type messagePart struct {
	MIMEType string `json:"mimeType"`
	Filename string `json:"filename"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		AttachmentID string `json:"attachmentId"`
		Size         int64  `json:"size"`
		Data         string `json:"data"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

// Thread fetches a full mail thread.
func (m *MailService) Thread(ctx context.Context, threadID string) (types.ThreadData, error) {
	u := fmt.Sprintf("%s/users/me/threads/%s?format=full", gmailBaseURL, url.PathEscape(threadID))
	var res threadResource
	if err := m.s.getJSON(ctx, u, "thread "+threadID, &res); err != nil {
		return types.ThreadData{}, err
	}

	thread := types.ThreadData{ThreadID: res.ID}
	for _, mr := range res.Messages {
		msg := parseMessage(mr)
		if thread.Subject == "" {
			thread.Subject = msg.Subject
		}
		thread.Messages = append(thread.Messages, msg)
	}
	return thread, nil
}

func parseMessage(mr messageResource) types.Message {
	msg := types.Message{MessageID: mr.ID}
	for _, h := range mr.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = splitAddresses(h.Value)
		case "cc":
			msg.Cc = splitAddresses(h.Value)
		case "subject":
			msg.Subject = h.Value
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				msg.Date = t.UTC()
			}
		}
	}
	msg.BodyText = strings.TrimSpace(partText(mr.Payload))
	collectAttachments(mr.Payload, mr.ID, &msg.Attachments)
	return msg
}

// partText walks the MIME tree preferring text/plain leaves.
func partText(p messagePart) string {
	if strings.HasPrefix(p.MIMEType, "text/plain") && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	var fallback string
	for _, child := range p.Parts {
		if t := partText(child); t != "" {
			if strings.HasPrefix(child.MIMEType, "text/plain") || strings.HasPrefix(child.MIMEType, "multipart/") {
				return t
			}
			if fallback == "" {
				fallback = t
			}
		}
	}
	if fallback == "" && strings.HasPrefix(p.MIMEType, "text/html") && p.Body.Data != "" {
		fallback = stripTags(decodeBody(p.Body.Data))
	}
	return fallback
}

func collectAttachments(p messagePart, messageID string, out *[]types.Attachment) {
	if p.Filename != "" && p.Body.AttachmentID != "" {
		*out = append(*out, types.Attachment{
			Filename:     p.Filename,
			MIMEType:     p.MIMEType,
			Size:         p.Body.Size,
			AttachmentID: p.Body.AttachmentID,
			MessageID:    messageID,
		})
	}
	for _, child := range p.Parts {
		collectAttachments(child, messageID, out)
	}
}

type attachmentResource struct {
	Data string `json:"data"`
}

// AttachmentData fetches and decodes one attachment body.
func (m *MailService) AttachmentData(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	u := fmt.Sprintf("%s/users/me/messages/%s/attachments/%s",
		gmailBaseURL, url.PathEscape(messageID), url.PathEscape(attachmentID))
	var res attachmentResource
	if err := m.s.getJSON(ctx, u, "attachment "+attachmentID, &res); err != nil {
		return nil, err
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(res.Data, "="))
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.ExtractionFailed, err, "decoding attachment %s", attachmentID)
	}
	return data, nil
}

func decodeBody(data string) string {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(raw)
}

func splitAddresses(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripTags is the crude HTML-body fallback for messages without a
// plain part. Good enough for body text; attachments carry the real
// payload.
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
