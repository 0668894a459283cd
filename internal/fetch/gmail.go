// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/internal/quality"
	"github.com/okrent/forage/pkg/types"
)

// Attachments above this size are listed but not pulled.
const maxAttachmentBytes = 25 << 20

// extractThread renders a mail thread as markdown, oldest message
// first, and pulls attachments concurrently into sidecar files.
func extractThread(ctx context.Context, svc *Services, threadID string, workers int, rec *diag.Recorder) (*types.ExtractionResult, error) {
	thread, err := svc.Mail.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", thread.Subject)
	for i, m := range thread.Messages {
		fmt.Fprintf(&b, "\n## Message %d\n", i+1)
		fmt.Fprintf(&b, "\nFrom: %s\n", m.From)
		if len(m.To) > 0 {
			fmt.Fprintf(&b, "To: %s\n", strings.Join(m.To, ", "))
		}
		if len(m.Cc) > 0 {
			fmt.Fprintf(&b, "Cc: %s\n", strings.Join(m.Cc, ", "))
		}
		fmt.Fprintf(&b, "Date: %s\n", m.Date.Format("2006-01-02 15:04"))
		body := strings.TrimSpace(m.BodyText)
		if body == "" {
			rec.Add("message %d has no extractable body", i+1)
		} else {
			fmt.Fprintf(&b, "\n%s\n", body)
		}
		for _, a := range m.Attachments {
			fmt.Fprintf(&b, "\nAttachment: %s (%s, %d bytes)\n", a.Filename, a.MIMEType, a.Size)
		}
	}

	aux, err := fetchAttachments(ctx, svc, thread, workers, rec)
	if err != nil {
		return nil, err
	}

	res := &types.ExtractionResult{
		Content: b.String(),
		Format:  types.FormatMarkdown,
		Method:  "api",
		Notes:   threadNotes(thread),
	}
	if len(aux) > 0 {
		res.Auxiliary = aux
	}
	return res, nil
}

// threadNotes summarizes a thread for the cue lines: participants,
// date range, attachment count.
func threadNotes(thread types.ThreadData) []string {
	var participants []string
	seen := map[string]bool{}
	attachments := 0
	for _, m := range thread.Messages {
		if m.From != "" && !seen[m.From] {
			seen[m.From] = true
			participants = append(participants, m.From)
		}
		attachments += len(m.Attachments)
	}

	var notes []string
	if len(participants) > 0 {
		notes = append(notes, fmt.Sprintf("%d message(s) from %s",
			len(thread.Messages), strings.Join(participants, ", ")))
	}
	if n := len(thread.Messages); n > 1 {
		first := thread.Messages[0].Date
		last := thread.Messages[n-1].Date
		if !first.IsZero() && !last.IsZero() && !first.Equal(last) {
			notes = append(notes, fmt.Sprintf("spanning %s to %s",
				first.Format("2006-01-02"), last.Format("2006-01-02")))
		}
	}
	if attachments > 0 {
		notes = append(notes, fmt.Sprintf("%d attachment(s)", attachments))
	}
	return notes
}

// fetchAttachments pulls every attachment in the thread, bounded by
// the worker cap with one session per worker. A failed attachment
// degrades to a warning.
func fetchAttachments(ctx context.Context, svc *Services, thread types.ThreadData, workers int, rec *diag.Recorder) (map[string][]byte, error) {
	var all []types.Attachment
	for _, m := range thread.Messages {
		all = append(all, m.Attachments...)
	}
	if len(all) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	aux := map[string][]byte{}
	notes := make([]string, len(all))

	err := runSubfetches(ctx, svc, workers, len(all), func(ctx context.Context, wsvc *Services, i int) {
		a := all[i]
		if a.Size > maxAttachmentBytes {
			notes[i] = fmt.Sprintf("attachment %s skipped: %d bytes exceeds the pull limit", a.Filename, a.Size)
			return
		}
		data, err := wsvc.Mail.AttachmentData(ctx, a.MessageID, a.AttachmentID)
		if err != nil {
			notes[i] = fmt.Sprintf("attachment %s failed: %v", a.Filename, err)
			return
		}
		mu.Lock()
		aux[attachmentFilename(aux, a.Filename)] = data
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	for _, n := range notes {
		if n != "" {
			rec.Add("%s", n)
		}
	}
	return aux, nil
}

// attachmentFilename prefixes and dedupes attachment names within the
// deposit. Callers hold the map lock.
func attachmentFilename(existing map[string][]byte, name string) string {
	base := "attachment-" + sanitizeFilename(name)
	candidate := base
	for n := 2; ; n++ {
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s.%d", base, n)
	}
}

// extractAttachment pulls one named attachment out of a thread and
// routes its bytes through the binary pipeline.
func extractAttachment(ctx context.Context, svc *Services, threadID, filename string, gate *quality.Gate, rec *diag.Recorder) (*types.ExtractionResult, string, error) {
	thread, err := svc.Mail.Thread(ctx, threadID)
	if err != nil {
		return nil, "", err
	}
	for _, m := range thread.Messages {
		for _, a := range m.Attachments {
			if a.Filename != filename {
				continue
			}
			data, err := svc.Mail.AttachmentData(ctx, a.MessageID, a.AttachmentID)
			if err != nil {
				return nil, "", err
			}
			res, err := extractBinary(ctx, svc, data, a.MIMEType, a.Filename, gate, rec)
			return res, a.Filename, err
		}
	}
	return nil, "", fetcherr.New(fetcherr.NotFound, "attachment %q not found in thread %s", filename, threadID)
}
