// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okrent/forage/internal/deposit"
	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/internal/quality"
	"github.com/okrent/forage/internal/ref"
	"github.com/okrent/forage/pkg/types"
)

// Native document MIME types handled by the structured strategies.
const (
	mimeDoc    = "application/vnd.google-apps.document"
	mimeSheet  = "application/vnd.google-apps.spreadsheet"
	mimeSlides = "application/vnd.google-apps.presentation"
	mimeFolder = "application/vnd.google-apps.folder"
)

// Result is the outcome of one successful fetch.
type Result struct {
	Key      string
	Dir      string
	Manifest deposit.Manifest

	// Cues are the display lines compressed from the extraction
	// warnings.
	Cues []string
}

// Router dispatches classified references to strategies and deposits
// what comes back.
type Router struct {
	cfg      types.FetchConfig
	deposits *deposit.Manager
	gate     *quality.Gate
	log      *zap.Logger
}

// NewRouter builds a router. A nil logger disables logging.
func NewRouter(cfg types.FetchConfig, deposits *deposit.Manager, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		deposits: deposits,
		gate:     quality.NewGate(cfg.Quality),
		log:      log,
	}
}

// Fetch classifies one reference, extracts its content through the
// matching strategy, and deposits the result. Every error return is a
// *fetcherr.Error.
func (r *Router) Fetch(ctx context.Context, svc *Services, raw string) (*Result, error) {
	reference, err := ref.Classify(raw)
	if err != nil {
		if errors.Is(err, ref.ErrInvalidInput) || errors.Is(err, ref.ErrNotConvertible) {
			return nil, fetcherr.Wrap(fetcherr.InvalidInput, err, "cannot classify %q", strings.TrimSpace(raw))
		}
		return nil, fetcherr.Normalize(err, raw)
	}

	r.log.Info("fetching",
		zap.String("kind", reference.Kind.String()),
		zap.String("id", reference.ID))

	var rec diag.Recorder
	res, title, err := r.extract(ctx, svc, reference, &rec)
	if err != nil {
		fe := fetcherr.Normalize(err, reference.ID)
		r.log.Warn("fetch failed",
			zap.String("id", reference.ID),
			zap.String("code", string(fe.Code)))
		return nil, fe
	}

	rec.Merge(res.Warnings)
	res.Warnings = rec.Warnings()
	res.CharCount = len(strings.TrimSpace(res.Content))

	out, err := r.depositResult(reference, title, res)
	if err != nil {
		return nil, fetcherr.Normalize(err, reference.ID)
	}
	r.log.Info("fetched",
		zap.String("key", out.Key),
		zap.String("method", res.Method),
		zap.Int("chars", res.CharCount))
	return out, nil
}

// extract runs the strategy for the reference kind and returns the
// extraction plus the content title used for the deposit key.
func (r *Router) extract(ctx context.Context, svc *Services, reference ref.Reference, rec *diag.Recorder) (*types.ExtractionResult, string, error) {
	switch reference.Kind {
	case ref.KindDriveFile:
		return r.extractDriveFile(ctx, svc, reference.ID, rec)

	case ref.KindGmailThread:
		thread, err := extractThread(ctx, svc, reference.ID, r.cfg.Workers, rec)
		if err != nil {
			return nil, "", err
		}
		return thread, threadTitle(thread.Content, reference.ID), nil

	case ref.KindAttachment:
		threadID, filename, err := ref.SplitAttachment(reference.ID)
		if err != nil {
			return nil, "", fetcherr.Wrap(fetcherr.InvalidInput, err, "attachment reference %q", reference.ID)
		}
		return extractAttachment(ctx, svc, threadID, filename, r.gate, rec)

	case ref.KindWebURL:
		return extractWeb(ctx, svc, reference.ID, r.cfg.ForceBrowser, r.cfg.UserAgent, r.gate, rec)

	default:
		return nil, "", fetcherr.New(fetcherr.InvalidInput, "unsupported reference kind %s", reference.Kind)
	}
}

// extractDriveFile fetches metadata first and routes on the MIME type:
// native documents to the structured strategies, binaries through the
// tiered binary pipeline.
func (r *Router) extractDriveFile(ctx context.Context, svc *Services, id string, rec *diag.Recorder) (*types.ExtractionResult, string, error) {
	meta, err := svc.Files.Metadata(ctx, id)
	if err != nil {
		return nil, "", fetcherr.Normalize(err, id)
	}

	switch meta.MIMEType {
	case mimeDoc:
		res, err := extractDoc(ctx, svc, id, rec)
		return res, meta.Title, err
	case mimeSheet:
		res, err := extractSheet(ctx, svc, id, rec)
		return res, meta.Title, err
	case mimeSlides:
		res, err := extractSlides(ctx, svc, id, r.cfg.Workers, rec)
		return res, meta.Title, err
	case mimeFolder:
		return nil, "", fetcherr.New(fetcherr.InvalidInput, "%q is a folder, not fetchable content", meta.Title)
	default:
		data, err := svc.Files.Download(ctx, id)
		if err != nil {
			return nil, "", fetcherr.Normalize(err, id)
		}
		res, err := extractBinary(ctx, svc, data, meta.MIMEType, meta.Title, r.gate, rec)
		return res, meta.Title, err
	}
}

// depositResult writes the extraction into its deposit folder. The
// manifest goes last; a failure at any earlier step leaves the folder
// incomplete and therefore invisible to listing.
func (r *Router) depositResult(reference ref.Reference, title string, res *types.ExtractionResult) (*Result, error) {
	key := deposit.Key(reference.Kind.String(), title, reference.ID)
	folder, err := r.deposits.Ensure(key)
	if err != nil {
		return nil, err
	}
	if err := folder.WriteContent(res.Content, string(res.Format)); err != nil {
		return nil, err
	}
	for name, data := range res.Auxiliary {
		if err := folder.WriteFile(name, data); err != nil {
			return nil, err
		}
	}
	if res.RawBytes != nil {
		if err := folder.WriteFile("original.pdf", res.RawBytes); err != nil {
			return nil, err
		}
	}

	cues := append(append([]string(nil), res.Notes...), diag.BuildCues(res.Warnings)...)
	if names := folder.Files(); len(names) > 1 {
		cues = append(cues, "files: "+diag.FileList(names))
	}
	manifest := deposit.Manifest{
		Reference: reference.Raw,
		Kind:      reference.Kind.String(),
		ContentID: reference.ID,
		Title:     title,
		Method:    res.Method,
		Format:    string(res.Format),
		CharCount: res.CharCount,
		Warnings:  res.Warnings,
		Cues:      cues,
		FetchedAt: time.Now().UTC(),
	}
	if err := folder.Finish(manifest); err != nil {
		return nil, err
	}
	// Mirror the bookkeeping Finish writes so the in-band manifest
	// matches the on-disk one.
	manifest.Key = key
	manifest.Files = folder.Files()
	return &Result{Key: key, Dir: folder.Dir(), Manifest: manifest, Cues: cues}, nil
}

// threadTitle pulls the subject line out of rendered thread markdown.
func threadTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			if t := strings.TrimSpace(strings.TrimPrefix(line, "# ")); t != "" {
				return t
			}
			break
		}
	}
	return fallback
}

// workerCap bounds concurrent sub-fetches. The backing services
// corrupt sessions and throttle aggressively above two parallel
// requests.
func workerCap(workers int) int {
	if workers <= 0 || workers > 2 {
		return 2
	}
	return workers
}

// FetchSubject describes a reference for log and error text without
// re-running classification.
func FetchSubject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > 60 {
		return trimmed[:60] + "..."
	}
	return trimmed
}
