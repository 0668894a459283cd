// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/internal/quality"
	"github.com/okrent/forage/pkg/types"
)

// Office formats the remote service can import for conversion, mapped
// to the intermediate native type.
var officeTargets = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "doc",
	"application/msword":            "doc",
	"application/rtf":               "doc",
	"application/vnd.oasis.opendocument.text": "doc",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "sheet",
	"application/vnd.ms-excel":      "sheet",
	"application/vnd.oasis.opendocument.spreadsheet": "sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "slides",
	"application/vnd.ms-powerpoint": "slides",
	"application/vnd.oasis.opendocument.presentation": "slides",
}

// exportMIMEs maps the intermediate type to its export format and the
// deposit format label.
var exportMIMEs = map[string]struct {
	mime   string
	format types.Format
}{
	"doc":    {"text/markdown", types.FormatMarkdown},
	"sheet":  {"text/csv", types.FormatCSV},
	"slides": {"text/plain", types.FormatPlain},
}

// extractBinary routes raw bytes by MIME type: PDFs through the tiered
// PDF ladder, office formats through remote conversion, text straight
// to the deposit. Unrecognized binaries fail the closed taxonomy.
func extractBinary(ctx context.Context, svc *Services, data []byte, mimeType, name string, gate *quality.Gate, rec *diag.Recorder) (*types.ExtractionResult, error) {
	switch {
	case mimeType == "application/pdf":
		return extractPDF(ctx, svc, data, name, gate, rec)
	case officeTargets[mimeType] != "":
		return convertOffice(ctx, svc, data, mimeType, name)
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json":
		return &types.ExtractionResult{
			Content: string(data),
			Format:  formatForTextMIME(mimeType),
			Method:  "raw",
		}, nil
	default:
		return nil, fetcherr.New(fetcherr.ExtractionFailed, "no extraction strategy for %s content (%s)", mimeType, name)
	}
}

// extractPDF runs the PDF ladder: the local text layer first, remote
// conversion only when the gate rejects the fast path. Scanned and
// table-heavy PDFs are the expected escalation cases.
func extractPDF(ctx context.Context, svc *Services, data []byte, name string, gate *quality.Gate, rec *diag.Recorder) (*types.ExtractionResult, error) {
	tiers := []tier{
		{name: "textlayer", run: func(ctx context.Context) (*types.ExtractionResult, error) {
			text, err := pdfTextLayer(data)
			if err != nil {
				return nil, insufficient("text layer unreadable: %v", err)
			}
			if v := gate.Check(text); !v.Sufficient {
				return nil, insufficient("%s", v.Reason)
			}
			return &types.ExtractionResult{
				Content: text,
				Format:  types.FormatPlain,
				Method:  "textlayer",
			}, nil
		}},
		{name: "conversion", run: func(ctx context.Context) (*types.ExtractionResult, error) {
			out, err := svc.Convert.Convert(ctx, types.ConvertRequest{
				Payload:    data,
				SourceMIME: "application/pdf",
				TargetType: "doc",
				ExportMIME: "text/markdown",
				NameHint:   name,
			})
			if err != nil {
				return nil, err
			}
			return &types.ExtractionResult{
				Content: string(out),
				Format:  types.FormatMarkdown,
				Method:  "conversion",
			}, nil
		}},
	}
	res, err := runTiers(ctx, rec, name, tiers)
	if err != nil {
		return nil, err
	}
	res.RawBytes = data
	return res, nil
}

// pdfTextLayer extracts the embedded text layer without any remote
// call. Errors mean a malformed or image-only file, not a pipeline
// failure.
func pdfTextLayer(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// convertOffice is a single-tier strategy: office formats have no
// local fast path worth keeping, so everything rides the remote
// conversion.
func convertOffice(ctx context.Context, svc *Services, data []byte, mimeType, name string) (*types.ExtractionResult, error) {
	target := officeTargets[mimeType]
	exp := exportMIMEs[target]
	out, err := svc.Convert.Convert(ctx, types.ConvertRequest{
		Payload:    data,
		SourceMIME: mimeType,
		TargetType: target,
		ExportMIME: exp.mime,
		NameHint:   name,
	})
	if err != nil {
		return nil, fetcherr.Normalize(err, name)
	}
	return &types.ExtractionResult{
		Content: string(out),
		Format:  exp.format,
		Method:  "conversion",
	}, nil
}

func formatForTextMIME(mimeType string) types.Format {
	switch mimeType {
	case "text/markdown":
		return types.FormatMarkdown
	case "text/csv":
		return types.FormatCSV
	default:
		return types.FormatPlain
	}
}
