// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/internal/httputil"
	"github.com/okrent/forage/internal/quality"
	"github.com/okrent/forage/pkg/types"
)

const maxWebBodyBytes = 50 << 20

// renderMarkers are script globals left behind by client-side
// frameworks. Their presence in a thin page means the real content
// arrives only after JavaScript runs.
var renderMarkers = []string{
	"__NEXT_DATA__",
	"__NUXT__",
	"__INITIAL_STATE__",
	"window.__APOLLO_STATE__",
}

// accessMarkers are phrases that mark a paywall or bot challenge. A
// browser retry cannot get past these, so they are terminal.
var accessMarkers = []string{
	"subscribe to continue",
	"subscribe to read",
	"this content is for subscribers",
	"please enable javascript and cookies to continue",
	"verify you are human",
	"complete the captcha",
	"are you a robot",
}

// webPage is what the HTTP tier hands to the extraction step.
type webPage struct {
	html  string
	title string
}

// extractWeb runs the web ladder: a plain HTTP fetch first, then one
// browser render when the fast path is blocked on JavaScript,
// rejected by the gate, or refused with 401/403. Paywalls and bot
// challenges are terminal at either tier.
func extractWeb(ctx context.Context, svc *Services, url string, forceBrowser bool, userAgent string, gate *quality.Gate, rec *diag.Recorder) (*types.ExtractionResult, string, error) {
	if forceBrowser {
		res, title, err := browserTier(ctx, svc, url, gate, rec)
		return res, title, err
	}

	res, title, escalate, err := httpTier(ctx, svc, url, userAgent, gate, rec)
	if err == nil {
		return res, title, nil
	}
	if !escalate {
		return nil, "", err
	}
	if svc.Browser == nil {
		return nil, "", fetcherr.Normalize(err, url)
	}

	rec.Add("plain fetch insufficient, rendered in browser")
	res, title, berr := browserTier(ctx, svc, url, gate, rec)
	if berr != nil {
		// The browser pass is the final tier; surface its failure with
		// the fast path's reason attached.
		fe := fetcherr.Normalize(berr, url)
		fe.Trail = append(fe.Trail, fmt.Sprintf("http: %v", err), fmt.Sprintf("browser: %s", fe.Code))
		return nil, "", fe
	}
	return res, title, nil
}

// httpTier fetches and extracts over plain HTTP. escalate reports
// whether the browser tier is worth trying.
func httpTier(ctx context.Context, svc *Services, url, userAgent string, gate *quality.Gate, rec *diag.Recorder) (res *types.ExtractionResult, title string, escalate bool, err error) {
	req, err := httputil.NewRequest(ctx, url, userAgent)
	if err != nil {
		return nil, "", false, fetcherr.Wrap(fetcherr.InvalidInput, err, "building request for %s", url)
	}
	resp, err := httputil.DoWithRetry(ctx, svc.HTTP, req, 0)
	if err != nil {
		return nil, "", false, fetcherr.Normalize(err, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Some sites refuse plain clients but serve a real browser.
		// One render attempt before giving up.
		return nil, "", true, fetcherr.FromHTTPStatus(resp.StatusCode, url)
	}
	if fe := fetcherr.FromHTTPStatus(resp.StatusCode, url); fe != nil {
		return nil, "", false, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBodyBytes))
	if err != nil {
		return nil, "", false, fetcherr.Normalize(err, url)
	}

	// Non-HTML responses ride the binary pipeline: PDFs through the
	// tiered ladder, office documents through conversion, plain text
	// straight to the deposit.
	mediaType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	mediaType = strings.TrimSpace(mediaType)
	if isWebBinary(mediaType) {
		br, berr := extractBinary(ctx, svc, body, mediaType, titleFromURL(url), gate, rec)
		if berr != nil {
			return nil, "", false, berr
		}
		br.Method = "http+" + br.Method
		return br, titleFromURL(url), false, nil
	}

	html := string(body)
	if marker := accessBlocked(html); marker != "" {
		return nil, "", false, fetcherr.New(fetcherr.PermissionDenied, "access to %s blocked (%s)", url, marker)
	}

	page, perr := extractArticle(html, url)
	if perr != nil {
		return nil, "", true, insufficient("no readable article: %v", perr)
	}
	if m := needsRender(html, page.html); m != "" {
		return nil, "", true, insufficient("client-side app detected (%s)", m)
	}

	content, cerr := htmlToMarkdown(page.html)
	if cerr != nil {
		return nil, "", true, insufficient("markdown conversion failed: %v", cerr)
	}
	if v := gate.Check(content); !v.Sufficient {
		return nil, "", true, insufficient("%s", v.Reason)
	}

	return &types.ExtractionResult{
		Content: content,
		Format:  types.FormatMarkdown,
		Method:  "http",
	}, pageTitle(page, url), false, nil
}

// browserTier renders the page in a real browser and extracts from the
// hydrated DOM. There is no further fallback behind it.
func browserTier(ctx context.Context, svc *Services, url string, gate *quality.Gate, rec *diag.Recorder) (*types.ExtractionResult, string, error) {
	if svc.Browser == nil {
		return nil, "", fetcherr.New(fetcherr.ExtractionFailed, "browser tier unavailable for %s", url)
	}
	html, err := svc.Browser.Render(ctx, url)
	if err != nil {
		return nil, "", fetcherr.Normalize(err, url)
	}
	if marker := accessBlocked(html); marker != "" {
		return nil, "", fetcherr.New(fetcherr.PermissionDenied, "access to %s blocked (%s)", url, marker)
	}

	page, err := extractArticle(html, url)
	if err != nil {
		return nil, "", fetcherr.New(fetcherr.ExtractionFailed, "no readable article at %s after rendering", url)
	}
	content, err := htmlToMarkdown(page.html)
	if err != nil {
		return nil, "", fetcherr.Wrap(fetcherr.ExtractionFailed, err, "converting rendered %s", url)
	}
	if v := gate.Check(content); !v.Sufficient {
		// Keep short rendered pages rather than failing them: there is
		// nothing better behind this tier.
		if strings.TrimSpace(content) == "" {
			return nil, "", fetcherr.New(fetcherr.ExtractionFailed, "rendered %s produced no content", url)
		}
		rec.Add("rendered content below quality thresholds (%s)", v.Reason)
	}
	return &types.ExtractionResult{
		Content: content,
		Format:  types.FormatMarkdown,
		Method:  "browser",
	}, pageTitle(page, url), nil
}

// extractArticle isolates the main content region of a page.
func extractArticle(html, url string) (webPage, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return webPage{}, err
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return webPage{}, err
	}
	if strings.TrimSpace(article.Content) == "" {
		return webPage{}, fmt.Errorf("empty article body")
	}
	return webPage{html: article.Content, title: article.Title}, nil
}

func htmlToMarkdown(html string) (string, error) {
	conv := md.NewConverter("", true, nil)
	return conv.ConvertString(html)
}

// needsRender reports which client-side framework marker makes the
// static HTML untrustworthy. Pages with substantial extracted content
// pass even when a marker is present.
func needsRender(rawHTML, articleHTML string) string {
	if len(articleHTML) > 5000 {
		return ""
	}
	for _, m := range renderMarkers {
		if strings.Contains(rawHTML, m) {
			return m
		}
	}
	if strings.Contains(rawHTML, "<noscript") && len(articleHTML) < 500 {
		return "noscript shell"
	}
	return ""
}

// isWebBinary reports whether a fetched content type bypasses the
// article pipeline for the binary one.
func isWebBinary(mediaType string) bool {
	switch {
	case mediaType == "application/pdf":
		return true
	case officeTargets[mediaType] != "":
		return true
	case mediaType == "text/plain", mediaType == "text/csv",
		mediaType == "text/markdown", mediaType == "application/json":
		return true
	}
	return false
}

func accessBlocked(html string) string {
	lower := strings.ToLower(html)
	for _, m := range accessMarkers {
		if strings.Contains(lower, m) {
			return m
		}
	}
	return ""
}

func pageTitle(p webPage, url string) string {
	if t := strings.TrimSpace(p.title); t != "" {
		return t
	}
	return titleFromURL(url)
}

// titleFromURL falls back to the last path segment when a page carries
// no usable title.
func titleFromURL(url string) string {
	u, err := neturl.Parse(url)
	if err != nil || u.Path == "" || u.Path == "/" {
		if err == nil {
			return u.Hostname()
		}
		return url
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segs[len(segs)-1]
	if last == "" {
		return u.Hostname()
	}
	return strings.TrimSuffix(last, ".html")
}
