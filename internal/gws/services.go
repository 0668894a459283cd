// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"context"
	"fmt"

	"github.com/okrent/forage/internal/browser"
	"github.com/okrent/forage/internal/fetch"
	"github.com/okrent/forage/internal/httputil"
	"github.com/okrent/forage/internal/secrets"
	"github.com/okrent/forage/pkg/types"
)

const tokenSecret = "workspace-access-token"

// NewFactory returns a fetch.Factory that builds one Services per
// worker: a fresh API session, HTTP client, and optionally a browser
// renderer. The token comes from secretsDir/workspace-access-token.
// A non-nil localConvert replaces the remote upload-export converter.
// Fork on the returned services mints session-only copies for
// concurrent sub-fetches; those never carry a browser.
func NewFactory(cfg types.FetchConfig, secretsDir string, withBrowser bool, localConvert fetch.Converter) fetch.Factory {
	sessionOnly := func(ctx context.Context) (*fetch.Services, error) {
		loaded, err := secrets.Load(secretsDir)
		if err != nil {
			return nil, err
		}
		token := loaded[tokenSecret]
		if token == "" {
			return nil, fmt.Errorf("no %s in %s; run the auth flow first", tokenSecret, secretsDir)
		}

		session := NewSession(cfg.HTTPConfig, token)
		files := NewFileService(session)

		svc := &fetch.Services{
			Files:   files,
			Docs:    NewDocService(session),
			Sheets:  NewSheetService(session),
			Slides:  NewSlidesService(session),
			Mail:    NewMailService(session),
			Convert: NewConvertService(files),
			HTTP:    httputil.NewClient(cfg.HTTPConfig),
		}
		if localConvert != nil {
			svc.Convert = localConvert
		}
		return svc, nil
	}

	return func(ctx context.Context) (*fetch.Services, error) {
		svc, err := sessionOnly(ctx)
		if err != nil {
			return nil, err
		}
		svc.Fork = sessionOnly
		if withBrowser {
			svc.Browser = browser.New(cfg.Browser)
		}
		return svc, nil
	}
}
