// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okrent/forage/pkg/types"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(types.LedgerConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndList(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	entries := []Entry{
		{Key: "web_url--first--aaa", Reference: "https://example.com/1", Kind: "web_url", Title: "First", Method: "http", CharCount: 900, FetchedAt: time.Now().Add(-2 * time.Hour)},
		{Key: "drive_file--plan--bbb", Reference: "1PlanId", Kind: "drive_file", Title: "Plan", Method: "api", CharCount: 2400, FetchedAt: time.Now().Add(-1 * time.Hour)},
		{Key: "web_url--second--ccc", Reference: "https://example.com/2", Kind: "web_url", Title: "Second", Method: "browser", CharCount: 1200, FetchedAt: time.Now()},
	}
	for _, e := range entries {
		if err := l.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Key != "web_url--second--ccc" {
		t.Errorf("newest first violated: %q", all[0].Key)
	}

	webs, err := l.List(ctx, "web_url", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(webs) != 2 {
		t.Errorf("kind filter returned %d rows, want 2", len(webs))
	}
}

func TestRecordUpsertsByKey(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	first := Entry{Key: "web_url--page--aaa", Reference: "https://example.com/p", Kind: "web_url", Method: "http", CharCount: 500}
	if err := l.Record(ctx, first); err != nil {
		t.Fatal(err)
	}
	refetch := first
	refetch.Method = "browser"
	refetch.CharCount = 2000
	if err := l.Record(ctx, refetch); err != nil {
		t.Fatal(err)
	}

	all, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1 after refetch", len(all))
	}
	if all[0].Method != "browser" || all[0].CharCount != 2000 {
		t.Errorf("row not replaced: %+v", all[0])
	}
}

func TestListLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := Entry{
			Key: string(rune('a'+i)) + "-key", Reference: "r", Kind: "web_url",
			FetchedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := l.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	got, err := l.List(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestExportYAML(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	if err := l.Record(ctx, Entry{Key: "k", Reference: "r", Kind: "web_url", Title: "T", Cues: []string{"a cue"}}); err != nil {
		t.Fatal(err)
	}
	if err := l.ExportYAML(ctx); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, exportFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("export is empty")
	}
}
