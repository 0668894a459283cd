// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deposit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Q3 Revenue Report (FINAL v2)", "q3-revenue-report-final-v2"},
		{"  Meeting notes: 2026/08/26  ", "meeting-notes-2026-08-26"},
		{"---", "untitled"},
		{"", "untitled"},
		{"Ünïcode Tïtle", "n-code-t-tle"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugTruncates(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := Slug(long)
	if len(got) > 50 {
		t.Errorf("slug length = %d, want <= 50", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug ends with hyphen: %q", got)
	}
}

func TestKey(t *testing.T) {
	got := Key("drive_file", "Q3 Revenue", "1AbCdEfGhIjKlMnOp")
	want := "drive_file--q3-revenue--1abcdefghijk"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestKeyStableAcrossRefetch(t *testing.T) {
	a := Key("web_url", "An Article", "https://example.com/a")
	b := Key("web_url", "An Article", "https://example.com/a")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestKeyDistinguishesSameHostURLs(t *testing.T) {
	a := Key("web_url", "An Article", "https://example.com/a")
	b := Key("web_url", "An Article", "https://example.com/b")
	if a == b {
		t.Errorf("same key %q for different URLs", a)
	}
}

func TestDepositLifecycle(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	key := Key("drive_file", "Notes", "abc123def456xyz")
	f, err := m.Ensure(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.WriteContent("# Notes\n\nbody", "markdown"); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteFile("comments.md", []byte("## Comments\n")); err != nil {
		t.Fatal(err)
	}
	if err := f.Finish(Manifest{
		Reference: "abc123def456xyz",
		Kind:      "drive_file",
		ContentID: "abc123def456xyz",
		Title:     "Notes",
		Method:    "api",
		Format:    "markdown",
		CharCount: 13,
	}); err != nil {
		t.Fatal(err)
	}

	man, err := m.ReadManifest(key)
	if err != nil {
		t.Fatal(err)
	}
	if man.Key != key {
		t.Errorf("manifest key = %q, want %q", man.Key, key)
	}
	if len(man.Files) != 2 {
		t.Errorf("manifest files = %v, want 2 entries", man.Files)
	}
	if man.FetchedAt.IsZero() {
		t.Error("FetchedAt not stamped")
	}
	if _, err := os.Stat(filepath.Join(base, key, "content.md")); err != nil {
		t.Errorf("content file missing: %v", err)
	}
}

func TestEnsureWipesStaleFiles(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	key := Key("gmail_thread", "Old subject", "19b0e7fe6f653f69")

	f, err := m.Ensure(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.WriteFile("attachment-old.pdf", []byte("stale")); err != nil {
		t.Fatal(err)
	}

	// Refetch: the folder starts empty again.
	f2, err := m.Ensure(key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f2.Dir(), "attachment-old.pdf")); !os.IsNotExist(err) {
		t.Error("stale file survived Ensure")
	}
}

func TestListSkipsIncomplete(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	done, err := m.Ensure("web_url--done--aaa")
	if err != nil {
		t.Fatal(err)
	}
	if err := done.WriteContent("text", "markdown"); err != nil {
		t.Fatal(err)
	}
	if err := done.Finish(Manifest{Title: "done"}); err != nil {
		t.Fatal(err)
	}

	// A crashed fetch: folder exists, manifest never written.
	if _, err := m.Ensure("web_url--partial--bbb"); err != nil {
		t.Fatal(err)
	}

	list, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "done" {
		t.Errorf("List = %+v, want only the completed deposit", list)
	}
}
