// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deposit lays fetched content out on disk. Each fetch owns a
// folder under the base directory, keyed by kind, slugged title, and a
// truncated content ID, so refetching the same reference lands in the
// same place. The folder is wiped before writing and the manifest is
// written last: a folder containing manifest.json is complete by
// construction.
package deposit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ManifestName is the completion marker, always written last.
const ManifestName = "manifest.json"

const (
	slugMaxLen = 50
	idTruncAt  = 12
	dirPerm    = 0o755
	filePerm   = 0o644
)

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Manifest records what a deposit folder holds. It is the index
// consumers read instead of guessing from filenames.
type Manifest struct {
	Key       string    `json:"key"`
	Reference string    `json:"reference"`
	Kind      string    `json:"kind"`
	ContentID string    `json:"content_id"`
	Title     string    `json:"title"`
	Method    string    `json:"method"`
	Format    string    `json:"format"`
	CharCount int       `json:"char_count"`
	Files     []string  `json:"files"`
	Warnings  []string  `json:"warnings,omitempty"`
	Cues      []string  `json:"cues,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Slug lowercases a title and reduces it to hyphen-separated runs of
// [a-z0-9], truncated to a fixed length. Empty input slugs to
// "untitled".
func Slug(title string) string {
	s := nonSlugPattern.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > slugMaxLen {
		s = strings.Trim(s[:slugMaxLen], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// Key builds the deposit folder name: {kind}--{slug}--{id prefix}. The
// ID prefix makes the key stable under title edits and collisions.
// URLs are hashed first: two pages on the same host must not share a
// prefix.
func Key(kind, title, contentID string) string {
	id := contentID
	if strings.Contains(id, "://") {
		sum := sha256.Sum256([]byte(id))
		id = hex.EncodeToString(sum[:])
	}
	if len(id) > idTruncAt {
		id = id[:idTruncAt]
	}
	return fmt.Sprintf("%s--%s--%s", kind, Slug(title), sanitizeID(id))
}

// sanitizeID strips path-hostile characters from raw IDs.
func sanitizeID(id string) string {
	return nonSlugPattern.ReplaceAllString(strings.ToLower(id), "")
}

// Folder is an open deposit folder mid-write.
type Folder struct {
	dir   string
	key   string
	files []string
}

// Manager creates and lists deposit folders under one base directory.
type Manager struct {
	base string
}

// NewManager returns a manager rooted at base.
func NewManager(base string) *Manager {
	return &Manager{base: base}
}

// Base returns the base directory.
func (m *Manager) Base() string { return m.base }

// Ensure wipes any previous deposit under the key and creates a fresh
// folder. A fetch that later fails leaves no manifest behind, so
// consumers never see the partial state as complete.
func (m *Manager) Ensure(key string) (*Folder, error) {
	dir := filepath.Join(m.base, key)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clearing deposit %s: %w", key, err)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating deposit %s: %w", key, err)
	}
	return &Folder{dir: dir, key: key}, nil
}

// Dir returns the folder's absolute path.
func (f *Folder) Dir() string { return f.dir }

// Key returns the folder's deposit key.
func (f *Folder) Key() string { return f.key }

// Files returns the names written so far, in write order.
func (f *Folder) Files() []string { return f.files }

// WriteContent writes the primary content file, named content plus the
// conventional extension for the format.
func (f *Folder) WriteContent(content string, format string) error {
	name := "content" + extensionFor(format)
	return f.WriteFile(name, []byte(content))
}

// WriteFile writes one auxiliary file into the folder. Names are
// flattened to the folder root; subdirectories are not part of the
// layout.
func (f *Folder) WriteFile(name string, data []byte) error {
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(f.dir, name), data, filePerm); err != nil {
		return fmt.Errorf("writing %s to deposit %s: %w", name, f.key, err)
	}
	f.files = append(f.files, name)
	return nil
}

// Finish fills the bookkeeping fields and writes the manifest. It must
// be the last write into the folder.
func (f *Folder) Finish(m Manifest) error {
	m.Key = f.key
	m.Files = append([]string(nil), f.files...)
	if m.FetchedAt.IsZero() {
		m.FetchedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest for %s: %w", f.key, err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, ManifestName), data, filePerm); err != nil {
		return fmt.Errorf("writing manifest for %s: %w", f.key, err)
	}
	return nil
}

// ReadManifest loads the manifest of a completed deposit.
func (m *Manager) ReadManifest(key string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(m.base, key, ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest for %s: %w", key, err)
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest for %s: %w", key, err)
	}
	return man, nil
}

// List returns the manifests of all completed deposits, skipping
// folders without one.
func (m *Manager) List() ([]Manifest, error) {
	entries, err := os.ReadDir(m.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing deposits: %w", err)
	}
	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		man, err := m.ReadManifest(e.Name())
		if err != nil {
			continue
		}
		out = append(out, man)
	}
	return out, nil
}

func extensionFor(format string) string {
	switch format {
	case "csv":
		return ".csv"
	case "plain":
		return ".txt"
	default:
		return ".md"
	}
}
