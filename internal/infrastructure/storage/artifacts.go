package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const (
	offeredFile  = "offered_posts.json"
	selectedFile = "selected_post.json"
)

// ArtifactWriter dumps run snapshots as indented JSON files for auditing.
type ArtifactWriter struct {
	dir string
	now func() time.Time
}

var _ ports.ArtifactSink = (*ArtifactWriter)(nil)

// NewArtifactWriter writes into dir, creating it on first use.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir, now: time.Now}
}

type offeredSnapshot struct {
	SavedAt time.Time     `json:"savedAt"`
	Posts   []domain.Post `json:"posts"`
}

type selectedSnapshot struct {
	SavedAt time.Time   `json:"savedAt"`
	Post    domain.Post `json:"post"`
}

// SaveOffered replaces the last offered set.
func (w *ArtifactWriter) SaveOffered(_ context.Context, posts []domain.Post) error {
	return w.write(offeredFile, offeredSnapshot{SavedAt: w.now().UTC(), Posts: posts})
}

// SaveSelected replaces the last selection.
func (w *ArtifactWriter) SaveSelected(_ context.Context, post domain.Post) error {
	return w.write(selectedFile, selectedSnapshot{SavedAt: w.now().UTC(), Post: post})
}

func (w *ArtifactWriter) write(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	target := filepath.Join(w.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
