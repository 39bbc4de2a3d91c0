package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// PlatformLinkedIn tags records published through the LinkedIn gateway.
const PlatformLinkedIn = "linkedin"

// HistoryStore is the append-only log of published posts.
type HistoryStore struct {
	store ports.RecordStore
	now   func() time.Time
	newID func() string
}

// NewHistoryStore wraps a record store.
func NewHistoryStore(store ports.RecordStore) *HistoryStore {
	return &HistoryStore{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Record appends one published post and returns the stored record.
func (h *HistoryStore) Record(ctx context.Context, post domain.Post, title, platform string) (domain.PostRecord, error) {
	record := domain.PostRecord{
		ID:        h.newID(),
		Content:   post.Content,
		URL:       post.SourceURL,
		Title:     title,
		Platform:  platform,
		Timestamp: h.now().UTC(),
	}
	if err := h.store.Put(ctx, record.ID, record); err != nil {
		return domain.PostRecord{}, fmt.Errorf("append history record: %w", err)
	}
	return record, nil
}

// Exists reports whether url was already published.
func (h *HistoryStore) Exists(ctx context.Context, url string) (bool, error) {
	ok, err := h.store.ExistsByField(ctx, domain.FieldURL, url)
	if err != nil {
		return false, fmt.Errorf("history lookup: %w", err)
	}
	return ok, nil
}

// Recent returns the contents of the last k records, oldest first.
func (h *HistoryStore) Recent(ctx context.Context, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	records, err := h.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(records) > k {
		records = records[len(records)-k:]
	}
	contents := make([]string, 0, len(records))
	for _, r := range records {
		contents = append(contents, r.Content)
	}
	return contents, nil
}
