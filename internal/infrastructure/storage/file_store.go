package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// FileStore keeps post records as JSON lines in a single append-only file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ ports.RecordStore = (*FileStore)(nil)

// NewFileStore creates the parent directory of path if needed.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Put appends record as one JSON line; key becomes the record ID.
func (f *FileStore) Put(_ context.Context, key string, record domain.PostRecord) error {
	record.ID = key
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		_ = file.Close()
		return fmt.Errorf("append record: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}
	return nil
}

// GetAll returns every readable record ordered by timestamp.
// Lines that fail to decode are skipped.
func (f *FileStore) GetAll(_ context.Context) ([]domain.PostRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.readAll()
}

// ExistsByField scans the log for a record with value in field.
func (f *FileStore) ExistsByField(_ context.Context, field domain.RecordField, value string) (bool, error) {
	if _, ok := (domain.PostRecord{}).Value(field); !ok {
		return false, fmt.Errorf("unsupported record field %q", field)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readAll()
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if v, _ := rec.Value(field); v == value {
			return true, nil
		}
	}
	return false, nil
}

func (f *FileStore) readAll() ([]domain.PostRecord, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	var records []domain.PostRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec domain.PostRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}
