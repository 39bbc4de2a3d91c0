package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const recordsTable = "post_records"

var recordColumns = map[domain.RecordField]string{
	domain.FieldURL:      "url",
	domain.FieldTitle:    "title",
	domain.FieldPlatform: "platform",
}

// SQLStore persists post records into a SQL table shared by the SQLite and
// Postgres backends; only the placeholder format differs.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RecordStore = (*SQLStore)(nil)

// NewSQLStore wires a sql.DB implementation.
func NewSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStore {
	return &SQLStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// ErrNoDatabase is returned by a store built without a database handle.
var ErrNoDatabase = errors.New("sql store: no database handle")

// Put appends a record under key.
func (s *SQLStore) Put(ctx context.Context, key string, record domain.PostRecord) error {
	if s.db == nil {
		return ErrNoDatabase
	}

	query, args, err := s.builder.
		Insert(recordsTable).
		Columns("id", "content", "url", "title", "platform", "created_at").
		Values(key, record.Content, record.URL, record.Title, record.Platform, record.Timestamp.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetAll returns every record, oldest first.
func (s *SQLStore) GetAll(ctx context.Context) ([]domain.PostRecord, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	query, args, err := s.builder.
		Select("id", "content", "url", "title", "platform", "created_at").
		From(recordsTable).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	var records []domain.PostRecord
	for rows.Next() {
		var rec domain.PostRecord
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.URL, &rec.Title, &rec.Platform, &rec.Timestamp); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

// ExistsByField reports whether any record has value in field.
func (s *SQLStore) ExistsByField(ctx context.Context, field domain.RecordField, value string) (bool, error) {
	if s.db == nil {
		return false, ErrNoDatabase
	}

	query, args, err := s.existsQuery(field, value)
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", field, err)
	}
	return true, nil
}

func (s *SQLStore) existsQuery(field domain.RecordField, value string) (string, []interface{}, error) {
	column, ok := recordColumns[field]
	if !ok {
		return "", nil, fmt.Errorf("unsupported record field %q", field)
	}

	query, args, err := s.builder.
		Select("1").
		From(recordsTable).
		Where(sq.Eq{column: value}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build exists: %w", err)
	}
	return query, args, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
