package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"csrdesk/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("record not found")

// TimestampLayout matches the ISO strings the web client writes (millisecond UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Store keeps every resource as JSON documents in one table.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the timestamp source. Tests use it.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) DB() *sqlx.DB { return s.db }

type docRow struct {
	ID  string `db:"id"`
	Doc string `db:"doc"`
}

func decodeDoc(row docRow) (model.Record, error) {
	rec := model.Record{}
	if err := json.Unmarshal([]byte(row.Doc), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", row.ID, err)
	}
	rec[model.FieldID] = row.ID
	return rec, nil
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// FetchAll returns the complete set of a resource. When ownerField and owner
// are both set, only documents whose ownerField equals owner are returned.
func (s *Store) FetchAll(ctx context.Context, resource, ownerField, owner string) ([]model.Record, error) {
	q := `SELECT id, doc FROM documents WHERE resource = ?`
	args := []interface{}{resource}
	if ownerField != "" && owner != "" {
		q += ` AND json_extract(doc, ?) = ?`
		args = append(args, jsonPath(ownerField), owner)
	}
	q += ` ORDER BY created_at DESC, id`

	var rows []docRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeDoc(row)
		if err != nil {
			zap.L().Warn("skipping undecodable document", zap.String("resource", resource), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, resource, id string) (model.Record, error) {
	return getDoc(ctx, s.db, resource, id)
}

func getDoc(ctx context.Context, dbtx DBTX, resource, id string) (model.Record, error) {
	var row docRow
	err := dbtx.GetContext(ctx, &row, dbtx.Rebind(`SELECT id, doc FROM documents WHERE resource = ? AND id = ?`), resource, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", resource, id, err)
	}
	return decodeDoc(row)
}

// Insert stores rec and returns it with _id, createdAt and updatedAt filled in.
// A createdAt supplied by the client is kept.
func (s *Store) Insert(ctx context.Context, resource string, rec model.Record) (model.Record, error) {
	return insertDoc(ctx, s.db, resource, rec, s.now())
}

func insertDoc(ctx context.Context, dbtx DBTX, resource string, rec model.Record, now time.Time) (model.Record, error) {
	doc := rec.Clone()
	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
	}
	stamp := now.UTC().Format(TimestampLayout)
	if doc.Text(model.FieldCreatedAt) == "" {
		doc[model.FieldCreatedAt] = stamp
	}
	doc[model.FieldUpdatedAt] = stamp
	delete(doc, model.FieldID)

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", resource, err)
	}
	createdAt := doc.Text(model.FieldCreatedAt)
	if t, ok := doc.Time(model.FieldCreatedAt, time.UTC); ok {
		createdAt = t.UTC().Format(TimestampLayout)
	}

	const q = `INSERT INTO documents (resource, id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := dbtx.ExecContext(ctx, dbtx.Rebind(q), resource, id, string(body), createdAt, stamp); err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", resource, err)
	}
	doc[model.FieldID] = id
	return doc, nil
}

// InsertMany inserts all records in one transaction.
func (s *Store) InsertMany(ctx context.Context, resource string, recs []model.Record) (n int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			zap.L().Warn("rolling back import", zap.String("resource", resource), zap.Error(err))
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := s.now()
	for _, rec := range recs {
		if _, err = insertDoc(ctx, tx, resource, rec, now); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Update merges patch into the stored document. _id and createdAt cannot be changed.
func (s *Store) Update(ctx context.Context, resource, id string, patch model.Record) (model.Record, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := getDoc(ctx, tx, resource, id)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		if k == model.FieldID || k == model.FieldCreatedAt {
			continue
		}
		doc[k] = v
	}
	stamp := s.now().UTC().Format(TimestampLayout)
	doc[model.FieldUpdatedAt] = stamp

	stored := doc.Clone()
	delete(stored, model.FieldID)
	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", resource, err)
	}
	const q = `UPDATE documents SET doc = ?, updated_at = ? WHERE resource = ? AND id = ?`
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), string(body), stamp, resource, id); err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", resource, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s %s: %w", resource, id, err)
	}
	return doc, nil
}

// SetField sets one field, as the read-flag updates do.
func (s *Store) SetField(ctx context.Context, resource, id, field string, value any) error {
	_, err := s.Update(ctx, resource, id, model.Record{field: value})
	return err
}

func (s *Store) Delete(ctx context.Context, resource, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM documents WHERE resource = ? AND id = ?`), resource, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
	}
	return nil
}

// BulkDelete removes every listed id and returns how many existed.
func (s *Store) BulkDelete(ctx context.Context, resource string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM documents WHERE resource = ? AND id IN (?)`, resource, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to create IN query for bulk delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete %s: %w", resource, err)
	}
	return res.RowsAffected()
}

// FindOne returns the first document whose fields equal every value in match.
func (s *Store) FindOne(ctx context.Context, resource string, match map[string]string) (model.Record, error) {
	keys := make([]string, 0, len(match))
	for k := range match {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := `SELECT id, doc FROM documents WHERE resource = ?`
	args := []interface{}{resource}
	for _, k := range keys {
		q += ` AND IFNULL(json_extract(doc, ?), '') = ?`
		args = append(args, jsonPath(k), match[k])
	}
	q += ` ORDER BY created_at LIMIT 1`

	var row docRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", resource, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query %s: %w", resource, err)
	}
	return decodeDoc(row)
}

// Count returns how many documents a resource holds.
func (s *Store) Count(ctx context.Context, resource string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM documents WHERE resource = ?`), resource); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", resource, err)
	}
	return n, nil
}
