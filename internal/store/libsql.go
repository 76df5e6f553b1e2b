package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/nfstudio/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*LibSQLStore)(nil)

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/nfstudio.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Drafts ---

// CreateDraft inserts d and its first revision. An empty ID is assigned a UUID;
// zero timestamps are set to now.
func (s *LibSQLStore) CreateDraft(ctx context.Context, d *Draft) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = s.timeOrNow(d.CreatedAt)
	d.UpdatedAt = s.timeOrNow(d.UpdatedAt)
	d.Revision = 1

	doc, err := json.Marshal(d.Pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create draft: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO drafts (id, name, pipeline, revision, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Pipeline.Name, string(doc), d.Revision, toMillis(d.CreatedAt), toMillis(d.UpdatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return schema.NewErrorf(schema.ErrCodeConflict, "draft %q already exists", d.ID).WithCause(err)
		}
		return storeErr("insert draft", err)
	}
	if err := insertRevision(ctx, tx, d.ID, d.Revision, string(doc), SourceCreate, "", d.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit create draft", err)
	}
	return nil
}

func (s *LibSQLStore) GetDraft(ctx context.Context, id string) (*Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pipeline, revision, created_at, updated_at FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("draft", id)
	}
	return d, err
}

// UpdateDraft replaces the pipeline and appends revision N+1 in one transaction.
func (s *LibSQLStore) UpdateDraft(ctx context.Context, id string, update DraftUpdate) (*Draft, error) {
	doc, err := json.Marshal(update.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline: %w", err)
	}
	source := update.Source
	if source == "" {
		source = SourceEdit
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin update draft", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT revision FROM drafts WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("draft", id)
	}
	if err != nil {
		return nil, storeErr("read draft revision", err)
	}
	if update.ExpectedRevision > 0 && update.ExpectedRevision != current {
		return nil, schema.NewErrorf(schema.ErrCodeConflict,
			"draft %q is at revision %d, update expected %d", id, current, update.ExpectedRevision).
			WithDetails(map[string]any{"revision": current})
	}

	next := current + 1
	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE drafts SET name = ?, pipeline = ?, revision = ?, updated_at = ? WHERE id = ?`,
		update.Pipeline.Name, string(doc), next, toMillis(now), id,
	); err != nil {
		return nil, storeErr("update draft", err)
	}
	if err := insertRevision(ctx, tx, id, next, string(doc), source, update.Note, now); err != nil {
		return nil, err
	}

	d, err := scanDraft(tx.QueryRowContext(ctx,
		`SELECT id, pipeline, revision, created_at, updated_at FROM drafts WHERE id = ?`, id))
	if err != nil {
		return nil, storeErr("reload draft", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit update draft", err)
	}
	return d, nil
}

func (s *LibSQLStore) ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error) {
	var where []string
	var args []any

	if filter.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.UpdatedBefore != nil {
		where = append(where, "updated_at < ?")
		args = append(args, toMillis(*filter.UpdatedBefore))
	}

	query := "SELECT id, pipeline, revision, created_at, updated_at FROM drafts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list drafts", err)
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (s *LibSQLStore) DeleteDraft(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin delete draft", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_revisions WHERE draft_id = ?`, id); err != nil {
		return storeErr("delete revisions", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete draft", err)
	}
	if err := checkRowsAffected(res, "draft", id); err != nil {
		return err
	}
	return tx.Commit()
}

// PruneDrafts deletes drafts (and their history) not updated since olderThan
// and returns how many drafts were removed.
func (s *LibSQLStore) PruneDrafts(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := toMillis(olderThan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("begin prune", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM draft_revisions WHERE draft_id IN (SELECT id FROM drafts WHERE updated_at < ?)`, cutoff,
	); err != nil {
		return 0, storeErr("prune revisions", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, storeErr("prune drafts", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("prune drafts", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("commit prune", err)
	}
	return n, nil
}

// --- Revisions ---

// ListRevisions returns a draft's history ordered by sequence. A gap in the
// sequence means the log was tampered with and is reported as STORE_ERROR.
func (s *LibSQLStore) ListRevisions(ctx context.Context, draftID string) ([]*Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT draft_id, sequence, pipeline, source, note, created_at FROM draft_revisions
		 WHERE draft_id = ? ORDER BY sequence ASC`, draftID)
	if err != nil {
		return nil, storeErr("list revisions", err)
	}
	defer rows.Close()

	var revs []*Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		if expected := int64(len(revs) + 1); r.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in draft %s: expected %d, got %d", draftID, expected, r.Sequence)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, storeNotFound("draft", draftID)
	}
	return revs, nil
}

func (s *LibSQLStore) GetRevision(ctx context.Context, draftID string, sequence int64) (*Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT draft_id, sequence, pipeline, source, note, created_at FROM draft_revisions
		 WHERE draft_id = ? AND sequence = ?`, draftID, sequence)
	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("revision", fmt.Sprintf("%s@%d", draftID, sequence))
	}
	return r, err
}

// RestoreRevision copies an earlier revision forward as a new revision.
func (s *LibSQLStore) RestoreRevision(ctx context.Context, draftID string, sequence int64) (*Draft, error) {
	rev, err := s.GetRevision(ctx, draftID, sequence)
	if err != nil {
		return nil, err
	}
	return s.UpdateDraft(ctx, draftID, DraftUpdate{
		Pipeline: rev.Pipeline,
		Source:   SourceRestore,
		Note:     fmt.Sprintf("restored revision %d", sequence),
	})
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	d := &Draft{}
	var doc string
	var created, updated int64
	if err := row.Scan(&d.ID, &doc, &d.Revision, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doc), &d.Pipeline); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline of draft %s: %w", d.ID, err)
	}
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)
	return d, nil
}

func scanRevision(row rowScanner) (*Revision, error) {
	r := &Revision{}
	var doc string
	var note sql.NullString
	var created int64
	if err := row.Scan(&r.DraftID, &r.Sequence, &doc, &r.Source, &note, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doc), &r.Pipeline); err != nil {
		return nil, fmt.Errorf("unmarshal revision %s@%d: %w", r.DraftID, r.Sequence, err)
	}
	r.Note = note.String
	r.CreatedAt = fromMillis(created)
	return r, nil
}

func insertRevision(ctx context.Context, tx *sql.Tx, draftID string, seq int64, doc, source, note string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO draft_revisions (draft_id, sequence, pipeline, source, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		draftID, seq, doc, source, nullStr(note), toMillis(at),
	)
	if err != nil {
		return storeErr("insert revision", err)
	}
	return nil
}

func storeNotFound(resource, id string) *schema.NFError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeErr(op string, err error) *schema.NFError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %s", op, err.Error()).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "primary key")
}

// timeOrNow truncates to the stored millisecond precision.
func (s *LibSQLStore) timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return fromMillis(toMillis(t))
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
