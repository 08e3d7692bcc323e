/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"

	"cvcanvas/internal/document"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the CV schema. Bump it and add a step to
// runMigrations for every change.
const schemaVersion = 2

// DefaultTitle is used for CVs created without one.
const DefaultTitle = "CV mới"

// DefaultTemplate is the template id of CVs created without one.
const DefaultTemplate = "modern_complete"

// ErrNotFound is returned when no CV has the requested id.
var ErrNotFound = errors.New("storage: cv not found")

// CV is one stored resume. Content is the raw canvas payload.
type CV struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Content        json.RawMessage `json:"content,omitempty"`
	TemplateID     string          `json:"template_id"`
	Views          int             `json:"views"`
	Downloads      int             `json:"downloads"`
	IsCanvasEditor bool            `json:"is_canvas_editor"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Document parses Content as a canvas save payload.
func (c CV) Document() (document.Document, error) {
	if len(c.Content) == 0 {
		return document.Document{Elements: []document.Record{}}, nil
	}
	return document.Parse(c.Content)
}

// TemplateName is the display name of the CV's template.
func (c CV) TemplateName() string {
	if c.TemplateID == "" {
		return "Template mặc định"
	}
	words := strings.Fields(strings.ReplaceAll(c.TemplateID, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return "Template " + strings.Join(words, " ")
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is the CV table on either backend.
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	log     *slog.Logger
}

// OpenSQLite opens (creating if needed) a SQLite database at path with WAL
// enabled and the schema migrated.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under the HTTP server
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return newStore(ctx, db, dialectSQLite)
}

// OpenPostgres connects with a pgx DSN and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newStore(ctx, db, dialectPostgres)
}

// Open picks the backend by driver name ("sqlite" or "postgres").
func Open(ctx context.Context, driver, path, dsn string) (*Store, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return OpenSQLite(ctx, path)
	case "postgres", "pgx":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// PostgresDSN folds a keychain password into dsn. The result is a
// registered connection name that only OpenPostgres in this process can use.
func PostgresDSN(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	cc.Password = password
	return stdlib.RegisterConnConfig(cc), nil
}

func newStore(ctx context.Context, db *sql.DB, d dialect) (*Store, error) {
	s := &Store{db: db, dialect: d, now: func() time.Time { return time.Now().UTC() }, log: applog.WithComponent("storage")}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		s.log.Error("migrate failed", slog.Any("err", err))
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for diagnostics.
func (s *Store) DB() *sql.DB { return s.db }

// q rewrites ? placeholders to $n for Postgres.
func (s *Store) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cvs (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			content          TEXT,
			template_id      TEXT,
			views            INTEGER NOT NULL DEFAULT 0,
			downloads        INTEGER NOT NULL DEFAULT 0,
			is_canvas_editor BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := s.stamp(s.now())
	var cur int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cur = 1
		if _, err := s.db.ExecContext(ctx, s.q(`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`),
			cur, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := s.db.ExecContext(ctx, s.q(`UPDATE version SET app=?, updated_at=? WHERE id=1`), version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_cvs_updated ON cvs(updated_at)`}
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reads the stored schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func (s *Store) stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

const cvColumns = `id, title, content, template_id, views, downloads, is_canvas_editor, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanCV(r scanner) (CV, error) {
	var (
		c       CV
		content sql.NullString
		tmpl    sql.NullString
		created string
		updated string
	)
	if err := r.Scan(&c.ID, &c.Title, &content, &tmpl, &c.Views, &c.Downloads, &c.IsCanvasEditor, &created, &updated); err != nil {
		return CV{}, err
	}
	if content.Valid && content.String != "" {
		c.Content = json.RawMessage(content.String)
	}
	c.TemplateID = tmpl.String
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return c, nil
}

// Create inserts c with a new id and timestamps and returns the stored row.
func (s *Store) Create(ctx context.Context, c CV) (CV, error) {
	c.ID = ulid.Make().String()
	if strings.TrimSpace(c.Title) == "" {
		c.Title = DefaultTitle
	}
	if c.TemplateID == "" {
		c.TemplateID = DefaultTemplate
	}
	if len(c.Content) > 0 && !json.Valid(c.Content) {
		return CV{}, errors.New("storage: content is not valid JSON")
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO cvs (`+cvColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Title, nullJSON(c.Content), c.TemplateID, c.Views, c.Downloads, c.IsCanvasEditor, s.stamp(now), s.stamp(now))
	if err != nil {
		return CV{}, fmt.Errorf("insert cv: %w", err)
	}
	s.log.Info("cv created", slog.String("id", c.ID))
	return c, nil
}

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Get loads one CV.
func (s *Store) Get(ctx context.Context, id string) (CV, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+cvColumns+` FROM cvs WHERE id=?`), id)
	c, err := scanCV(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CV{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return CV{}, fmt.Errorf("get cv: %w", err)
	}
	return c, nil
}

// List returns every CV, most recently updated first.
func (s *Store) List(ctx context.Context) ([]CV, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cvColumns+` FROM cvs ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}
	defer rows.Close()
	var out []CV
	for rows.Next() {
		c, err := scanCV(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cv: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// exec runs an update that must touch exactly one row.
func (s *Store) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Rename changes the title.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	return s.exec(ctx, id, `UPDATE cvs SET title=?, updated_at=? WHERE id=?`, title, s.stamp(s.now()), id)
}

// SaveCanvas stores a canvas payload and marks the CV as edited in the
// canvas editor.
func (s *Store) SaveCanvas(ctx context.Context, id string, doc document.Document) error {
	b, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("marshal canvas: %w", err)
	}
	if err := s.exec(ctx, id, `UPDATE cvs SET content=?, is_canvas_editor=?, updated_at=? WHERE id=?`,
		string(b), true, s.stamp(s.now()), id); err != nil {
		return fmt.Errorf("save canvas: %w", err)
	}
	s.log.Debug("canvas saved", slog.String("id", id), slog.Int("elements", len(doc.Elements)))
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id string) error {
	return s.exec(ctx, id, `UPDATE cvs SET views=views+1 WHERE id=?`, id)
}

func (s *Store) IncrementDownloads(ctx context.Context, id string) error {
	return s.exec(ctx, id, `UPDATE cvs SET downloads=downloads+1 WHERE id=?`, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, `DELETE FROM cvs WHERE id=?`, id)
}
