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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "data", "cv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreCreateGetDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, err := s.Create(ctx, CV{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(c.ID) != 26 {
		t.Fatalf("expected ULID id, got %q", c.ID)
	}
	got, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != DefaultTitle || got.TemplateID != DefaultTemplate {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.IsCanvasEditor || got.Views != 0 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if got.TemplateName() != "Template Modern Complete" {
		t.Fatalf("TemplateName = %q", got.TemplateName())
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSaveCanvasAndCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c, err := s.Create(ctx, CV{Title: "Dev CV"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SaveCanvas(ctx, c.ID, sampleDoc("a", "b")); err != nil {
		t.Fatalf("SaveCanvas: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.IncrementDownloads(ctx, c.ID); err != nil {
			t.Fatalf("IncrementDownloads: %v", err)
		}
	}
	if err := s.IncrementViews(ctx, c.ID); err != nil {
		t.Fatalf("IncrementViews: %v", err)
	}
	got, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsCanvasEditor || got.Downloads != 2 || got.Views != 1 {
		t.Fatalf("unexpected state: %+v", got)
	}
	doc, err := got.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if len(doc.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(doc.Elements))
	}
	if err := s.SaveCanvas(ctx, "missing", doc); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListRenameDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { tick = tick.Add(time.Second); return tick }

	a, _ := s.Create(ctx, CV{Title: "A", Content: json.RawMessage(`{"elements":[]}`)})
	b, _ := s.Create(ctx, CV{Title: "B"})
	if err := s.Rename(ctx, a.ID, "A2"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[0].Title != "A2" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	if _, err := s.Create(ctx, CV{Content: json.RawMessage(`{oops`)}); err == nil {
		t.Fatalf("expected invalid content error")
	}
}

func TestStoreSchemaMigratedAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.db")
	ctx := context.Background()
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if v, err := s.SchemaVersion(ctx); err != nil || v != schemaVersion {
		t.Fatalf("schema = %d, %v", v, err)
	}
	c, _ := s.Create(ctx, CV{Title: "keep"})
	_ = s.Close()

	s2, err := Open(ctx, "sqlite", path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, c.ID); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	if _, err := Open(ctx, "oracle", "", ""); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestPostgresPlaceholders(t *testing.T) {
	s := &Store{dialect: dialectPostgres}
	got := s.q(`UPDATE cvs SET title=?, updated_at=? WHERE id=?`)
	if got != `UPDATE cvs SET title=$1, updated_at=$2 WHERE id=$3` {
		t.Fatalf("rebind = %q", got)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := "postgres://cv@localhost:5432/cvs"
	got, err := PostgresDSN(dsn, "")
	if err != nil || got != dsn {
		t.Fatalf("no password: %q %v", got, err)
	}
	got, err = PostgresDSN(dsn, "s3cret")
	if err != nil {
		t.Fatalf("with password: %v", err)
	}
	if strings.Contains(got, "s3cret") || got == dsn {
		t.Fatalf("password leaked or ignored: %q", got)
	}
	if _, err := PostgresDSN("postgres://%zz", "x"); err == nil {
		t.Fatalf("expected parse error")
	}
}

// Runs against a live Postgres when CVC_PG_DSN points at one.
func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("CVC_PG_DSN")
	if dsn == "" {
		t.Skip("CVC_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer s.Close()
	c, err := s.Create(ctx, CV{Title: "pg"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = s.Delete(ctx, c.ID) }()
	if err := s.SaveCanvas(ctx, c.ID, sampleDoc("x")); err != nil {
		t.Fatalf("SaveCanvas: %v", err)
	}
	got, err := s.Get(ctx, c.ID)
	if err != nil || !got.IsCanvasEditor {
		t.Fatalf("Get: %+v %v", got, err)
	}
}
