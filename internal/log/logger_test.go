/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// A file-backed logger writes JSON records carrying the static, component
// and context attributes.
func TestInitWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvcanvas.log")
	Init(Options{Level: "debug", Format: "json", File: path})
	t.Cleanup(func() { Init(Options{}) })

	l := WithOperation(WithComponent("storage"), "save")
	ctx := WithCV(WithSession(context.Background(), "s-1"), "01J9ZCV")
	l.InfoContext(ctx, "canvas saved", slog.Int("elements", 3))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	want := map[string]any{
		"app": "cvcanvas", "component": "storage", "op": "save", "msg": "canvas saved",
		"session": "s-1", "cv": "01J9ZCV", "elements": float64(3),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s = %v, want %v", k, rec[k], v)
		}
	}
	if _, ok := rec["ver"].(string); !ok {
		t.Fatalf("missing ver: %v", rec)
	}
}

func TestContextWithoutIDsAddsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.log")
	Init(Options{Format: "json", File: path})
	t.Cleanup(func() { Init(Options{}) })

	L().InfoContext(context.Background(), "startup")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(b), `"session"`) || strings.Contains(string(b), `"cv"`) {
		t.Fatalf("unexpected context attrs: %s", b)
	}
}
