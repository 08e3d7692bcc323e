/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a report file plus an autosave of the
// canvas being edited.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"cvcanvas/internal/document"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/storage"
	"cvcanvas/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Rescue describes what to save when a panic is recovered. A nil Rescue
// only writes the report to the temp dir.
type Rescue struct {
	// Dir receives crash reports and the autosave; empty means os.TempDir().
	Dir string
	// Name is the autosave base name, usually the CV id.
	Name string
	// Snapshot returns the live canvas. It runs after the panic, so it must
	// not depend on state the panic may have left half-updated.
	Snapshot func() document.Document
}

func (r *Rescue) dir() string {
	if r == nil || r.Dir == "" {
		return os.TempDir()
	}
	return r.Dir
}

// AutosavePath is where the rescued canvas is written.
func (r *Rescue) AutosavePath() string {
	name := "canvas"
	if r != nil && r.Name != "" {
		name = r.Name
	}
	return filepath.Join(r.dir(), name+".autosave.json")
}

// Recover captures a panic, logs it with the stack, writes a report and the
// autosave, then exits with code 2.
//
// Usage: defer crash.Recover(rescue)
func Recover(r *Rescue) {
	if v := recover(); v != nil {
		reportPath := handle(r, v, debug.Stack())
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			applog.WithComponent("crash").Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			applog.WithComponent("crash").Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// Contain runs fn and converts a panic into an error after writing the
// report and autosave. Long-running servers use it per request so one bad
// command does not take the process down.
func Contain(r *Rescue, fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			path := handle(r, v, debug.Stack())
			err = fmt.Errorf("panic: %v (report %s)", v, path)
		}
	}()
	fn()
	return nil
}

func handle(r *Rescue, v any, stack []byte) string {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", v), slog.String("stack", string(stack)))
	reportPath, err := writeReport(r, v, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if path, err := autosave(r); err != nil {
		l.Error("autosave failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("autosave written", slog.String("path", path))
	}
	return reportPath
}

// autosave writes the snapshot, keeping the previous autosave as a backup.
func autosave(r *Rescue) (path string, err error) {
	if r == nil || r.Snapshot == nil {
		return "", nil
	}
	defer func() {
		// the snapshot itself may panic on a corrupted session
		if v := recover(); v != nil {
			err = fmt.Errorf("snapshot: %v", v)
		}
	}()
	path = r.AutosavePath()
	if err := storage.SaveDocument(path, r.Snapshot()); err != nil {
		return "", err
	}
	return path, nil
}

func writeReport(r *Rescue, panicVal any, stack []byte) (string, error) {
	dir := r.dir()
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "CV Canvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if r != nil && r.Name != "" {
		_, _ = fmt.Fprintf(&buf, "CV: %s\n", r.Name)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	return path, nil
}
