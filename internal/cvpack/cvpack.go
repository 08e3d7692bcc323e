/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cvpack bundles a canvas document and its renders into one zip so
// a CV can travel between machines.
package cvpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cvcanvas/internal/document"
	"cvcanvas/internal/export"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/version"
)

const (
	manifestName = "cvpack.manifest.txt"
	canvasName   = "canvas.json"
	renderDir    = "render/"
)

var ErrNoCanvas = errors.New("cvpack: archive has no " + canvasName)

// Pack is the content of an opened bundle.
type Pack struct {
	Manifest string
	Canvas   []byte
	Renders  []string // archive names under render/
}

// Write stores doc and one render of page per format into destZipPath.
// An existing archive is replaced.
func Write(destZipPath string, doc document.Document, page export.Page, formats []export.Format) (err error) {
	l := applog.WithOperation(applog.WithComponent("cvpack"), "write").With(slog.String("zip", destZipPath))
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	canvas, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() {
		if cerr := zf.Close(); err == nil {
			err = cerr
		}
	}()
	zw := zip.NewWriter(zf)
	defer func() {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}()

	name := page.Title
	if strings.TrimSpace(name) == "" {
		name = "cv"
	}
	manifest := fmt.Sprintf("CV Canvas Pack\nCreated: %s\nVersion: %s\nTitle: %s\nElements: %d\n",
		time.Now().Format(time.RFC3339), version.String(), name, len(doc.Elements))
	if err := add(zw, manifestName, strings.NewReader(manifest)); err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if err := add(zw, canvasName, strings.NewReader(string(canvas))); err != nil {
		return fmt.Errorf("add canvas: %w", err)
	}
	for _, f := range formats {
		w, err := zw.Create(renderDir + name + "." + string(f))
		if err != nil {
			return fmt.Errorf("add %s render: %w", f, err)
		}
		if err := export.Render(w, f, page, export.Options{}); err != nil {
			l.Error("render failed", slog.String("format", string(f)), slog.Any("err", err))
			return fmt.Errorf("render %s: %w", f, err)
		}
	}
	l.Info("cv pack written", slog.Int("renders", len(formats)), slog.Int("elements", len(doc.Elements)))
	return nil
}

func add(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

// Open reads the manifest and canvas of a bundle and lists its renders.
func Open(zipPath string) (Pack, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return Pack{}, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	var p Pack
	for _, f := range r.File {
		switch {
		case f.Name == manifestName:
			b, err := readAll(f)
			if err != nil {
				return Pack{}, err
			}
			p.Manifest = string(b)
		case f.Name == canvasName:
			if p.Canvas, err = readAll(f); err != nil {
				return Pack{}, err
			}
		case strings.HasPrefix(f.Name, renderDir) && !f.FileInfo().IsDir():
			p.Renders = append(p.Renders, f.Name)
		}
	}
	if p.Canvas == nil {
		return Pack{}, ErrNoCanvas
	}
	return p, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// ExtractRenders copies the bundle's renders into dir. Existing files are
// not overwritten; they are skipped and not counted.
func ExtractRenders(zipPath, dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("cvpack"), "extract").With(slog.String("zip", zipPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure dir: %w", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, renderDir) || f.FileInfo().IsDir() {
			continue
		}
		// flattened, so nested or dotted names stay inside dir
		target := filepath.Join(dir, path.Base(f.Name))
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		b, err := readAll(f)
		if err != nil {
			return installed, err
		}
		if err := os.WriteFile(target, b, 0o644); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("renders extracted", slog.Int("files", installed))
	return installed, nil
}
