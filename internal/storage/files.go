/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cvcanvas/internal/document"
)

// BackupsDirName is created next to a saved document.
const BackupsDirName = "backups"

// SaveDocument writes doc to path transactionally: the previous file, if
// any, is copied to a timestamped backup, the new content goes to a temp
// file in the same directory and is renamed over the target.
func SaveDocument(path string, doc document.Document) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("document path is required")
	}
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure document dir: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp document: %w", werr)
	}
	// Windows refuses to rename over an existing file
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", rerr)
	}
	return nil
}

// OpenDocument reads a saved document. If the file is missing or corrupt
// the latest backup is tried.
func OpenDocument(path string) (document.Document, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		var doc document.Document
		if err = json.Unmarshal(b, &doc); err == nil {
			return doc, nil
		}
		err = fmt.Errorf("parse document: %w", err)
	} else {
		err = fmt.Errorf("open document: %w", err)
	}
	doc, berr := openLatestBackup(path)
	if berr != nil {
		return document.Document{}, fmt.Errorf("%w; backup attempt: %v", err, berr)
	}
	return doc, nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// the timestamp sorts lexicographically
	sort.Strings(out)
	return out, nil
}

func openLatestBackup(path string) (document.Document, error) {
	cands, err := Backups(path)
	if err != nil {
		return document.Document{}, err
	}
	if len(cands) == 0 {
		return document.Document{}, errors.New("no backups found")
	}
	b, err := os.ReadFile(cands[len(cands)-1])
	if err != nil {
		return document.Document{}, fmt.Errorf("read latest backup: %w", err)
	}
	var doc document.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return document.Document{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return doc, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
