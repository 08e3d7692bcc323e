/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type memStore struct{ m map[string]string }

func (s *memStore) Get(service, key string) (string, error) { return s.m[service+"/"+key], nil }
func (s *memStore) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memStore) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func isolate(t *testing.T) *memStore {
	t.Helper()
	t.Setenv("CVC_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	ms := &memStore{m: map[string]string{}}
	t.Cleanup(SetTokenStore(ms))
	return ms
}

func TestEnvOverridesServerAddr(t *testing.T) {
	isolate(t)
	t.Setenv(EnvServerAddr, "0.0.0.0:9090")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Server.Addr, "0.0.0.0:9090"; got != want {
		t.Fatalf("Server.Addr = %q, want %q", got, want)
	}
}

func TestEnvAllowOrigins(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAllowOrigins, "http://localhost:3000, ,http://127.0.0.1:3000")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Server.AllowOrigins) != 2 || cfg.Server.AllowOrigins[1] != "http://127.0.0.1:3000" {
		t.Fatalf("AllowOrigins = %v", cfg.Server.AllowOrigins)
	}
}

func TestPostgresDSNImpliesDriver(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPostgresDSN, "postgres://cv@localhost/cv")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN == "" {
		t.Fatalf("storage = %#v, want postgres driver", cfg.Storage)
	}
	if name, ok := EnvOverrideFor("storage.dsn"); !ok || name != EnvPostgresDSN {
		t.Fatalf("EnvOverrideFor(storage.dsn) = %q,%v", name, ok)
	}
}

func TestSaveLoadRoundTripKeepsSecretOutOfFile(t *testing.T) {
	ms := isolate(t)
	cfg := Defaults()
	cfg.Canvas.GridSize = 10
	cfg.Canvas.SnapToGrid = true
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path, _ := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) == "" || strings.Contains(string(data), "s3cret") {
		t.Fatalf("secret leaked into yaml or file empty:\n%s", data)
	}
	got, secret, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if secret != "s3cret" || ms.m[keyringService+"/"+keyringSecret] != "s3cret" {
		t.Fatalf("secret = %q", secret)
	}
	if got.Canvas.GridSize != 10 || !got.Canvas.SnapToGrid {
		t.Fatalf("canvas not persisted: %#v", got.Canvas)
	}
	if err := ForgetSecret(); err != nil {
		t.Fatalf("ForgetSecret: %v", err)
	}
	if _, secret, _ = Load(); secret != "" {
		t.Fatalf("secret still present after ForgetSecret")
	}
}

func TestMergeKeepsCanvasDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Canvas.MaxZoom = 3
	mergeInto(&dst, &src)
	if dst.Canvas.MaxZoom != 3 {
		t.Fatalf("MaxZoom = %v, want 3", dst.Canvas.MaxZoom)
	}
	if dst.Canvas.MinZoom != 0.1 || dst.Canvas.Width != 800 || dst.Canvas.GridSize != 20 {
		t.Fatalf("defaults lost: %#v", dst.Canvas)
	}
	if dst.Canvas.ZoomSettle() != 100*time.Millisecond {
		t.Fatalf("ZoomSettle = %v", dst.Canvas.ZoomSettle())
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/cvc.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/cvc.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/log/cvc.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/log/cvc.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}
