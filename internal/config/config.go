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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
}

type ServerConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`

	// AllowOrigins lists browser origins allowed cross-origin; empty means same-origin only.
	AllowOrigins []string `yaml:"allow_origins"`
}

// StorageConfig selects the CV store. Driver is "sqlite" or "postgres".
// The postgres password lives in the OS keychain, not here.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// CanvasConfig carries the canvas session geometry and zoom limits.
type CanvasConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	MinZoom      float64 `yaml:"min_zoom"`
	MaxZoom      float64 `yaml:"max_zoom"`
	ZoomStep     float64 `yaml:"zoom_step"`
	ZoomSettleMs int     `yaml:"zoom_settle_ms"`
	GridSize     float64 `yaml:"grid_size"`
	SnapToGrid   bool    `yaml:"snap_to_grid"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Server        ServerConfig  `yaml:"server"`
	Storage       StorageConfig `yaml:"storage"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Server:        ServerConfig{Enable: false, Addr: "127.0.0.1:8080"},
		Storage:       StorageConfig{Driver: "sqlite", Path: "cvcanvas.db"},
		Canvas: CanvasConfig{
			Width: 800, Height: 1000,
			MinZoom: 0.1, MaxZoom: 5, ZoomStep: 0.1, ZoomSettleMs: 100,
			GridSize: 20,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// ZoomSettle returns the zoom settle window as a duration.
func (c CanvasConfig) ZoomSettle() time.Duration {
	if c.ZoomSettleMs <= 0 {
		return time.Duration(Defaults().Canvas.ZoomSettleMs) * time.Millisecond
	}
	return time.Duration(c.ZoomSettleMs) * time.Millisecond
}

// Env var names used as overrides.
const (
	EnvServerAddr    = "CVC_SERVER_ADDR"
	EnvEnableServer  = "CVC_ENABLE_SERVER"
	EnvAllowOrigins  = "CVC_ALLOW_ORIGINS"
	EnvStorageDriver = "CVC_STORAGE_DRIVER"
	EnvStoragePath   = "CVC_STORAGE_PATH"
	EnvPostgresDSN   = "CVC_PG_DSN"
	EnvSnapToGrid    = "CVC_SNAP_TO_GRID"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "CVC_LOG_LEVEL"
	EnvLogFormat = "CVC_LOG_FORMAT"
	EnvLogSource = "CVC_LOG_SOURCE"
	EnvLogFile   = "CVC_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "CVCanvas"
	keyringSecret  = "storage_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SetTokenStore swaps the secret store and returns a func restoring the previous one.
func SetTokenStore(ts TokenStore) func() {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if v := strings.TrimSpace(os.Getenv("CVC_CONFIG")); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CVCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CVCanvas")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "cvcanvas")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "cvcanvas")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// The storage secret comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	secret, _ := tokenStore.Get(keyringService, keyringSecret)
	return cfg, secret, nil
}

// Save writes the user config YAML and persists the secret into OS keyring (if non-empty).
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		if err := tokenStore.Set(keyringService, keyringSecret, secret); err != nil {
			return err
		}
	}
	return nil
}

// ForgetSecret removes the stored storage password.
func ForgetSecret() error {
	err := tokenStore.Delete(keyringService, keyringSecret)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.Server.Enable = src.Server.Enable
	if strings.TrimSpace(src.Server.Addr) != "" {
		dst.Server.Addr = strings.TrimSpace(src.Server.Addr)
	}
	if len(src.Server.AllowOrigins) > 0 {
		dst.Server.AllowOrigins = append([]string(nil), src.Server.AllowOrigins...)
	}
	if d := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); d != "" {
		dst.Storage.Driver = d
	}
	if src.Storage.Path != "" {
		dst.Storage.Path = src.Storage.Path
	}
	if src.Storage.DSN != "" {
		dst.Storage.DSN = src.Storage.DSN
	}
	// canvas: zero means "keep default"
	c := src.Canvas
	if c.Width > 0 {
		dst.Canvas.Width = c.Width
	}
	if c.Height > 0 {
		dst.Canvas.Height = c.Height
	}
	if c.MinZoom > 0 {
		dst.Canvas.MinZoom = c.MinZoom
	}
	if c.MaxZoom > 0 {
		dst.Canvas.MaxZoom = c.MaxZoom
	}
	if c.ZoomStep > 0 {
		dst.Canvas.ZoomStep = c.ZoomStep
	}
	if c.ZoomSettleMs > 0 {
		dst.Canvas.ZoomSettleMs = c.ZoomSettleMs
	}
	if c.GridSize > 0 {
		dst.Canvas.GridSize = c.GridSize
	}
	dst.Canvas.SnapToGrid = c.SnapToGrid
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnableServer)); v != "" {
		cfg.Server.Enable = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAllowOrigins)); v != "" {
		cfg.Server.AllowOrigins = cfg.Server.AllowOrigins[:0:0]
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowOrigins = append(cfg.Server.AllowOrigins, o)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.DSN = v
		if os.Getenv(EnvStorageDriver) == "" {
			cfg.Storage.Driver = "postgres"
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapToGrid)); v != "" {
		cfg.Canvas.SnapToGrid = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"server.addr":          EnvServerAddr,
		"server.enable":        EnvEnableServer,
		"server.allow_origins": EnvAllowOrigins,
		"storage.driver":       EnvStorageDriver,
		"storage.path":         EnvStoragePath,
		"storage.dsn":          EnvPostgresDSN,
		"canvas.snap_to_grid":  EnvSnapToGrid,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

