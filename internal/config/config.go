/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"pagecomposer/internal/history"
	applog "pagecomposer/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	History       HistoryConfig `yaml:"history"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	// RegistryFile is an optional YAML file extending the builtin component registry.
	RegistryFile string `yaml:"registry_file"`
	// DocumentsDir holds one directory per document.
	DocumentsDir string `yaml:"documents_dir"`
	EnableServer bool   `yaml:"enable_server"`
}

type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
	MaxBytes   int `yaml:"max_bytes"`
	CoalesceMs int `yaml:"coalesce_ms"`
	// Persist mirrors each saved document into the index history table,
	// keeping the newest KeepLast rows.
	Persist  bool `yaml:"persist"`
	KeepLast int  `yaml:"keep_last"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	ListenAddr  string `yaml:"listen_addr"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{DocumentsDir: defaultDocumentsDir()},
		History:       HistoryConfig{MaxEntries: 200, MaxBytes: 16 << 20, KeepLast: 20},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", ListenAddr: ":8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile       = "PCE_CONFIG"
	EnvRegistryFile     = "PCE_REGISTRY_FILE"
	EnvDocumentsDir     = "PCE_DOCUMENTS_DIR"
	EnvEnableServer     = "PCE_ENABLE_SERVER"
	EnvHistoryMax       = "PCE_HISTORY_MAX_ENTRIES"
	EnvBackendURL       = "PCE_BACKEND_URL"
	EnvBackendListen    = "PCE_BACKEND_LISTEN"
	EnvBackendTimeoutMs = "PCE_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "PCE_TLS_INSECURE"
	EnvLogLevel         = "PCE_LOG_LEVEL"
	EnvLogFormat        = "PCE_LOG_FORMAT"
	EnvLogSource        = "PCE_LOG_SOURCE"
	EnvLogFile          = "PCE_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "PageComposer"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// configDir returns the per-user application directory.
func configDir() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "PageComposer")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageComposer")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pagecomposer")
		}
		return filepath.Join(os.Getenv("HOME"), ".config", "pagecomposer")
	}
}

func defaultDocumentsDir() string {
	return filepath.Join(configDir(), "documents")
}

// ConfigPath returns the per-user config file path; PCE_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	if runtime.GOOS != "windows" && os.Getenv("HOME") == "" && os.Getenv("XDG_CONFIG_HOME") == "" {
		return "", errors.New("cannot resolve config directory")
	}
	base := configDir()
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token from the keyring (returned separately, never kept in the struct).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applog.WithComponent("config").Warn("ignoring malformed config file", "path", path, "err", err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
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
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// DeleteToken removes the stored backend token.
func DeleteToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.RegistryFile); v != "" {
		dst.General.RegistryFile = v
	}
	if v := strings.TrimSpace(src.General.DocumentsDir); v != "" {
		dst.General.DocumentsDir = v
	}
	dst.General.EnableServer = src.General.EnableServer

	if src.History.MaxEntries != 0 {
		dst.History.MaxEntries = src.History.MaxEntries
	}
	if src.History.MaxBytes != 0 {
		dst.History.MaxBytes = src.History.MaxBytes
	}
	if src.History.CoalesceMs != 0 {
		dst.History.CoalesceMs = src.History.CoalesceMs
	}
	if src.History.KeepLast != 0 {
		dst.History.KeepLast = src.History.KeepLast
	}
	dst.History.Persist = src.History.Persist

	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.ListenAddr != "" {
		dst.Backend.ListenAddr = src.Backend.ListenAddr
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure

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
	if v := strings.TrimSpace(os.Getenv(EnvRegistryFile)); v != "" {
		cfg.General.RegistryFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDocumentsDir)); v != "" {
		cfg.General.DocumentsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnableServer)); v != "" {
		cfg.General.EnableServer = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryMax)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.MaxEntries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendListen)); v != "" {
		cfg.Backend.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = truthy(v)
	}
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

var envByKey = map[string]string{
	"general.registry_file": EnvRegistryFile,
	"general.documents_dir": EnvDocumentsDir,
	"general.enable_server": EnvEnableServer,
	"history.max_entries":   EnvHistoryMax,
	"backend.base_url":      EnvBackendURL,
	"backend.listen_addr":   EnvBackendListen,
	"backend.timeout_ms":    EnvBackendTimeoutMs,
	"backend.tls_insecure":  EnvBackendTLSInsec,
	"logging.level":         EnvLogLevel,
	"logging.format":        EnvLogFormat,
	"logging.source":        EnvLogSource,
	"logging.file":          EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// EffectiveTimeout returns the backend timeout, falling back to the default.
func (b BackendConfig) EffectiveTimeout() time.Duration {
	ms := b.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Backend.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Manager converts the history section into history manager caps.
func (h HistoryConfig) Manager() history.Config {
	return history.Config{
		MaxEntries:  h.MaxEntries,
		MaxBytes:    h.MaxBytes,
		MinInterval: time.Duration(h.CoalesceMs) * time.Millisecond,
	}
}

// Options converts the logging section into logger options.
func (l LoggingConfig) Options() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
