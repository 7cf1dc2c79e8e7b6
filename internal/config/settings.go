package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// PolicySettings is the on-disk form of a reminder policy.
type PolicySettings struct {
	Enabled     bool  `yaml:"enabled"`
	OffsetsDays []int `yaml:"offsets_days"`
	Hour        int   `yaml:"hour"`
	Minute      int   `yaml:"minute"`
}

// HolidaySettings describes a yearly holiday declared in the settings file.
type HolidaySettings struct {
	// ID is optional; when empty a deterministic UUID is derived from the name.
	ID    string `yaml:"id,omitempty"`
	Name  string `yaml:"name"`
	Day   int    `yaml:"day"`
	Month int    `yaml:"month"`
}

// SourceSettings selects where birthday contacts come from.
type SourceSettings struct {
	Mode      string `yaml:"mode"` // SourceModeLocal, SourceModeWeb or SourceModeNone
	LocalPath string `yaml:"local_path,omitempty"`
	WebURL    string `yaml:"web_url,omitempty"`
	WebUser   string `yaml:"web_user,omitempty"`
}

// TelegramSettings enables delivery of fired reminders to a Telegram chat.
// The bot token is read from the keyring (or REMIND_TELEGRAM_TOKEN).
type TelegramSettings struct {
	ChatID int64 `yaml:"chat_id,omitempty"`
}

// Settings is the runtime configuration of the daemon.
type Settings struct {
	Language           string            `yaml:"language"`
	Timezone           string            `yaml:"timezone"`
	ListenPort         string            `yaml:"listen_port"`
	RefreshCron        string            `yaml:"refresh_cron"`
	UpcomingWindowDays int               `yaml:"upcoming_window_days"`
	DefaultPolicy      PolicySettings    `yaml:"default_policy"`
	PolicyFile         string            `yaml:"policy_file,omitempty"`
	DatabaseURL        string            `yaml:"database_url,omitempty"`
	Source             SourceSettings    `yaml:"source"`
	Holidays           []HolidaySettings `yaml:"holidays,omitempty"`
	Telegram           TelegramSettings  `yaml:"telegram,omitempty"`
	LogLevel           string            `yaml:"log_level,omitempty"`
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Language:           DefaultLanguage,
		Timezone:           DefaultTimezone,
		ListenPort:         DefaultPort,
		RefreshCron:        DefaultRefreshCron,
		UpcomingWindowDays: DefaultWindowDays,
		DefaultPolicy: PolicySettings{
			Enabled:     true,
			OffsetsDays: slices.Clone(DefaultOffsetsDays),
			Hour:        DefaultRemHour,
			Minute:      DefaultRemMinute,
		},
		Source: SourceSettings{Mode: SourceModeNone},
	}
}

// Normalize fills in missing or out-of-range values so that partially
// written settings files still behave.
func (s *Settings) Normalize() {
	if !slices.Contains(SupportedLanguages, s.Language) {
		s.Language = DefaultLanguage
	}
	if s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	if port, err := strconv.Atoi(s.ListenPort); err != nil || port < MinPort || port > MaxPort {
		s.ListenPort = DefaultPort
	}
	if s.RefreshCron == "" {
		s.RefreshCron = DefaultRefreshCron
	}
	if s.UpcomingWindowDays <= 0 {
		s.UpcomingWindowDays = DefaultWindowDays
	}
	if s.DefaultPolicy.OffsetsDays == nil {
		s.DefaultPolicy.OffsetsDays = slices.Clone(DefaultOffsetsDays)
	}
	if s.DefaultPolicy.Hour < 0 || s.DefaultPolicy.Hour > MaxHour {
		s.DefaultPolicy.Hour = DefaultRemHour
	}
	if s.DefaultPolicy.Minute < 0 || s.DefaultPolicy.Minute > MaxMinute {
		s.DefaultPolicy.Minute = DefaultRemMinute
	}
	switch s.Source.Mode {
	case SourceModeLocal, SourceModeWeb, SourceModeNone:
	default:
		s.Source.Mode = SourceModeNone
	}
	s.LogLevel = strings.ToLower(s.LogLevel)
}

// Location resolves the configured IANA timezone.
func (s *Settings) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", ErrTimezone, s.Timezone, err)
	}
	return loc, nil
}

// LoadSettings reads the YAML settings at path.
//
// When the file does not exist the defaults are written there first. Values
// from a .env file next to the working directory and from the process
// environment override the file.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New(ErrSettingsPath)
	}

	// Missing .env is the common case.
	_ = godotenv.Load(EnvFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ErrSettingsRead, err)
		}
		slog.Info(MsgSettingsNew,
			LogKeyComponent, CompSettings,
			LogKeyPath, path,
		)
		s := DefaultSettings()
		if err := SaveSettings(path, s); err != nil {
			return s, err
		}
		s.applyEnv()
		return s, nil
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsParse, err)
	}
	s.applyEnv()
	s.Normalize()
	return s, nil
}

// SaveSettings writes s to path atomically with owner-only permissions.
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		return errors.New(ErrSettingsPath)
	}
	if s == nil {
		return errors.New(ErrSettingsNil)
	}
	s.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrCreateDir, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsWrite, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsWrite, err)
	}
	// atomic.WriteFile keeps the mode of an existing file only.
	if err := os.Chmod(path, FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", ErrSettingsWrite, err)
	}
	return nil
}

// DefaultSettingsPath returns <UserConfigDir>/<AppID>/settings.yaml.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}
	return filepath.Join(dir, AppID, SettingsFileName), nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvTimezone); v != "" {
		s.Timezone = v
	}
	if v := os.Getenv(EnvListenPort); v != "" {
		s.ListenPort = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		s.DatabaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		var id int64
		if _, err := fmt.Sscan(v, &id); err == nil {
			s.Telegram.ChatID = id
		}
	}
}

// Secret looks up a credential in the OS keyring and falls back to the
// given environment variable. An empty string means "not configured".
func Secret(user, envKey string) string {
	if user != "" {
		v, err := keyring.Get(KeyringService, user)
		if err == nil {
			return v
		}
		slog.Debug(MsgSecretMissing,
			LogKeyComponent, CompSettings,
			LogKeyUser, user,
			LogKeyError, err,
		)
	}
	return os.Getenv(envKey)
}
