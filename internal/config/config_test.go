package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/zalando/go-keyring"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"ICalVersion", config.ICalVersion},
		{"ICalProdid", config.ICalProdid},
		{"KindBirthday", config.KindBirthday},
		{"KindHoliday", config.KindHoliday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

// TestDefaults_Sanity checks that default values make sense logically.
func TestDefaults_Sanity(t *testing.T) {
	assert.Equal(t, 2000, config.DefaultLeapYear, "Default leap year must be 2000 for consistency")
	assert.Equal(t, 30, config.DefaultWindowDays)
	assert.Equal(t, 7, config.MaxOffsetDays, "Identifier space covers offsets 0..7")
	for _, o := range config.DefaultOffsetsDays {
		assert.LessOrEqual(t, o, config.MaxOffsetDays)
		assert.GreaterOrEqual(t, o, 0)
	}
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Go-Remind/"), "UserAgent must start with AppName/")
}

func TestLoadSettings_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.SettingsFileName)

	s, err := config.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, s.ListenPort)
	assert.Equal(t, config.DefaultWindowDays, s.UpcomingWindowDays)
	assert.True(t, s.DefaultPolicy.Enabled)

	info, err := os.Stat(path)
	require.NoError(t, err, "defaults must be persisted on first run")
	assert.Equal(t, config.FilePermUserRW, info.Mode().Perm())
}

func TestLoadSettings_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFileName)
	content := `
language: de
listen_port: "70000"
upcoming_window_days: -3
default_policy:
  enabled: true
  offsets_days: [0, 3]
  hour: 42
  minute: 15
source:
  mode: carrier-pigeon
holidays:
  - name: New Year
    day: 1
    month: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), config.FilePermUserRW))

	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLanguage, s.Language, "unsupported language falls back")
	assert.Equal(t, config.DefaultPort, s.ListenPort, "out of range port is reset")
	assert.Equal(t, config.DefaultWindowDays, s.UpcomingWindowDays)
	assert.Equal(t, []int{0, 3}, s.DefaultPolicy.OffsetsDays)
	assert.Equal(t, config.DefaultRemHour, s.DefaultPolicy.Hour, "out of range hour is reset")
	assert.Equal(t, 15, s.DefaultPolicy.Minute)
	assert.Equal(t, config.SourceModeNone, s.Source.Mode)
	require.Len(t, s.Holidays, 1)
	assert.Equal(t, "New Year", s.Holidays[0].Name)
}

func TestLoadSettings_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFileName)
	require.NoError(t, config.SaveSettings(path, config.DefaultSettings()))

	t.Setenv(config.EnvListenPort, "19999")
	t.Setenv(config.EnvTimezone, "Europe/Paris")
	t.Setenv(config.EnvTelegramChatID, "12345")

	s, err := config.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "19999", s.ListenPort)
	assert.Equal(t, "Europe/Paris", s.Timezone)
	assert.Equal(t, int64(12345), s.Telegram.ChatID)
}

func TestLoadSettings_Errors(t *testing.T) {
	_, err := config.LoadSettings("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), config.SettingsFileName)
	require.NoError(t, os.WriteFile(path, []byte("language: [unclosed"), config.FilePermUserRW))
	_, err = config.LoadSettings(path)
	assert.ErrorContains(t, err, config.ErrSettingsParse)
}

func TestSettings_Location(t *testing.T) {
	s := config.DefaultSettings()
	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	s.Timezone = "Asia/Tokyo"
	loc, err = s.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	s.Timezone = "Mars/Olympus"
	_, err = s.Location()
	assert.ErrorContains(t, err, config.ErrTimezone)
}

func TestSecret_KeyringThenEnv(t *testing.T) {
	keyring.MockInit()

	t.Setenv(config.EnvTelegramToken, "from-env")
	assert.Equal(t, "from-env", config.Secret(config.KeyringTelegram, config.EnvTelegramToken))

	require.NoError(t, keyring.Set(config.KeyringService, config.KeyringTelegram, "from-keyring"))
	assert.Equal(t, "from-keyring", config.Secret(config.KeyringTelegram, config.EnvTelegramToken))
}
