package i18n_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
	"github.com/tartampluch/go-remind/internal/i18n"
)

// Compile-time check that the translator satisfies the engine interface.
var _ engine.Localizer = (*i18n.Translator)(nil)

func requiredKeys() []string {
	keys := []string{
		config.TKeySectionToday,
		config.TKeySectionUpcoming,
		config.TKeySectionUndated,
		config.TKeySectionMonth,
		config.TKeySectionMonthYr,
		config.TKeyRemTitleBirthday,
		config.TKeyRemTitleHoliday,
		config.TKeyRemTodayBirthday,
		config.TKeyRemTodayAge,
		config.TKeyRemTodayHoliday,
		config.TKeyRemSoonBirthday,
		config.TKeyRemSoonAge,
		config.TKeyRemSoonHoliday,
		config.TKeyEvtSummary,
		config.TKeyEvtSummaryAge,
		config.TKeyEvtSummaryBirth,
		config.TKeyEvtSummaryHolid,
		config.TKeyFormatDayMonth,
	}
	for m := 1; m <= 12; m++ {
		keys = append(keys, config.TKeyMonthPrefix+strconv.Itoa(m))
	}
	return keys
}

// TestI18nIntegrity ensures that every translation key defined in config.go
// exists in every locale JSON file.
func TestI18nIntegrity(t *testing.T) {
	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join("locales", "active."+lang+".json"))
			require.NoError(t, err, "Must load locale file")

			var jsonMap map[string]any
			require.NoError(t, json.Unmarshal(content, &jsonMap), "JSON must be valid")

			for _, key := range requiredKeys() {
				_, exists := jsonMap[key]
				assert.Truef(t, exists, "Key '%s' defined in config.go is missing in active.%s.json", key, lang)
			}
		})
	}
}

func TestTranslator_Languages(t *testing.T) {
	tr := i18n.New("fr")
	assert.Equal(t, []string{"en", "fr"}, tr.Languages())
	assert.Equal(t, "fr", tr.Language())

	tr.SetLanguage("tlh")
	assert.Equal(t, config.DefaultLanguage, tr.Language(), "unknown languages fall back")
}

func TestTranslator_Message(t *testing.T) {
	tr := i18n.New("en")

	msg, ok := tr.Message(config.TKeyRemTodayAge, map[string]any{"Name": "Anna", "Age": 35}, nil)
	require.True(t, ok)
	assert.Equal(t, "Anna turns 35 today!", msg)

	_, ok = tr.Message("does_not_exist", nil, nil)
	assert.False(t, ok)
	assert.Equal(t, "does_not_exist", tr.Msg("does_not_exist"))
}

func TestTranslator_Plurals(t *testing.T) {
	tr := i18n.New("en")
	data := map[string]any{"Name": "Anna", "Count": 1, "Date": "June 11"}

	msg, ok := tr.Message(config.TKeyRemSoonBirthday, data, 1)
	require.True(t, ok)
	assert.Equal(t, "Anna's birthday is tomorrow, on June 11.", msg)

	data["Count"] = 7
	data["Date"] = "June 17"
	msg, ok = tr.Message(config.TKeyRemSoonBirthday, data, 7)
	require.True(t, ok)
	assert.Equal(t, "Anna's birthday is in 7 days, on June 17.", msg)
}

func TestTranslator_FrenchDatesAndTitles(t *testing.T) {
	tr := i18n.New("fr")
	ref := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "12 juin", engine.FormatDayMonth(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), tr))
	assert.Equal(t, "Aujourd'hui", engine.SectionTitle(engine.Section[engine.Entity]{Kind: engine.SectionToday}, ref, tr))
	assert.Equal(t, "janvier 2026", engine.SectionTitle(engine.Section[engine.Entity]{
		Kind: engine.SectionMonth, Month: time.January, Year: 2026,
	}, ref, tr))
}
