package i18n

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadEmbedded(t *testing.T) {
	t.Helper()
	sub, err := fs.Sub(EmbeddedLocales, "locales")
	require.NoError(t, err)
	require.NoError(t, Load(sub))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "tr", DetectLanguage("tr-TR,tr;q=0.9,en-US;q=0.8"))
	assert.Equal(t, "en", DetectLanguage("de-DE,de;q=0.9"))
	assert.Equal(t, "en", DetectLanguage(""))
	assert.Equal(t, "en", DetectLanguage("fr, en;q=0.5"))
}

func TestLocalizer_DenialCopy(t *testing.T) {
	loadEmbedded(t)

	en := NewLocalizer("en")
	assert.Equal(t, "You are temporarily banned until 2025-01-08.",
		en.TWithParams("denied.banned_temporary", map[string]string{"until": "2025-01-08"}))
	assert.True(t, en.Has("denied.insufficient_trust"))

	tr := NewLocalizer("tr")
	assert.Equal(t, "Üye", tr.T("trust.level_1"))

	// unknown keys fall back to the key itself
	assert.Equal(t, "denied.nope", en.T("denied.nope"))
	assert.False(t, en.Has("denied.nope"))

	// unsupported language falls back to English
	assert.Equal(t, "en", NewLocalizer("xx").Lang())
}
