// File: internal/browser/stealth/stealth_test.go
package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvasionsScriptEmbedded(t *testing.T) {
	require.NotEmpty(t, evasionsScript, "evasions.js must be embedded")
	assert.Contains(t, evasionsScript, "webdriver")
	assert.Contains(t, evasionsScript, "plugins")
}

func TestDefaultPersona(t *testing.T) {
	assert.Equal(t, "ko-KR", DefaultPersona.Locale)
	assert.Equal(t, "Asia/Seoul", DefaultPersona.Timezone)
	assert.True(t, strings.Contains(DefaultPersona.UserAgent, "Chrome/"))
	assert.NotContains(t, strings.ToLower(DefaultPersona.UserAgent), "headless")
}

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		want      string
	}{
		{"empty falls back", nil, "en-US,en;q=0.9"},
		{"single language", []string{"ko-KR"}, "ko-KR"},
		{"weighted pair", []string{"ko-KR", "ko"}, "ko-KR,ko;q=0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Persona{Languages: tt.languages}
			assert.Equal(t, tt.want, p.AcceptLanguage())
		})
	}
}

func TestApplyProducesTaskList(t *testing.T) {
	tasks := Apply(DefaultPersona, zap.NewNop())
	// UA override, script injection, timezone, locale, headers.
	assert.Len(t, tasks, 5)
}
