package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		locale   string
		expected language.Tag
	}{
		{"en_US.UTF-8", language.English},
		{"zh_TW.UTF-8", language.TraditionalChinese},
		{"fr_FR", language.English}, // Fallback
		{"C", language.English},
		{"", language.English},
	}

	for _, tt := range tests {
		got := MatchLanguage(tt.locale)
		base, _ := got.Base()
		exp, _ := tt.expected.Base()
		assert.Equal(t, exp, base, "locale: %s", tt.locale)
	}
}

func TestNewCLIPrinter(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "en_US.UTF-8")

	p := NewCLIPrinter()
	assert.NotNil(t, p)
	assert.Equal(t, "UEs: 3", p.Sprintf("UEs: %d", 3))
}
