package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, lang string) *Manager {
	t.Helper()
	m, err := NewManager(lang, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestNewManager_LoadsEmbeddedLocales(t *testing.T) {
	m := newTestManager(t, "zh")
	langs := m.GetAvailableLanguages()
	assert.Contains(t, langs, "zh")
	assert.Contains(t, langs, "en")
	assert.Equal(t, "zh", m.DefaultLanguage())
}

func TestNewManager_BadTag(t *testing.T) {
	_, err := NewManager("!!", zap.NewNop())
	assert.Error(t, err)
}

func TestT(t *testing.T) {
	m := newTestManager(t, "zh")

	assert.Equal(t, "请提供图片", m.T("zh", "error_missing_image"))
	assert.Equal(t, "请提供图片", m.T("", "error_missing_image"))
	assert.Equal(t, "Please provide an image", m.T("en", "error_missing_image"))
	assert.Equal(t, "生成失败: quota exceeded", m.T("zh", "error_generation_failed_reason", "Reason", "quota exceeded"))
	assert.Equal(t, "有一张来自 小明 的贺卡待签收", m.T("zh", "card_title_sender", map[string]interface{}{"Sender": "小明"}))

	// unknown language falls back to the default
	assert.Equal(t, "贺卡不存在", m.T("fr", "error_card_not_found"))
	// unknown key echoes the key
	assert.Equal(t, "no_such_key", m.T("zh", "no_such_key"))
}

func TestMatch(t *testing.T) {
	m := newTestManager(t, "zh")

	assert.Equal(t, "zh", m.Match(""))
	assert.Equal(t, "en", m.Match("en-US,en;q=0.9"))
	assert.Equal(t, "zh", m.Match("zh-CN,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", m.Match("fr-FR;q=0.9, en-GB;q=0.5"))
	assert.Equal(t, "zh", m.Match("de"))
	assert.Equal(t, "zh", m.Match(";;;garbage"))
}
