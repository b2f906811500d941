package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskSensitiveInfo(t *testing.T) {
	assert.Equal(t, "", MaskSensitiveInfo("", APIKey))
	assert.Equal(t, "****", MaskSensitiveInfo("short", APIKey))
	assert.Equal(t, "AIza*****wxyz", MaskSensitiveInfo("AIza12345wxyz", APIKey))
	assert.Equal(t, "plain", MaskSensitiveInfo("plain", "other"))

	img := "data:image/png;base64," + strings.Repeat("A", 1000)
	masked := MaskSensitiveInfo(img, Image)
	assert.True(t, strings.HasPrefix(masked, img[:MaxImageLogLen]))
	assert.Contains(t, masked, "(1022 bytes)")
	assert.Equal(t, "data:image/png;base64,AAAA", MaskSensitiveInfo("data:image/png;base64,AAAA", Image))
}

func TestGetFieldType(t *testing.T) {
	cases := map[string]string{
		"api_key":        APIKey,
		"geminiApiKey":   APIKey,
		"redis_password": Password,
		"mysql_dsn":      Password,
		"auth_header":    Token,
		"image":          Image,
		"result_image":   Image,
		"card_id":        "",
		"style":          "",
	}
	for key, want := range cases {
		assert.Equal(t, want, getFieldType(key), key)
	}
}

func TestMaskedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewMaskedLogger(zap.New(core))

	log.Info("calling model", zap.String("api_key", "AIzaSyDEADBEEF1234"), zap.String("style", "cute"))
	log.With(zap.String("image", "data:image/png;base64,"+strings.Repeat("B", 200))).Debug("request")

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "AIza**********1234", fields["api_key"])
	assert.Equal(t, "cute", fields["style"])

	img, ok := entries[1].ContextMap()["image"].(string)
	require.True(t, ok)
	assert.Less(t, len(img), 100)
}

func TestGetLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, GetLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, GetLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, GetLevel("verbose"))
}

func TestInitLogger_File(t *testing.T) {
	path := t.TempDir() + "/logs/inkcard.log"
	log, err := InitLogger("debug", "json", path)
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()
	assert.FileExists(t, path)
}
