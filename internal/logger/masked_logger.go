package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 敏感信息类型
const (
	APIKey   = "api_key"
	Password = "password"
	Token    = "token"
	Image    = "image"
)

// MaxImageLogLen 图片字段在日志中保留的最大长度
const MaxImageLogLen = 64

// MaskSensitiveInfo 对敏感信息进行打码
func MaskSensitiveInfo(info string, infoType string) string {
	if info == "" {
		return ""
	}

	switch infoType {
	case APIKey, Password, Token:
		if len(info) <= 8 {
			return "****"
		}
		// 保留前4位和后4位，中间用*替代
		return info[:4] + strings.Repeat("*", len(info)-8) + info[len(info)-4:]
	case Image:
		// base64 图片动辄几 MB，只保留开头
		if len(info) <= MaxImageLogLen {
			return info
		}
		return fmt.Sprintf("%s...(%d bytes)", info[:MaxImageLogLen], len(info))
	default:
		return info
	}
}

// NewMaskedLogger 创建一个会对敏感信息进行打码的日志记录器
func NewMaskedLogger(baseLogger *zap.Logger) *zap.Logger {
	return baseLogger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &maskedCore{Core: core}
	}))
}

type maskedCore struct {
	zapcore.Core
}

// With 保证子 logger 的字段同样经过打码
func (c *maskedCore) With(fields []zapcore.Field) zapcore.Core {
	return &maskedCore{Core: c.Core.With(maskFields(fields))}
}

func (c *maskedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *maskedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, maskFields(fields))
}

func maskFields(fields []zapcore.Field) []zapcore.Field {
	masked := fields
	copied := false
	for i, field := range fields {
		if field.Type != zapcore.StringType {
			continue
		}
		fieldType := getFieldType(field.Key)
		if fieldType == "" {
			continue
		}
		if !copied {
			masked = make([]zapcore.Field, len(fields))
			copy(masked, fields)
			copied = true
		}
		masked[i] = zap.String(field.Key, MaskSensitiveInfo(field.String, fieldType))
	}
	return masked
}

// getFieldType 根据字段名获取敏感信息类型，非敏感字段返回空串
func getFieldType(key string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "api_key") || strings.Contains(key, "apikey"):
		return APIKey
	case strings.Contains(key, "password") || strings.HasSuffix(key, "dsn"):
		return Password
	case strings.Contains(key, "token") || strings.Contains(key, "secret") || strings.Contains(key, "auth"):
		return Token
	case key == "image" || strings.HasSuffix(key, "_image") || strings.HasPrefix(key, "image_"):
		return Image
	}
	return ""
}
