package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed all:locales
var localeFS embed.FS

// Manager 管理 i18n Bundle，并根据 Accept-Language 选择语言
type Manager struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	defaultCode     string
	Logger          *zap.Logger
	localizers      map[string]*i18n.Localizer // 按语言代码缓存
	availableLangs  map[string]string          // "en" -> "en"
	codes           []string                   // 与 matcher 的下标一一对应，默认语言排第一
	matcher         language.Matcher
}

// NewManager 创建一个新的 i18n 管理器
// defaultLang: 默认语言代码 (例如 "zh")
func NewManager(defaultLang string, logger *zap.Logger) (*Manager, error) {
	defaultLanguageTag, err := language.Parse(defaultLang)
	if err != nil {
		logger.Error("Failed to parse default language tag", zap.String("tag", defaultLang), zap.Error(err))
		return nil, fmt.Errorf("invalid default language tag '%s': %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(defaultLanguageTag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	m := &Manager{
		bundle:          bundle,
		defaultLanguage: defaultLanguageTag,
		defaultCode:     defaultLang,
		Logger:          logger.Named("i18n"),
		localizers:      make(map[string]*i18n.Localizer),
		availableLangs:  make(map[string]string),
	}

	if err := m.LoadTranslations(); err != nil {
		return nil, err
	}

	if _, ok := m.availableLangs[defaultLang]; !ok {
		base, _ := defaultLanguageTag.Base()
		m.availableLangs[defaultLang] = base.String()
		m.Logger.Warn("Default language was not found in locale files, added manually.", zap.String("lang", defaultLang))
	}
	for langCode := range m.availableLangs {
		m.localizers[langCode] = i18n.NewLocalizer(m.bundle, langCode, defaultLang)
	}
	m.buildMatcher()

	m.Logger.Info("i18n Manager initialized",
		zap.String("default_language", defaultLang),
		zap.Int("loaded_languages", len(m.availableLangs)),
	)
	return m, nil
}

func (m *Manager) LoadTranslations() error {
	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		m.Logger.Error("Failed to read embedded locales root directory", zap.Error(err))
		return fmt.Errorf("failed to read embedded locales directory: %w", err)
	}
	if len(files) == 0 {
		m.Logger.Warn("No locale files found in embedded locales directory")
		return errors.New("no locale files found")
	}

	loadedCount := 0
	for _, file := range files {
		fileName := file.Name()
		if file.IsDir() || filepath.Ext(fileName) != ".toml" {
			m.Logger.Debug("Skipping non-matching file in locales dir", zap.String("file", fileName))
			continue
		}

		if _, err := m.bundle.LoadMessageFileFS(localeFS, "locales/"+fileName); err != nil {
			m.Logger.Warn("Failed to load translation file from embedded FS", zap.String("file", fileName), zap.Error(err))
			continue
		}
		loadedCount++

		// active.en.toml 和 en.toml 都取最后一段作为语言代码
		parts := strings.Split(strings.TrimSuffix(fileName, ".toml"), ".")
		langCode := parts[len(parts)-1]

		langDisplayName := langCode
		if tag, parseErr := language.Parse(langCode); parseErr == nil {
			base, _ := tag.Base()
			langDisplayName = base.String()
		} else {
			m.Logger.Warn("Failed to parse language code from filename", zap.String("file", fileName), zap.String("extractedCode", langCode), zap.Error(parseErr))
		}
		m.availableLangs[langCode] = langDisplayName
		m.Logger.Debug("Registered available language", zap.String("code", langCode), zap.String("name", langDisplayName))
	}

	if loadedCount == 0 {
		m.Logger.Error("No *.toml translation files were loaded")
		return errors.New("no valid translation files loaded")
	}

	m.Logger.Debug("Finished loading translations", zap.Int("loaded_count", loadedCount), zap.Any("available_languages", m.availableLangs))
	return nil
}

func (m *Manager) buildMatcher() {
	codes := make([]string, 0, len(m.availableLangs))
	for code := range m.availableLangs {
		if code != m.defaultCode {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	m.codes = append([]string{m.defaultCode}, codes...)

	tags := make([]language.Tag, 0, len(m.codes))
	for _, code := range m.codes {
		tags = append(tags, language.Make(code))
	}
	m.matcher = language.NewMatcher(tags)
}

// Match 根据 Accept-Language 头返回最合适的已加载语言代码，
// 无法匹配时返回默认语言
func (m *Manager) Match(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return m.defaultCode
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return m.defaultCode
	}
	_, idx, confidence := m.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(m.codes) {
		return m.defaultCode
	}
	return m.codes[idx]
}

// T translates a message identified by key.
// args can contain:
// - An int: interpreted as PluralCount.
// - Key-value pairs (string, interface{}, ...): interpreted as TemplateData.
// - A map[string]interface{}: used as TemplateData directly.
func (m *Manager) T(lang string, key string, args ...interface{}) string {
	langCode := m.defaultCode
	if lang != "" {
		langCode = lang
	}

	localizer, ok := m.localizers[langCode]
	if !ok {
		m.Logger.Debug("No localizer found for language, using default", zap.String("requested_lang", langCode))
		localizer = m.localizers[m.defaultCode]
		if localizer == nil {
			return key
		}
	}

	localizeConfig := &i18n.LocalizeConfig{MessageID: key}

	templateData := make(map[string]interface{})
	var pluralCount *int

	i := 0
	for i < len(args) {
		switch v := args[i].(type) {
		case int:
			if pluralCount == nil {
				count := v
				pluralCount = &count
			}
			i++
		case string:
			if i+1 < len(args) {
				templateData[v] = args[i+1]
				i += 2
			} else {
				m.Logger.Warn("Odd number of arguments for TemplateData, skipping last string key", zap.String("key", key), zap.String("lastKey", v))
				i++
			}
		case map[string]interface{}:
			if len(templateData) == 0 {
				templateData = v
			}
			i++
		default:
			m.Logger.Warn("Unsupported argument type in T", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", args[i])))
			i++
		}
	}

	if len(templateData) > 0 {
		localizeConfig.TemplateData = templateData
	}
	if pluralCount != nil {
		localizeConfig.PluralCount = pluralCount
	}

	localized, err := localizer.Localize(localizeConfig)
	if err != nil {
		var notFound *i18n.MessageNotFoundErr
		if !errors.As(err, &notFound) {
			m.Logger.Error("Failed to localize message",
				zap.String("key", key),
				zap.String("lang", langCode),
				zap.Error(err),
			)
		}
		return key
	}
	return localized
}

// GetAvailableLanguages returns a copy of the language code to display name map.
func (m *Manager) GetAvailableLanguages() map[string]string {
	langs := make(map[string]string, len(m.availableLangs))
	for code, name := range m.availableLangs {
		langs[code] = name
	}
	return langs
}

func (m *Manager) GetLanguageName(code string) (string, bool) {
	name, ok := m.availableLangs[code]
	return name, ok
}

func (m *Manager) GetDefaultLanguageTag() language.Tag {
	return m.defaultLanguage
}

func (m *Manager) DefaultLanguage() string {
	return m.defaultCode
}
