package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen          string        `toml:"listen" yaml:"listen"`
	PublicBaseURL   string        `toml:"publicBaseURL" yaml:"publicBaseURL"`
	DefaultLanguage string        `toml:"defaultLanguage" yaml:"defaultLanguage"`
	BodyLimitMB     int           `toml:"bodyLimitMB" yaml:"bodyLimitMB"`
	LogConfig       LogConfig     `toml:"logConfig" yaml:"logConfig"`
	Gemini          GeminiConfig  `toml:"gemini" yaml:"gemini"`
	Styles          StylesConfig  `toml:"styles" yaml:"styles"`
	Storage         StorageConfig `toml:"storage" yaml:"storage"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file" yaml:"file"`
}

type GeminiConfig struct {
	APIKey     string   `toml:"apiKey" yaml:"apiKey"`
	Backend    string   `toml:"backend" yaml:"backend"` // "rest" 或 "sdk"
	BaseURL    string   `toml:"baseURL" yaml:"baseURL"`
	APIVersion string   `toml:"apiVersion" yaml:"apiVersion"`
	Model      string   `toml:"model" yaml:"model"`
	Timeout    Duration `toml:"timeout" yaml:"timeout"`
}

type StylesConfig struct {
	Default string        `toml:"default" yaml:"default"`
	Extra   []StyleConfig `toml:"extra" yaml:"extra"`
}

type StyleConfig struct {
	Name   string `toml:"name" yaml:"name"`
	Prompt string `toml:"prompt" yaml:"prompt"`
}

type StorageConfig struct {
	Backend    string      `toml:"backend" yaml:"backend"` // memory, sqlite, redis, mysql
	CardTTL    Duration    `toml:"cardTTL" yaml:"cardTTL"`
	MaxEntries int         `toml:"maxEntries" yaml:"maxEntries"`
	DBPath     string      `toml:"dbPath" yaml:"dbPath"`
	Redis      RedisConfig `toml:"redis" yaml:"redis"`
	MySQLDSN   string      `toml:"mysqlDSN" yaml:"mysqlDSN"`
}

type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
}

// Duration accepts "90s" / "2h" strings in both TOML and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration that runs locally with the in-memory store.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		DefaultLanguage: "zh",
		BodyLimitMB:     20,
		LogConfig: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Gemini: GeminiConfig{
			Backend: "rest",
			Model:   "gemini-2.0-flash-exp",
			Timeout: Duration{120 * time.Second},
		},
		Storage: StorageConfig{
			Backend:    "memory",
			MaxEntries: 10000,
			DBPath:     "./cards.db",
		},
	}
}

// LoadConfig reads a TOML file (or YAML for .yaml/.yml) over the defaults,
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides lets deployments inject secrets without a config file.
// Environment values win over file values.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if listen := os.Getenv("INKCARD_LISTEN"); listen != "" {
		c.Listen = listen
	}
	if addr := os.Getenv("INKCARD_REDIS_ADDR"); addr != "" {
		c.Storage.Redis.Addr = addr
	}
	if dsn := os.Getenv("INKCARD_MYSQL_DSN"); dsn != "" {
		c.Storage.MySQLDSN = dsn
	}
	if backend := os.Getenv("INKCARD_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Listen = ":" + port
		}
	}
}

func ValidateURL(urlString string) bool {
	if urlString == "" {
		return false
	}
	u, err := url.Parse(urlString)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func MaskedPrint(str string) string {
	if str == "" {
		return "<empty>"
	}
	if len(str) <= 4 {
		return strings.Repeat("*", len(str))
	}
	// only show the last 4 characters
	return strings.Repeat("*", len(str)-4) + str[len(str)-4:]
}

func PrintConfig(cfg *Config) {
	fmt.Println()
	fmt.Println("--------------------------------")
	fmt.Println("Config:")
	fmt.Printf("\tListen: %s\n", cfg.Listen)
	fmt.Printf("\tPublicBaseURL: %s\n", cfg.PublicBaseURL)
	fmt.Printf("\tDefaultLanguage: %s\n", cfg.DefaultLanguage)
	fmt.Printf("\tBodyLimitMB: %d\n", cfg.BodyLimitMB)
	fmt.Printf("\tLogConfig: %v\n", cfg.LogConfig)
	fmt.Printf("\tGemini.APIKey: %s\n", MaskedPrint(cfg.Gemini.APIKey))
	fmt.Printf("\tGemini.Backend: %s\n", cfg.Gemini.Backend)
	fmt.Printf("\tGemini.Model: %s\n", cfg.Gemini.Model)
	fmt.Printf("\tGemini.Timeout: %s\n", cfg.Gemini.Timeout.Duration)
	fmt.Printf("\tStyles.Default: %s (+%d extra)\n", cfg.Styles.Default, len(cfg.Styles.Extra))
	fmt.Printf("\tStorage.Backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("\tStorage.CardTTL: %s\n", cfg.Storage.CardTTL.Duration)
	fmt.Printf("\tStorage.Redis.Password: %s\n", MaskedPrint(cfg.Storage.Redis.Password))
	fmt.Println("--------------------------------")
	fmt.Println()
}

func ValidateConfig(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if cfg.PublicBaseURL != "" && !ValidateURL(cfg.PublicBaseURL) {
		return fmt.Errorf("publicBaseURL must be a valid URL")
	}
	if cfg.DefaultLanguage == "" {
		return fmt.Errorf("defaultLanguage is required")
	}
	if cfg.BodyLimitMB <= 0 {
		return fmt.Errorf("bodyLimitMB must be greater than 0")
	}
	if cfg.LogConfig.Level == "" {
		return fmt.Errorf("logLevel is required")
	}
	if cfg.LogConfig.Format == "" {
		return fmt.Errorf("logFormat is required")
	}
	if cfg.Gemini.Backend != "rest" && cfg.Gemini.Backend != "sdk" {
		return fmt.Errorf("gemini.backend must be one of: rest, sdk")
	}
	if cfg.Gemini.BaseURL != "" && !ValidateURL(cfg.Gemini.BaseURL) {
		return fmt.Errorf("gemini.baseURL must be a valid URL")
	}
	if cfg.Gemini.Timeout.Duration < 0 {
		return fmt.Errorf("gemini.timeout must not be negative")
	}
	for _, s := range cfg.Styles.Extra {
		if s.Name == "" || strings.TrimSpace(s.Prompt) == "" {
			return fmt.Errorf("styles.extra entries need a name and a prompt")
		}
	}
	if cfg.Storage.CardTTL.Duration < 0 {
		return fmt.Errorf("storage.cardTTL must not be negative")
	}
	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.DBPath == "" {
			return fmt.Errorf("storage.dbPath is required for the sqlite backend")
		}
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case "mysql":
		if cfg.Storage.MySQLDSN == "" {
			return fmt.Errorf("storage.mysqlDSN is required for the mysql backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: memory, sqlite, redis, mysql")
	}
	// apiKey 可以为空：服务照常启动，生成接口返回"未配置"
	return nil
}
