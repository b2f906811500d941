package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerdneilsfield/inkwash-card/internal/config"
	"github.com/nerdneilsfield/inkwash-card/internal/gateway"
	"github.com/nerdneilsfield/inkwash-card/internal/logger"
	"github.com/nerdneilsfield/inkwash-card/internal/storage"
	"github.com/nerdneilsfield/inkwash-card/internal/style"
	"go.uber.org/zap"
)

// loadConfig reads configFile, or starts from the defaults plus environment
// when it is empty, and validates the result.
func loadConfig(configFile string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile == "" {
		cfg = config.Default()
		cfg.ApplyEnvOverrides()
	} else {
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置失败: %w", err)
		}
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.LogConfig.Level
	if verbose {
		level = "debug"
	}
	return logger.InitLogger(level, cfg.LogConfig.Format, cfg.LogConfig.File)
}

func newStyleTable(cfg *config.Config) (*style.Table, error) {
	extra := make([]style.Template, 0, len(cfg.Styles.Extra))
	for _, s := range cfg.Styles.Extra {
		extra = append(extra, style.Template{ID: s.Name, Prompt: s.Prompt})
	}
	return style.NewTable(extra, cfg.Styles.Default)
}

// newGateway wires the configured model. A missing api key is not fatal:
// the gateway then answers every generation with ErrMisconfigured.
func newGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gateway.Gateway, error) {
	styles, err := newStyleTable(cfg)
	if err != nil {
		return nil, err
	}

	model, err := gateway.NewModel(ctx, gateway.ModelOptions{
		Backend:    cfg.Gemini.Backend,
		APIKey:     cfg.Gemini.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		APIVersion: cfg.Gemini.APIVersion,
		Model:      cfg.Gemini.Model,
		Timeout:    cfg.Gemini.Timeout.Duration,
	}, log.Named("model"))
	switch {
	case errors.Is(err, gateway.ErrMisconfigured):
		log.Warn("Gemini API key is not configured; generation requests will fail until GEMINI_API_KEY is set")
		model = nil
	case err != nil:
		return nil, fmt.Errorf("failed to create model client: %w", err)
	default:
		log.Info("Image model ready", zap.String("model", model.Name()), zap.Strings("styles", styles.IDs()))
	}

	return gateway.New(model, styles, log.Named("gateway")), nil
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Backend:       cfg.Storage.Backend,
		TTL:           cfg.Storage.CardTTL.Duration,
		MaxEntries:    cfg.Storage.MaxEntries,
		SQLitePath:    cfg.Storage.DBPath,
		RedisAddr:     cfg.Storage.Redis.Addr,
		RedisPassword: cfg.Storage.Redis.Password,
		RedisDB:       cfg.Storage.Redis.DB,
		MySQLDSN:      cfg.Storage.MySQLDSN,
	}
}
