package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nerdneilsfield/inkwash-card/internal/card"
	"github.com/nerdneilsfield/inkwash-card/internal/config"
	"github.com/nerdneilsfield/inkwash-card/internal/i18n"
	"github.com/nerdneilsfield/inkwash-card/internal/server"
	"github.com/nerdneilsfield/inkwash-card/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const purgeInterval = 10 * time.Minute

func newServeCmd(version string, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:          "serve [config]",
		Aliases:      []string{"start"},
		Short:        "Run the HTTP service",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := ""
			if len(args) == 1 {
				configFile = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configFile, version, buildTime)
		},
	}
}

func runServe(ctx context.Context, configFile string, version string, buildTime string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if verbose {
		config.PrintConfig(cfg)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	defer log.Sync()

	log.Info("Starting inkwash-card...", zap.String("version", version), zap.String("buildTime", buildTime))

	tr, err := i18n.NewManager(cfg.DefaultLanguage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize i18n manager: %w", err)
	}

	gw, err := newGateway(ctx, cfg, log)
	if err != nil {
		return err
	}

	store, closeStore, err := storage.Open(ctx, storageOptions(cfg), log.Named("storage"))
	if err != nil {
		return fmt.Errorf("failed to open card storage: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("Failed to close card storage", zap.Error(err))
		}
	}()
	cards := card.NewService(store, log.Named("card"))

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(gw, cards, tr, log, server.Options{
		BodyLimit:     int64(cfg.BodyLimitMB) << 20,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Listen)
	})
	if purger, ok := store.(storage.Purger); ok && cfg.Storage.CardTTL.Duration > 0 {
		interval := purgeInterval
		if cfg.Storage.CardTTL.Duration < interval {
			interval = cfg.Storage.CardTTL.Duration
		}
		g.Go(func() error {
			return storage.RunPurger(gctx, purger, interval, log.Named("purger"))
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
		return err
	}
	log.Info("Service stopped")
	return nil
}
