package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/nerdneilsfield/inkwash-card/internal/datauri"
	"github.com/nerdneilsfield/inkwash-card/internal/gateway"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGenerateCmd() *cobra.Command {
	var (
		configFile string
		styleID    string
		output     string
	)
	cmd := &cobra.Command{
		Use:          "generate <photo>",
		Short:        "Turn a local photo into an ink wash painting without running the server",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runGenerate(ctx, cmd, configFile, args[0], styleID, output)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (defaults plus environment when empty)")
	cmd.Flags().StringVarP(&styleID, "style", "s", "", "style id, e.g. elegant or cute")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <photo>_inkwash.<ext>)")
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, configFile, photo, styleID, output string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	image, err := readPhoto(photo)
	if err != nil {
		return err
	}

	gw, err := newGateway(ctx, cfg, log)
	if err != nil {
		return err
	}

	result, err := gw.Generate(ctx, image, styleID)
	if err != nil {
		if errors.Is(err, gateway.ErrMisconfigured) {
			return fmt.Errorf("%w: set GEMINI_API_KEY or gemini.apiKey", err)
		}
		return err
	}

	switch r := result.(type) {
	case gateway.Success:
		mimeType, data, err := datauri.Decode(r.Image)
		if err != nil {
			return fmt.Errorf("model returned an unreadable image: %w", err)
		}
		if output == "" {
			output = defaultOutputPath(photo, mimeType)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		log.Debug("Wrote generated image", zap.String("path", output), zap.Int("bytes", len(data)))
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	case gateway.TextOnly:
		return fmt.Errorf("model returned no image: %s", r.Message)
	case gateway.Failure:
		return fmt.Errorf("generation failed (%s): %s", r.Kind, r.Reason)
	default:
		return fmt.Errorf("unexpected result %T", result)
	}
}

// readPhoto loads a png or jpeg file as a data URI.
func readPhoto(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mimeType := http.DetectContentType(data)
	switch mimeType {
	case "image/png", "image/jpeg":
	default:
		return "", fmt.Errorf("%s: unsupported image type %s, use png or jpeg", path, mimeType)
	}
	return datauri.EncodeBytes(mimeType, data), nil
}

func defaultOutputPath(photo, mimeType string) string {
	ext := ".png"
	switch mimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	base := strings.TrimSuffix(photo, filepath.Ext(photo))
	return base + "_inkwash" + ext
}
