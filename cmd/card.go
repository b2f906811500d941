package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nerdneilsfield/inkwash-card/internal/datauri"
	"github.com/nerdneilsfield/inkwash-card/pkg/inkcard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cardClientFlags struct {
	server   string
	localDir string
	lang     string
}

func (f *cardClientFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.server, "server", "http://localhost:8080", "service base URL")
	cmd.PersistentFlags().StringVar(&f.localDir, "local-dir", defaultLocalDir(), "directory for locally kept cards")
	cmd.PersistentFlags().StringVar(&f.lang, "lang", "", "Accept-Language sent to the service")
}

func (f *cardClientFlags) client() (*inkcard.Client, error) {
	opts := []inkcard.Option{}
	if f.localDir != "" {
		local, err := inkcard.NewDirLocalStore(f.localDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, inkcard.WithLocalStore(local))
	}
	if f.lang != "" {
		opts = append(opts, inkcard.WithLanguage(f.lang))
	}
	if verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			opts = append(opts, inkcard.WithLogger(log))
		}
	}
	return inkcard.New(f.server, opts...), nil
}

func defaultLocalDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "inkwash-card", "cards")
}

func newCardCmd() *cobra.Command {
	flags := &cardClientFlags{}
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Save and fetch greeting cards through a running service",
	}
	flags.register(cmd)
	cmd.AddCommand(newCardSaveCmd(flags), newCardGetCmd(flags))
	return cmd
}

func newCardSaveCmd(flags *cardClientFlags) *cobra.Command {
	var (
		in         inkcard.CardInput
		hideSender bool
	)
	cmd := &cobra.Command{
		Use:          "save <image>",
		Short:        "Save a generated image as a card and print its share link",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mimeType, err := imageMIMEType(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			in.Image = datauri.EncodeBytes(mimeType, data)
			if cmd.Flags().Changed("hide-sender") {
				show := !hideSender
				in.ShowSender = &show
			}

			client, err := flags.client()
			if err != nil {
				return err
			}
			res, err := client.SaveCard(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Local {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server save failed (%v); card kept locally only\n", res.ServerErr)
			}
			fmt.Fprintf(out, "id: %s\n", res.ID)
			fmt.Fprintf(out, "url: %s\n", client.ShareURL(res.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Recipient, "recipient", "", "recipient name")
	cmd.Flags().StringVar(&in.Sender, "sender", "", "sender name")
	cmd.Flags().StringVar(&in.Greeting, "greeting", "", "greeting text")
	cmd.Flags().StringVar(&in.Template, "template", "", "card template id")
	cmd.Flags().BoolVar(&hideSender, "hide-sender", false, "do not show the sender name")
	return cmd
}

func newCardGetCmd(flags *cardClientFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "get <id>",
		Short:        "Fetch a card, falling back to the local copy",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			loaded, err := client.LoadCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"title": loaded.Title,
				"local": loaded.Local,
				"card":  loaded.Card,
			})
		},
	}
}

func imageMIMEType(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if !datauri.IsImage("data:" + mimeType + ";base64,") {
		return "", fmt.Errorf("not an image (%s)", mimeType)
	}
	return mimeType, nil
}
