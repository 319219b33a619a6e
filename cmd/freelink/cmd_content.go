package main

import (
	"fmt"

	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/logging"
	"github.com/dgallion1/freelink/internal/pathstore"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type contentFlags struct {
	url     string
	apiKey  string
	prefix  string
	replace bool
}

func newContentCmd() *cobra.Command {
	var flags contentFlags
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Sync site content with pathstore",
	}
	f := cmd.PersistentFlags()
	f.StringVar(&flags.url, "pathstore-url", "", "Pathstore base URL (default $PATHSTORE_URL)")
	f.StringVar(&flags.apiKey, "pathstore-key", "", "Pathstore API key (default $PATHSTORE_API_KEY)")
	f.StringVar(&flags.prefix, "prefix", content.DefaultPrefix, "Key prefix content is stored under")

	push := &cobra.Command{
		Use:   "push <fixture.yaml>",
		Short: "Upload a content fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := content.LoadFixture(args[0])
			if err != nil {
				return err
			}
			ps, err := flags.client()
			if err != nil {
				return err
			}
			defer ps.Close()
			if err := content.Push(cmd.Context(), ps, flags.prefix, fx, flags.replace, logging.New("content")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %d nodes, %d users, %d files to %s\n",
				len(fx.Nodes), len(fx.Users), len(fx.Files), flags.prefix)
			return nil
		},
	}
	push.Flags().BoolVar(&flags.replace, "replace", false, "Delete existing content under the prefix first")

	pull := &cobra.Command{
		Use:   "pull",
		Short: "Print stored content as a fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := flags.client()
			if err != nil {
				return err
			}
			defer ps.Close()
			fx, err := content.Load(cmd.Context(), ps, flags.prefix)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(fx); err != nil {
				return fmt.Errorf("encode fixture: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(push, pull)
	return cmd
}

func (f contentFlags) client() (*pathstore.Client, error) {
	cfg := config.Load()
	url := firstNonEmpty(f.url, cfg.PathstoreURL)
	if url == "" {
		return nil, fmt.Errorf("pathstore URL is required (--pathstore-url or PATHSTORE_URL)")
	}
	return pathstore.NewClient(url, firstNonEmpty(f.apiKey, cfg.PathstoreAPIKey)), nil
}
