package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/freelink/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are shared by every subcommand. Empty values fall back to the
// environment.
type globalFlags struct {
	settings string
	content  string
	lang     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "freelink",
		Short: "Turn [[indicator:target|text]] markup into links",
		Long: "freelink expands freelinking markup in text and documents using the\n" +
			"handlers enabled in a filter settings file.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Init(logging.ParseLevel(g.logLevel), "text", cmd.ErrOrStderr())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&g.settings, "settings", "", "Filter settings YAML (default $FREELINK_SETTINGS, else all handlers)")
	f.StringVar(&g.content, "content", "", "Content fixture YAML (default $FREELINK_CONTENT, else pathstore when configured)")
	f.StringVar(&g.lang, "lang", "", "Language code for links (default $DEFAULT_LANGCODE)")
	f.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newFilterCmd(g))
	root.AddCommand(newTipsCmd(g))
	root.AddCommand(newPluginsCmd(g))
	root.AddCommand(newContentCmd())
	return root
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
