package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/freelink/internal/document"
	"github.com/spf13/cobra"
)

type filterFlags struct {
	html     bool
	document bool
	json     bool
}

func newFilterCmd(g *globalFlags) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "filter [file]",
		Short: "Expand freelinks in a file or stdin",
		Long: "Reads text from the given file, or stdin when absent, and writes it\n" +
			"with every [[...]] occurrence replaced by its link or error.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, g, flags, args)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.html, "html", false, "Treat input as HTML and skip links, code and preformatted text")
	f.BoolVar(&flags.document, "document", false, "Convert the file by extension (md, pdf, docx, ...) before filtering")
	f.BoolVar(&flags.json, "json", false, "Print occurrences and errors as JSON")
	cmd.MarkFlagsMutuallyExclusive("html", "document")
	return cmd
}

func runFilter(cmd *cobra.Command, g *globalFlags, flags filterFlags, args []string) error {
	ctx := cmd.Context()
	if flags.document && len(args) == 0 {
		return fmt.Errorf("--document needs a file argument")
	}

	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	f, closeFn, err := g.newFilter(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	switch {
	case flags.document:
		res, err := f.Document(ctx, bytes.NewReader(data), args[0], g.lang)
		if err != nil {
			return err
		}
		if flags.json {
			return writeJSON(out, res)
		}
		fmt.Fprint(out, res.HTML)
		return reportErrors(cmd, res.Errors)

	case flags.html:
		var errs []string
		html := document.Linkify(ctx, string(data), func(ctx context.Context, text string) string {
			res := f.HTML(ctx, text, g.lang, "cli")
			errs = append(errs, res.Errors...)
			return res.Text
		})
		if flags.json {
			return writeJSON(out, map[string]any{"text": html, "errors": errs})
		}
		fmt.Fprint(out, html)
		return reportErrors(cmd, errs)

	default:
		res := f.Text(ctx, string(data), g.lang, "cli")
		if flags.json {
			return writeJSON(out, res)
		}
		fmt.Fprint(out, res.Text)
		return reportErrors(cmd, res.Errors)
	}
}

// reportErrors lists freelink errors on stderr. They are already rendered
// inline, so they do not fail the command.
func reportErrors(cmd *cobra.Command, errs []string) error {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "freelink: %s\n", e)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
