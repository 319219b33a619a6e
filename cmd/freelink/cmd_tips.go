package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTipsCmd(g *globalFlags) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "tips",
		Short: "Show how to write freelinks with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, closeFn, err := g.newFilter(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Fprintln(cmd.OutOrStdout(), f.Tips(g.lang, long))
			return nil
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "List every enabled handler")
	return cmd
}

func newPluginsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List link handlers and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, closeFn, err := g.newFilter(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tENABLED\tDEFAULT\tINDICATOR\tTITLE")
			for _, h := range f.Handlers() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", h.ID, yesNo(h.Enabled), yesNo(h.Default), h.Indicator, h.Title)
			}
			return tw.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
