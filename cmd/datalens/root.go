package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for datalens.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datalens",
		Short: "Audit image datasets before training",
		Long: `datalens audits image classification datasets.

It scans an images directory, optionally reconciles it with a CSV label
manifest, and reports missing and orphan files, corrupted images, duplicate
groups, class imbalance and image hygiene problems.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
