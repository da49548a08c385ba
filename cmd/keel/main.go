// Package main implements the keel CLI, the offline driver for generic
// dictionary layout: replaying discovery logs, finalizing slot tables, and
// inspecting layout blobs.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"keel/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "Generic-dictionary layout driver",
	Long:  `keel replays dictionary discovery logs, assigns stable slot tables, and inspects layout blobs`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
