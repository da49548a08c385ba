package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"keel/internal/version"
)

var versionJSON bool

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "emit machine-readable output")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show keel build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := strings.TrimSpace(version.Version)
		if v == "" {
			v = "dev"
		}
		commit := strings.TrimSpace(version.GitCommit)
		built := strings.TrimSpace(version.BuildDate)

		out := cmd.OutOrStdout()
		if versionJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Tool      string `json:"tool"`
				Version   string `json:"version"`
				GitCommit string `json:"git_commit,omitempty"`
				BuildDate string `json:"build_date,omitempty"`
			}{Tool: "keel", Version: v, GitCommit: commit, BuildDate: built})
		}

		fmt.Fprintf(out, "keel %s\n", v)
		if commit != "" {
			fmt.Fprintf(out, "commit: %s\n", commit)
		}
		if built != "" {
			fmt.Fprintf(out, "built:  %s\n", built)
		}
		return nil
	},
}
