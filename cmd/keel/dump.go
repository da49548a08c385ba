package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"keel/internal/dictlayout"
	"keel/internal/types"
)

var dumpTags bool

func init() {
	dumpCmd.Flags().BoolVar(&dumpTags, "tags", false, "show serialization tags instead of rendered descriptors")
}

var dumpCmd = &cobra.Command{
	Use:   "dump <blob>",
	Short: "Inspect a layout blob",
	Long:  "Dump prints every owner in a layout blob with its slot table, one slot per line.",
	Args:  cobra.ExactArgs(1),
	RunE:  dumpExecution,
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	colorMode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch colorMode {
	case "off":
		color.NoColor = true
	case "on":
		color.NoColor = false
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}

	blob, err := dictlayout.ReadBlobFile(args[0])
	if err != nil {
		return err
	}

	// Re-intern so descriptors render with structural names.
	in := types.NewInterner()
	reg := dictlayout.NewRegistry()
	if err := dictlayout.ApplyFixedLayouts(blob, in, reg); err != nil {
		return err
	}

	header := color.New(color.FgCyan, color.Bold)
	slotCol := color.New(color.FgYellow)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target: %s, owners: %d\n", blob.Target, len(blob.Owners))
	for _, ownerID := range sortedOwners(in, reg) {
		node, _ := reg.Get(ownerID)
		entries := node.Entries()
		header.Fprintf(out, "\n%s\n", in.OwnerKey(ownerID))
		width := tagWidth(entries, in)
		for slot, l := range entries {
			rendered := l.Format(in)
			if dumpTags {
				rendered = l.Kind.Tag()
			}
			fmt.Fprintf(out, "  %s  %s\n",
				slotCol.Sprintf("[%3d]", slot),
				runewidth.FillRight(rendered, width))
		}
	}
	return nil
}

func sortedOwners(in *types.Interner, reg *dictlayout.Registry) []types.OwnerID {
	owners := reg.Owners()
	sort.Slice(owners, func(i, j int) bool {
		return in.OwnerKey(owners[i]) < in.OwnerKey(owners[j])
	})
	return owners
}

func tagWidth(entries []dictlayout.Lookup, in *types.Interner) int {
	width := 0
	for _, l := range entries {
		rendered := l.Format(in)
		if dumpTags {
			rendered = l.Kind.Tag()
		}
		if w := runewidth.StringWidth(rendered); w > width {
			width = w
		}
	}
	return width
}
