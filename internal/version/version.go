package version

import "github.com/fatih/color"

// Build metadata for the keel CLI. All three values can be overridden at
// link time via -ldflags.
var (
	// Version is the semantic version of the tool.
	Version = paint("0", color.FgCyan) + "." + paint("1", color.FgGreen) + "." + paint("0", color.FgMagenta) + "-dev"

	// GitCommit is the commit hash the binary was built from, when recorded.
	GitCommit = ""

	// BuildDate is an ISO-8601 build timestamp, when recorded.
	BuildDate = ""
)

func paint(s string, attr color.Attribute) string {
	return color.New(attr, color.Bold).Sprint(s)
}
