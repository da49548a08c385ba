package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"keel/internal/driver"
	"keel/internal/pipeline"
	"keel/internal/project"
	"keel/internal/ui"
)

const timeResolution = time.Millisecond

var (
	replayUI      string
	replayVerbose bool
	replayJobs    int
)

func init() {
	replayCmd.Flags().StringVar(&replayUI, "ui", "auto", "progress UI (auto|on|off)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "log pipeline internals")
	replayCmd.Flags().IntVarP(&replayJobs, "jobs", "j", 0, "parallel discovery workers (0 = all CPUs)")
}

var replayCmd = &cobra.Command{
	Use:   "replay [flags] [path]",
	Short: "Replay a discovery log into finalized slot tables",
	Long: "Replay reads keel.toml, replays the recorded dictionary discovery log " +
		"through the dependency graph, finalizes every layout, and writes the layout blob.",
	Args: cobra.MaximumNArgs(1),
	RunE: replayExecution,
}

func replayExecution(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	manifestPath := dir
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		manifestPath = filepath.Join(dir, project.ManifestName)
	}
	manifest, err := project.Load(manifestPath)
	if err != nil {
		return err
	}
	if replayJobs > 0 {
		manifest.Jobs = replayJobs
	}

	showProgress, err := progressEnabled(replayUI)
	if err != nil {
		return err
	}

	opts := []driver.Option{}
	if replayVerbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
		opts = append(opts, driver.WithLogger(logger))
	}

	var res *driver.Result
	if showProgress {
		res, err = replayWithUI(cmd.Context(), manifest, opts)
	} else {
		s, serr := driver.NewSession(manifest, opts...)
		if serr != nil {
			return serr
		}
		res, err = s.Run(cmd.Context())
	}
	if err != nil {
		return err
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if !quiet {
		printReplaySummary(manifest, res)
	}
	return nil
}

// progressEnabled maps the --ui flag onto a yes/no decision. "auto" means
// draw the TUI only when stdout is a terminal.
func progressEnabled(mode string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", mode)
}

type replayOutcome struct {
	result *driver.Result
	err    error
}

func replayWithUI(ctx context.Context, manifest project.Manifest, opts []driver.Option) (*driver.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan replayOutcome, 1)

	go func() {
		sessOpts := append([]driver.Option{driver.WithSink(pipeline.ChannelSink{Ch: events})}, opts...)
		s, err := driver.NewSession(manifest, sessOpts...)
		if err != nil {
			outcomeCh <- replayOutcome{err: err}
			close(events)
			return
		}
		res, err := s.Run(ctx)
		outcomeCh <- replayOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(fmt.Sprintf("keel replay: %s", manifest.Name), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func printReplaySummary(manifest project.Manifest, res *driver.Result) {
	ok := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)

	ok.Printf("layouts finalized: %s\n", manifest.Name)
	fmt.Printf("  target:  %s\n", res.Target.Triple)
	fmt.Printf("  methods: %d marked\n", res.Marked)
	fmt.Printf("  owners:  %d dictionaries\n", res.Owners)
	if manifest.Out != "" {
		fmt.Printf("  blob:    %s\n", manifest.Out)
	}
	dim.Printf("  elapsed: %s\n", res.Timings.Total().Round(timeResolution))
}
