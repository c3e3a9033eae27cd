// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/afml/afml/internal/config"
	"github.com/afml/afml/internal/issue"
	"github.com/afml/afml/pkg/project"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App holds the state shared by all commands of one invocation.
	App struct {
		stdout io.Writer
		stderr io.Writer
		now    func() time.Time

		verbose     bool
		configPath  string
		projectPath string
		config      *config.Loaded
	}
)

// NewApp returns an App writing to the given streams.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{stdout: stdout, stderr: stderr, now: time.Now}
}

// Execute runs the CLI with os.Args and exits.
func Execute() {
	app := NewApp(os.Stdout, os.Stderr)
	os.Exit(app.Run(context.Background(), os.Args[1:]))
}

// Run executes args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	err := fang.Execute(ctx, root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(a.handleError),
	)
	return exitCode(err)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "afml",
		Short: "Run declarative ML pipelines",
		Long: `afml runs the jobs of a project file: every job for every combination
of the project matrix, every step as its own process, with parameters
formatted from the surrounding scope.

Examples:
  afml run                     Run every job of ./project.yml
  afml run -j train --dry-run  Show what the train job would run
  afml list                    List datasets, models and jobs
  afml config show             Show the effective configuration`,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging and timings")
	flags.StringVarP(&a.projectPath, "project", "p", project.DefaultFile, "project file (YAML or CUE)")
	flags.StringVar(&a.configPath, "config", "", "config file (default is <user config dir>/afml/config.cue, then ./afml.cue)")

	root.AddCommand(
		a.runCommand(),
		a.validateCommand(),
		a.listCommand(),
		a.contextCommand(),
		a.configCommand(),
	)
	return root
}

// setup loads the configuration and installs the logger.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	installLogger(a.stderr, a.verbose)
	loaded, err := config.Load(cmd.Context(), config.LoadOptions{File: a.configPath})
	if err != nil {
		return err
	}
	a.config = loaded
	if loaded.UI.Verbose && !a.verbose {
		a.verbose = true
		installLogger(a.stderr, true)
	}
	return nil
}

func (a *App) handleError(w io.Writer, _ fang.Styles, err error) { a.printError(w, err) }

// printError prints err and, when it links a help page, the rendered page.
func (a *App) printError(w io.Writer, err error) {
	st := newStyles(w, a.colorScheme())

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, st.Error.Render("Error: ")+ae.Format(a.verbose))
	} else {
		fmt.Fprintln(w, st.Error.Render("Error: ")+err.Error())
	}

	if page := issue.IssueOf(err); page != nil {
		out, rerr := page.Render(a.glamourStyle())
		if rerr == nil {
			fmt.Fprint(w, out)
		}
	}
}

func (a *App) colorScheme() string {
	if a.config == nil {
		return string(config.ColorSchemeAuto)
	}
	return string(a.config.UI.ColorScheme)
}

// glamourStyle picks a glamour style for the error stream.
func (a *App) glamourStyle() string {
	if !isTerminal(a.stderr) {
		return "notty"
	}
	switch scheme := a.colorScheme(); scheme {
	case "dark", "light":
		return scheme
	default:
		return "auto"
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}
