package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/minerva-scrape/internal/app"
	"github.com/pfrederiksen/minerva-scrape/internal/config"
	"github.com/pfrederiksen/minerva-scrape/internal/extract"
	"github.com/pfrederiksen/minerva-scrape/internal/htmltext"
	"github.com/pfrederiksen/minerva-scrape/internal/logger"
	"github.com/pfrederiksen/minerva-scrape/internal/notifier"
	"github.com/pfrederiksen/minerva-scrape/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	// ExitPartial is returned with --strict when the record has unresolved
	// fields or no items. The record is still written.
	ExitPartial = 2
)

// Version is reported by --version.
var Version = "dev"

// ExitCodeError carries a non-zero exit code without an error message.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

type rootOptions struct {
	configFile string
	logLevel   string
	format     string
	verbose    bool
}

type scrapeOptions struct {
	mainURL     string
	output      string
	dataDir     string
	metricsFile string
	notify      string
	dryRun      bool
	strict      bool
}

type extractOptions struct {
	mainFile string
	sources  []string
	html     bool
	output   string
	save     bool
	strict   bool
}

type showOptions struct {
	output  string
	dataDir string
	history bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "minerva-scrape",
		Short: "Extract the active Minerva rotation from public pages",
		Long: `A CLI tool that scrapes the active Fallout 76 Minerva rotation.
Finds the event, its location and date range, and the plans on offer for the
active list, and writes them to a JSON file for display front-ends.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file (default $"+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose output and debug logging")

	cmd.AddCommand(newScrapeCmd(opts), newExtractCmd(opts), newShowCmd(opts))
	return cmd
}

func newScrapeCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the pages and write the record file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mainURL, "main-url", "", "Page announcing the active event")
	cmd.Flags().StringVar(&opts.output, "output", "", "Record file to write")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for the rotation history")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringVar(&opts.notify, "notify", "", "Announce new rotations: none, dryrun or twitter")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Extract and report without writing files")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit with code 2 when the record is partial")

	return cmd
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a record from local files",
		Long: `Extract a record from saved pages without network access.
Item sources are given as label=FILE and are tried in order before the main file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mainFile, "main", "", "Main page file (required)")
	cmd.Flags().StringArrayVar(&opts.sources, "source", nil, "Item source as label=FILE (repeatable)")
	cmd.Flags().BoolVar(&opts.html, "html", false, "Files are HTML and are reduced to text first")
	cmd.Flags().StringVar(&opts.output, "output", "", "Record file to write with --save")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Write the record file and history")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit with code 2 when the record is partial")

	_ = cmd.MarkFlagRequired("main")

	return cmd
}

func newShowCmd(root *rootOptions) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Record file to read")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the rotation history")
	cmd.Flags().BoolVar(&opts.history, "history", false, "Print every recorded rotation instead")

	return cmd
}

// setup loads the configuration, applies overrides and installs the logger.
func setup(cmd *cobra.Command, root *rootOptions, override func(*config.Config)) (*config.Config, OutputFormat, error) {
	format := OutputFormat(strings.ToLower(root.format))
	if format != FormatText && format != FormatJSON {
		return nil, "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", root.format)
	}

	cfg, err := config.Load(root.configFile)
	if err != nil {
		return nil, "", err
	}
	if override != nil {
		override(cfg)
	}
	if root.logLevel != "" {
		cfg.LogLevel = root.logLevel
	}
	if root.verbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	return cfg, format, nil
}

func runScrape(cmd *cobra.Command, root *rootOptions, opts *scrapeOptions) error {
	cfg, format, err := setup(cmd, root, func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("main-url") {
			cfg.MainURL = opts.mainURL
		}
		if flags.Changed("output") {
			cfg.Output = opts.output
		}
		if flags.Changed("data-dir") {
			cfg.DataDir = opts.dataDir
		}
		if flags.Changed("metrics-file") {
			cfg.MetricsFile = opts.metricsFile
		}
		if flags.Changed("notify") {
			cfg.Notify = opts.notify
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := notifier.New(ctx, cfg.Notify, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("initializing notifier: %w", err)
	}

	report, err := app.New(cfg, app.WithDryRun(opts.dryRun), app.WithNotifier(n)).Scrape(ctx)
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), report, format, root.verbose, opts.strict)
}

func runExtract(cmd *cobra.Command, root *rootOptions, opts *extractOptions) error {
	cfg, format, err := setup(cmd, root, func(cfg *config.Config) {
		if cmd.Flags().Changed("output") {
			cfg.Output = opts.output
		}
	})
	if err != nil {
		return err
	}

	mainText, err := readText(opts.mainFile, opts.html)
	if err != nil {
		return err
	}

	sources := make([]extract.Source, 0, len(opts.sources))
	for _, arg := range opts.sources {
		label, path, ok := strings.Cut(arg, "=")
		if !ok || label == "" || path == "" {
			return fmt.Errorf("invalid --source %q (want label=FILE)", arg)
		}
		sources = append(sources, extract.Source{Label: label, Load: fileLoader(path, opts.html)})
	}

	report, err := app.New(cfg, app.WithDryRun(!opts.save)).Extract(cmd.Context(), mainText, sources)
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), report, format, root.verbose, opts.strict)
}

func runShow(cmd *cobra.Command, root *rootOptions, opts *showOptions) error {
	cfg, format, err := setup(cmd, root, func(cfg *config.Config) {
		if cmd.Flags().Changed("output") {
			cfg.Output = opts.output
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = opts.dataDir
		}
	})
	if err != nil {
		return err
	}

	if opts.history {
		store, err := storage.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		records, err := store.History()
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
		return WriteHistory(cmd.OutOrStdout(), records, format)
	}

	rec, err := storage.LoadRecord(cfg.Output)
	if err != nil {
		return fmt.Errorf("loading record: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no record at %s", cfg.Output)
	}

	return WriteOutput(cmd.OutOrStdout(), &OutputResult{
		Record: rec,
		Output: cfg.Output,
	}, format, root.verbose)
}

func finish(w io.Writer, report *app.Report, format OutputFormat, verbose, strict bool) error {
	if err := WriteOutput(w, NewOutputResult(report, time.Now().UTC()), format, verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if strict && report.Partial() {
		return &ExitCodeError{Code: ExitPartial}
	}
	return nil
}

func readText(path string, isHTML bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if isHTML {
		return htmltext.FromHTML(f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func fileLoader(path string, isHTML bool) extract.Loader {
	return func(context.Context) (string, error) {
		return readText(path, isHTML)
	}
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var exitErr *ExitCodeError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// Execute runs the CLI
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
