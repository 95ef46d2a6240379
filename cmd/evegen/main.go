package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/backend/stream"
	"github.com/ravi-parthasarathy/evegen/pkg/backend/thread"
	"github.com/ravi-parthasarathy/evegen/pkg/config"
	"github.com/ravi-parthasarathy/evegen/pkg/engine"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code. Panics raised
// while building the generators are reported as internal errors rather
// than stack traces.
func run(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "error: internal error: %v\n", r)
			code = 2
		}
	}()
	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func rootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
		noColor   bool
	)

	root := &cobra.Command{
		Use:   "evegen",
		Short: "evegen: dataflow graph code generator",
		Long: `evegen turns a typed dataflow graph (DOT or HCL) into a Go program.

The stream target reduces the graph into pipelines, merges and copies and
emits combinator code over lazy streams. The thread target emits one
instance type per node, mailboxes between instances and a cooperative
scheduler that runs them on a fixed number of threads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if noColor {
				color.NoColor = true
			}
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	root.AddCommand(generateCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(reduceCmd())
	return root
}

// initLogger installs the default slog logger on stderr.
func initLogger(level, format string) error {
	logger, err := config.NewLogger(level, format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// backends lists every code generation target.
func backends() *backend.Registry {
	return backend.NewRegistry(stream.New(), thread.New())
}

// ─── generate ─────────────────────────────────────────────────────────────────

func generateCmd() *cobra.Command {
	var (
		configPath string
		target     string
		out        string
		pkg        string
		threads    int
		flatten    bool
		dryRun     bool
		check      bool
	)

	cmd := &cobra.Command{
		Use:   "generate <graph.dot|graph.hcl>",
		Short: "Generate Go code for a dataflow graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}

			// Flags override the file only when given explicitly.
			flags := cmd.Flags()
			if flags.Changed("target") {
				cfg.Target = target
			}
			if flags.Changed("out") {
				cfg.Output = out
			}
			if flags.Changed("package") {
				cfg.Package = pkg
			}
			if flags.Changed("threads") {
				cfg.Threads = threads
			}
			if flags.Changed("flatten") {
				cfg.Flatten = flatten
			}
			if configPath != "" && !flags.Changed("log-level") && !flags.Changed("log-format") {
				if err := initLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
					return fmt.Errorf("config %s: %w", configPath, err)
				}
			}

			valid, err := config.New(cfg)
			if err != nil {
				return err
			}

			g, err := graph.Load(args[0])
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}
			b, err := backends().Get(valid.Target)
			if err != nil {
				return err
			}
			eng, err := engine.NewEngine(g, b, valid)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}

			w := cmd.OutOrStdout()
			ctx := signalContext(cmd.Context())
			if dryRun {
				files, err := eng.Generate(ctx)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(w, "%s (%d bytes)\n", f.Name, len(f.Content))
				}
				return nil
			}
			files, err := eng.Execute(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s wrote %d files to %s\n", color.GreenString("OK:"), len(files), valid.Output)
			if check {
				if err := backend.Check(valid.Output); err != nil {
					return err
				}
				fmt.Fprintf(w, "%s %s type-checks\n", color.GreenString("OK:"), valid.Output)
			}
			return nil
		},
	}

	def := config.Default()
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (flags override its values)")
	cmd.Flags().StringVar(&target, "target", def.Target, "code generation target: "+strings.Join(backends().Names(), " or "))
	cmd.Flags().StringVar(&out, "out", def.Output, "output directory")
	cmd.Flags().StringVar(&pkg, "package", def.Package, "package name of the generated files")
	cmd.Flags().IntVar(&threads, "threads", def.Threads, "scheduler threads started by the generated main (thread target)")
	cmd.Flags().BoolVar(&flatten, "flatten", def.Flatten, "flatten composite nodes for targets that need a flat graph")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files that would be written without writing them")
	cmd.Flags().BoolVar(&check, "check", false, "type-check the written package (the output must sit inside a Go module)")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <graph.dot|graph.hcl>",
		Short: "Validate a graph without generating code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			w := cmd.OutOrStdout()
			problems := graph.Validate(g)
			if len(problems) == 0 {
				fmt.Fprintf(w, "%s graph %q is valid (%d nodes, %d edges)\n",
					color.GreenString("OK:"), g.Name, len(g.Nodes()), len(g.Edges()))
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), p.Error())
			}
			return fmt.Errorf("graph %q has %d problem(s)", g.Name, len(problems))
		},
	}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		select {
		case <-ch:
			fmt.Fprintln(os.Stderr, "\n[evegen] interrupted, cancelling generation")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
