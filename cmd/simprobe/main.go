package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/simprobe/simprobe/internal/config"
	"github.com/simprobe/simprobe/internal/doctor"
	"github.com/simprobe/simprobe/internal/logging"
	"github.com/simprobe/simprobe/internal/report"
	"github.com/simprobe/simprobe/internal/rpc"
	"github.com/simprobe/simprobe/internal/scenario"
	"github.com/simprobe/simprobe/internal/transport"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// errVerificationFailed signals a completed run with at least one
// non-passing scenario; it maps to exit status 1 without an error line.
var errVerificationFailed = errors.New("verification failed")

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout)
	if err == nil {
		return
	}
	if !errors.Is(err, errVerificationFailed) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New()
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", closeErr)
		}
	}()

	cmd := newRootCommand(cfg, logger.Logger, out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(cfg *config.Config, logger *log.Logger, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "simprobe",
		Short:         "Verification harness for the xcode-build-mcp server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenarios(cmd.Context(), cfg, logger, out)
		},
	}

	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.PersistentFlags().StringVar(&cfg.ServerPath, "server", cfg.ServerPath, "path to the MCP server binary")
	root.PersistentFlags().DurationVar(&cfg.ExchangeTimeout, "timeout", cfg.ExchangeTimeout, "deadline for one request/response exchange")

	root.AddCommand(
		newRunCommand(cfg, logger, out),
		newScenariosCommand(out),
		newDoctorCommand(cfg, out),
		newBugreportCommand(cfg, logger),
	)

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if logger == nil {
			return errors.New("logger is required")
		}
		if cfg == nil {
			return errors.New("config is required")
		}
		logger.With("command", cmd.Name()).Debug("command invocation")
		return nil
	}

	return root
}

func newRunCommand(cfg *config.Config, logger *log.Logger, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all verification scenarios against the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenarios(cmd.Context(), cfg, logger, out)
		},
	}
}

func newScenariosCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the fixed scenario order",
		RunE: func(_ *cobra.Command, _ []string) error {
			for i, sc := range scenario.Defaults() {
				fmt.Fprintf(out, "%d. %s\n", i+1, sc.Name)
			}
			return nil
		},
	}
}

func newDoctorCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks on the server binary",
		RunE: func(_ *cobra.Command, _ []string) error {
			checker, err := doctor.NewChecker(cfg.ServerPath)
			if err != nil {
				return err
			}
			rep := checker.Run()
			for _, check := range rep.Checks {
				mark := "✅"
				if !check.Passed {
					mark = "❌"
				}
				fmt.Fprintf(out, "%s %s: %s\n", mark, check.Name, check.Detail)
			}
			if !rep.Healthy() {
				return errVerificationFailed
			}
			return nil
		},
	}
}

func runScenarios(ctx context.Context, cfg *config.Config, logger *log.Logger, out io.Writer) error {
	client, err := transport.NewClient(transport.Config{
		ServerPath:       cfg.ServerPath,
		Timeout:          cfg.ExchangeTimeout,
		StderrLimitBytes: cfg.StderrLimitBytes,
	})
	if err != nil {
		return fmt.Errorf("configure transport: %w", err)
	}

	builder, err := rpc.NewBuilder(rpc.DefaultCorrelationID)
	if err != nil {
		return fmt.Errorf("configure request builder: %w", err)
	}

	aggregator, err := report.NewAggregator(out)
	if err != nil {
		return fmt.Errorf("configure report: %w", err)
	}

	runner, err := scenario.NewRunner(client, builder, scenario.Defaults(), aggregator, scenario.Config{
		Pause: cfg.ScenarioPause,
	})
	if err != nil {
		return fmt.Errorf("configure runner: %w", err)
	}

	aggregator.Start()
	verdicts := runner.Run(ctx)
	for _, verdict := range verdicts {
		logger.With(
			"scenario", verdict.Name,
			"status", verdict.Status,
			"detail", verdict.Detail,
		).Info("scenario finished")
	}

	aggregator.Summarize()
	if aggregator.ExitCode() != 0 {
		return errVerificationFailed
	}
	return nil
}
