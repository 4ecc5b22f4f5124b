// Package cli implements the command-line interface for rtbench.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/logging"
	"github.com/eunmann/rtbench/pkg/membudget"
)

// EnvMemBudget overrides the memory budget when --mem-budget is not given.
const EnvMemBudget = config.EnvPrefix + "_MEM_BUDGET"

// configKeyAnnotation marks a flag with the config key it overrides.
const configKeyAnnotation = "rtbench_config_key"

const usage = "usage: rtbench <command> [options]\ncommands: run, primes, transfer, steps"

// Run executes the CLI with the given arguments. Ctrl-C cancels the
// running command.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Execute(ctx, args, os.Stdout, os.Stderr)
}

// Execute runs the command tree with explicit output streams.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app holds state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	v   *viper.Viper
	cfg config.Config

	configPath string
	debug      bool
	human      bool
	memBudget  string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, v: config.NewViper()}

	root := &cobra.Command{
		Use:           "rtbench",
		Short:         "Time CPU, memory, string, disk and network workloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return errors.New(usage)
		},
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (yaml, toml or json)")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&a.human, "human", false, "human-readable logs instead of JSON")
	pf.StringVar(&a.memBudget, "mem-budget", "", "memory budget for step footprints (e.g. 4GiB); default 50% of RAM")

	root.AddCommand(
		newRunCommand(a),
		newPrimesCommand(a),
		newTransferCommand(a),
		newStepsCommand(a),
	)
	return root
}

// setup configures logging, then loads the config with the running
// command's annotated flags layered on top.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logging.InitWithWriter(a.stderr, a.debug, a.human)
	logctx.SetDefaultLogger(logctx.NewConfiguredLogger(a.stderr, a.debug, a.human))

	if a.configPath != "" {
		if err := config.ReadFile(a.v, a.configPath); err != nil {
			return err
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[configKeyAnnotation]; len(keys) > 0 {
			bindErr = errors.Join(bindErr, a.v.BindPFlag(keys[0], f))
		}
	})
	if bindErr != nil {
		return fmt.Errorf("bind flags: %w", bindErr)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// bindFlag marks flag name as an override for config key.
func bindFlag(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// determineMemoryBudget resolves the budget from the flag value, then
// RTBENCH_MEM_BUDGET, then the mem_budget config key, then 50% of system
// RAM (8 GiB when undetectable).
func determineMemoryBudget(cliValue string, configValue config.ByteSize) (*membudget.Budget, error) {
	if cliValue != "" {
		n, err := membudget.ParseHumanSize(cliValue)
		if err != nil {
			return nil, fmt.Errorf("invalid --mem-budget %q: %w", cliValue, err)
		}
		return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceCLI}), nil
	}
	if env := os.Getenv(EnvMemBudget); env != "" {
		n, err := membudget.ParseHumanSize(env)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvMemBudget, env, err)
		}
		return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceEnv}), nil
	}
	if configValue > 0 {
		return membudget.New(membudget.Config{TotalBytes: uint64(configValue), Source: membudget.BudgetSourceConfig}), nil
	}
	return membudget.NewFromSystemRAM(), nil
}
