package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sonirico/libevents"
	"github.com/sonirico/libevents/internal/topology"
)

type options struct {
	configPath string
	inputPath  string
	logLevel   string
	rollback   bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "emitterctl",
		Short:         "Build emitter topologies and replay events through them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Topology file (.yaml, .toml or .json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults to the topology's log_level, then info)")
	_ = root.MarkPersistentFlagRequired("config")

	validateCmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check a topology file",
		Example: "  emitterctl validate -c topology.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := topology.Load(opts.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "ok: %d emitters, %d trackers\n", len(cfg.Emitters), len(cfg.Trackers))
			return nil
		},
	}

	replayCmd := &cobra.Command{
		Use:     "replay",
		Short:   "Emit events read line by line as \"<emitter> <event> [json-arg]\"",
		Example: "  emitterctl replay -c topology.yaml -i events.txt\n  cat events.txt | emitterctl replay -c topology.yaml --rollback",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, stdin, stdout, stderr)
		},
	}
	replayCmd.Flags().StringVarP(&opts.inputPath, "input", "i", "-", "Events file, - for stdin")
	replayCmd.Flags().BoolVar(&opts.rollback, "rollback", false, "Roll back recording trackers before exiting")

	root.AddCommand(validateCmd, replayCmd)
	return root
}

func runReplay(cmd *cobra.Command, opts *options, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := topology.Load(opts.configPath)
	if err != nil {
		return err
	}

	level := opts.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger, err := newLogger(level, stderr)
	if err != nil {
		return err
	}

	topo, err := topology.Build(cfg, logger, stdout)
	if err != nil {
		return err
	}

	input := stdin
	if opts.inputPath != "-" {
		f, err := os.Open(opts.inputPath)
		if err != nil {
			return errors.Wrap(err, "cannot open events")
		}
		defer f.Close()
		input = f
	}

	n, err := topology.Replay(cmd.Context(), topo, input)
	logger.Infof("replayed %d events", n)
	if err != nil {
		return err
	}

	if opts.rollback {
		released := topo.Rollback()
		names := make([]string, 0, len(released))
		for name := range released {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(stdout, "rolled back tracker=%s subscriptions=%d\n", name, released[name])
		}
	}

	return nil
}

func newLogger(level string, w io.Writer) (libevents.Logger, error) {
	if level == "" {
		level = "info"
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return libevents.NewZerologLogger(zl), nil
}
