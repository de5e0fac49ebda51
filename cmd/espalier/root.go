package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "espalier",
	Short:         "Espalier evaluates declarative computations against configuration",
	Long:          `Espalier compiles a YAML graph of nodes and evaluates, validates or explains them against layered configuration files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("graph", "g", "espalier.yaml", "Graph document to load")
	flags.StringArrayP("config", "c", nil, "Configuration file, may be repeated; later files win")
	flags.StringArray("set", nil, "Configuration override PATH=VALUE, may be repeated")
	flags.String("cache", cli.CacheMemory, "Cache backend: memory, file, redis or none")
	flags.String("cache-dir", ".espalier/cache", "Directory for the file cache")
	flags.String("redis-url", "redis://localhost:6379/0", "Redis URL for the redis cache")
	flags.Duration("cache-ttl", 0, "Expiration of redis cache entries (0 keeps them)")
	flags.Int("max-attempts", 0, "Evaluations tried when cache entries keep being invalidated (-1 for unlimited)")
	flags.Bool("enforce-types", false, "Check values of nodes declaring a type")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", string(logging.FormatText), "Log format: text or json")
	flags.StringP("output", "o", cli.OutputJSON, "Output format: json or yaml")
}

func options(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	opts := cli.Options{Encrypt: os.Getenv(cli.EncryptionKeyEnv)}
	opts.GraphPath, _ = flags.GetString("graph")
	opts.ConfigFiles, _ = flags.GetStringArray("config")
	opts.Sets, _ = flags.GetStringArray("set")
	opts.Cache, _ = flags.GetString("cache")
	opts.CacheDir, _ = flags.GetString("cache-dir")
	opts.RedisURL, _ = flags.GetString("redis-url")
	opts.CacheTTL, _ = flags.GetDuration("cache-ttl")
	opts.MaxAttempts, _ = flags.GetInt("max-attempts")
	opts.Enforce, _ = flags.GetBool("enforce-types")
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.LogFormat, _ = flags.GetString("log-format")
	return opts
}

func newLogger(opts cli.Options) (*slog.Logger, error) {
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level, logging.Format(opts.LogFormat)), nil
}

// session is what every command starts from.
type session struct {
	opts   cli.Options
	logger *slog.Logger
	engine *espalier.Engine
	stack  *cli.Stack
}

func (s *session) Close() {
	if err := s.stack.Close(); err != nil {
		s.logger.Warn("closing cache store", "error", err)
	}
}

func openSession(cmd *cobra.Command, reg prometheus.Registerer) (*session, error) {
	opts := options(cmd)
	logger, err := newLogger(opts)
	if err != nil {
		return nil, err
	}
	fs := afero.NewOsFs()
	stack, err := cli.BuildStore(fs, opts, reg, logger)
	if err != nil {
		return nil, err
	}
	engine, err := cli.NewEngine(fs, opts, stack, logger)
	if err != nil {
		stack.Close()
		return nil, err
	}
	return &session{opts: opts, logger: logger, engine: engine, stack: stack}, nil
}

func printResult(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return cli.Print(cmd.OutOrStdout(), format, v)
}

func nodeArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
