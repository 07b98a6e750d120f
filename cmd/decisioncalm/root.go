package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rahul/decisioncalm/internal/inference"
	"github.com/rahul/decisioncalm/internal/observability"
	"github.com/rahul/decisioncalm/internal/render"
	"github.com/rahul/decisioncalm/pkg/config"
)

var (
	configPath string
	verbose    bool
)

// app is built once per invocation and shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *observability.Logger
	client *inference.Client
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "decisioncalm",
	Short: "Turn a stressful decision into a calm, structured brief",
	Long: `decisioncalm runs a decision through intake, clarification, a calming
step, option generation and a safety review, then prints a brief with 2-4
options, one calming action and a question to reflect on.`,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if current != nil {
			_ = current.logger.Sync()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, cancelling on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
		render.PrintBanner(cmd.ErrOrStderr())
	}

	logger, err := observability.NewLogger(observability.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		LLMLogPath: cfg.Logging.LLMLogPath,
	})
	if err != nil {
		return err
	}

	name, provider := cfg.GetDefaultProvider()
	if name == "" {
		return newCLIError(exitConfig, "no enabled provider; set OPENAI_API_KEY or add one to "+configPath, nil)
	}
	client, err := inference.NewOpenAI(provider, cfg.Retry, logger)
	if err != nil {
		return newCLIError(exitConfig, fmt.Sprintf("provider %s: %v", name, err), err)
	}
	logger.Zap().Debug("provider selected",
		zap.String("provider", name),
		zap.String("model", provider.Model),
		zap.String("embedding_model", provider.EmbeddingModel),
	)

	current = &app{cfg: cfg, logger: logger, client: client}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.SetErr(os.Stderr)
}
