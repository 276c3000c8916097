package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/contextlab/codectx/internal/config"
	"github.com/contextlab/codectx/internal/embedder"
	"github.com/contextlab/codectx/internal/project"
	"github.com/contextlab/codectx/internal/retriever"
)

// RootCmd builds the codectx command tree.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codectx",
		Short: "Semantic code search over local codebases",
		Long: "codectx extracts functions, classes and docs from a codebase, embeds them\n" +
			"and answers natural language queries against the resulting vector index.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(projectCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(queryCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(mcpCmd())

	return cmd
}

// loadConfig resolves configuration for a command invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRegistry opens the project registry configured for this run.
func openRegistry(cfg *config.Config) (*project.Registry, error) {
	reg, err := project.Open(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("open project registry: %w", err)
	}
	return reg, nil
}

// buildRetriever assembles the full pipeline from configuration.
func buildRetriever(cfg *config.Config) (*retriever.Retriever, error) {
	svc, err := embedder.NewService(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	return retriever.NewWith(cfg, svc)
}
