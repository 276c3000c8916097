package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contextlab/codectx/internal/api"
)

func serveCmd() *cobra.Command {
	var (
		indexName string
		noLoad    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ret, err := buildRetriever(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = ret.Close() }()

			if !noLoad {
				name := indexName
				if name == "" {
					name = cfg.Index.Name
				}
				// A missing index is fine; clients can index over HTTP.
				_ = ret.LoadIndex(name)
			}

			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return api.NewServer(ret, reg, cfg.API).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&indexName, "index", "", "Index artifact name to preload")
	cmd.Flags().BoolVar(&noLoad, "no-load", false, "Start without loading a persisted index")
	return cmd
}
