package cli

import (
	"github.com/spf13/cobra"

	"github.com/contextlab/codectx/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	var indexName string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: "Runs a Model Context Protocol server over stdio so editors and agents\n" +
			"can index and search codebases as tools.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ret, err := buildRetriever(cfg)
			if err != nil {
				return err
			}

			if indexName != "" {
				if err := ret.LoadIndex(indexName); err != nil {
					_ = ret.Close()
					return err
				}
			}

			reg, err := openRegistry(cfg)
			if err != nil {
				_ = ret.Close()
				return err
			}
			defer func() { _ = reg.Close() }()

			return mcpserver.NewServer(ret, reg).Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&indexName, "index", "", "Index artifact name to preload")
	return cmd
}
