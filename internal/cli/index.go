package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/contextlab/codectx/internal/retriever"
)

func indexCmd() *cobra.Command {
	var (
		projectName string
		indexName   string
		noSave      bool
		extensions  []string
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a codebase for semantic search",
		Long: "Walks the codebase, extracts chunks, embeds them and builds the vector\n" +
			"index. With no path, the current or named registered project is indexed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			root := ""
			if len(args) == 1 {
				root = args[0]
			}

			if root == "" {
				reg, err := openRegistry(cfg)
				if err != nil {
					return err
				}
				defer func() { _ = reg.Close() }()

				p, err := resolveProject(cmd.Context(), reg, projectName)
				if err != nil {
					return err
				}
				root = p.Path
				if indexName == "" {
					indexName = p.IndexName
				}
			}

			ret, err := buildRetriever(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = ret.Close() }()

			stats, err := ret.IndexCodebase(cmd.Context(), root, retriever.IndexOptions{
				Name:       indexName,
				Save:       !noSave,
				Extensions: extensions,
			})
			if err != nil {
				return err
			}

			fmt.Printf("indexed %d chunks from %d files (dimension %d)\n",
				stats.Chunks, stats.FilesScanned, stats.Dimension)
			return nil
		},
	}

	addIndexFlags(cmd.Flags(), &projectName, &indexName, &noSave)
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "Only index these extensions (e.g. .go,.md)")
	return cmd
}

func addIndexFlags(fs *pflag.FlagSet, projectName, indexName *string, noSave *bool) {
	fs.StringVarP(projectName, "project", "p", "", "Registered project to index")
	fs.StringVar(indexName, "name", "", "Index artifact name")
	fs.BoolVar(noSave, "no-save", false, "Build in memory only, do not persist")
}
