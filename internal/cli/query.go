package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/contextlab/codectx/internal/config"
	"github.com/contextlab/codectx/internal/project"
)

func queryCmd() *cobra.Command {
	var (
		projectName string
		indexName   string
		topK        int
		threshold   float64
		outputJSON  bool
		raw         bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Query an indexed codebase",
		Long: "Loads the persisted index for the current or named project and returns\n" +
			"the chunks most similar to the query text.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			name, err := resolveIndexName(cmd, cfg, projectName, indexName)
			if err != nil {
				return err
			}

			ret, err := buildRetriever(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = ret.Close() }()

			if err := ret.LoadIndex(name); err != nil {
				return err
			}

			var th *float64
			if cmd.Flags().Changed("threshold") {
				th = &threshold
			}

			if raw || outputJSON {
				results, err := ret.RawQuery(cmd.Context(), args[0], topK)
				if err != nil {
					return err
				}
				if th != nil {
					kept := results[:0]
					for _, r := range results {
						if r.Score >= *th {
							kept = append(kept, r)
						}
					}
					results = kept
				}
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			rendered, results, err := ret.Query(cmd.Context(), args[0], topK, th)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			fmt.Print(rendered)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectName, "project", "p", "", "Registered project to query")
	cmd.Flags().StringVar(&indexName, "index", "", "Index artifact name to load")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (0 uses the configured default)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum similarity score")
	cmd.Flags().BoolVar(&outputJSON, "output", false, "Emit JSON instead of formatted text")
	cmd.Flags().BoolVar(&raw, "raw", false, "Skip threshold filtering and formatting")

	return cmd
}

// resolveIndexName picks the index to load: explicit flag, then the named or
// current project's index, then the configured default.
func resolveIndexName(cmd *cobra.Command, cfg *config.Config, projectName, indexName string) (string, error) {
	if indexName != "" {
		return indexName, nil
	}

	reg, err := openRegistry(cfg)
	if err != nil {
		return "", err
	}
	defer func() { _ = reg.Close() }()

	if projectName != "" {
		p, err := reg.Get(cmd.Context(), projectName)
		if err != nil {
			return "", err
		}
		return p.IndexName, nil
	}

	p, err := reg.Current(cmd.Context())
	if errors.Is(err, project.ErrNoCurrent) {
		return cfg.Index.Name, nil
	}
	if err != nil {
		return "", err
	}
	return p.IndexName, nil
}
