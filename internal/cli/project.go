package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/contextlab/codectx/internal/project"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage registered projects",
	}
	cmd.AddCommand(projectSetCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectRemoveCmd())
	cmd.AddCommand(projectCurrentCmd())
	return cmd
}

func projectSetCmd() *cobra.Command {
	var indexName string

	cmd := &cobra.Command{
		Use:   "set <name> <path>",
		Short: "Register a project or update its path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			p, err := reg.Set(cmd.Context(), args[0], args[1], indexName)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s -> %s (index %s)\n", p.Name, p.Path, p.IndexName)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexName, "index-name", "", "Index artifact name (defaults to the project name)")
	return cmd
}

func projectListCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			projects, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(projects)
			}

			current := currentName(cmd.Context(), reg)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH\tINDEX\t")
			for _, p := range projects {
				marker := ""
				if p.Name == current {
					marker = " *"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t\n", p.Name, marker, p.Path, p.IndexName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "output", false, "Emit JSON instead of a table")
	return cmd
}

func projectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a registered project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			if err := reg.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

func projectCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current [name]",
		Short: "Show or set the current project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			if len(args) == 1 {
				if err := reg.SetCurrent(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("current project is now %s\n", args[0])
				return nil
			}

			p, err := reg.Current(cmd.Context())
			if errors.Is(err, project.ErrNoCurrent) {
				fmt.Println("no current project set")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s -> %s (index %s)\n", p.Name, p.Path, p.IndexName)
			return nil
		},
	}
}

// resolveProject returns the named project, or the current one when name is
// empty.
func resolveProject(ctx context.Context, reg *project.Registry, name string) (*project.Project, error) {
	if name != "" {
		return reg.Get(ctx, name)
	}
	p, err := reg.Current(ctx)
	if errors.Is(err, project.ErrNoCurrent) {
		return nil, fmt.Errorf("no path given and no current project set; run 'codectx project set' first")
	}
	return p, err
}

func currentName(ctx context.Context, reg *project.Registry) string {
	p, err := reg.Current(ctx)
	if err != nil {
		return ""
	}
	return p.Name
}
