package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

type showOptions struct {
	Path     string
	Limit    int
	Category string
}

// NewShowCmd creates the "show" command.
func NewShowCmd() *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the ranked opportunity table",
		Example: "  radar show --limit 5\n" +
			"  radar show --category Kitchen -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showArtifact(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Path, "path", "p", "", "artifact path or s3://bucket/key (default: output.destination)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show at most n rows (0 shows all)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "show a single category")
	return cmd
}

func showArtifact(cmd *cobra.Command, opts *showOptions) error {
	if opts.Limit < 0 {
		return errors.NewValidation("--limit must be >= 0")
	}
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	path := cliCtx.Config.Output.Destination
	if opts.Path != "" {
		path = opts.Path
	}
	loc, err := storage.ParseLocation(path)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()

	comps := newComponents(cliCtx.Config, cliCtx.Logger)
	defer comps.Close()
	objects, err := comps.ObjectStore()
	if err != nil {
		return err
	}
	reader, err := storage.OpenArtifact(loc, objects)
	if err != nil {
		return err
	}
	rows, err := reader.Read(ctx)
	if err != nil {
		return err
	}

	if opts.Category != "" {
		row, ok := rows.Find(opts.Category)
		if !ok {
			return errors.New(errors.ErrCodeCategoryNotFound, "category not found").WithDetail(opts.Category)
		}
		rows = opportunity.Opportunities{row}
	}
	return PrintResult(cmd, rows.Top(opts.Limit))
}
