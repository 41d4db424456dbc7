package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/moments/internal/poaps"
	"github.com/your-org/moments/pkg/compass"
)

func newPoapsCmd(build DepsFunc) *cobra.Command {
	var (
		input poaps.FetchInput
		desc  bool
	)

	cmd := &cobra.Command{
		Use:   "poaps",
		Short: "List POAPs minted for a drop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if desc {
				input.SortDir = compass.SortDesc
			}
			return runPoaps(cmd, build, input)
		},
	}

	cmd.Flags().Int64Var(&input.DropID, "drop-id", 0, "Drop to list")
	cmd.Flags().IntVar(&input.Limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&input.Offset, "offset", 0, "Page offset")
	cmd.Flags().StringVar(&input.CollectorAddress, "collector", "", "Only POAPs held by this address")
	cmd.Flags().StringVar(&input.Chain, "chain", "", "Only POAPs on this chain")
	cmd.Flags().StringVar(&input.SortField, "sort", "minted_on", "Sort field")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	_ = cmd.MarkFlagRequired("drop-id")

	return cmd
}

func runPoaps(cmd *cobra.Command, build DepsFunc, input poaps.FetchInput) error {
	deps, err := build()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	page, err := deps.Poaps.Fetch(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to list poaps: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOLLECTOR\tCHAIN\tMINTED\tTRANSFERS")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", p.ID, p.CollectorAddress, p.Chain, p.MintedOn.Format(time.RFC3339), p.TransferCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.NextCursor != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nMore results: --offset %d\n", *page.NextCursor)
	}
	return nil
}
