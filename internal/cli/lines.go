package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastygo/agentsync/usecase/agentsync"
)

// NewLinesCommand creates the lines command.
func NewLinesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lines <contract-uuid>",
		Short: "List the active lines of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := rootOpts.client().Do(http.MethodGet, "/api/v1/contracts/"+url.PathEscape(args[0])+"/lines", nil)
			if err != nil {
				return err
			}
			var lines []agentsync.ContractLineView
			if err := json.Unmarshal(resp.Envelope.Data, &lines); err != nil {
				return fmt.Errorf("decode contract lines: %w", err)
			}

			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(lines)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LINE\tPRODUCT\tNAME")
			for _, l := range lines {
				name, product := "", ""
				if l.Product != nil {
					name, product = l.Product.Name, l.Product.UUID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.UUID, product, name)
			}
			return tw.Flush()
		},
	}
}
