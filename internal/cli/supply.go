package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fastygo/agentsync/api/transport"
	"github.com/fastygo/agentsync/domain"
)

// NewSupplyCommand creates the supply command.
func NewSupplyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		req transport.SupplyRequest
		qty string
	)

	cmd := &cobra.Command{
		Use:   "supply",
		Short: "Report a supplied quantity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("invalid --qty %q: %w", qty, err)
			}
			req.Qty = q
			if _, err := req.ToReport(); err != nil {
				return err
			}

			resp, err := rootOpts.client().Do(http.MethodPost, "/api/v1/supplies", req)
			if err != nil {
				return err
			}
			var supply domain.ProductSupply
			if err := json.Unmarshal(resp.Envelope.Data, &supply); err != nil {
				return fmt.Errorf("decode supply: %w", err)
			}

			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(supply)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "supply %s recorded: %s on %s\n",
				supply.UUID, supply.Qty, supply.Day.Format(time.DateOnly))
			return err
		},
	}

	cmd.Flags().StringVar(&req.UUID, "uuid", "", "supply uuid (generated by the server when empty)")
	cmd.Flags().StringVar(&req.BPartnerUUID, "bpartner", "", "bpartner uuid")
	cmd.Flags().StringVar(&req.ProductUUID, "product", "", "product uuid")
	cmd.Flags().StringVar(&req.ContractLineUUID, "line", "", "contract line uuid")
	cmd.Flags().StringVar(&req.Day, "day", time.Now().Format(time.DateOnly), "supply day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&qty, "qty", "0", "supplied quantity")
	_ = cmd.MarkFlagRequired("bpartner")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}
