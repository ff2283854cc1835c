package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/usecase/reconcile"
)

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products <file>",
		Short: "Push product master data",
		Long:  `Upsert the products listed under a top-level "products" key. Products are never deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req domain.SyncProductsRequest
			if err := loadFile(args[0], cmd.InOrStdin(), &req); err != nil {
				return err
			}
			for i := range req.Products {
				if verr := req.Products[i].Validate(); verr != nil {
					return fmt.Errorf("product #%d: %w", i, verr)
				}
			}

			resp, err := rootOpts.client().Do(http.MethodPost, "/api/v1/agent/sync/products", req)
			if err != nil {
				return err
			}
			var stats reconcile.Stats
			if err := json.Unmarshal(resp.Envelope.Data, &stats); err != nil {
				return fmt.Errorf("decode product stats: %w", err)
			}

			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "products: %d created, %d updated, %d unchanged\n",
				stats.Created, stats.Updated, stats.Unchanged)
			return err
		},
	}
}
