package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/usecase/agentsync"
	"github.com/fastygo/agentsync/usecase/reconcile"
)

type pushOptions struct {
	chunk  int
	dryRun bool
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &pushOptions{}

	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Push business partner snapshots",
		Long: `Push a batch of business partner snapshots, contracts and contract
lines included, to the server. The file holds a top-level "bpartners" list.
Each partner is reconciled on its own; the command prints one outcome per
partner and fails if any partner was not synced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.chunk, "chunk", 0, "send at most this many partners per request (0 sends all at once)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the snapshots locally without sending them")

	return cmd
}

func runPush(rootOpts *RootOptions, opts *pushOptions, path string, cmd *cobra.Command) error {
	var batch domain.SyncBPartnersRequest
	if err := loadFile(path, cmd.InOrStdin(), &batch); err != nil {
		return err
	}
	rootOpts.log.Debug("batch loaded", zap.String("file", path), zap.Int("bpartners", len(batch.BPartners)))

	if opts.dryRun {
		return dryRun(rootOpts, batch, cmd.OutOrStdout())
	}

	client := rootOpts.client()
	result := agentsync.BatchResult{}
	for _, chunk := range chunks(batch.BPartners, opts.chunk) {
		resp, err := client.Do(http.MethodPost, "/api/v1/agent/sync/bpartners", domain.SyncBPartnersRequest{BPartners: chunk})
		if err != nil {
			return err
		}
		var part agentsync.BatchResult
		if err := json.Unmarshal(resp.Envelope.Data, &part); err != nil {
			return fmt.Errorf("decode batch result: %w", err)
		}
		rootOpts.log.Debug("chunk pushed", zap.Int("bpartners", len(chunk)), zap.String("status", resp.Envelope.Status))
		result.BPartners = append(result.BPartners, part.BPartners...)
	}

	if err := printBatch(rootOpts.Format, cmd.OutOrStdout(), &result); err != nil {
		return err
	}
	if notSynced := len(result.BPartners) - result.Count(agentsync.StatusSynced); notSynced > 0 {
		return fmt.Errorf("%d of %d bpartners not synced", notSynced, len(result.BPartners))
	}
	return nil
}

func dryRun(rootOpts *RootOptions, batch domain.SyncBPartnersRequest, w io.Writer) error {
	result := agentsync.BatchResult{}
	for i := range batch.BPartners {
		snapshot := &batch.BPartners[i]
		res := agentsync.PartnerResult{PartnerUUID: snapshot.UUID, Status: agentsync.StatusSkipped}
		if verr := snapshot.Validate(); verr != nil {
			res.Status, res.Error = agentsync.StatusRejected, verr
		}
		result.BPartners = append(result.BPartners, res)
	}
	if err := printBatch(rootOpts.Format, w, &result); err != nil {
		return err
	}
	if rejected := result.Count(agentsync.StatusRejected); rejected > 0 {
		return fmt.Errorf("%d bpartners would be rejected", rejected)
	}
	return nil
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func printBatch(format string, w io.Writer, result *agentsync.BatchResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BPARTNER\tSTATUS\tCONTRACTS\tLINES\tDETAIL")
	for _, r := range result.BPartners {
		contracts, lines, detail := "-", "-", ""
		if r.Report != nil {
			contracts = summarize(r.Report.For(domain.KindContract))
			lines = summarize(r.Report.For(domain.KindContractLine))
			if n := len(r.Report.Rejected); n > 0 {
				detail = fmt.Sprintf("%d rejected, first: %s", n, r.Report.Rejected[0].Error())
			}
		}
		if r.Error != nil {
			detail = r.Error.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.PartnerUUID, r.Status, contracts, lines, detail)
	}
	return tw.Flush()
}

// summarize renders stats as created/updated/resurrected/tombstoned.
func summarize(s reconcile.Stats) string {
	return fmt.Sprintf("+%d ~%d ^%d -%d", s.Created, s.Updated, s.Resurrected, s.Tombstoned)
}
