package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zecapture/graph/pkg/model"
)

var (
	inspectGraphUUID string
	inspectLimit     int
	inspectExport    bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Query the audit trail left by capture/instantiate/execute",
	Long: `inspect looks up a single graph's audit record by UUID, or lists the
most recently updated records. With --export, it also uploads the
listed records to object storage (requires storage.type: cos in the
loaded configuration).`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectGraphUUID, "uuid", "", "Look up a single graph by its audit UUID")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 10, "Number of recent records to list when --uuid is not given")
	inspectCmd.Flags().BoolVar(&inspectExport, "export", false, "Upload the listed records to object storage")
}

func runInspect(cmd *cobra.Command, args []string) error {
	env, err := newCLIEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	ctx := context.Background()

	if inspectGraphUUID != "" {
		rec, err := env.svc.Inspect(ctx, inspectGraphUUID)
		if err != nil {
			return fmt.Errorf("looking up graph %s: %w", inspectGraphUUID, err)
		}
		printAuditRecord(rec)
		return nil
	}

	records, err := env.svc.InspectRecent(ctx, inspectLimit)
	if err != nil {
		return fmt.Errorf("listing recent records: %w", err)
	}
	for _, rec := range records {
		printAuditRecord(rec)
	}

	if inspectExport {
		exported, err := env.svc.ExportRecent(ctx, inspectLimit)
		if err != nil {
			return fmt.Errorf("exporting audit records: %w", err)
		}
		logger.Info("exported %d audit record(s) to object storage", exported)
	}
	return nil
}

func printAuditRecord(rec *model.GraphAuditRecord) {
	logger.Info("graph %s: outcome=%s context=%d commands=%d subgraphs=%d fork_policy=%q duration=%dms",
		rec.GraphUUID, rec.Outcome, rec.ContextID, rec.CommandCount, rec.SubgraphCount, rec.ForkPolicy, rec.DurationMillis)
	if rec.ErrorMessage != "" {
		logger.Warn("graph %s error: %s", rec.GraphUUID, rec.ErrorMessage)
	}
}
