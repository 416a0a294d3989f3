package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current order pipeline status",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_cents), 0)
		 FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		slog.Error("Failed to query orders", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tORDERS\tTOTAL")
	for rows.Next() {
		var status string
		var count int
		var totalCents int64
		if err := rows.Scan(&status, &count, &totalCents); err != nil {
			slog.Error("Failed to scan row", "error", err)
			os.Exit(1)
		}
		fmt.Fprintf(w, "%s\t%d\t$%.2f\n", status, count, float64(totalCents)/100)
	}
	w.Flush()
}
