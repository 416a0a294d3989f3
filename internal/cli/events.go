package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/storefront/internal/core/config"
	redisclient "github.com/vietddude/storefront/internal/infra/redis"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the pending notification event backlog",
	Run:   runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	rc, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rc.Close()
	}()

	depth, err := rc.QueueDepth(context.Background())
	if err != nil {
		slog.Error("Failed to read event queue", "error", err)
		os.Exit(1)
	}
	fmt.Printf("pending order events: %d\n", depth)
}
