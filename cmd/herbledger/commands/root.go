// Package commands wires the herbledger CLI: batch lifecycle operations,
// sub-record appends, token issuance, and consumer verification over a
// store selected through environment variables.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"herbledger/internal/infra/recordstore/memory"
	"herbledger/internal/infra/recordstore/postgres"
	"herbledger/internal/infra/recordstore/sqlite"
	"herbledger/internal/ledger"
	"herbledger/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "herbledger",
	Short: "Herb batch traceability ledger",
	Long:  "herbledger tracks herb batches from harvest to delivery and verifies authenticity tokens against the ledger.",
}

// GetRootCmd returns the root command with all subcommands attached.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// InitLogger installs a tint handler as the process-wide slog default.
func InitLogger() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}),
	))
}

func init() {
	rootCmd.AddCommand(newRegisterCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newSummaryCommand())
	rootCmd.AddCommand(newRecordCommand())
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newBlobCommand())
}

// openService constructs the ledger service over the store named by
// HERBLEDGER_STORE (memory, sqlite, postgres; sqlite is the default). The
// returned closer flushes and releases the backing store.
func openService() (*ledger.Service, func() error, error) {
	backend := os.Getenv("HERBLEDGER_STORE")
	if backend == "" {
		backend = "sqlite"
	}
	var (
		store  domain.RecordStore
		closer = func() error { return nil }
	)
	switch backend {
	case "memory":
		store = memory.NewStore()
	case "sqlite":
		path := os.Getenv("HERBLEDGER_SQLITE_PATH")
		if path == "" {
			path = "herbledger.db"
		}
		s, err := sqlite.NewStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, closer = s, s.Close
	case "postgres":
		s, err := postgres.NewStore(os.Getenv("HERBLEDGER_POSTGRES_DSN"))
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		store, closer = s, s.Close
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}

	svc := ledger.NewService(store,
		ledger.WithEventSink(ledger.NewSlogSink(slog.Default())),
		ledger.WithMetrics(ledger.NewExpvarMetricsRecorder("herbledger")),
	)
	return svc, closer, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q, want RFC3339 or YYYY-MM-DD", value)
}
