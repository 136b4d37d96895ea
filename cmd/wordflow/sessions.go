package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexward/wordflow/internal/engine"
	"github.com/lexward/wordflow/internal/oracle"
	"github.com/lexward/wordflow/internal/storage"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and control processing sessions",
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsStatusCmd())
	cmd.AddCommand(sessionsPauseCmd())
	cmd.AddCommand(sessionsCancelCmd())
	cmd.AddCommand(sessionsResetCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all processing sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			sessions, err := store.ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tCOST\tCREATED")
			for i := range sessions {
				s := &sessions[i]
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t$%.4f\t%s\n",
					s.ID, s.Status, s.ProcessedWords, s.TotalWords,
					s.EstimatedCost, s.CreatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func sessionsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show detailed status for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			recent, _ := cmd.Flags().GetInt("recent")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			eng := controlEngine(store)
			summary, err := eng.SessionStatus(ctx, args[0], recent)
			if err != nil {
				return err
			}

			s := summary.Session
			fmt.Printf("Session:     %s\n", s.ID)
			fmt.Printf("Status:      %s\n", s.Status)
			fmt.Printf("Progress:    %d/%d words (chunk %d/%d)\n",
				s.ProcessedWords, s.TotalWords, s.CurrentChunk, s.TotalChunks)
			fmt.Printf("Success:     %.0f%% (%d ok, %d failed)\n",
				summary.SuccessRate*100, s.SuccessfulWords, s.FailedWords)
			fmt.Printf("Cost:        $%.4f (%d tokens)\n", s.EstimatedCost, s.TotalTokensUsed)
			if summary.Duration > 0 {
				fmt.Printf("Duration:    %s\n", summary.Duration.Round(time.Second))
			}
			if s.Error != nil {
				fmt.Printf("Error:       %s\n", *s.Error)
			}

			if len(summary.RecentResults) > 0 {
				fmt.Println("\nRecent results:")
				for _, r := range summary.RecentResults {
					outcome := "ok"
					if !r.Success {
						outcome = "failed"
					}
					fmt.Printf("  %-20s %s\n", r.OriginalWord, outcome)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("recent", 10, "Number of recent results to show")
	return cmd
}

func sessionsPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <session-id>",
		Short: "Pause a running session",
		Args:  cobra.ExactArgs(1),
		RunE:  controlRunE("paused", (*engine.Engine).Pause),
	}
}

func sessionsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a session permanently",
		Long: `Mark a session as failed at the user's request. Accumulated results are
kept but the session can no longer be resumed.`,
		Args: cobra.ExactArgs(1),
		RunE: controlRunE("cancelled", (*engine.Engine).Cancel),
	}
}

func sessionsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <session-id>",
		Short: "Reset a session to pending, discarding its results",
		Args:  cobra.ExactArgs(1),
		RunE:  controlRunE("reset", (*engine.Engine).Reset),
	}
}

// controlEngine builds an engine for control operations, which never reach
// the oracle.
func controlEngine(store *storage.SQLiteStorage) *engine.Engine {
	return engine.New(store, oracle.NewMockClient())
}

// controlRunE adapts a session control method into a cobra RunE.
func controlRunE(verb string, op func(*engine.Engine, context.Context, string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer closeStorage(store)

		if err := op(controlEngine(store), ctx, args[0]); err != nil {
			return err
		}
		slog.Info("Session "+verb, "session_id", args[0])
		return nil
	}
}
