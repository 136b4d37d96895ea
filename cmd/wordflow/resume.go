package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Resume a paused or failed session",
		Long: `Continue processing a session from its last completed chunk. Work that
already produced results is not repeated.`,
		Args: cobra.ExactArgs(1),
		RunE: runResume,
	}
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sessionID := args[0]

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.CanResume() {
		return fmt.Errorf("session %s is %s and cannot be resumed", sessionID, session.Status)
	}

	client, err := createOracleClient()
	if err != nil {
		return err
	}
	defer closeOracle(client)
	eng := createEngine(store, client)

	slog.Info("Resuming session",
		"session_id", sessionID,
		"processed", session.ProcessedWords,
		"total", session.TotalWords)

	return runSession(ctx, eng, sessionID)
}
