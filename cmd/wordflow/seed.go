package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed reference languages and categories",
		Long: `Populate the languages and categories tables with the default
reference data. Existing rows are left untouched, so seeding an
already-populated database is a no-op.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	if err := store.SeedReferenceData(ctx); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	languages, err := store.GetLanguages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list languages: %w", err)
	}
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	slog.Info("Reference data seeded",
		"languages", len(languages),
		"categories", len(categories))
	return nil
}
