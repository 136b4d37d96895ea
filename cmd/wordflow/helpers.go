package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/lexward/wordflow/internal/common"
	"github.com/lexward/wordflow/internal/config"
	"github.com/lexward/wordflow/internal/engine"
	"github.com/lexward/wordflow/internal/model"
	"github.com/lexward/wordflow/internal/oracle"
	"github.com/lexward/wordflow/internal/storage"
)

// databasePath resolves the database location from config, creating the
// parent directory if needed.
func databasePath() (string, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return dbPath, nil
}

// openStorage opens the database and brings the schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Connected to database", "path", dbPath)
	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// closeOracle releases client resources for implementations that hold any.
func closeOracle(client oracle.Client) {
	if closer, ok := client.(io.Closer); ok {
		_ = closer.Close()
	}
}

// createOracleClient builds the LLM client from configuration. The API key
// comes from openai.api_key or the WORDFLOW_OPENAI_API_KEY environment
// variable.
func createOracleClient() (oracle.Client, error) {
	if viper.GetBool("openai.mock") {
		slog.Warn("Using mock oracle client; classifications are placeholders")
		return oracle.NewMockClient(), nil
	}

	apiKey := viper.GetString("openai.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("WORDFLOW_OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, common.NewUserError(
			"OpenAI API key not configured (set openai.api_key or WORDFLOW_OPENAI_API_KEY)",
			common.ErrMissingConfig)
	}

	return oracle.NewOpenAIClient(oracle.Config{
		APIKey:    apiKey,
		BaseURL:   viper.GetString("openai.base_url"),
		Model:     viper.GetString("openai.model"),
		RateLimit: viper.GetInt("openai.rate_limit"),
	})
}

// createEngine wires storage and the oracle into a processing engine using
// the configured processing defaults.
func createEngine(store *storage.SQLiteStorage, client oracle.Client) *engine.Engine {
	cfg := engine.DefaultConfig()
	if mode := viper.GetString("processing.mode"); mode != "" {
		cfg.Mode = model.ProcessingMode(mode)
	}
	if m := viper.GetString("openai.model"); m != "" {
		cfg.Model = m
	}
	if size := viper.GetInt("processing.chunk_size"); size > 0 {
		cfg.ChunkSize = size
	}
	if retries := viper.GetInt("processing.max_retries"); retries > 0 {
		cfg.MaxRetries = retries
	}
	if delay := viper.GetDuration("processing.chunk_delay"); delay > 0 {
		cfg.ChunkDelay = delay
	}

	return engine.NewWithConfig(store, client, cfg)
}
