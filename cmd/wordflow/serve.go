package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexward/wordflow/internal/certs"
	"github.com/lexward/wordflow/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the processing API over HTTP. Processing runs stream their
progress to clients as Server-Sent Events; a dropped stream pauses the
session so it can be resumed.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	if err := store.SeedReferenceData(ctx); err != nil {
		return err
	}

	client, err := createOracleClient()
	if err != nil {
		return err
	}
	defer closeOracle(client)
	eng := createEngine(store, client)

	if viper.GetString("logging.level") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := server.Config{Addr: viper.GetString("server.addr")}

	if viper.GetBool("server.tls") {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return fmt.Errorf("failed to get home directory: %w", homeErr)
		}
		manager := certs.NewManager(filepath.Join(home, ".config", "wordflow", "certs"))
		if _, certErr := manager.Ensure(); certErr != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", certErr)
		}
		cfg.CertFile, cfg.KeyFile = manager.Files()
	}

	srv := server.New(eng, store, cfg)

	slog.Info("Starting wordflow API server", "addr", cfg.Addr, "tls", viper.GetBool("server.tls"))
	return srv.Run(ctx)
}
