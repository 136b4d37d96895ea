package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexward/wordflow/internal/engine"
	"github.com/lexward/wordflow/internal/model"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [words...]",
		Short: "Classify a set of words",
		Long: `Classify words with the LLM oracle, tracking the job as a resumable
processing session.

Words can be given as arguments, read from a file, or both. Interrupting a
run with Ctrl-C pauses the session; resume it later with: wordflow resume <id>

Examples:
  wordflow process hund chat casa
  wordflow process --file words.txt
  wordflow process --mode concurrent --chunk-size 20 --file words.txt`,
		RunE: runProcess,
	}

	cmd.Flags().StringP("file", "f", "", "File with one word per line")
	cmd.Flags().String("mode", "", "Processing mode (sequential, concurrent)")
	cmd.Flags().Int("chunk-size", 0, "Words per chunk")
	cmd.Flags().Int("max-retries", 0, "Oracle retry attempts per word")
	cmd.Flags().Bool("mock", false, "Use the mock oracle instead of the OpenAI API")

	_ = viper.BindPFlag("processing.mode", cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("processing.chunk_size", cmd.Flags().Lookup("chunk-size"))
	_ = viper.BindPFlag("processing.max_retries", cmd.Flags().Lookup("max-retries"))
	_ = viper.BindPFlag("openai.mock", cmd.Flags().Lookup("mock"))

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	words, err := collectWords(cmd, args)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("no words to process (pass words as arguments or use --file)")
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	if err := store.SeedReferenceData(ctx); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	wordIDs := make([]string, 0, len(words))
	for _, w := range words {
		word := &model.Word{Word: w}
		if saveErr := store.SaveWord(ctx, word); saveErr != nil {
			return fmt.Errorf("failed to save word %q: %w", w, saveErr)
		}
		wordIDs = append(wordIDs, word.ID)
	}

	client, err := createOracleClient()
	if err != nil {
		return err
	}
	defer closeOracle(client)
	eng := createEngine(store, client)

	session, err := eng.CreateSession(ctx, wordIDs, model.SessionConfig{
		Mode:       model.ProcessingMode(viper.GetString("processing.mode")),
		ChunkSize:  viper.GetInt("processing.chunk_size"),
		MaxRetries: viper.GetInt("processing.max_retries"),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Starting word classification",
		"session_id", session.ID,
		"words", session.TotalWords,
		"chunks", session.TotalChunks)

	return runSession(ctx, eng, session.ID)
}

// runSession drives a processing run with a CLI progress bar and prints a
// summary when it reaches a terminal state.
func runSession(ctx context.Context, eng *engine.Engine, sessionID string) error {
	var bar *progressbar.ProgressBar

	sink := func(ev engine.Event) {
		switch e := ev.(type) {
		case engine.StartedEvent:
			bar = newProgressBar(e.TotalWords)
		case engine.ResultEvent:
			if bar != nil {
				if err := bar.Add(1); err != nil {
					slog.Debug("Failed to update progress bar", "error", err)
				}
			}
		case engine.ChunkCompleteEvent:
			if bar != nil {
				_ = bar.Set(e.Stats.ProcessedWords)
			}
		case engine.CompleteEvent:
			if bar != nil {
				_ = bar.Finish()
			}
			fmt.Printf("\nProcessed %d words (%d ok, %d failed)  cost: $%.4f  elapsed: %s\n",
				e.Stats.ProcessedWords, e.Stats.SuccessfulWords, e.Stats.FailedWords,
				e.TotalCost, e.Duration.Round(time.Second))
		case engine.ErrorEvent:
			if bar != nil {
				fmt.Println()
			}
		}
	}

	err := eng.ProcessWords(ctx, sessionID, sink)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrSessionPaused):
		slog.Info("Session paused. Resume with: wordflow resume " + sessionID)
		return nil
	case errors.Is(err, engine.ErrSessionCancelled):
		slog.Warn("Session cancelled", "session_id", sessionID)
		return nil
	default:
		return fmt.Errorf("processing failed (resume with: wordflow resume %s): %w", sessionID, err)
	}
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Classifying words...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// collectWords merges argument words and file words, trimming blanks and
// deduplicating while preserving first-seen order.
func collectWords(cmd *cobra.Command, args []string) ([]string, error) {
	words := make([]string, 0, len(args))
	seen := make(map[string]bool)

	add := func(w string) {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		words = append(words, w)
	}

	for _, w := range args {
		add(w)
	}

	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open word file: %w", err)
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read word file: %w", err)
		}
	}

	return words, nil
}
