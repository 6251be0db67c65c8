package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/observability"
	"github.com/kidspark-ai/kidspark/internal/orchestrator"
)

var (
	chatAge     int
	chatUser    string
	chatContent string
	chatTrace   bool
	metricsAddr string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat against the turn pipeline",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().IntVar(&chatAge, "age", 5, "child's age")
	chatCmd.Flags().StringVar(&chatUser, "user", "local", "user ID")
	chatCmd.Flags().StringVar(&chatContent, "content", "", "content library JSON to index before chatting")
	chatCmd.Flags().BoolVar(&chatTrace, "trace", false, "print guardrail verdicts per turn")
	chatCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: "kidspark",
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	a.sweeper.Start()
	defer a.sweeper.Stop()

	if metricsAddr != "" {
		go func() {
			if err := observability.ServeMetrics(metricsAddr); err != nil {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	if chatContent != "" {
		if err := indexFile(ctx, a, chatContent); err != nil {
			return err
		}
	}

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".kidspark_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sessionID := uuid.NewString()
	lastOK := false
	fmt.Printf("KidSpark chat (age %d). Type 'quit' to exit.\n\n", chatAge)

	for {
		input, err := line.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}
		line.AppendHistory(input)

		resp, err := a.engine.HandleTurn(ctx, orchestrator.TurnRequest{
			SessionID:  sessionID,
			UserID:     chatUser,
			Text:       input,
			AgeGroup:   chatAge,
			IsFollowUp: lastOK && isFollowUpText(input),
		})
		if err != nil {
			logger.Error("turn failed", zap.Error(err))
			fmt.Println("Something went wrong on my side. Let's try again!")
			lastOK = false
			continue
		}
		lastOK = !resp.Metadata.Fallback

		fmt.Printf("\nkidspark [%s]> %s\n\n", resp.Intent, resp.Content)
		if chatTrace {
			for _, v := range resp.Metadata.Verdicts {
				status := "pass"
				if !v.Passed {
					status = "FAIL: " + v.Reason
				}
				fmt.Printf("  %-10s %s\n", v.Stage, status)
			}
			if resp.Metadata.Fallback {
				fmt.Printf("  fallback   cause=%s\n", resp.Metadata.FallbackCause)
			}
		}
	}
}

// isFollowUpText is the chat surface's cheap follow-up heuristic; real
// clients send the flag explicitly.
func isFollowUpText(input string) bool {
	lowered := strings.ToLower(input)
	for _, marker := range []string{"tell me more", "more please", "and then", "what else", "keep going", "another one"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
