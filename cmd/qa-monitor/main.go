// Package main runs the question table polling loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/campus-qa/internal/app"
	"github.com/bull/campus-qa/internal/config"
	"github.com/bull/campus-qa/internal/monitor"
)

var rootCmd = &cobra.Command{
	Use:   "qa-monitor",
	Short: "Answers new questions posted to the question table",
	Long: `Polls the question table, answers every new question from the post index
and writes the answer to the answer table. Answers that cannot be written are
appended to the local backup log.

Environment variables:
  SHEETS_URL      Table API endpoint (required)
  OPENAI_API_KEY  API key for embeddings and generation
  INDEX_DIR       Index artifact directory (default: ./index_output)
  POLL_INTERVAL   Seconds between polls (default: 10)
  BACKUP_PATH     Backup log (default: answer_backup.jsonl)
  ALLOW_DEGRADED  Fall back to keyword answers when the index cannot load (default: true)`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMonitor(cmd, func(ctx context.Context, m *monitor.Monitor) error {
			return m.Run(ctx)
		})
	},
}

var backlogFlag bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMonitor(cmd, func(ctx context.Context, m *monitor.Monitor) error {
			stats, err := m.Once(ctx, backlogFlag)
			if err != nil {
				return err
			}
			fmt.Printf("Cycle %s: found %d, answered %d, persisted %d, backed up %d, lost %d, skipped %d (%s)\n",
				stats.CycleID, stats.Found, stats.Answered, stats.Persisted, stats.BackedUp, stats.Lost, stats.Skipped, stats.Duration)
			return nil
		})
	},
}

var probeInsertFlag bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check table connectivity, answer generation and the backup log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMonitor(cmd, func(ctx context.Context, m *monitor.Monitor) error {
			report := m.Check(ctx, probeInsertFlag)

			if report.ReadError != "" {
				fmt.Printf("Question table: FAILED (%s)\n", report.ReadError)
			} else {
				fmt.Printf("Question table: ok (%d rows)\n", report.QuestionCount)
			}
			if report.InsertProbed {
				if report.InsertError != "" {
					fmt.Printf("Answer table: FAILED (%s)\n", report.InsertError)
				} else {
					fmt.Println("Answer table: ok")
				}
			}
			fmt.Printf("Test answer: %s\n", report.Answer.Answer)
			if report.BackupError != "" {
				fmt.Printf("Backup log: FAILED (%s)\n", report.BackupError)
			} else {
				fmt.Println("Backup log: ok")
			}

			if !report.OK() {
				return fmt.Errorf("check failed")
			}
			return nil
		})
	},
}

func init() {
	onceCmd.Flags().BoolVar(&backlogFlag, "backlog", false, "answer every question in the table, not only new ones")
	checkCmd.Flags().BoolVar(&probeInsertFlag, "probe-insert", false, "write a probe row to the answer table")
	rootCmd.AddCommand(runCmd, onceCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withMonitor(cmd *cobra.Command, fn func(context.Context, *monitor.Monitor) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("Failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("Failed to create logger: %w", err)
	}
	defer closer.Close()

	svc, err := app.LoadServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("Failed to load answering components: %w", err)
	}
	defer svc.Close()

	m, err := app.NewMonitor(cfg, svc.Answerer, logger)
	if err != nil {
		return fmt.Errorf("Failed to create monitor: %w", err)
	}

	logger.Info("Question monitor ready",
		"degraded", svc.Degraded,
		"question_table", cfg.Sheets.QuestionTable,
		"answer_table", cfg.Sheets.AnswerTable,
		"poll_interval", cfg.Monitor.PollInterval,
	)
	return fn(ctx, m)
}
