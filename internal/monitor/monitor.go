// Package monitor polls the question table, answers new questions one at a
// time and stores the answers, falling back to a local backup log.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bull/campus-qa/internal/answer"
	"github.com/bull/campus-qa/internal/backup"
	"github.com/bull/campus-qa/internal/sheets"
)

const (
	DefaultPollInterval  = 10 * time.Second
	DefaultQuestionTable = "question"
	DefaultAnswerTable   = "answer"
)

// TableClient reads and writes remote table rows. *sheets.Client satisfies it.
type TableClient interface {
	Read(ctx context.Context, table string) ([]sheets.Row, error)
	Insert(ctx context.Context, table string, row any) error
}

// BackupLog stores answers that could not be inserted remotely. *backup.Log satisfies it.
type BackupLog interface {
	Append(rec backup.Record) error
}

// Config tunes the loop.
type Config struct {
	QuestionTable string
	AnswerTable   string
	PollInterval  time.Duration

	// QuestionPause is waited after each processed question.
	QuestionPause time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuestionTable == "" {
		c.QuestionTable = DefaultQuestionTable
	}
	if c.AnswerTable == "" {
		c.AnswerTable = DefaultAnswerTable
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Question is one row of the question table.
type Question struct {
	ID        string
	Text      string
	TimeStamp string
}

// Key returns the composite identity of q.
func (q Question) Key() Key {
	return Key{ID: q.ID, TimeStamp: q.TimeStamp}
}

func questionFromRow(r sheets.Row) Question {
	return Question{ID: r["id"], Text: r["question"], TimeStamp: r["time_stamp"]}
}

// AnswerRow is the record inserted into the answer table. TimeStamp is copied
// verbatim from the question so rows can be joined.
type AnswerRow struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Document  string `json:"document"`
	TimeStamp string `json:"time_stamp"`
}

// Stats summarizes one poll cycle.
type Stats struct {
	CycleID   string
	Found     int
	Answered  int
	Persisted int
	BackedUp  int
	Lost      int
	Skipped   int
	Duration  time.Duration
}

// Monitor owns the processed set and drives the question-answer loop.
type Monitor struct {
	table     TableClient
	answerer  answer.Answerer
	fallback  answer.Answerer
	backup    BackupLog
	processed *ProcessedSet
	cfg       Config
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a monitor. answerer produces answers; when it yields an empty
// answer the keyword answerer is used instead.
func New(table TableClient, answerer answer.Answerer, backupLog BackupLog, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		table:     table,
		answerer:  answerer,
		fallback:  answer.KeywordAnswerer{},
		backup:    backupLog,
		processed: NewProcessedSet(),
		cfg:       cfg.withDefaults(),
		logger:    logger,
		state:     StateStartup,
	}
}

// State returns the current loop state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Processed exposes the processed-question set.
func (m *Monitor) Processed() *ProcessedSet {
	return m.processed
}

func (m *Monitor) transition(to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()
	if from != to {
		m.logger.Debug("State transition", "from", from, "to", to)
	}
}

// Seed marks every existing question as processed without answering any.
func (m *Monitor) Seed(ctx context.Context) (int, error) {
	m.transition(StateStartup)
	rows, err := m.table.Read(ctx, m.cfg.QuestionTable)
	if err != nil {
		return 0, fmt.Errorf("seed processed questions: %w", err)
	}
	for _, r := range rows {
		m.processed.Add(questionFromRow(r).Key())
	}
	m.logger.Info("Loaded existing questions", "count", len(rows), "processed", m.processed.Len())
	return len(rows), nil
}

// FetchNew re-reads the question table and returns unseen questions in table
// order. Each one is marked processed as soon as it is discovered.
func (m *Monitor) FetchNew(ctx context.Context) ([]Question, error) {
	m.transition(StateFetching)
	rows, err := m.table.Read(ctx, m.cfg.QuestionTable)
	if err != nil {
		return nil, err
	}

	var fresh []Question
	for _, r := range rows {
		q := questionFromRow(r)
		if m.processed.Add(q.Key()) {
			fresh = append(fresh, q)
		}
	}
	return fresh, nil
}

// ProcessNew runs one poll cycle: fetch, then answer and persist each new
// question in order. Cancellation is checked between questions only.
func (m *Monitor) ProcessNew(ctx context.Context) Stats {
	start := time.Now()
	stats := Stats{CycleID: uuid.NewString()}
	logger := m.logger.With("cycle", stats.CycleID)

	questions, err := m.FetchNew(ctx)
	if err != nil {
		logger.Error("Failed to fetch questions", "error", err)
		stats.Duration = time.Since(start)
		return stats
	}
	stats.Found = len(questions)
	if len(questions) == 0 {
		stats.Duration = time.Since(start)
		return stats
	}
	logger.Info("Found new questions", "count", len(questions))

	m.transition(StateProcessing)
	for i, q := range questions {
		if ctx.Err() != nil {
			for _, skipped := range questions[i:] {
				logger.Warn("Question skipped by shutdown", "id", skipped.ID, "time_stamp", skipped.TimeStamp)
			}
			stats.Skipped = len(questions) - i
			break
		}

		outcome := m.process(context.WithoutCancel(ctx), logger, q)
		stats.Answered++
		switch outcome {
		case outcomePersisted:
			stats.Persisted++
		case outcomeBackedUp:
			stats.BackedUp++
		case outcomeLost:
			stats.Lost++
		}

		if m.cfg.QuestionPause > 0 && i < len(questions)-1 {
			sleep(ctx, m.cfg.QuestionPause)
		}
	}

	stats.Duration = time.Since(start)
	logger.Info("Cycle complete",
		"found", stats.Found,
		"answered", stats.Answered,
		"persisted", stats.Persisted,
		"backed_up", stats.BackedUp,
		"lost", stats.Lost,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)
	return stats
}

type outcome int

const (
	outcomePersisted outcome = iota
	outcomeBackedUp
	outcomeLost
)

// process answers one question and stores the result.
func (m *Monitor) process(ctx context.Context, logger *slog.Logger, q Question) outcome {
	logger = logger.With("id", q.ID, "time_stamp", q.TimeStamp)
	logger.Info("Processing question", "question", preview(q.Text, 50))

	resp := m.answer(ctx, logger, q.Text)

	urls := make([]string, len(resp.Documents))
	for i, d := range resp.Documents {
		urls[i] = d.URL
	}
	row := AnswerRow{
		ID:        q.ID,
		Question:  q.Text,
		Answer:    resp.Answer,
		Document:  strings.Join(urls, "\n"),
		TimeStamp: q.TimeStamp,
	}

	err := m.table.Insert(ctx, m.cfg.AnswerTable, row)
	if err == nil {
		logger.Info("Answer saved", "documents", len(urls))
		return outcomePersisted
	}
	logger.Error("Answer insert failed", "error", err)

	rec := backup.Record{
		ID:        row.ID,
		Question:  row.Question,
		Answer:    row.Answer,
		Document:  row.Document,
		TimeStamp: row.TimeStamp,
		Documents: urls,
		Error:     err.Error(),
	}
	if berr := m.backup.Append(rec); berr != nil {
		logger.Error("Backup write failed, answer lost", "error", berr)
		return outcomeLost
	}
	logger.Info("Answer written to local backup")
	return outcomeBackedUp
}

func (m *Monitor) answer(ctx context.Context, logger *slog.Logger, question string) (resp answer.Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Answerer panicked", "panic", r)
			resp = answer.Response{Answer: answer.UnavailableAnswer, Documents: []answer.DocumentLink{}}
		}
	}()

	resp = m.answerer.Answer(ctx, question)
	if strings.TrimSpace(resp.Answer) == "" {
		logger.Warn("Empty answer, using keyword answer")
		resp = m.fallback.Answer(ctx, question)
	}
	return resp
}

// Run seeds the processed set and polls until ctx is cancelled. A failed seed
// is retried every poll interval and no question is answered before it succeeds.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Question monitor starting", "poll_interval", m.cfg.PollInterval)
	for {
		_, err := m.Seed(ctx)
		if err == nil {
			break
		}
		m.logger.Warn("Could not load existing questions, retrying", "error", err, "retry_in", m.cfg.PollInterval)
		if !sleep(ctx, m.cfg.PollInterval) {
			m.transition(StateShutdown)
			m.logger.Info("Question monitor stopped before seeding")
			return nil
		}
	}

	for {
		if ctx.Err() != nil {
			break
		}
		m.ProcessNew(ctx)

		m.transition(StateIdle)
		m.logger.Debug("Waiting for next poll", "interval", m.cfg.PollInterval)
		if !sleep(ctx, m.cfg.PollInterval) {
			break
		}
	}

	m.transition(StateShutdown)
	m.logger.Info("Question monitor stopped")
	return nil
}

// Once seeds the processed set unless backlog is true, then runs a single cycle.
// With backlog every existing question is treated as new.
func (m *Monitor) Once(ctx context.Context, backlog bool) (Stats, error) {
	if !backlog {
		if _, err := m.Seed(ctx); err != nil {
			return Stats{}, err
		}
	}
	stats := m.ProcessNew(ctx)
	m.transition(StateShutdown)
	return stats, nil
}

// sleep waits for d and reports whether it completed before ctx was done.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
