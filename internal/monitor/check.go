package monitor

import (
	"context"
	"time"

	"github.com/bull/campus-qa/internal/answer"
	"github.com/bull/campus-qa/internal/backup"
)

// CheckQuestion is answered during a system check.
const CheckQuestion = "이산구조 수업에 대해 궁금합니다."

// CheckReport is the outcome of a system check. Error fields are empty on success.
type CheckReport struct {
	QuestionCount int
	ReadError     string

	InsertProbed bool
	InsertError  string

	Answer answer.Response

	BackupError string
}

// OK reports whether every probed component worked.
func (r CheckReport) OK() bool {
	return r.ReadError == "" && r.InsertError == "" && r.BackupError == ""
}

// Check probes the table API, the answer pipeline and the backup log without
// touching the processed set. probeInsert also writes a test row to the answer table.
func (m *Monitor) Check(ctx context.Context, probeInsert bool) CheckReport {
	var report CheckReport
	now := time.Now().Format("2006-01-02 15:04:05")

	rows, err := m.table.Read(ctx, m.cfg.QuestionTable)
	if err != nil {
		report.ReadError = err.Error()
	} else {
		report.QuestionCount = len(rows)
	}

	if probeInsert {
		report.InsertProbed = true
		row := AnswerRow{
			ID:        "TEST_" + time.Now().Format("20060102_150405"),
			Question:  "TEST 질문입니다",
			Answer:    "TEST 답변입니다",
			TimeStamp: now,
		}
		if err := m.table.Insert(ctx, m.cfg.AnswerTable, row); err != nil {
			report.InsertError = err.Error()
		}
	}

	report.Answer = m.answer(ctx, m.logger, CheckQuestion)

	probe := backup.Record{ID: "BACKUP_TEST", TimeStamp: now, Error: "system check"}
	if err := m.backup.Append(probe); err != nil {
		report.BackupError = err.Error()
	}

	m.logger.Info("System check complete",
		"questions", report.QuestionCount,
		"read_error", report.ReadError,
		"insert_error", report.InsertError,
		"backup_error", report.BackupError,
	)
	return report
}
