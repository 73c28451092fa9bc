// Package audit records one line per first-seen delivery notification.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/repository"
)

// Logger appends delivery records to the CSV audit log and mirrors them to
// the audit_entries table so the retention sweeper can purge them by age.
// Record never returns an error: a failing audit write must not fail the
// render that triggered it.
type Logger struct {
	enabled bool
	path    string
	repo    repository.AuditRepository
	logger  *slog.Logger
}

// NewLogger creates an audit Logger. repo may be nil, in which case only
// the CSV file is written.
func NewLogger(enabled bool, path string, repo repository.AuditRepository, logger *slog.Logger) *Logger {
	return &Logger{enabled: enabled, path: path, repo: repo, logger: logger}
}

// Record appends one `ip,timestamp,sender,recipient` line
func (l *Logger) Record(ctx context.Context, viewerIP, sender, recipient string) {
	if !l.enabled {
		return
	}

	now := time.Now()
	line := fmt.Sprintf("%s,%s,%s,%s\n", viewerIP, now.Format("2006-01-02 03:04:05 pm"), sender, recipient)
	if err := l.appendLine(line); err != nil && l.logger != nil {
		l.logger.Warn("audit log write failed", slog.Any("error", err))
	}

	if l.repo == nil {
		return
	}
	entry := &models.AuditEntry{ViewerIP: viewerIP, Sender: sender, Recipient: recipient}
	if err := l.repo.Create(ctx, entry); err != nil && l.logger != nil {
		l.logger.Warn("audit entry insert failed", slog.Any("error", err))
	}
}

func (l *Logger) appendLine(line string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
