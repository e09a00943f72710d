package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Mailer is the narrow contract for delivering one transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// LogMailer writes mail to the log instead of the wire; used in dev and tests.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	m.log.InfoContext(ctx, "mail.send",
		"to", to,
		"subject", subject,
		"bytes", len(html),
	)
	return nil
}
