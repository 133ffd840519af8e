// Package bus mirrors session events onto NATS so external observers can
// follow runs without touching the log files.
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/stridelabs/stride/internal/session"
)

// Publisher forwards stream events to a NATS subject per session. The
// event log stays authoritative: publish failures are logged and dropped,
// never allowed to stall a run.
type Publisher struct {
	conn    *nats.Conn
	publish func(subject string, data []byte) error
	logger  *slog.Logger
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("stride"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, publish: conn.Publish, logger: logger}, nil
}

// SubjectFor is the subject a session's events are published on.
func SubjectFor(sessionID string) string {
	return "stride.session." + sessionID + ".events"
}

// Attach subscribes to stream and mirrors every appended event.
func (p *Publisher) Attach(sessionID string, stream *session.Stream) {
	subject := SubjectFor(sessionID)
	stream.Subscribe(func(ev session.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			p.logger.Warn("event marshal for bus failed", "session", sessionID, "seq", ev.Sequence, "error", err)
			return
		}
		if err := p.publish(subject, data); err != nil {
			p.logger.Warn("event publish failed", "session", sessionID, "seq", ev.Sequence, "error", err)
		}
	})
}

// Close flushes pending messages and drops the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Flush(); err != nil {
		p.logger.Warn("nats flush failed", "error", err)
	}
	p.conn.Close()
}
