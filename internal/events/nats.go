package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/codefionn/planrunner/internal/logger"
)

// Publisher forwards events to a NATS subject. Each event goes to
// <subject>.<type>, e.g. planrunner.tasks.task.finished, so subscribers
// can filter with wildcards.
type Publisher struct {
	conn    *nats.Conn
	subject string
	log     *logger.Logger
}

// DialNATS connects to the server at url.
func DialNATS(url, subject string, log *logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.Global()
	}
	log = log.WithPrefix("nats")

	nc, err := nats.Connect(url,
		nats.Name("planrunner"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &Publisher{conn: nc, subject: subject, log: log}, nil
}

// Subject returns the subject event e is published on.
func (p *Publisher) Subject(e Event) string {
	return p.subject + "." + string(e.Type)
}

// Publish implements Sink. The client buffers while reconnecting, so this
// does not block on the network.
func (p *Publisher) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Error("Failed to marshal event: %v", err)
		return
	}
	if err := p.conn.Publish(p.Subject(e), data); err != nil {
		p.log.Warn("Failed to publish %s: %v", e.Type, err)
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
