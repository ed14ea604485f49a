package events

import (
	"github.com/codefionn/planrunner/internal/config"
	"github.com/codefionn/planrunner/internal/logger"
)

// Sinks is the set of event outputs opened from configuration.
type Sinks struct {
	Hub       *Hub
	Journal   *Journal
	Publisher *Publisher
}

// Open builds the configured sinks. The hub is always present; the journal
// and the NATS publisher only when their settings are non-empty.
func Open(cfg config.EventsConfig, log *logger.Logger) (*Sinks, error) {
	s := &Sinks{Hub: NewHub(log)}

	if cfg.JournalPath != "" {
		j, err := OpenJournal(cfg.JournalPath, log)
		if err != nil {
			return nil, err
		}
		s.Journal = j
	}

	if cfg.NATSURL != "" {
		p, err := DialNATS(cfg.NATSURL, cfg.NATSSubject, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Publisher = p
	}

	go s.Hub.Run()
	return s, nil
}

// Sink returns the fan-out over every open output.
func (s *Sinks) Sink() Sink {
	f := Fanout{s.Hub}
	if s.Journal != nil {
		f = append(f, s.Journal)
	}
	if s.Publisher != nil {
		f = append(f, s.Publisher)
	}
	return f
}

// Close stops the hub and releases the journal and NATS connection.
func (s *Sinks) Close() {
	if s.Hub != nil {
		s.Hub.Stop()
	}
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			logger.Warn("Failed to close journal: %v", err)
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.Warn("Failed to close NATS connection: %v", err)
		}
	}
}
