// Package notify publishes draft events and final rosters to NATS.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Conn is the slice of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

type Envelope struct {
	ID        string          `json:"id"`
	Draft     string          `json:"draft"`
	Type      string          `json:"type"`
	Version   int             `json:"version,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher is a lobby.Hooks that mirrors draft activity onto NATS subjects
// `<prefix>.<draft>.<event>`.
type Publisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
	now    func() time.Time
}

var _ lobby.Hooks = (*Publisher)(nil)

func NewPublisher(conn Conn, prefix string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, log: log, now: time.Now}
}

// Connect dials NATS and returns the connection with a publisher bound to it.
func Connect(url, prefix string, log *zap.Logger) (*nats.Conn, *Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("coachdraft"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, NewPublisher(nc, prefix, log), nil
}

func (p *Publisher) Subject(code, kind string) string {
	return strings.Join([]string{p.prefix, code, strings.ToLower(kind)}, ".")
}

func (p *Publisher) Render(code string, snap lobby.Snapshot, events []engine.Event) {
	for _, e := range events {
		p.publish(code, string(e.Type), snap.Version, e)
	}
}

func (p *Publisher) ShowTeams(string, []engine.TeamRoster) {}

func (p *Publisher) Export(code string, rosters []engine.TeamRoster) {
	p.publish(code, "rosters", 0, rosters)
}

func (p *Publisher) publish(code, kind string, version int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("failed to marshal payload", zap.String("draft", code), zap.Error(err))
		return
	}
	env := Envelope{
		ID:        uuid.NewString(),
		Draft:     code,
		Type:      kind,
		Version:   version,
		Timestamp: p.now().UTC(),
		Payload:   body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.log.Error("failed to marshal envelope", zap.String("draft", code), zap.Error(err))
		return
	}
	subject := p.Subject(code, kind)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("nats publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
