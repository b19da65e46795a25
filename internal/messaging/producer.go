package messaging

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// KeyHeader carries the message key, NATS has no key of its own.
const KeyHeader = "Message-Key"

type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewProducer(url string, subject string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url, nats.Name("timetracker"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

func (p *Producer) SendMessage(key string, value interface{}) error {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.Error("failed to marshal message", "error", err)
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(KeyHeader, key)
	msg.Data = valueBytes

	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("failed to send message to NATS", "error", err)
		return err
	}

	p.logger.Debug("message sent to NATS", "subject", p.subject, "key", key)
	return nil
}

// HealthCheck reports whether the connection is usable.
func (p *Producer) HealthCheck() error {
	if p.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !p.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}

func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
