package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"chat-api/internal/domain"
)

const (
	SubjectMessageSent    = "message.sent"
	SubjectMessageDeleted = "message.deleted"
	SubjectUserPresence   = "user.presence"
)

type publishConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes JSON events under <prefix>.<subject>.
type NATSPublisher struct {
	conn   publishConn
	prefix string
	now    func() time.Time
}

// Connect dials NATS with reconnect handling logged through logger.
func Connect(url string, logger *logrus.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("chat-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(10 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return newNATSPublisher(nc, prefix)
}

func newNATSPublisher(conn publishConn, prefix string) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "chat"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, now: time.Now}
}

func (p *NATSPublisher) MessageSent(_ context.Context, msg domain.Message) error {
	return p.publish(SubjectMessageSent, newMessageEvent(msg))
}

func (p *NATSPublisher) MessageDeleted(_ context.Context, msg domain.Message) error {
	return p.publish(SubjectMessageDeleted, newMessageEvent(msg))
}

func (p *NATSPublisher) Presence(_ context.Context, userID string, online bool) error {
	return p.publish(SubjectUserPresence, PresenceEvent{
		UserID:   userID,
		IsOnline: online,
		At:       p.now().UTC(),
	})
}

// Subject returns the fully qualified subject for name.
func (p *NATSPublisher) Subject(name string) string {
	return p.prefix + "." + name
}

func (p *NATSPublisher) publish(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if err := p.conn.Publish(p.Subject(name), data); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

var _ Publisher = (*NATSPublisher)(nil)
