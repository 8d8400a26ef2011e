package services

import (
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectRoleChanged = "portal.user.role_changed"

// RoleChangedEvent is published after a user's role is changed.
type RoleChangedEvent struct {
	UserID    uuid.UUID   `json:"userId"`
	Email     string      `json:"email"`
	OldRole   models.Role `json:"oldRole"`
	NewRole   models.Role `json:"newRole"`
	ChangedBy uuid.UUID   `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
}

type EventPublisher interface {
	Publish(subject string, v interface{}) error
	Close()
}

// NatsPublisher sends JSON encoded events over a NATS connection.
type NatsPublisher struct {
	conn *nats.EncodedConn
}

// NewEventPublisher connects to NATS, or returns a no-op publisher when no
// URL is configured.
func NewEventPublisher(url string) (EventPublisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("salonportal"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				config.Log().Warn("NATS disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	ec, err := nats.NewEncodedConn(nc, nats.JSON_ENCODER)
	if err != nil {
		nc.Close()
		return nil, err
	}
	config.Log().Info("NATS connected", zap.String("url", nc.ConnectedUrl()))
	return &NatsPublisher{conn: ec}, nil
}

func (p *NatsPublisher) Publish(subject string, v interface{}) error {
	return p.conn.Publish(subject, v)
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(string, interface{}) error { return nil }
func (NoopPublisher) Close()                            {}
