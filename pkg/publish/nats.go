package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/andreweacott/nuheat-conductor/pkg/climate"
	nats "github.com/nats-io/nats.go"
)

// DefaultNATSSubjectPrefix is used when no prefix is configured
const DefaultNATSSubjectPrefix = "nuheat"

// natsConn is the part of *nats.Conn the publisher uses
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes state to <prefix>.<kind>.<id>
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// DialNATS connects to url and returns a publisher
func DialNATS(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("nuheat-conductor"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return newNATSPublisher(conn, prefix), nil
}

func newNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultNATSSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject used for an entity
func (p *NATSPublisher) Subject(kind, id string) string {
	return p.prefix + "." + kind + "." + subjectToken(id, ".*>")
}

// WriteState implements climate.StateWriter
func (p *NATSPublisher) WriteState(_ context.Context, state climate.EntityState) error {
	data, err := encode(state)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", state.Kind, state.ID, err)
	}
	subject := p.Subject(state.Kind, state.ID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
