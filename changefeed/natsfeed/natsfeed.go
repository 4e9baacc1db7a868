// Package natsfeed carries committed changes between processes over NATS.
//
// A Publisher announces commits on "<prefix>.<type>". A Bridge subscribes to
// one subject type and replays each message into a local dispatcher, usually
// a changefeed.Feed, so registries in every process evict the same entries.
package natsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goforj/attrcache"
	"github.com/nats-io/nats.go"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "attrcache.changes"

// Conn captures the subset of *nats.Conn used by this package.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (Unsubscriber, error)
}

// Unsubscriber cancels a subscription.
type Unsubscriber interface {
	Unsubscribe() error
}

// Wrap adapts a *nats.Conn to Conn.
func Wrap(nc *nats.Conn) Conn {
	return natsConn{nc: nc}
}

type natsConn struct {
	nc *nats.Conn
}

func (c natsConn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

func (c natsConn) Subscribe(subject string, handler nats.MsgHandler) (Unsubscriber, error) {
	return c.nc.Subscribe(subject, handler)
}

// Dispatcher receives replayed changes. *changefeed.Feed implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, change attrcache.Change) error
}

type event struct {
	Type   string   `json:"type"`
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
}

// Topic returns the NATS subject carrying changes for typeName.
func Topic(prefix, typeName string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "." + strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(typeName)
}

// Publisher announces commits.
type Publisher struct {
	conn   Conn
	prefix string
}

// NewPublisher returns a publisher on prefix, or DefaultPrefix when empty.
func NewPublisher(conn Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{conn: conn, prefix: prefix}
}

// Publish announces that fields of subject changed.
func (p *Publisher) Publish(_ context.Context, subject attrcache.Subject, fields ...string) error {
	if p.conn == nil {
		return errors.New("natsfeed: connection unavailable")
	}
	typeName := attrcache.TypeName(subject)
	body, err := json.Marshal(event{Type: typeName, ID: subject.SubjectID(), Fields: fields})
	if err != nil {
		return fmt.Errorf("natsfeed: marshal change: %w", err)
	}
	return p.conn.Publish(Topic(p.prefix, typeName), body)
}

// Bridge replays NATS change messages for one subject type.
type Bridge struct {
	sub    Unsubscriber
	target Dispatcher
	logger *slog.Logger
}

// NewBridge subscribes to changes of typeName and forwards them to target.
// A nil logger discards log output.
func NewBridge(conn Conn, prefix, typeName string, target Dispatcher, logger *slog.Logger) (*Bridge, error) {
	if conn == nil {
		return nil, errors.New("natsfeed: connection unavailable")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Bridge{target: target, logger: logger}
	sub, err := conn.Subscribe(Topic(prefix, typeName), b.handle)
	if err != nil {
		return nil, fmt.Errorf("natsfeed: subscribe %s: %w", typeName, err)
	}
	b.sub = sub
	return b, nil
}

func (b *Bridge) handle(msg *nats.Msg) {
	var ev event
	if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.ID == "" {
		b.logger.Warn("natsfeed: dropping malformed change", "subject", msg.Subject, "error", err)
		return
	}
	change := remoteChange{ref: SubjectRef{Type: ev.Type, ID: ev.ID}, fields: ev.Fields}
	if err := b.target.Dispatch(context.Background(), change); err != nil {
		b.logger.Warn("natsfeed: dispatch failed", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

// Close stops the subscription.
func (b *Bridge) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

// SubjectRef identifies a subject that lives in another process. It carries
// just enough to derive cache keys.
type SubjectRef struct {
	Type string
	ID   string
}

// SubjectID implements attrcache.Subject.
func (r SubjectRef) SubjectID() string { return r.ID }

// CacheTypeName implements attrcache.TypeNamer.
func (r SubjectRef) CacheTypeName() string { return r.Type }

type remoteChange struct {
	ref    SubjectRef
	fields []string
}

func (c remoteChange) Subject() attrcache.Subject { return c.ref }

func (c remoteChange) Changed(field string) bool { return slices.Contains(c.fields, field) }
