// Package viewbus publishes hidden-range snapshots over NATS so remote
// views can mirror the folded state of a document.
//
// Snapshots go to the subject
//
//	<prefix>.<document-key>
//
// where the key is viewstate.Key of the document URI. Subscribers receive
// whole snapshots; there are no deltas to replay.
package viewbus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/viewstate"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "foldkit.hidden"

// ErrNoConnection indicates a bus without a NATS connection.
var ErrNoConnection = errors.New("no nats connection")

// Snapshot is the hidden state of one document at one version.
type Snapshot struct {
	URI         string              `json:"uri"`
	Key         string              `json:"key"`
	Version     int                 `json:"version"`
	Provider    string              `json:"provider,omitempty"`
	Hidden      []folding.LineRange `json:"hidden"`
	PublishedAt time.Time           `json:"publishedAt"`
}

// Option configures a Bus.
type Option func(*Bus)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) Option {
	return func(b *Bus) {
		if prefix = strings.Trim(prefix, "."); prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bus publishes and subscribes to hidden-range snapshots.
type Bus struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// New creates a bus on nc.
func New(nc *nats.Conn, opts ...Option) (*Bus, error) {
	if nc == nil {
		return nil, ErrNoConnection
	}
	b := &Bus{nc: nc, prefix: DefaultPrefix, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Subject returns the subject snapshots of uri are published on.
func (b *Bus) Subject(uri string) string {
	return b.prefix + "." + viewstate.Key(uri)
}

// Publish sends a snapshot. Key and PublishedAt are filled in when empty.
func (b *Bus) Publish(s Snapshot) error {
	if s.Key == "" {
		s.Key = viewstate.Key(s.URI)
	}
	if s.PublishedAt.IsZero() {
		s.PublishedAt = time.Now().UTC()
	}
	if s.Hidden == nil {
		s.Hidden = []folding.LineRange{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	subject := b.prefix + "." + s.Key
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Attach publishes a snapshot every time the hidden ranges of c change.
func (b *Bus) Attach(c *controller.Controller) (detach func()) {
	doc := c.Document()
	return c.OnDidChangeHiddenRanges(func(e folding.HiddenRangesEvent) {
		err := b.Publish(Snapshot{
			URI:      doc.URI(),
			Version:  doc.VersionID(),
			Provider: c.ProviderID(),
			Hidden:   e.Ranges,
		})
		if err != nil {
			b.logger.Warn("hidden range snapshot not published",
				zap.String("uri", doc.URI()),
				zap.Error(err),
			)
		}
	})
}

// Subscribe calls handler with every snapshot for uri, or for every
// document when uri is empty. Malformed messages are logged and dropped.
func (b *Bus) Subscribe(uri string, handler func(Snapshot)) (*nats.Subscription, error) {
	subject := b.prefix + ".*"
	if uri != "" {
		subject = b.Subject(uri)
	}
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var s Snapshot
		if err := json.Unmarshal(msg.Data, &s); err != nil {
			b.logger.Warn("dropping malformed snapshot",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		handler(s)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
