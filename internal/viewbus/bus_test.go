package viewbus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/viewstate"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func newBus(t *testing.T, opts ...Option) *Bus {
	t.Helper()
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	b, err := New(nc, opts...)
	require.NoError(t, err)
	return b
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
		return Snapshot{}
	}
}

func TestNewRequiresConnection(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, ErrNoConnection))
}

func TestSubject(t *testing.T) {
	b := newBus(t, WithPrefix("views.hidden."))
	assert.Equal(t, "views.hidden."+viewstate.Key("file:///a.go"), b.Subject("file:///a.go"))
}

func TestPublishSubscribe(t *testing.T) {
	b := newBus(t)
	got := make(chan Snapshot, 4)
	sub, err := b.Subscribe("file:///a.go", func(s Snapshot) { got <- s })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, b.nc.Flush())

	require.NoError(t, b.Publish(Snapshot{
		URI:     "file:///a.go",
		Version: 3,
		Hidden:  []folding.LineRange{{Start: 2, End: 4}},
	}))

	s := receive(t, got)
	assert.Equal(t, "file:///a.go", s.URI)
	assert.Equal(t, viewstate.Key("file:///a.go"), s.Key)
	assert.Equal(t, 3, s.Version)
	assert.Equal(t, []folding.LineRange{{Start: 2, End: 4}}, s.Hidden)
	assert.False(t, s.PublishedAt.IsZero())
}

func TestSubscribeAllDropsMalformed(t *testing.T) {
	b := newBus(t)
	got := make(chan Snapshot, 4)
	sub, err := b.Subscribe("", func(s Snapshot) { got <- s })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, b.nc.Flush())

	require.NoError(t, b.nc.Publish(DefaultPrefix+".garbage", []byte("{not json")))
	require.NoError(t, b.Publish(Snapshot{URI: "file:///b.go"}))

	s := receive(t, got)
	assert.Equal(t, "file:///b.go", s.URI)
	assert.Equal(t, []folding.LineRange{}, s.Hidden)
}

func TestAttachPublishesHiddenRanges(t *testing.T) {
	b := newBus(t)
	doc := document.New("file:///nested.txt", "plaintext", strings.Join([]string{
		"a", "  b", "    c", "    d", "  e", "    f", "g",
	}, "\n"))
	cfg := controller.DefaultConfig()
	cfg.DebounceMin = time.Millisecond
	cfg.DebounceMax = 2 * time.Millisecond
	c := controller.New(doc, controller.WithConfig(cfg))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Enable())
	require.NoError(t, c.ComputeNow(context.Background()))

	got := make(chan Snapshot, 4)
	sub, err := b.Subscribe(doc.URI(), func(s Snapshot) { got <- s })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, b.nc.Flush())

	detach := b.Attach(c)
	defer detach()

	_, err = c.Execute(context.Background(), controller.CmdFoldAll, controller.Args{})
	require.NoError(t, err)

	s := receive(t, got)
	assert.Equal(t, doc.URI(), s.URI)
	assert.Equal(t, doc.VersionID(), s.Version)
	assert.Equal(t, "indent", s.Provider)
	assert.Equal(t, []folding.LineRange{{Start: 2, End: 6}}, s.Hidden)
}
