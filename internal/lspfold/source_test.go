package lspfold

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	json "github.com/goccy/go-json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
)

// fakeServer is a minimal language server answering over one end of a pipe.
type fakeServer struct {
	conn jsonrpc2.Conn

	mu       sync.Mutex
	methods  []string
	texts    map[string]string
	versions map[string]int32
	ranges   []protocol.FoldingRange
	fail     bool
	release  chan struct{}
	init     protocol.InitializeParams
}

func newFakeServer(t *testing.T, opts ...Option) (*fakeServer, *Source) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	srv := &fakeServer{
		texts:    make(map[string]string),
		versions: make(map[string]int32),
		ranges: []protocol.FoldingRange{
			{StartLine: 0, EndLine: 2, Kind: protocol.CommentFoldingRange},
			{StartLine: 3, EndLine: 6},
			{StartLine: 4, EndLine: 5, Kind: protocol.ImportsFoldingRange},
		},
	}
	srv.conn = jsonrpc2.NewConn(NewStream(serverSide))
	srv.conn.Go(context.Background(), srv.handle)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithName("fake"), WithLanguages("go")}, opts...)
	src, err := Dial(ctx, clientSide, opts...)
	testza.AssertNoError(t, err)
	t.Cleanup(func() {
		srv.unblock()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = src.Close(ctx)
		_ = srv.conn.Close()
	})
	return srv, src
}

func (f *fakeServer) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	f.mu.Lock()
	f.methods = append(f.methods, req.Method())
	f.mu.Unlock()

	switch req.Method() {
	case protocol.MethodInitialize:
		var params protocol.InitializeParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		f.mu.Lock()
		f.init = params
		f.mu.Unlock()
		return reply(ctx, protocol.InitializeResult{
			Capabilities: protocol.ServerCapabilities{FoldingRangeProvider: true},
		}, nil)
	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err == nil {
			f.mu.Lock()
			f.texts[string(params.TextDocument.URI)] = params.TextDocument.Text
			f.versions[string(params.TextDocument.URI)] = params.TextDocument.Version
			f.mu.Unlock()
		}
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentDidChange:
		var params didChangeParams
		if err := json.Unmarshal(req.Params(), &params); err == nil && len(params.ContentChanges) == 1 {
			f.mu.Lock()
			f.texts[string(params.TextDocument.URI)] = params.ContentChanges[0].Text
			f.versions[string(params.TextDocument.URI)] = params.TextDocument.Version
			f.mu.Unlock()
		}
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentFoldingRange:
		f.mu.Lock()
		ranges, fail, release := f.ranges, f.fail, f.release
		f.mu.Unlock()
		if fail {
			return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InternalError, "folding exploded"))
		}
		if release != nil {
			go func() {
				<-release
				_ = reply(ctx, ranges, nil)
			}()
			return nil
		}
		return reply(ctx, ranges, nil)
	default:
		return reply(ctx, nil, nil)
	}
}

func (f *fakeServer) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release = make(chan struct{})
}

func (f *fakeServer) unblock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.release != nil {
		close(f.release)
		f.release = nil
	}
}

func (f *fakeServer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func (f *fakeServer) text(uri string) (string, int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[uri], f.versions[uri]
}

func count(methods []string, method string) int {
	n := 0
	for _, m := range methods {
		if m == method {
			n++
		}
	}
	return n
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDialInitializes(t *testing.T) {
	srv, src := newFakeServer(t, WithRangeLimit(200))

	methods := srv.calls()
	testza.AssertEqual(t, protocol.MethodInitialize, methods[0])
	eventually(t, func() bool { return count(srv.calls(), protocol.MethodInitialized) == 1 })

	srv.mu.Lock()
	caps := srv.init.Capabilities.TextDocument.FoldingRange
	clientName := srv.init.ClientInfo.Name
	srv.mu.Unlock()
	testza.AssertTrue(t, caps.LineFoldingOnly)
	testza.AssertEqual(t, uint32(200), caps.RangeLimit)
	testza.AssertEqual(t, "foldkit", clientName)
	testza.AssertEqual(t, "fake", src.Name())
	testza.AssertEqual(t, []string{"go"}, src.Languages())
}

func TestProvideFoldingRangesConvertsRanges(t *testing.T) {
	srv, src := newFakeServer(t)
	doc := document.New("file:///a.go", "go", "a\nb\nc\nd\ne\nf\ng\nh")

	ranges, err := src.ProvideFoldingRanges(context.Background(), doc)
	testza.AssertNoError(t, err)
	testza.AssertEqual(t, []provider.RawRange{
		{Start: 1, End: 3, Kind: folding.TypeComment},
		{Start: 4, End: 7},
		{Start: 5, End: 6, Kind: folding.TypeImports},
	}, ranges)

	text, version := srv.text("file:///a.go")
	testza.AssertEqual(t, "a\nb\nc\nd\ne\nf\ng\nh", text)
	testza.AssertEqual(t, int32(1), version)
}

func TestProvideFoldingRangesSyncsOnlyOnVersionChange(t *testing.T) {
	srv, src := newFakeServer(t)
	doc := document.New("file:///b.go", "go", "one\ntwo")
	ctx := context.Background()

	_, err := src.ProvideFoldingRanges(ctx, doc)
	testza.AssertNoError(t, err)
	_, err = src.ProvideFoldingRanges(ctx, doc)
	testza.AssertNoError(t, err)

	methods := srv.calls()
	testza.AssertEqual(t, 1, count(methods, protocol.MethodTextDocumentDidOpen))
	testza.AssertEqual(t, 0, count(methods, protocol.MethodTextDocumentDidChange))
	testza.AssertEqual(t, 2, count(methods, protocol.MethodTextDocumentFoldingRange))

	doc.SetText("one\ntwo\nthree")
	_, err = src.ProvideFoldingRanges(ctx, doc)
	testza.AssertNoError(t, err)

	testza.AssertEqual(t, 1, count(srv.calls(), protocol.MethodTextDocumentDidChange))
	text, version := srv.text("file:///b.go")
	testza.AssertEqual(t, "one\ntwo\nthree", text)
	testza.AssertEqual(t, int32(2), version)
}

func TestProvideFoldingRangesServerError(t *testing.T) {
	srv, src := newFakeServer(t)
	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()

	_, err := src.ProvideFoldingRanges(context.Background(), document.New("file:///c.go", "go", "x"))
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "folding exploded")
}

func TestProvideFoldingRangesCanceled(t *testing.T) {
	srv, src := newFakeServer(t)
	srv.block()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := src.ProvideFoldingRanges(ctx, document.New("file:///d.go", "go", "x\ny"))
		done <- err
	}()
	eventually(t, func() bool { return count(srv.calls(), protocol.MethodTextDocumentFoldingRange) == 1 })
	cancel()

	select {
	case err := <-done:
		testza.AssertTrue(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("request did not return after cancel")
	}
}

func TestRefreshNotifiesListeners(t *testing.T) {
	srv, src := newFakeServer(t)
	fired := make(chan struct{}, 1)
	unsubscribe := src.OnDidChange(func() { fired <- struct{}{} })
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := srv.conn.Call(ctx, methodFoldingRangeRefresh, nil, nil)
	testza.AssertNoError(t, err)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not notify")
	}
}

func TestUnknownServerRequest(t *testing.T) {
	srv, _ := newFakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := srv.conn.Call(ctx, "workspace/somethingNew", nil, nil)
	testza.AssertNotNil(t, err)

	var items []any
	_, err = srv.conn.Call(ctx, "workspace/configuration", map[string]any{
		"items": []map[string]string{{"section": "a"}, {"section": "b"}},
	}, &items)
	testza.AssertNoError(t, err)
	testza.AssertLen(t, items, 2)
}

func TestCloseDocumentAndShutdown(t *testing.T) {
	srv, src := newFakeServer(t)
	ctx := context.Background()
	_, err := src.ProvideFoldingRanges(ctx, document.New("file:///e.go", "go", "x"))
	testza.AssertNoError(t, err)

	testza.AssertNoError(t, src.CloseDocument(ctx, "file:///e.go"))
	testza.AssertNoError(t, src.CloseDocument(ctx, "file:///never-opened.go"))

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = src.Close(closeCtx)

	methods := srv.calls()
	testza.AssertEqual(t, 1, count(methods, protocol.MethodTextDocumentDidClose))
	testza.AssertEqual(t, 1, count(methods, protocol.MethodShutdown))

	_, err = src.ProvideFoldingRanges(ctx, document.New("file:///e.go", "go", "x"))
	testza.AssertTrue(t, errors.Is(err, ErrClosed))
}

func TestStartWithoutCommand(t *testing.T) {
	_, err := Start(context.Background(), "", nil)
	testza.AssertTrue(t, errors.Is(err, ErrNoCommand))
}

func TestRegisterUsesLanguages(t *testing.T) {
	_, src := newFakeServer(t)
	r := provider.NewRegistry()
	unregister := src.Register(r, 10)
	testza.AssertEqual(t, []string{"fake"}, r.Names("go"))
	testza.AssertLen(t, r.Names("python"), 0)
	unregister()
	testza.AssertLen(t, r.Names("go"), 0)
}
