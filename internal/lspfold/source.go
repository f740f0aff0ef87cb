// Package lspfold asks an external language server for fold ranges.
//
// A Source speaks JSON-RPC over any io.ReadWriteCloser (or a spawned
// process, see Start), keeps the server's copy of each document in sync
// with full-text didOpen/didChange notifications and translates
// textDocument/foldingRange results into provider.RawRange values.
// Servers that send workspace/foldingRange/refresh trigger the source's
// change listeners.
package lspfold

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
)

const methodFoldingRangeRefresh = "workspace/foldingRange/refresh"

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName sets the name used in logs and the provider registry.
func WithName(name string) Option {
	return func(s *Source) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLanguages sets the language ids the server handles.
func WithLanguages(ids ...string) Option {
	return func(s *Source) {
		s.languages = ids
	}
}

// WithRootURI sets the workspace root sent on initialize.
func WithRootURI(uri string) Option {
	return func(s *Source) {
		s.rootURI = uri
	}
}

// WithRangeLimit asks the server to return at most n ranges.
func WithRangeLimit(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.rangeLimit = uint32(n)
		}
	}
}

// Source is a provider.SyntaxSource backed by a language server.
type Source struct {
	conn       jsonrpc2.Conn
	logger     *zap.Logger
	name       string
	languages  []string
	rootURI    string
	rangeLimit uint32
	cmd        *exec.Cmd

	mu      sync.Mutex
	synced  map[string]int
	closed  bool
	changes folding.Emitter[struct{}]
}

// Dial connects to a language server over rwc and performs the initialize
// handshake. The source owns rwc from then on.
func Dial(ctx context.Context, rwc io.ReadWriteCloser, opts ...Option) (*Source, error) {
	s := &Source{
		logger:     zap.NewNop(),
		name:       "lsp",
		rangeLimit: folding.DefaultMaxRegions,
		synced:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("lspfold").With(zap.String("server", s.name))
	s.conn = jsonrpc2.NewConn(NewStream(rwc))
	s.conn.Go(context.WithoutCancel(ctx), s.handle)

	if err := s.initialize(ctx); err != nil {
		_ = s.conn.Close()
		return nil, err
	}
	return s, nil
}

// Start spawns a language server process speaking on stdio and dials it.
func Start(ctx context.Context, command string, args []string, opts ...Option) (*Source, error) {
	if command == "" {
		return nil, ErrNoCommand
	}
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("language server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("language server stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting language server %s: %w", command, err)
	}

	opts = append([]Option{WithName(command)}, opts...)
	s, err := Dial(ctx, &pipe{ReadCloser: stdout, w: stdin}, opts...)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	s.cmd = cmd
	return s, nil
}

func (s *Source) initialize(ctx context.Context) error {
	params := protocol.InitializeParams{
		ProcessID:  int32(os.Getpid()),
		ClientInfo: &protocol.ClientInfo{Name: "foldkit"},
		RootURI:    protocol.DocumentURI(s.rootURI),
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				FoldingRange: &protocol.FoldingRangeClientCapabilities{
					RangeLimit:      s.rangeLimit,
					LineFoldingOnly: true,
				},
			},
		},
	}
	var result protocol.InitializeResult
	if _, err := s.conn.Call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize %s: %w", s.name, err)
	}
	if result.Capabilities.FoldingRangeProvider == nil {
		s.logger.Warn("language server does not advertise folding ranges")
	}
	if err := s.conn.Notify(ctx, protocol.MethodInitialized, protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("initialized %s: %w", s.name, err)
	}
	s.logger.Info("language server initialized", zap.Strings("languages", s.languages))
	return nil
}

// Name implements provider.Named.
func (s *Source) Name() string { return s.name }

// Languages returns the language ids the server handles.
func (s *Source) Languages() []string { return s.languages }

// Register adds the source to r for its languages, or for every language
// when none were configured.
func (s *Source) Register(r *provider.Registry, score int) (unregister func()) {
	languages := s.languages
	if len(languages) == 0 {
		languages = []string{provider.AnyLanguage}
	}
	return r.Register(s.name, s, score, languages...)
}

// OnDidChange implements provider.ChangeNotifier.
func (s *Source) OnDidChange(handler func()) (unsubscribe func()) {
	return s.changes.Subscribe(func(struct{}) { handler() })
}

// ProvideFoldingRanges implements provider.SyntaxSource.
func (s *Source) ProvideFoldingRanges(ctx context.Context, doc folding.TextModel) ([]provider.RawRange, error) {
	if err := s.sync(ctx, doc); err != nil {
		return nil, err
	}
	params := protocol.FoldingRangeParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(doc.URI())},
		},
	}
	var result []protocol.FoldingRange
	start := time.Now()
	if _, err := s.conn.Call(ctx, protocol.MethodTextDocumentFoldingRange, params, &result); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("folding ranges from %s: %w", s.name, err)
	}
	s.logger.Debug("folding ranges received",
		zap.String("uri", doc.URI()),
		zap.Int("ranges", len(result)),
		zap.Duration("duration", time.Since(start)),
	)
	return toRawRanges(result), nil
}

func toRawRanges(ranges []protocol.FoldingRange) []provider.RawRange {
	out := make([]provider.RawRange, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, provider.RawRange{
			Start: int(r.StartLine) + 1,
			End:   int(r.EndLine) + 1,
			Kind:  kind(r.Kind),
		})
	}
	return out
}

func kind(k protocol.FoldingRangeKind) string {
	switch k {
	case protocol.CommentFoldingRange:
		return folding.TypeComment
	case protocol.ImportsFoldingRange:
		return folding.TypeImports
	case protocol.RegionFoldingRange:
		return folding.TypeRegion
	default:
		return string(k)
	}
}

// fullChange is a content change replacing the whole document.
type fullChange struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []fullChange                             `json:"contentChanges"`
}

// sync sends the document to the server when the server's copy is older.
func (s *Source) sync(ctx context.Context, doc folding.TextModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	uri, version := doc.URI(), doc.VersionID()
	synced, open := s.synced[uri]
	if open && synced == version {
		return nil
	}

	var err error
	if !open {
		err = s.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{
				URI:        protocol.DocumentURI(uri),
				LanguageID: protocol.LanguageIdentifier(doc.LanguageID()),
				Version:    int32(version),
				Text:       text(doc),
			},
		})
	} else {
		err = s.conn.Notify(ctx, protocol.MethodTextDocumentDidChange, didChangeParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
				Version:                int32(version),
			},
			ContentChanges: []fullChange{{Text: text(doc)}},
		})
	}
	if err != nil {
		return fmt.Errorf("syncing %s: %w", uri, err)
	}
	s.synced[uri] = version
	return nil
}

// CloseDocument tells the server the document is gone.
func (s *Source) CloseDocument(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, open := s.synced[uri]; !open || s.closed {
		return nil
	}
	delete(s.synced, uri)
	return s.conn.Notify(ctx, protocol.MethodTextDocumentDidClose, protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
}

// Close shuts the server down and releases the connection. A spawned
// process that does not exit before ctx is done is killed.
func (s *Source) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if _, err := s.conn.Call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
		s.logger.Warn("language server shutdown failed", zap.Error(err))
	}
	if err := s.conn.Notify(ctx, protocol.MethodExit, nil); err != nil {
		s.logger.Debug("language server exit notification failed", zap.Error(err))
	}
	err := s.conn.Close()
	s.changes.Clear()
	if s.cmd != nil {
		s.wait(ctx)
	}
	return err
}

func (s *Source) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		_ = s.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-done
	}
}

// handle answers server-to-client requests and notifications.
func (s *Source) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case methodFoldingRangeRefresh:
		s.logger.Debug("folding range refresh requested")
		s.changes.Emit(struct{}{})
		return reply(ctx, nil, nil)
	case protocol.MethodWindowLogMessage:
		var params protocol.LogMessageParams
		if err := json.Unmarshal(req.Params(), &params); err == nil {
			s.logger.Debug("language server log", zap.String("message", strings.TrimSpace(params.Message)))
		}
		return reply(ctx, nil, nil)
	case "workspace/configuration":
		var params struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err))
		}
		return reply(ctx, make([]any, len(params.Items)), nil)
	case "window/showMessage", "window/workDoneProgress/create", "client/registerCapability",
		"textDocument/publishDiagnostics", "$/progress", "telemetry/event":
		return reply(ctx, nil, nil)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func text(doc folding.TextModel) string {
	var b strings.Builder
	for i := 1; i <= doc.LineCount(); i++ {
		if i > 1 {
			b.WriteByte('\n')
		}
		b.WriteString(doc.LineContent(i))
	}
	return b.String()
}
