package lspfold

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"go.lsp.dev/jsonrpc2"
)

const (
	headerContentLength = "Content-Length"
	readBufferSize      = 64 * 1024
)

// stream frames JSON-RPC messages with LSP Content-Length headers.
type stream struct {
	conn io.ReadWriteCloser
	in   *bufio.Reader
}

// NewStream returns a jsonrpc2.Stream over conn.
func NewStream(conn io.ReadWriteCloser) jsonrpc2.Stream {
	return &stream{
		conn: conn,
		in:   bufio.NewReaderSize(conn, readBufferSize),
	}
}

func (s *stream) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var total, length int64
	for {
		line, err := s.in.ReadString('\n')
		total += int64(len(line))
		if err != nil {
			return nil, total, fmt.Errorf("reading header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, total, fmt.Errorf("%w: header line %q", ErrProtocol, line)
		}
		if name == headerContentLength {
			length, err = strconv.ParseInt(strings.TrimSpace(value), 10, 32)
			if err != nil || length <= 0 {
				return nil, total, fmt.Errorf("%w: %s %q", ErrProtocol, headerContentLength, value)
			}
		}
	}
	if length == 0 {
		return nil, total, fmt.Errorf("%w: missing %s", ErrProtocol, headerContentLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(s.in, data); err != nil {
		return nil, total, fmt.Errorf("reading body: %w", err)
	}
	total += length
	msg, err := jsonrpc2.DecodeMessage(data)
	return msg, total, err
}

func (s *stream) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}
	header := headerContentLength + ": " + strconv.Itoa(len(data)) + "\r\n\r\n"
	n, err := io.WriteString(s.conn, header)
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("writing header: %w", err)
	}
	n, err = s.conn.Write(data)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("writing body: %w", err)
	}
	return total, nil
}

func (s *stream) Close() error {
	return s.conn.Close()
}

// pipe joins a process's stdout and stdin.
type pipe struct {
	io.ReadCloser
	w io.WriteCloser
}

func (p *pipe) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipe) Close() error {
	werr := p.w.Close()
	rerr := p.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
