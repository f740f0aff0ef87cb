// Package viewstate persists fold mementos between sessions.
//
// Each document's state is one file named after the xxh3 hash of its URI.
// The file holds a zstd-compressed JSON Entry. Entries carry a blake2b
// digest of the text they were saved against so callers can tell when the
// document changed on disk since; mementos are still applied in that case
// and rely on their per-range checksums.
package viewstate

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

const (
	fileExt     = ".fold"
	digestBytes = 16
)

// Entry is one stored view state.
type Entry struct {
	URI     string          `json:"uri"`
	Digest  string          `json:"digest"`
	SavedAt time.Time       `json:"savedAt"`
	Memento folding.Memento `json:"memento"`

	// Drifted is set by Load when the document text no longer matches Digest.
	Drifted bool `json:"-"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCompressionLevel sets the zstd level (1 fastest, 22 smallest).
// Non-positive values keep the default.
func WithCompressionLevel(level int) Option {
	return func(s *Store) {
		if level > 0 {
			s.level = zstd.EncoderLevelFromZstd(level)
		}
	}
}

// Store keeps view states in a directory.
type Store struct {
	dir    string
	logger *zap.Logger
	level  zstd.EncoderLevel

	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: zap.NewNop(),
		level:  zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating view state dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(s.level))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	s.enc, s.dec = enc, dec
	return s, nil
}

// Close releases the codec state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec != nil {
		s.dec.Close()
		s.dec = nil
	}
	if s.enc != nil {
		err := s.enc.Close()
		s.enc = nil
		return err
	}
	return nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Key returns the stable short key of a document URI.
func Key(uri string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(uri))
}

// Digest hashes the text of doc.
func Digest(doc folding.TextModel) string {
	h, _ := blake2b.New(digestBytes, nil)
	for i := 1; i <= doc.LineCount(); i++ {
		h.Write([]byte(doc.LineContent(i)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) path(uri string) string {
	return filepath.Join(s.dir, Key(uri)+fileExt)
}

// Save stores m for doc, replacing any previous entry. A nil memento
// deletes the entry.
func (s *Store) Save(doc folding.TextModel, m *folding.Memento) error {
	uri := doc.URI()
	if uri == "" {
		return ErrInvalidURI
	}
	if m == nil {
		return s.Delete(uri)
	}
	entry := Entry{
		URI:     uri,
		Digest:  Digest(doc),
		SavedAt: time.Now().UTC(),
		Memento: *m,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding view state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return fs.ErrClosed
	}
	compressed := s.enc.EncodeAll(data, nil)
	if err := writeFile(s.path(uri), compressed); err != nil {
		return fmt.Errorf("writing view state for %s: %w", uri, err)
	}
	s.logger.Debug("view state saved",
		zap.String("uri", uri),
		zap.Int("ranges", len(m.CollapsedRegions)),
		zap.Int("bytes", len(compressed)),
	)
	return nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load returns the entry stored for doc. Entry.Drifted reports whether the
// text changed since it was saved.
func (s *Store) Load(doc folding.TextModel) (*Entry, error) {
	uri := doc.URI()
	entry, err := s.Get(uri)
	if err != nil {
		return nil, err
	}
	entry.Drifted = entry.Digest != Digest(doc)
	if entry.Drifted {
		s.logger.Debug("view state drifted from document text", zap.String("uri", uri))
	}
	return entry, nil
}

// Get returns the entry stored for uri without checking drift.
func (s *Store) Get(uri string) (*Entry, error) {
	if uri == "" {
		return nil, ErrInvalidURI
	}
	compressed, err := os.ReadFile(s.path(uri))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading view state for %s: %w", uri, err)
	}
	return s.decode(compressed)
}

func (s *Store) decode(compressed []byte) (*Entry, error) {
	s.mu.Lock()
	dec := s.dec
	s.mu.Unlock()
	if dec == nil {
		return nil, fs.ErrClosed
	}
	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: json: %w", ErrCorrupt, err)
	}
	return &entry, nil
}

// Delete removes the entry for uri. Missing entries are not an error.
func (s *Store) Delete(uri string) error {
	if uri == "" {
		return ErrInvalidURI
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(uri)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting view state for %s: %w", uri, err)
	}
	return nil
}

// List returns the URIs of all readable entries, sorted. Corrupt entries
// are logged and skipped.
func (s *Store) List() ([]string, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing view states: %w", err)
	}
	var uris []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), fileExt) {
			continue
		}
		compressed, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			continue
		}
		entry, err := s.decode(compressed)
		if err != nil {
			s.logger.Warn("skipping unreadable view state", zap.String("file", f.Name()), zap.Error(err))
			continue
		}
		uris = append(uris, entry.URI)
	}
	sort.Strings(uris)
	return uris, nil
}
