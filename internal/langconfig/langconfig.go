// Package langconfig holds per-language folding rules: whether the language
// is indentation scoped, which lines are region markers, and which prefixes
// start comment and import blocks.
//
// Rules ship in an embedded TOML file. A user file can override or extend
// them; languages defined there replace the built-in entry of the same id.
package langconfig

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed languages.toml
var defaultRules []byte

// Markers matches region start and end lines.
type Markers struct {
	Start *regexp.Regexp
	End   *regexp.Regexp
}

// Rules are the folding rules of one language.
type Rules struct {
	ID           string
	Aliases      []string `toml:"aliases"`
	OffSide      bool     `toml:"off_side"`
	MarkerStart  string   `toml:"marker_start"`
	MarkerEnd    string   `toml:"marker_end"`
	LineComment  string   `toml:"line_comment"`
	ImportPrefix []string `toml:"import_prefix"`

	markers *Markers
}

// Markers returns the compiled region markers, or nil when the language
// has none.
func (r Rules) Markers() *Markers {
	return r.markers
}

// IsImportLine reports whether trimmed starts an import block.
func (r Rules) IsImportLine(trimmed string) bool {
	for _, p := range r.ImportPrefix {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// IsCommentLine reports whether trimmed is a line comment.
func (r Rules) IsCommentLine(trimmed string) bool {
	return r.LineComment != "" && strings.HasPrefix(trimmed, r.LineComment)
}

func (r *Rules) compile(source string) error {
	if r.MarkerStart == "" && r.MarkerEnd == "" {
		return nil
	}
	if r.MarkerStart == "" || r.MarkerEnd == "" {
		return fmt.Errorf("%w: language %q in %s", ErrIncompleteMarkers, r.ID, source)
	}
	start, err := regexp.Compile(r.MarkerStart)
	if err != nil {
		return fmt.Errorf("%w: marker_start '%s' of %q in %s: %v", ErrInvalidRegex, r.MarkerStart, r.ID, source, err)
	}
	end, err := regexp.Compile(r.MarkerEnd)
	if err != nil {
		return fmt.Errorf("%w: marker_end '%s' of %q in %s: %v", ErrInvalidRegex, r.MarkerEnd, r.ID, source, err)
	}
	r.markers = &Markers{Start: start, End: end}
	return nil
}

// Set resolves rules by language id or alias.
type Set struct {
	byID map[string]*Rules
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the built-in rules. It panics if the embedded file is
// invalid, which the package tests rule out.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := parse(defaultRules, "languages.toml")
		if err != nil {
			panic(err)
		}
		defaultSet = s
	})
	return defaultSet
}

// Load returns the built-in rules overridden by the file at path. An empty
// path or a missing file yields the built-in rules.
func Load(path string) (*Set, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("reading language rules: %w", err)
	}
	override, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	return base.merge(override), nil
}

func parse(data []byte, source string) (*Set, error) {
	var file struct {
		Languages map[string]Rules `toml:"languages"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, source, err)
	}
	s := &Set{byID: make(map[string]*Rules, len(file.Languages)*2)}
	for id, rules := range file.Languages {
		rules := rules
		rules.ID = id
		if err := rules.compile(source); err != nil {
			return nil, err
		}
		s.byID[id] = &rules
		for _, alias := range rules.Aliases {
			if _, taken := s.byID[alias]; !taken {
				s.byID[alias] = &rules
			}
		}
	}
	return s, nil
}

func (s *Set) merge(o *Set) *Set {
	out := &Set{byID: make(map[string]*Rules, len(s.byID)+len(o.byID))}
	for k, v := range s.byID {
		out.byID[k] = v
	}
	for k, v := range o.byID {
		out.byID[k] = v
	}
	return out
}

// Lookup returns the rules for languageID. Unknown languages get empty
// rules: not off-side, no markers.
func (s *Set) Lookup(languageID string) Rules {
	if r, ok := s.byID[languageID]; ok {
		return *r
	}
	return Rules{ID: languageID}
}

// Languages returns the canonical language ids, sorted.
func (s *Set) Languages() []string {
	var ids []string
	for k, v := range s.byID {
		if k == v.ID {
			ids = append(ids, k)
		}
	}
	sort.Strings(ids)
	return ids
}

// LanguageForFile guesses a language id from a file name.
func LanguageForFile(name string) string {
	lower := strings.ToLower(name)
	dot := strings.LastIndexByte(lower, '.')
	if dot < 0 {
		return "plaintext"
	}
	switch ext := lower[dot+1:]; ext {
	case "go":
		return "go"
	case "py", "pyi":
		return "python"
	case "yaml", "yml":
		return "yaml"
	case "js", "mjs", "cjs", "jsx":
		return "javascript"
	case "ts", "tsx":
		return "typescript"
	case "c", "h", "cc", "cpp", "hpp":
		return "c"
	case "rs":
		return "rust"
	case "sh", "bash":
		return "shellscript"
	case "md", "markdown":
		return "markdown"
	case "toml":
		return "toml"
	default:
		return "plaintext"
	}
}
