// Package config holds project constants and the clause file format.
//
// A clause file declares the equations of one function in the textual
// pattern notation, optionally fixing symbol and type ids and listing
// probes to verify the compiled program against:
//
//	function: f
//	clauses:
//	  - f (Succ (Succ x))
//	  - f (Succ x)
//	  - f x
//	data:
//	  - "f #Int n"
//	probes:
//	  - args: ["Succ Zero"]
//	    expect: {outcome: structural, clause: 1}
//
// A '#' after a space starts a YAML comment, so values holding type
// patterns must be quoted. An unquoted one is rejected rather than read
// cut short. Files ending in .toml use the same schema in TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ClauseFile is a parsed clause file.
type ClauseFile struct {
	// Function is the root head every clause defines. Defaults to the root
	// head of the first clause.
	Function string `yaml:"function,omitempty" toml:"function"`

	// Symbols optionally pins head names to numeric ids. Names not listed
	// are assigned ids after the largest pinned one.
	Symbols map[string]uint64 `yaml:"symbols,omitempty" toml:"symbols"`

	// Types optionally pins data type names to numeric ids.
	Types map[string]uint64 `yaml:"types,omitempty" toml:"types"`

	// Clauses are the structural clauses in priority order.
	Clauses []string `yaml:"clauses,omitempty" toml:"clauses"`

	// Data are the data clauses in priority order.
	Data []string `yaml:"data,omitempty" toml:"data"`

	// Arity overrides the computed dispatch arity. Zero means computed.
	Arity int `yaml:"arity,omitempty" toml:"arity"`

	// Probes are argument tuples to run through the compiled program.
	Probes []Probe `yaml:"probes,omitempty" toml:"probes"`

	// Path is the file the config was read from.
	Path string `yaml:"-" toml:"-"`
}

// Probe is one argument tuple with an optional expected outcome.
type Probe struct {
	Args   []string `yaml:"args" toml:"args"`
	Expect *Expect  `yaml:"expect,omitempty" toml:"expect"`
}

// Expect is the outcome a probe should produce.
type Expect struct {
	// Outcome is "structural", "data" or "fail".
	Outcome string `yaml:"outcome" toml:"outcome"`

	// Clause is the index of the clause expected to fire.
	Clause int `yaml:"clause,omitempty" toml:"clause"`

	// Bindings maps capture names to the expected value notation.
	Bindings map[string]string `yaml:"bindings,omitempty" toml:"bindings"`
}

// LoadClauseFile reads and parses a clause file, choosing YAML or TOML by
// extension.
func LoadClauseFile(path string) (*ClauseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clause file %s: %w", path, err)
	}
	return ParseClauseFile(data, path)
}

// ParseClauseFile parses clause file content from bytes. The path selects
// the format and is used in error messages.
func ParseClauseFile(data []byte, path string) (*ClauseFile, error) {
	var cf ClauseFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := checkTagComments(&doc, path); err != nil {
			return nil, err
		}
		if doc.Kind != 0 {
			if err := doc.Decode(&cf); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	cf.Path = path
	if err := cf.validate(path); err != nil {
		return nil, err
	}
	cf.setDefaults()
	return &cf, nil
}

// tagComment matches a YAML comment that is really the tail of an unquoted
// value cut at a type pattern, as in `- f #Int n`.
var tagComment = regexp.MustCompile(`^#\p{L}`)

// checkTagComments rejects documents where YAML swallowed a type pattern
// as a comment.
func checkTagComments(n *yaml.Node, path string) error {
	for _, comment := range []string{n.LineComment, n.HeadComment, n.FootComment} {
		for _, line := range strings.Split(comment, "\n") {
			if tagComment.MatchString(strings.TrimSpace(line)) {
				return fmt.Errorf("%s:%d: %q is read as a YAML comment; quote values that contain type patterns",
					path, n.Line, strings.TrimSpace(line))
			}
		}
	}
	for _, child := range n.Content {
		if err := checkTagComments(child, path); err != nil {
			return err
		}
	}
	return nil
}

// IsClauseFile checks if a file has a recognized clause file extension
func IsClauseFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ClauseFileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// validate checks the configuration for semantic errors.
func (c *ClauseFile) validate(path string) error {
	if len(c.Clauses) == 0 && len(c.Data) == 0 {
		return fmt.Errorf("%s: no clauses defined", path)
	}
	if c.Arity < 0 {
		return fmt.Errorf("%s: arity must not be negative", path)
	}

	for i, clause := range c.Clauses {
		if strings.TrimSpace(clause) == "" {
			return fmt.Errorf("%s: clauses[%d]: empty clause", path, i)
		}
	}
	for i, clause := range c.Data {
		if strings.TrimSpace(clause) == "" {
			return fmt.Errorf("%s: data[%d]: empty clause", path, i)
		}
	}

	seenIDs := make(map[uint64]string)
	for name, id := range c.Symbols {
		if other, ok := seenIDs[id]; ok {
			return fmt.Errorf("%s: symbols: %q and %q share id %d", path, name, other, id)
		}
		seenIDs[id] = name
	}
	seenIDs = make(map[uint64]string)
	for name, id := range c.Types {
		if other, ok := seenIDs[id]; ok {
			return fmt.Errorf("%s: types: %q and %q share id %d", path, name, other, id)
		}
		seenIDs[id] = name
	}

	for i, p := range c.Probes {
		if p.Expect == nil {
			continue
		}
		switch p.Expect.Outcome {
		case OutcomeStructural:
			if p.Expect.Clause < 0 || p.Expect.Clause >= len(c.Clauses) {
				return fmt.Errorf("%s: probes[%d]: no structural clause %d", path, i, p.Expect.Clause)
			}
		case OutcomeData:
			if p.Expect.Clause < 0 || p.Expect.Clause >= len(c.Data) {
				return fmt.Errorf("%s: probes[%d]: no data clause %d", path, i, p.Expect.Clause)
			}
		case OutcomeFail:
			if len(p.Expect.Bindings) > 0 {
				return fmt.Errorf("%s: probes[%d]: a failing probe cannot expect bindings", path, i)
			}
		default:
			return fmt.Errorf("%s: probes[%d]: unknown outcome %q (want %s, %s or %s)",
				path, i, p.Expect.Outcome, OutcomeStructural, OutcomeData, OutcomeFail)
		}
	}
	return nil
}

// setDefaults fills in optional fields.
func (c *ClauseFile) setDefaults() {
	if c.Symbols == nil {
		c.Symbols = make(map[string]uint64)
	}
	if c.Types == nil {
		c.Types = make(map[string]uint64)
	}
	for i := range c.Clauses {
		c.Clauses[i] = strings.TrimSpace(c.Clauses[i])
	}
	for i := range c.Data {
		c.Data[i] = strings.TrimSpace(c.Data[i])
	}
}

// Fingerprint returns the file content normalized for cache keys:
// trailing whitespace is trimmed on each line so trivial edits do not
// invalidate cached programs.
func Fingerprint(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	var normalized strings.Builder
	for _, line := range lines {
		normalized.WriteString(strings.TrimRight(line, " \t\r"))
		normalized.WriteString("\n")
	}
	return []byte(strings.TrimRight(normalized.String(), "\n"))
}
