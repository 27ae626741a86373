package notation

import (
	"fmt"
	"sort"

	"github.com/funvibe/fastrule/internal/pattern"
)

// Symbols assigns numeric ids to head and type names. Ids start at 1.
type Symbols struct {
	heads     map[string]pattern.Symbol
	headNames map[pattern.Symbol]string
	nextHead  pattern.Symbol

	types     map[string]pattern.TypeID
	typeNames map[pattern.TypeID]string
	nextType  pattern.TypeID
}

func NewSymbols() *Symbols {
	return &Symbols{
		heads:     make(map[string]pattern.Symbol),
		headNames: make(map[pattern.Symbol]string),
		nextHead:  1,
		types:     make(map[string]pattern.TypeID),
		typeNames: make(map[pattern.TypeID]string),
		nextType:  1,
	}
}

// PinHeads fixes the ids of the given head names. It must run before any
// name is interned.
func (s *Symbols) PinHeads(ids map[string]uint64) error {
	for _, name := range sortedKeys(ids) {
		id := pattern.Symbol(ids[name])
		if other, ok := s.headNames[id]; ok && other != name {
			return fmt.Errorf("symbol id %d already used by %q", id, other)
		}
		if old, ok := s.heads[name]; ok && old != id {
			return fmt.Errorf("symbol %q already has id %d", name, old)
		}
		s.heads[name] = id
		s.headNames[id] = name
		s.nextHead = max(s.nextHead, id+1)
	}
	return nil
}

// PinTypes fixes the ids of the given type names.
func (s *Symbols) PinTypes(ids map[string]uint64) error {
	for _, name := range sortedKeys(ids) {
		id := pattern.TypeID(ids[name])
		if other, ok := s.typeNames[id]; ok && other != name {
			return fmt.Errorf("type id %d already used by %q", id, other)
		}
		if old, ok := s.types[name]; ok && old != id {
			return fmt.Errorf("type %q already has id %d", name, old)
		}
		s.types[name] = id
		s.typeNames[id] = name
		s.nextType = max(s.nextType, id+1)
	}
	return nil
}

// Head returns the id of a head name, assigning one if needed.
func (s *Symbols) Head(name string) pattern.Symbol {
	if id, ok := s.heads[name]; ok {
		return id
	}
	id := s.nextHead
	s.nextHead++
	s.heads[name] = id
	s.headNames[id] = name
	return id
}

// Type returns the id of a type name, assigning one if needed.
func (s *Symbols) Type(name string) pattern.TypeID {
	if id, ok := s.types[name]; ok {
		return id
	}
	id := s.nextType
	s.nextType++
	s.types[name] = id
	s.typeNames[id] = name
	return id
}

// LookupHead returns the id of a known head name.
func (s *Symbols) LookupHead(name string) (pattern.Symbol, bool) {
	id, ok := s.heads[name]
	return id, ok
}

// HeadName returns the name of a head id, or "".
func (s *Symbols) HeadName(id pattern.Symbol) string { return s.headNames[id] }

// TypeName returns the name of a type id, or "".
func (s *Symbols) TypeName(id pattern.TypeID) string { return s.typeNames[id] }

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
