// Package autocomplete resolves user-typed text on a foreign-key field to a
// candidate referenced row, keeping a bounded cache of candidates and a
// guard against stale query responses.
package autocomplete

import (
	"context"
	"strings"
	"sync"

	"github.com/koustreak/restadmin/internal/client"
	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/value"
)

// QueryLimit bounds every candidate query.
const QueryLimit = 40

// Match is a resolved candidate: the referenced row's key and its label.
type Match struct {
	Key   value.PK
	Label string
}

// Display renders a match the way the input shows it: "7 - Ada".
func (m Match) Display() string {
	if m.Label == "" {
		return m.Key.String()
	}
	return m.Key.String() + " - " + m.Label
}

// Tag identifies one in-flight candidate query: the field it originated
// from and the input text at issue time. A response is applied only while
// the session still matches its tag, so a slow early response can never
// overwrite the results of a fast later one.
type Tag struct {
	Column string
	Input  string
}

// Session is the transient autocomplete state owned by one foreign-key
// field. Safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	column    string
	params    value.ForeignKeyParams
	results   []*record.Record
	userInput string
	blocked   bool
}

// NewSession creates the session for the named foreign-key column.
func NewSession(column string, params value.ForeignKeyParams) *Session {
	return &Session{column: column, params: params}
}

// Begin processes one input change. It first tries to resolve the text
// against the cached candidates; when that fails it decides whether a
// fresh candidate query is warranted.
//
// A query is suppressed while the session is blocked and the new input has
// at least as many characters as the one that returned zero results:
// refining a failed filter cannot succeed. Deleting below that length
// always unblocks and re-queries.
func (s *Session) Begin(input string) (match *Match, tag Tag, query bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.resolveLocked(input); m != nil {
		s.userInput = input
		return m, Tag{}, false
	}

	suppress := s.blocked && len(input) >= len(s.userInput)
	if !suppress {
		s.blocked = false
	}
	s.userInput = input
	if suppress || input == "" {
		return nil, Tag{}, false
	}
	return nil, Tag{Column: s.column, Input: input}, true
}

// Apply installs a query's results, unless the session has moved on since
// the query was issued (the stale response guard). It reports whether the
// results were accepted.
func (s *Session) Apply(tag Tag, results []*record.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag.Column != s.column || tag.Input != s.userInput {
		return false
	}
	s.results = results
	s.blocked = len(results) == 0
	return true
}

// Resolve combines Begin, the candidate query, and a post-refresh local
// resolution into one call. The returned match is nil when the input does
// not identify a candidate yet.
func (s *Session) Resolve(ctx context.Context, c *client.Client, input string) (*Match, error) {
	match, tag, query := s.Begin(input)
	if match != nil || !query {
		return match, nil
	}

	results, err := c.SearchReferences(ctx, s.params, input, QueryLimit)
	if err != nil {
		return nil, err
	}
	if !s.Apply(tag, results) {
		// Superseded while in flight; the discard is deliberate.
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(input), nil
}

// Candidates returns a snapshot of the cached candidate matches, for
// rendering the suggestion list.
func (s *Session) Candidates() []Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Match, 0, len(s.results))
	for _, r := range s.results {
		if m := s.matchOf(r); m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// Blocked reports whether candidate queries are currently suppressed.
func (s *Session) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// resolveLocked scans the cached candidates: first for an exact match of
// the composed "key - label" display string, then for a label match, both
// case-insensitive.
func (s *Session) resolveLocked(input string) *Match {
	if input == "" {
		return nil
	}
	for _, r := range s.results {
		if m := s.matchOf(r); m != nil && strings.EqualFold(m.Display(), input) {
			return m
		}
	}
	for _, r := range s.results {
		if m := s.matchOf(r); m != nil && strings.EqualFold(m.Label, input) {
			return m
		}
	}
	return nil
}

// matchOf extracts the key and label of a candidate row.
func (s *Session) matchOf(r *record.Record) *Match {
	pk, ok := r.PrimaryKey()
	if !ok {
		return nil
	}
	m := &Match{Key: pk}
	if s.params.LabelColumn != "" {
		if f, ok := r.Field(s.params.LabelColumn); ok {
			m.Label = f.Value.String()
		}
	}
	return m
}
