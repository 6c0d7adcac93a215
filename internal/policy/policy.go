// Package policy validates display names and redacts forbidden words from
// chat text. A Policy is stateless after construction and safe for
// concurrent use.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

//go:embed words.txt
var defaultWords string

var (
	// ErrNameEmpty rejects names that are blank after trimming.
	ErrNameEmpty = errors.New("name must not be empty")
	// ErrNameTooLong rejects names over the configured rune limit.
	ErrNameTooLong = errors.New("name is too long")
	// ErrNameForbidden rejects names containing a forbidden substring.
	ErrNameForbidden = errors.New("name contains forbidden words")
)

// DefaultWords returns the embedded forbidden word list.
func DefaultWords() []string {
	lines := strings.Split(defaultWords, "\n")
	return lo.Filter(lo.Map(lines, func(line string, _ int) string {
		return strings.TrimSpace(line)
	}), func(line string, _ int) bool {
		return line != "" && !strings.HasPrefix(line, "#")
	})
}

// Policy matches forbidden substrings case-insensitively with no word
// boundary check, so a forbidden word inside a longer word also matches.
type Policy struct {
	matcher       *goahocorasick.Machine
	mask          rune
	maxNameLength int
}

// New builds the matcher over words. An empty list yields a policy that
// allows every name and never redacts.
func New(words []string, mask rune, maxNameLength int) (*Policy, error) {
	patterns := lo.Uniq(lo.FilterMap(words, func(word string, _ int) (string, bool) {
		w := string(lower([]rune(strings.TrimSpace(word))))
		return w, w != ""
	}))
	sort.Strings(patterns)

	p := &Policy{mask: mask, maxNameLength: maxNameLength}
	if len(patterns) == 0 {
		return p, nil
	}

	runes := lo.Map(patterns, func(w string, _ int) []rune { return []rune(w) })
	m := new(goahocorasick.Machine)
	if err := m.Build(runes); err != nil {
		return nil, fmt.Errorf("build word matcher: %w", err)
	}
	p.matcher = m
	return p, nil
}

// CheckName returns nil when name is acceptable as a display name, or the
// reason it is not.
func (p *Policy) CheckName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameEmpty
	}
	if p.maxNameLength > 0 && len([]rune(trimmed)) > p.maxNameLength {
		return fmt.Errorf("%w: max %d characters", ErrNameTooLong, p.maxNameLength)
	}
	if len(p.spans([]rune(trimmed))) > 0 {
		return ErrNameForbidden
	}
	return nil
}

// IsNameAllowed reports whether CheckName accepts name.
func (p *Policy) IsNameAllowed(name string) bool {
	return p.CheckName(name) == nil
}

// Redact replaces every forbidden substring with mask runes of equal length.
func (p *Policy) Redact(text string) string {
	runes := []rune(text)
	spans := p.spans(runes)
	if len(spans) == 0 {
		return text
	}
	for _, s := range spans {
		for i := s.start; i < s.end; i++ {
			runes[i] = p.mask
		}
	}
	return string(runes)
}

type span struct{ start, end int }

func (p *Policy) spans(runes []rune) []span {
	if p.matcher == nil || len(runes) == 0 {
		return nil
	}

	terms := p.matcher.MultiPatternSearch(lower(runes), false)
	out := make([]span, 0, len(terms))
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(runes) {
			continue
		}
		out = append(out, span{start: start, end: end})
	}
	return out
}

// lower maps runes one to one so indexes line up with the original text.
func lower(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}
