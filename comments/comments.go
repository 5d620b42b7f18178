// Package comments implements the ordered tag list shared by Ogg Opus and
// Ogg Vorbis comment headers: an ordered sequence of KEY=VALUE pairs with
// ASCII case-insensitive key lookup and multi-valued keys.
package comments

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

var (
	ErrBadFieldName     = errors.New("invalid comment field name")
	ErrMissingSeparator = errors.New("comment is missing '=' separator")
)

// Separator splits a comment's field name from its value.
const Separator = '='

type Comment struct {
	Key, Value string
}

// List is an ordered comment list. Keys keep the case they were inserted
// with, lookups and removals match ASCII case-insensitively, and the same
// key may appear any number of times.
type List struct {
	comments []Comment
}

func NewList(cs ...Comment) (*List, error) {
	var l List
	for _, c := range cs {
		if err := l.Append(c.Key, c.Value); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

func (l *List) Len() int {
	return len(l.comments)
}

func (l *List) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, c := range l.comments {
			if !yield(c.Key, c.Value) {
				break
			}
		}
	}
}

// GetFirst returns the first value mapped to key, if any.
func (l *List) GetFirst(key string) (string, bool) {
	for _, c := range l.comments {
		if keysEqual(c.Key, key) {
			return c.Value, true
		}
	}
	return "", false
}

// Append adds a mapping to the end of the list after validating the field
// name.
func (l *List) Append(key, value string) error {
	if err := ValidateFieldName(key); err != nil {
		return err
	}
	l.comments = append(l.comments, Comment{Key: key, Value: value})
	return nil
}

// Replace updates the first mapping for key in place, keeping that
// mapping's original key case, and drops any later mappings for the same
// key. If key is not present the mapping is appended.
func (l *List) Replace(key, value string) error {
	var found bool
	l.comments = deleteFunc(l.comments, func(c *Comment) bool {
		if !keysEqual(c.Key, key) {
			return false
		}
		if found {
			return true
		}
		c.Value = value
		found = true
		return false
	})
	if !found {
		return l.Append(key, value)
	}
	return nil
}

// RemoveAll removes every mapping for key.
func (l *List) RemoveAll(key string) {
	l.comments = deleteFunc(l.comments, func(c *Comment) bool {
		return keysEqual(c.Key, key)
	})
}

// Retain keeps only the mappings for which keep returns true.
func (l *List) Retain(keep func(key, value string) bool) {
	l.comments = deleteFunc(l.comments, func(c *Comment) bool {
		return !keep(c.Key, c.Value)
	})
}

func (l *List) Clear() {
	l.comments = l.comments[:0]
}

// Extend appends every mapping from other, in order.
func (l *List) Extend(other *List) error {
	for k, v := range other.All() {
		if err := l.Append(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (l *List) Clone() *List {
	var c List
	c.comments = append(c.comments, l.comments...)
	return &c
}

func Equal(a, b *List) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.comments {
		if a.comments[i] != b.comments[i] {
			return false
		}
	}
	return true
}

// WriteText writes the list as newline-delimited NAME=VALUE lines,
// optionally escaping control characters in values.
func (l *List) WriteText(w io.Writer, escaped bool) error {
	for _, c := range l.comments {
		v := c.Value
		if escaped {
			v = Escape(v)
		}
		if _, err := fmt.Fprintf(w, "%s%c%s\n", c.Key, Separator, v); err != nil {
			return err
		}
	}
	return nil
}

// ParseLine splits a NAME=VALUE line at the first separator and validates
// the field name.
func ParseLine(line string) (key, value string, err error) {
	key, value, ok := strings.Cut(line, string(Separator))
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMissingSeparator, line)
	}
	if err := ValidateFieldName(key); err != nil {
		return "", "", err
	}
	return key, value, nil
}

// ValidateFieldName checks a comment field name against the permitted
// ASCII subset, 0x20 to 0x7D excluding '='.
func ValidateFieldName(name string) error {
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c >= ' ' && c < byte(Separator):
		case c > byte(Separator) && c <= '}':
		default:
			return fmt.Errorf("%w: %q", ErrBadFieldName, name)
		}
	}
	return nil
}

// Keys are validated ASCII, so ASCII folding is enough here.
func keysEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

func deleteFunc(cs []Comment, del func(*Comment) bool) []Comment {
	out := cs[:0]
	for i := range cs {
		if !del(&cs[i]) {
			out = append(out, cs[i])
		}
	}
	return out
}
